package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer signs transactions for one account on one chain. It is created once
// at startup and never mutated.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	signer     types.Signer
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and
// the target chain ID (34443 for Mode mainnet, 919 for Mode Sepolia).
func NewSigner(privateKeyHex string, chainID *big.Int) (*Signer, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("crypto/signer: chain id must be positive")
	}
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    new(big.Int).Set(chainID),
		signer:     types.LatestSignerForChainID(chainID),
	}, nil
}

// Address returns the account the signer controls.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain the signer targets.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// SignTx signs tx for the configured chain.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, s.signer, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: sign tx: %w", err)
	}
	return signed, nil
}

// AddressFromKey derives the account address for a hex-encoded private key.
func AddressFromKey(privateKeyHex string) (common.Address, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(pk.PublicKey), nil
}
