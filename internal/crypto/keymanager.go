// Package crypto provides signing-key management, transaction signing, and
// HMAC verification for inbound webhooks.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/pbkdf2"
)

// Key file parameters. Iterations are stored in the file so older files keep
// opening if the default changes.
const (
	keyFileVersion    = 2
	defaultIterations = 600_000
	saltSize          = 16
)

var (
	// ErrNoKeySource is returned by LoadKey when neither a raw key nor a key
	// file is configured.
	ErrNoKeySource = errors.New("crypto: no signing key configured (set chain.private_key, EVM_PRIVATE_KEY or chain.encrypted_key_path)")
	// ErrKeyMismatch means a key file decrypted to a key whose address differs
	// from the one recorded next to it.
	ErrKeyMismatch = errors.New("crypto: key file address does not match decrypted key")
)

// sealedKey is the on-disk key file.
type sealedKey struct {
	Version    int            `json:"version"`
	Address    common.Address `json:"address"`
	Iterations int            `json:"iterations"`
	Salt       hexutil.Bytes  `json:"salt"`
	Nonce      hexutil.Bytes  `json:"nonce"`
	Sealed     hexutil.Bytes  `json:"sealed"`
}

// KeyConfig lists the places LoadKey looks for the signing key, in order.
type KeyConfig struct {
	RawPrivateKey    string
	EncryptedKeyPath string
	KeyPassword      string
}

// EncryptKey seals a hex private key under password with AES-256-GCM, keyed
// by PBKDF2-SHA256. The signer address is authenticated as additional data.
func EncryptKey(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	raw, err := parseKeyHex(privateKeyHex)
	if err != nil {
		return nil, err
	}
	addr, err := AddressFromKey(hex.EncodeToString(raw))
	if err != nil {
		return nil, err
	}

	sk := sealedKey{
		Version:    keyFileVersion,
		Address:    addr,
		Iterations: defaultIterations,
		Salt:       make([]byte, saltSize),
	}
	if _, err := rand.Read(sk.Salt); err != nil {
		return nil, fmt.Errorf("crypto: salt: %w", err)
	}
	aead, err := keyCipher(password, sk.Salt, sk.Iterations)
	if err != nil {
		return nil, err
	}
	sk.Nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(sk.Nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	sk.Sealed = aead.Seal(nil, sk.Nonce, raw, addr.Bytes())

	return json.MarshalIndent(sk, "", "  ")
}

// DecryptKey opens a key file produced by EncryptKey and returns the private
// key as hex without a 0x prefix.
func DecryptKey(blob []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}
	sk, err := readSealedKey(blob)
	if err != nil {
		return "", err
	}
	aead, err := keyCipher(password, sk.Salt, sk.Iterations)
	if err != nil {
		return "", err
	}
	raw, err := aead.Open(nil, sk.Nonce, sk.Sealed, sk.Address.Bytes())
	if err != nil {
		return "", fmt.Errorf("crypto: cannot open key file (wrong password?): %w", err)
	}

	key := hex.EncodeToString(raw)
	got, err := AddressFromKey(key)
	if err != nil {
		return "", err
	}
	if got != sk.Address {
		return "", ErrKeyMismatch
	}
	return key, nil
}

// KeyFileAddress returns the address recorded in a key file without
// decrypting it.
func KeyFileAddress(blob []byte) (common.Address, error) {
	sk, err := readSealedKey(blob)
	if err != nil {
		return common.Address{}, err
	}
	return sk.Address, nil
}

// LoadKey resolves the signing key once at startup. A raw key wins over a key
// file.
func LoadKey(cfg KeyConfig) (string, error) {
	switch {
	case strings.TrimSpace(cfg.RawPrivateKey) != "":
		raw, err := parseKeyHex(cfg.RawPrivateKey)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(raw), nil
	case cfg.EncryptedKeyPath != "":
		blob, err := os.ReadFile(cfg.EncryptedKeyPath)
		if err != nil {
			return "", fmt.Errorf("crypto: read key file: %w", err)
		}
		return DecryptKey(blob, cfg.KeyPassword)
	default:
		return "", ErrNoKeySource
	}
}

func readSealedKey(blob []byte) (sealedKey, error) {
	var sk sealedKey
	if err := json.Unmarshal(blob, &sk); err != nil {
		return sk, fmt.Errorf("crypto: parse key file: %w", err)
	}
	if sk.Version != keyFileVersion {
		return sk, fmt.Errorf("crypto: unsupported key file version %d", sk.Version)
	}
	if sk.Iterations <= 0 || len(sk.Salt) == 0 || len(sk.Nonce) == 0 {
		return sk, errors.New("crypto: key file is missing kdf parameters")
	}
	return sk, nil
}

func parseKeyHex(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("crypto: expected 32-byte key, got %d bytes", len(raw))
	}
	return raw, nil
}

func keyCipher(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key([]byte(password), salt, iterations, 32, sha256.New))
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
