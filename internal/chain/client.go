package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/predictplugin/internal/crypto"
	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// ClientConfig holds the parameters for dialing the RPC endpoint.
type ClientConfig struct {
	ProviderURL  string
	ChainID      int64 // 0 asks the node
	PrivateKey   string
	PollInterval time.Duration
	GasMarginPct uint64
}

// EthClient implements Gateway over go-ethereum's ethclient.
type EthClient struct {
	rpc     *ethclient.Client
	signer  *crypto.Signer
	chainID *big.Int
	poll    time.Duration
	margin  uint64
	logger  *slog.Logger

	// mu serializes nonce allocation for the single signing account.
	mu        sync.Mutex
	nextNonce *uint64
}

var _ Gateway = (*EthClient)(nil)

// Dial connects to the provider, resolves the chain id and loads the signer
// when a key is configured.
func Dial(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*EthClient, error) {
	rpc, err := ethclient.DialContext(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = rpc.ChainID(ctx)
		if err != nil {
			rpc.Close()
			return nil, fmt.Errorf("chain: chain id: %w", err)
		}
	}

	c := &EthClient{
		rpc:     rpc,
		chainID: chainID,
		poll:    cfg.PollInterval,
		margin:  cfg.GasMarginPct,
		logger:  logger.With(slog.String("component", "chain")),
	}
	if c.poll <= 0 {
		c.poll = 2 * time.Second
	}
	if c.margin == 0 {
		c.margin = 20
	}

	if cfg.PrivateKey != "" {
		c.signer, err = crypto.NewSigner(cfg.PrivateKey, chainID)
		if err != nil {
			rpc.Close()
			return nil, fmt.Errorf("chain: %w", err)
		}
	}

	c.logger.Info("chain client ready",
		slog.String("chain_id", chainID.String()),
		slog.String("sender", c.Sender().Hex()),
	)
	return c, nil
}

// Close releases the RPC connection.
func (c *EthClient) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// ChainID returns the resolved chain id.
func (c *EthClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Sender returns the signing account.
func (c *EthClient) Sender() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

// Read performs a view call.
func (c *EthClient) Read(ctx context.Context, call Call) ([]any, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", call.Method, err)
	}

	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{
		From: c.Sender(),
		To:   &call.Contract,
		Data: data,
	}, nil)
	if err != nil {
		if rev, ok := DecodeRevert(err); ok {
			return nil, rev
		}
		return nil, fmt.Errorf("chain: call %s: %w", call, err)
	}

	method, ok := call.ABI.Methods[call.Method]
	if ok && len(method.Outputs) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("chain: call %s: empty result (no contract code?)", call)
	}

	values, err := call.ABI.Unpack(call.Method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", call.Method, err)
	}
	return values, nil
}

// Write estimates gas, signs and sends a transaction. Submissions from the
// same process are serialized so nonces never collide.
func (c *EthClient) Write(ctx context.Context, call Call) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, domain.ErrNoSigner
	}

	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: pack %s: %w", call.Method, err)
	}

	from := c.signer.Address()
	msg := ethereum.CallMsg{From: from, To: &call.Contract, Data: data}

	c.mu.Lock()
	defer c.mu.Unlock()

	gas, err := c.rpc.EstimateGas(ctx, msg)
	if err != nil {
		if rev, ok := DecodeRevert(err); ok {
			return common.Hash{}, rev
		}
		return common.Hash{}, fmt.Errorf("chain: estimate gas %s: %w", call, err)
	}
	gasLimit := gas * (100 + c.margin) / 100

	nonce, err := c.allocateNonce(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := c.buildTx(ctx, nonce, call.Contract, gasLimit, data)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := c.signer.SignTx(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: %w", err)
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		c.nextNonce = nil
		return common.Hash{}, fmt.Errorf("chain: send %s: %w", call, err)
	}

	next := nonce + 1
	c.nextNonce = &next

	c.logger.Info("transaction sent",
		slog.String("call", call.String()),
		slog.String("tx_hash", signed.Hash().Hex()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas", gasLimit),
	)
	return signed.Hash(), nil
}

func (c *EthClient) allocateNonce(ctx context.Context, from common.Address) (uint64, error) {
	pending, err := c.rpc.PendingNonceAt(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("chain: pending nonce: %w", err)
	}
	if c.nextNonce != nil && *c.nextNonce > pending {
		return *c.nextNonce, nil
	}
	return pending, nil
}

func (c *EthClient) buildTx(ctx context.Context, nonce uint64, to common.Address, gas uint64, data []byte) (*types.Transaction, error) {
	head, err := c.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: latest header: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, err := c.rpc.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain: gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    big.NewInt(0),
			Gas:      gas,
			GasPrice: gasPrice,
			Data:     data,
		}), nil
	}

	tip, err := c.rpc.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: gas tip: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	}), nil
}

// WaitForReceipt polls for the receipt until it is available or ctx ends.
func (c *EthClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("receipt poll failed",
				slog.String("tx_hash", hash.Hex()),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Logs filters logs.
func (c *EthClient) Logs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := c.rpc.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chain: filter logs: %w", err)
	}
	return logs, nil
}
