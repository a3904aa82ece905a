package reward

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// SimulatedDispatcher produces receipts without touching any ledger. The
// hash mixes a random nonce so identical inputs yield different receipts.
type SimulatedDispatcher struct {
	policy Policy
	logger *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*SimulatedDispatcher)

// WithRand injects the nonce source.
func WithRand(r *rand.Rand) Option {
	return func(d *SimulatedDispatcher) {
		d.rnd = r
	}
}

func NewSimulatedDispatcher(policy Policy, logger *slog.Logger, opts ...Option) (*SimulatedDispatcher, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	d := &SimulatedDispatcher{
		policy: policy,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rnd == nil {
		d.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return d, nil
}

// Dispatch implements Dispatcher
func (d *SimulatedDispatcher) Dispatch(ctx context.Context, walletAddress string, score int) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRewardDispatch, err)
	}

	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: wallet address is required", ErrRewardDispatch)
	}

	amount := d.policy.Amount(score)
	txHash := TxHash(walletAddress, score, d.nonce())

	d.logger.Info("simulated reward transaction",
		"wallet", walletAddress,
		"score", score,
		"amount", amount,
		"tx_hash", txHash)

	return &Receipt{
		TxHash:        txHash,
		Amount:        amount,
		WalletAddress: walletAddress,
	}, nil
}

func (d *SimulatedDispatcher) nonce() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rnd.Int63()
}

// TxHash derives the receipt hash: 0x-prefixed keccak256 over
// "<wallet>_<score>_<nonce>".
func TxHash(walletAddress string, score int, nonce int64) string {
	msg := fmt.Sprintf("%s_%d_%d", walletAddress, score, nonce)
	return crypto.Keccak256Hash([]byte(msg)).Hex()
}
