package reward

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var ErrRewardDispatch = errors.New("reward dispatch failed")

// Dispatcher defines methods for paying out evaluation rewards
type Dispatcher interface {
	// Dispatch converts a final score into a token amount and returns the
	// transaction receipt. Calls are not idempotent.
	Dispatch(ctx context.Context, walletAddress string, score int) (*Receipt, error)
}

// Receipt 奖励交易回执
type Receipt struct {
	TxHash        string `json:"tx_hash"`
	Amount        int    `json:"amount"`
	WalletAddress string `json:"wallet_address"`
}

// ZeroReceipt is substituted when dispatch fails.
func ZeroReceipt(walletAddress string) *Receipt {
	return &Receipt{
		TxHash:        common.Hash{}.Hex(),
		Amount:        0,
		WalletAddress: walletAddress,
	}
}

// Policy 奖励金额策略
type Policy struct {
	Multiplier int `json:"multiplier"`
	Floor      int `json:"floor"`
	Ceiling    int `json:"ceiling"`
}

func DefaultPolicy() Policy {
	return Policy{
		Multiplier: 10,
		Floor:      100,
		Ceiling:    10000,
	}
}

// Validate rejects policies that cannot produce a bounded amount.
func (p Policy) Validate() error {
	if p.Multiplier <= 0 || p.Floor < 0 || p.Ceiling <= 0 {
		return fmt.Errorf("invalid reward policy: multiplier and ceiling must be positive, floor non-negative")
	}
	if p.Floor > p.Ceiling {
		return fmt.Errorf("invalid reward policy: floor %d exceeds ceiling %d", p.Floor, p.Ceiling)
	}
	return nil
}

// Amount applies the multiplier and clamps into [Floor, Ceiling].
func (p Policy) Amount(score int) int {
	amount := score * p.Multiplier
	if amount < p.Floor {
		return p.Floor
	}
	if amount > p.Ceiling {
		return p.Ceiling
	}
	return amount
}
