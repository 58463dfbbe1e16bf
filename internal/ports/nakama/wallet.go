package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"

	"lastarena/internal/ports"
)

type walletStore interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
}

// NakamaEconomyAdapter implements ports.EconomyPort by reading Nakama wallets.
// Payouts go through RewardSink so they share a transaction with their marker.
type NakamaEconomyAdapter struct {
	nk       walletStore
	currency string
}

// NewNakamaEconomyAdapter creates an economy adapter paying in currency.
func NewNakamaEconomyAdapter(nk walletStore, currency string) *NakamaEconomyAdapter {
	return &NakamaEconomyAdapter{nk: nk, currency: currency}
}

// GetBalance retrieves the current token balance for a user.
func (a *NakamaEconomyAdapter) GetBalance(ctx context.Context, userID string) (int64, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account.GetWallet() == "" {
		return 0, nil
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.GetWallet()), &wallet); err != nil {
		return 0, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return wallet[a.currency], nil
}

var _ ports.EconomyPort = (*NakamaEconomyAdapter)(nil)
