package ports

import "context"

// WalletUpdate represents a single currency change for a user.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort defines the interface for managing arena tokens.
type EconomyPort interface {
	// GetBalance retrieves the current token balance for a user.
	GetBalance(ctx context.Context, userID string) (int64, error)
}
