package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastprodman/vaultd/internal/vault"
)

var ErrAccountNotFound = errors.New("account not found")

// Accounts stores actors' external balances.
type Accounts interface {
	Get(ctx context.Context, id vault.Identity) (vault.Account, error)
	LockAndGet(ctx context.Context, tx *sql.Tx, id vault.Identity) (vault.Account, error)
	SetBalance(ctx context.Context, tx *sql.Tx, acc vault.Account) error
}
