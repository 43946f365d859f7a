package vaults

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
)

var (
	ErrVaultNotFound   = errors.New("vault not found")
	ErrVaultExists     = errors.New("vault already exists")
	ErrBindingNotFound = errors.New("vault binding not found")
)

type Vaults interface {
	// Insert stores a new vault record and binds it to its authority.
	Insert(ctx context.Context, tx *sql.Tx, v vault.Vault) error
	Get(ctx context.Context, id uuid.UUID) (vault.Vault, error)
	LockAndGet(ctx context.Context, tx *sql.Tx, id uuid.UUID) (vault.Vault, error)
	// Save persists balance and record of an existing vault.
	Save(ctx context.Context, tx *sql.Tx, v vault.Vault) error
	// BoundVault returns the vault id bound to authority.
	BoundVault(ctx context.Context, tx *sql.Tx, authority vault.Identity) (uuid.UUID, error)
}
