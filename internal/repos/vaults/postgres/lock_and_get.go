package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/vaultd/internal/repos/vaults"
	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
)

func (r *vaultsRepo) LockAndGet(ctx context.Context, tx *sql.Tx, id uuid.UUID) (vault.Vault, error) {
	var (
		raw    string
		record []byte
	)

	err := tx.QueryRowContext(ctx, `
		SELECT balance::text, record
		FROM vaults
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&raw, &record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vault.Vault{}, vaults.ErrVaultNotFound
		}

		return vault.Vault{}, fmt.Errorf("lock/get vault: %w", err)
	}

	return scanVault(id, raw, record)
}
