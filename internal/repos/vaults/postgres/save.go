package vaults

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/vaults"
	"github.com/fastprodman/vaultd/internal/vault"
)

func (r *vaultsRepo) Save(ctx context.Context, tx *sql.Tx, v vault.Vault) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE vaults
		SET balance = $2::numeric, record = $3, updated_at = now()
		WHERE id = $1
	`, v.ID, pgutils.Amount(v.Balance), v.EncodeRecord())
	if err != nil {
		return fmt.Errorf("save vault: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return vaults.ErrVaultNotFound
	}

	return nil
}
