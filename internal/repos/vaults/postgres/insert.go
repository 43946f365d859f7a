package vaults

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/vaults"
	"github.com/fastprodman/vaultd/internal/vault"
)

func (r *vaultsRepo) Insert(ctx context.Context, tx *sql.Tx, v vault.Vault) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vaults (id, record, balance)
		VALUES ($1, $2, $3::numeric)
	`, v.ID, v.EncodeRecord(), pgutils.Amount(v.Balance))
	if err != nil {
		if pgutils.IsUniqueViolation(err, "") {
			return vaults.ErrVaultExists
		}

		return fmt.Errorf("insert vault: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vault_bindings (authority, vault_id)
		VALUES ($1, $2)
	`, v.Authority.String(), v.ID)
	if err != nil {
		if pgutils.IsUniqueViolation(err, "") {
			return vaults.ErrVaultExists
		}

		return fmt.Errorf("insert binding: %w", err)
	}

	return nil
}
