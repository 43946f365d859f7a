package accounts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/accounts"
	"github.com/fastprodman/vaultd/internal/vault"
)

// SetBalance writes the post-operation balance computed by the vault core.
// The row must already be locked by LockAndGet in the same tx.
func (r *accountsRepo) SetBalance(ctx context.Context, tx *sql.Tx, acc vault.Account) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $2::numeric, updated_at = now()
		WHERE id = $1
	`, acc.ID.String(), pgutils.Amount(acc.Balance))
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}
