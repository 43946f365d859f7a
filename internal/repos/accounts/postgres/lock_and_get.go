package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/accounts"
	"github.com/fastprodman/vaultd/internal/vault"
)

func (r *accountsRepo) LockAndGet(ctx context.Context, tx *sql.Tx, id vault.Identity) (vault.Account, error) {
	var raw string

	err := tx.QueryRowContext(ctx, `
		SELECT balance::text
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, id.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vault.Account{}, accounts.ErrAccountNotFound
		}

		return vault.Account{}, fmt.Errorf("lock/get account: %w", err)
	}

	balance, err := pgutils.ParseAmount(raw)
	if err != nil {
		return vault.Account{}, err
	}

	return vault.Account{ID: id, Balance: balance}, nil
}
