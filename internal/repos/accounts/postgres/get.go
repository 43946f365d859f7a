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

func (r *accountsRepo) Get(ctx context.Context, id vault.Identity) (vault.Account, error) {
	var raw string

	err := r.db.QueryRowContext(ctx, `
		SELECT balance::text
		FROM accounts
		WHERE id = $1
	`, id.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vault.Account{}, accounts.ErrAccountNotFound
		}

		return vault.Account{}, fmt.Errorf("get account: %w", err)
	}

	balance, err := pgutils.ParseAmount(raw)
	if err != nil {
		return vault.Account{}, err
	}

	return vault.Account{ID: id, Balance: balance}, nil
}
