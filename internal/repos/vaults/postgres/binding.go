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

func (r *vaultsRepo) BoundVault(ctx context.Context, tx *sql.Tx, authority vault.Identity) (uuid.UUID, error) {
	var id uuid.UUID

	err := tx.QueryRowContext(ctx, `
		SELECT vault_id
		FROM vault_bindings
		WHERE authority = $1
	`, authority.String()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, vaults.ErrBindingNotFound
		}

		return uuid.Nil, fmt.Errorf("get binding: %w", err)
	}

	return id, nil
}
