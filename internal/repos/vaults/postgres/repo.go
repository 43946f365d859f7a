package vaults

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/vaults"
	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
)

var _ vaults.Vaults = (*vaultsRepo)(nil)

type vaultsRepo struct{ db *sql.DB }

func New(db *sql.DB) *vaultsRepo {
	return &vaultsRepo{db: db}
}

func scanVault(id uuid.UUID, rawBalance string, record []byte) (vault.Vault, error) {
	balance, err := pgutils.ParseAmount(rawBalance)
	if err != nil {
		return vault.Vault{}, err
	}

	v, err := vault.DecodeRecord(id, balance, record)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("decode vault %s: %w", id, err)
	}

	return v, nil
}
