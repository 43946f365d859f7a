package events

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
)

func (r *eventsRepo) RequestSeen(ctx context.Context, tx *sql.Tx, vaultID uuid.UUID, actor vault.Identity, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}

	var seen bool

	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vault_events
			WHERE vault_id = $1 AND actor = $2 AND request_id = $3
		)
	`, vaultID, actor.String(), requestID).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("lookup request %q: %w", requestID, err)
	}

	return seen, nil
}
