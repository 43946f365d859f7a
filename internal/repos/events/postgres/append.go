package events

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/events"
	"github.com/fastprodman/vaultd/internal/vault"
)

const requestConstraint = "vault_events_request_uniq"

func (r *eventsRepo) Append(ctx context.Context, tx *sql.Tx, e vault.Event, requestID string) error {
	var reqID sql.NullString
	if requestID != "" {
		reqID = sql.NullString{String: requestID, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO vault_events (id, vault_id, kind, actor, amount, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
	`, e.ID, e.VaultID, string(e.Kind), e.Actor.String(), pgutils.Amount(e.Amount), reqID, e.At)
	if err != nil {
		if pgutils.IsUniqueViolation(err, requestConstraint) {
			return events.ErrDuplicateRequest
		}

		return fmt.Errorf("append event: %w", err)
	}

	return nil
}
