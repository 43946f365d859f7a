package events

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
)

const maxListLimit = 500

func (r *eventsRepo) List(ctx context.Context, vaultID uuid.UUID, limit int) ([]vault.Event, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, actor, amount::text, created_at
		FROM vault_events
		WHERE vault_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, vaultID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]vault.Event, 0, limit)

	for rows.Next() {
		var (
			id        uuid.UUID
			kind      string
			actor     string
			rawAmount string
			at        time.Time
		)

		err = rows.Scan(&id, &kind, &actor, &rawAmount, &at)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		actorID, err := vault.ParseIdentity(actor)
		if err != nil {
			return nil, fmt.Errorf("event %s actor: %w", id, err)
		}

		amount, err := pgutils.ParseAmount(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}

		out = append(out, vault.Event{
			ID:      id,
			Kind:    vault.EventKind(kind),
			VaultID: vaultID,
			Actor:   actorID,
			Amount:  amount,
			At:      at.UTC(),
		})
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return out, nil
}
