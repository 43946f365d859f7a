package events

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
)

var ErrDuplicateRequest = errors.New("duplicate request")

// Events is the append-only audit log of successful vault operations.
type Events interface {
	// Append records e. A non-empty requestID must be unique per vault and actor.
	Append(ctx context.Context, tx *sql.Tx, e vault.Event, requestID string) error
	// RequestSeen reports whether actor already committed requestID against the vault.
	RequestSeen(ctx context.Context, tx *sql.Tx, vaultID uuid.UUID, actor vault.Identity, requestID string) (bool, error)
	// List returns the newest events of a vault first.
	List(ctx context.Context, vaultID uuid.UUID, limit int) ([]vault.Event, error)
}
