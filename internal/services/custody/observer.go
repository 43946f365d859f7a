package custody

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fastprodman/vaultd/internal/infra/metrics"
	"github.com/fastprodman/vaultd/internal/repos/accounts"
	"github.com/fastprodman/vaultd/internal/repos/events"
	"github.com/fastprodman/vaultd/internal/repos/vaults"
	"github.com/fastprodman/vaultd/internal/vault"
)

// Observer receives events of committed operations. It carries no control
// over the operation and must not block for long.
type Observer interface {
	Observe(ctx context.Context, e vault.Event)
}

type ObserverFunc func(ctx context.Context, e vault.Event)

func (f ObserverFunc) Observe(ctx context.Context, e vault.Event) {
	f(ctx, e)
}

func (s *Service) notify(ctx context.Context, e vault.Event) {
	for _, o := range s.observers {
		o.Observe(ctx, e)
	}
}

// LogObserver writes every event to the default slog logger.
func LogObserver() Observer {
	return ObserverFunc(func(ctx context.Context, e vault.Event) {
		slog.InfoContext(ctx, "vault event",
			"event_id", e.ID,
			"kind", e.Kind,
			"vault_id", e.VaultID,
			"actor", e.Actor,
			"amount", e.Amount,
		)
	})
}

// MetricsObserver accumulates transferred amounts per event kind.
func MetricsObserver() Observer {
	return ObserverFunc(func(_ context.Context, e vault.Event) {
		metrics.TransferredAmount.WithLabelValues(string(e.Kind)).Add(float64(e.Amount))
	})
}

// Outcome is a stable label for the result of an operation.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, vault.ErrVaultLocked):
		return "vault_locked"
	case errors.Is(err, vault.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, vault.ErrOverflow):
		return "overflow"
	case errors.Is(err, vault.ErrUnauthorized), errors.Is(err, ErrBindingMismatch):
		return "unauthorized"
	case errors.Is(err, vault.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, events.ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, vaults.ErrVaultExists):
		return "vault_exists"
	case errors.Is(err, vaults.ErrVaultNotFound), errors.Is(err, accounts.ErrAccountNotFound):
		return "not_found"
	default:
		return "error"
	}
}
