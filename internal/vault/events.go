package vault

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventDeposit  EventKind = "deposit"
	EventWithdraw EventKind = "withdraw"
)

// Event is emitted only on success. Actor is the depositor for deposits and
// the authority for withdrawals.
type Event struct {
	ID      uuid.UUID
	Kind    EventKind
	VaultID uuid.UUID
	Actor   Identity
	Amount  uint64
	At      time.Time
}

func DepositEvent(vaultID uuid.UUID, depositor Identity, amount uint64, at time.Time) Event {
	return newEvent(EventDeposit, vaultID, depositor, amount, at)
}

func WithdrawEvent(vaultID uuid.UUID, authority Identity, amount uint64, at time.Time) Event {
	return newEvent(EventWithdraw, vaultID, authority, amount, at)
}

func newEvent(kind EventKind, vaultID uuid.UUID, actor Identity, amount uint64, at time.Time) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return Event{
		ID:      id,
		Kind:    kind,
		VaultID: vaultID,
		Actor:   actor,
		Amount:  amount,
		At:      at.UTC(),
	}
}
