package custody

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/vaultd/internal/infra/metrics"
	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/vaultd/internal/repos/accounts/postgres"
	"github.com/fastprodman/vaultd/internal/repos/events"
	pgevents "github.com/fastprodman/vaultd/internal/repos/events/postgres"
	"github.com/fastprodman/vaultd/internal/repos/vaults"
	pgvaults "github.com/fastprodman/vaultd/internal/repos/vaults/postgres"
	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
)

// ErrBindingMismatch means the vault record is not the one bound to its
// authority, so its authority field cannot be trusted.
var ErrBindingMismatch = errors.New("vault binding mismatch")

const (
	opOpen     = "open"
	opDeposit  = "deposit"
	opWithdraw = "withdraw"
	opLock     = "set_locked"
)

// Request is an authenticated call against one vault.
type Request struct {
	VaultID   uuid.UUID
	Actor     vault.Identity
	Amount    uint64
	RequestID string // optional idempotency key
}

// VaultView is a vault plus the values derived from the reserve policy.
type VaultView struct {
	Vault        vault.Vault
	ReserveFloor uint64
	Available    uint64
}

// Service hosts the vault core: it loads and locks records, runs the state
// machine and persists the outcome together with its event in one transaction.
type Service struct {
	db        *sql.DB
	machine   *vault.Machine
	vaults    vaults.Vaults
	accounts  accounts.Accounts
	events    events.Events
	observers []Observer
}

func New(db *sql.DB, machine *vault.Machine, observers ...Observer) *Service {
	return &Service{
		db:        db,
		machine:   machine,
		vaults:    pgvaults.New(db),
		accounts:  pgaccounts.New(db),
		events:    pgevents.New(db),
		observers: observers,
	}
}

// Open creates the vault bound to authority. The authority pays the reserve
// floor, which becomes the vault's starting balance.
func (s *Service) Open(ctx context.Context, authority vault.Identity) (vault.Vault, error) {
	defer observeDuration(opOpen, time.Now())

	v := vault.New(authority)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		payer, err := s.accounts.LockAndGet(ctx, tx, authority)
		if err != nil {
			return fmt.Errorf("lock authority account: %w", err)
		}

		_, err = s.vaults.BoundVault(ctx, tx, authority)
		if err == nil {
			return vaults.ErrVaultExists
		}

		if !errors.Is(err, vaults.ErrBindingNotFound) {
			return fmt.Errorf("lookup binding: %w", err)
		}

		floor := s.machine.ReserveFloor(v)

		payer.Balance, err = vault.CheckedSub(payer.Balance, floor)
		if err != nil {
			return fmt.Errorf("fund reserve floor %d: %w", floor, err)
		}

		v.Balance = floor

		err = s.vaults.Insert(ctx, tx, v)
		if err != nil {
			return fmt.Errorf("insert vault: %w", err)
		}

		err = s.accounts.SetBalance(ctx, tx, payer)
		if err != nil {
			return fmt.Errorf("debit authority: %w", err)
		}

		return nil
	})

	metrics.Operations.WithLabelValues(opOpen, Outcome(err)).Inc()

	if err != nil {
		return vault.Vault{}, fmt.Errorf("open vault: %w", err)
	}

	return v, nil
}

// Deposit moves req.Amount from req.Actor's account into the vault.
func (s *Service) Deposit(ctx context.Context, req Request) (vault.Event, error) {
	return s.apply(ctx, opDeposit, req, false, s.machine.Deposit)
}

// Withdraw releases req.Amount from the vault to its authority.
func (s *Service) Withdraw(ctx context.Context, req Request) (vault.Event, error) {
	return s.apply(ctx, opWithdraw, req, true, s.machine.Withdraw)
}

type transitionFn func(v vault.Vault, actor vault.Account, amount uint64) (vault.Transition, error)

// apply locks the vault row, then the actor row, and commits the transition
// with its audit event. A replayed request id is refused before the core runs,
// so the answer does not depend on state changed since the first attempt.
// Observers run only after a successful commit.
// With authorityOnly set, callers other than the vault authority are refused
// before any account row is read; the core checks identity again.
func (s *Service) apply(ctx context.Context, op string, req Request, authorityOnly bool, fn transitionFn) (vault.Event, error) {
	defer observeDuration(op, time.Now())

	var tr vault.Transition

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := s.lockBoundVault(ctx, tx, req.VaultID)
		if err != nil {
			return err
		}

		if authorityOnly && req.Actor != v.Authority {
			return vault.ErrUnauthorized
		}

		seen, err := s.events.RequestSeen(ctx, tx, v.ID, req.Actor, req.RequestID)
		if err != nil {
			return fmt.Errorf("check request: %w", err)
		}

		if seen {
			return events.ErrDuplicateRequest
		}

		actor, err := s.accounts.LockAndGet(ctx, tx, req.Actor)
		if err != nil {
			return fmt.Errorf("lock actor account: %w", err)
		}

		tr, err = fn(v, actor, req.Amount)
		if err != nil {
			return err
		}

		err = s.vaults.Save(ctx, tx, tr.Vault)
		if err != nil {
			return fmt.Errorf("save vault: %w", err)
		}

		err = s.accounts.SetBalance(ctx, tx, tr.Actor)
		if err != nil {
			return fmt.Errorf("save actor account: %w", err)
		}

		err = s.events.Append(ctx, tx, tr.Event, req.RequestID)
		if err != nil {
			return fmt.Errorf("append event: %w", err)
		}

		return nil
	})

	metrics.Operations.WithLabelValues(op, Outcome(err)).Inc()

	if err != nil {
		return vault.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, tr.Event)

	return tr.Event, nil
}

// SetLocked toggles the lock flag. Only the authority may do so.
func (s *Service) SetLocked(ctx context.Context, vaultID uuid.UUID, caller vault.Identity, locked bool) (vault.Vault, error) {
	defer observeDuration(opLock, time.Now())

	var out vault.Vault

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := s.lockBoundVault(ctx, tx, vaultID)
		if err != nil {
			return err
		}

		if caller != v.Authority {
			return vault.ErrUnauthorized
		}

		v.Locked = locked

		err = s.vaults.Save(ctx, tx, v)
		if err != nil {
			return fmt.Errorf("save vault: %w", err)
		}

		out = v

		return nil
	})

	metrics.Operations.WithLabelValues(opLock, Outcome(err)).Inc()

	if err != nil {
		return vault.Vault{}, fmt.Errorf("set locked: %w", err)
	}

	return out, nil
}

// lockBoundVault locks the vault row and checks it against the host-side
// binding table and the id derivation.
func (s *Service) lockBoundVault(ctx context.Context, tx *sql.Tx, id uuid.UUID) (vault.Vault, error) {
	v, err := s.vaults.LockAndGet(ctx, tx, id)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("lock vault: %w", err)
	}

	bound, err := s.vaults.BoundVault(ctx, tx, v.Authority)
	if err != nil {
		if errors.Is(err, vaults.ErrBindingNotFound) {
			return vault.Vault{}, ErrBindingMismatch
		}

		return vault.Vault{}, fmt.Errorf("lookup binding: %w", err)
	}

	if bound != v.ID || vault.DeriveID(v.Authority) != v.ID {
		return vault.Vault{}, ErrBindingMismatch
	}

	return v, nil
}

func (s *Service) GetVault(ctx context.Context, id uuid.UUID) (VaultView, error) {
	v, err := s.vaults.Get(ctx, id)
	if err != nil {
		return VaultView{}, fmt.Errorf("get vault: %w", err)
	}

	return VaultView{
		Vault:        v,
		ReserveFloor: s.machine.ReserveFloor(v),
		Available:    s.machine.Available(v),
	}, nil
}

func (s *Service) GetAccount(ctx context.Context, id vault.Identity) (vault.Account, error) {
	acc, err := s.accounts.Get(ctx, id)
	if err != nil {
		return vault.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

func (s *Service) ListEvents(ctx context.Context, vaultID uuid.UUID, limit int) ([]vault.Event, error) {
	_, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return nil, fmt.Errorf("get vault: %w", err)
	}

	out, err := s.events.List(ctx, vaultID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return out, nil
}

func observeDuration(op string, start time.Time) {
	metrics.OperationDuration.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
}
