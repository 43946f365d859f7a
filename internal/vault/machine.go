package vault

import (
	"fmt"
	"time"
)

// Transition is the outcome of a successful operation: the new vault state,
// the actor's new external balance and the event to publish.
type Transition struct {
	Vault Vault
	Actor Account
	Event Event
}

// Machine runs deposits and withdrawals over values passed in by the host.
// It holds no vault state; inputs are never modified, so a rejected call
// leaves the caller's copies untouched.
type Machine struct {
	reserve ReservePolicy
	now     func() time.Time
}

type Option func(*Machine)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

func NewMachine(reserve ReservePolicy, opts ...Option) *Machine {
	if reserve == nil {
		reserve = DefaultRentPolicy()
	}

	m := &Machine{
		reserve: reserve,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Machine) ReserveFloor(v Vault) uint64 {
	return m.reserve.ReserveFloor(v)
}

func (m *Machine) Available(v Vault) uint64 {
	return Available(v, m.reserve)
}

// Deposit moves amount from depositor into v. The depositor's total balance
// must cover amount; the depositor's own reserve is not considered here.
func (m *Machine) Deposit(v Vault, depositor Account, amount uint64) (Transition, error) {
	if v.Locked {
		return Transition{}, ErrVaultLocked
	}

	if amount == 0 {
		return Transition{}, ErrInvalidAmount
	}

	if depositor.Balance < amount {
		return Transition{}, fmt.Errorf("depositor has %d, needs %d: %w", depositor.Balance, amount, ErrInsufficientBalance)
	}

	debited, err := CheckedSub(depositor.Balance, amount)
	if err != nil {
		return Transition{}, fmt.Errorf("debit depositor: %w", err)
	}

	credited, err := CheckedAdd(v.Balance, amount)
	if err != nil {
		return Transition{}, fmt.Errorf("credit vault: %w", err)
	}

	v.Balance = credited
	depositor.Balance = debited

	return Transition{
		Vault: v,
		Actor: depositor,
		Event: DepositEvent(v.ID, depositor.ID, amount, m.now()),
	}, nil
}

// Withdraw releases amount from v to caller, who must be the vault authority.
// Only the balance above the reserve floor can leave the vault.
func (m *Machine) Withdraw(v Vault, caller Account, amount uint64) (Transition, error) {
	if caller.ID != v.Authority {
		return Transition{}, ErrUnauthorized
	}

	if v.Locked {
		return Transition{}, ErrVaultLocked
	}

	if amount == 0 {
		return Transition{}, ErrInvalidAmount
	}

	floor := m.reserve.ReserveFloor(v)

	available, err := CheckedSub(v.Balance, floor)
	if err != nil {
		return Transition{}, fmt.Errorf("balance %d below reserve floor %d: %w", v.Balance, floor, ErrInsufficientBalance)
	}

	if available < amount {
		return Transition{}, fmt.Errorf("available %d, requested %d: %w", available, amount, ErrInsufficientBalance)
	}

	remaining, err := CheckedSub(v.Balance, amount)
	if err != nil {
		return Transition{}, fmt.Errorf("debit vault: %w", err)
	}

	credited, err := CheckedAdd(caller.Balance, amount)
	if err != nil {
		return Transition{}, fmt.Errorf("credit authority: %w", err)
	}

	v.Balance = remaining
	caller.Balance = credited

	return Transition{
		Vault: v,
		Actor: caller,
		Event: WithdrawEvent(v.ID, caller.ID, amount, m.now()),
	}, nil
}
