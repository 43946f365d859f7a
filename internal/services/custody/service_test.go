package custody

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/fastprodman/vaultd/internal/infra/pgtestutil"
	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/repos/accounts"
	"github.com/fastprodman/vaultd/internal/repos/events"
	"github.com/fastprodman/vaultd/internal/repos/vaults"
	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	authority = vault.Identity{0x01}
	depositor = vault.Identity{0x02}
	stranger  = vault.Identity{0x03}
)

type recorder struct {
	mu     sync.Mutex
	events []vault.Event
}

func (r *recorder) Observe(_ context.Context, e vault.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

// newFixture opens a vault holding 1000 with a floor of 500.
func newFixture(t *testing.T) (*Service, *recorder, vault.Vault) {
	t.Helper()

	svc, rec, v, _ := newFixtureDB(t)

	return svc, rec, v
}

func newFixtureDB(t *testing.T) (*Service, *recorder, vault.Vault, *sql.DB) {
	t.Helper()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedAccount(t, db, authority.String(), 500)
	pgtestutil.SeedAccount(t, db, depositor.String(), 1_000)
	pgtestutil.SeedAccount(t, db, stranger.String(), 0)

	rec := &recorder{}
	svc := New(db, vault.NewMachine(vault.FixedReserve(500)), rec)

	v, err := svc.Open(t.Context(), authority)
	require.NoError(t, err)
	require.Equal(t, uint64(500), v.Balance)

	_, err = svc.Deposit(t.Context(), Request{VaultID: v.ID, Actor: depositor, Amount: 500})
	require.NoError(t, err)

	return svc, rec, v, db
}

func balances(t *testing.T, svc *Service, v vault.Vault) (uint64, uint64, uint64) {
	t.Helper()

	view, err := svc.GetVault(t.Context(), v.ID)
	require.NoError(t, err)

	auth, err := svc.GetAccount(t.Context(), authority)
	require.NoError(t, err)

	dep, err := svc.GetAccount(t.Context(), depositor)
	require.NoError(t, err)

	return view.Vault.Balance, auth.Balance, dep.Balance
}

func TestService_Open(t *testing.T) {
	t.Parallel()

	svc, _, v := newFixture(t)

	assert.Equal(t, vault.DeriveID(authority), v.ID)

	vb, ab, db := balances(t, svc, v)
	assert.Equal(t, uint64(1000), vb)
	assert.Equal(t, uint64(0), ab, "authority paid the floor")
	assert.Equal(t, uint64(500), db)

	_, err := svc.Open(t.Context(), authority)
	require.ErrorIs(t, err, vaults.ErrVaultExists)

	_, err = svc.Open(t.Context(), stranger)
	require.ErrorIs(t, err, vault.ErrInsufficientBalance)

	_, err = svc.Open(t.Context(), vault.Identity{0x7f})
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestService_Withdraw_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		actor     vault.Identity
		amount    uint64
		wantErr   error
		wantVault uint64
		wantAuth  uint64
	}{
		{name: "within_available", actor: authority, amount: 400, wantVault: 600, wantAuth: 400},
		{name: "beyond_available", actor: authority, amount: 600, wantErr: vault.ErrInsufficientBalance, wantVault: 1000},
		{name: "stranger", actor: stranger, amount: 1, wantErr: vault.ErrUnauthorized, wantVault: 1000},
		{name: "zero", actor: authority, amount: 0, wantErr: vault.ErrInvalidAmount, wantVault: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, rec, v := newFixture(t)
			seen := rec.len()

			e, err := svc.Withdraw(t.Context(), Request{VaultID: v.ID, Actor: tt.actor, Amount: tt.amount})

			vb, ab, _ := balances(t, svc, v)
			assert.Equal(t, tt.wantVault, vb)
			assert.Equal(t, tt.wantAuth, ab)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, seen, rec.len(), "no event on failure")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, vault.EventWithdraw, e.Kind)
			assert.Equal(t, seen+1, rec.len())

			logged, err := svc.ListEvents(t.Context(), v.ID, 10)
			require.NoError(t, err)
			require.NotEmpty(t, logged)
			assert.Equal(t, e.ID, logged[0].ID)
		})
	}
}

func TestService_Deposit_Failures(t *testing.T) {
	t.Parallel()

	svc, rec, v := newFixture(t)
	seen := rec.len()

	_, err := svc.Deposit(t.Context(), Request{VaultID: v.ID, Actor: depositor, Amount: 501})
	require.ErrorIs(t, err, vault.ErrInsufficientBalance)

	_, err = svc.SetLocked(t.Context(), v.ID, stranger, true)
	require.ErrorIs(t, err, vault.ErrUnauthorized)

	locked, err := svc.SetLocked(t.Context(), v.ID, authority, true)
	require.NoError(t, err)
	assert.True(t, locked.Locked)

	_, err = svc.Deposit(t.Context(), Request{VaultID: v.ID, Actor: depositor, Amount: 100})
	require.ErrorIs(t, err, vault.ErrVaultLocked)

	_, err = svc.Withdraw(t.Context(), Request{VaultID: v.ID, Actor: authority, Amount: 100})
	require.ErrorIs(t, err, vault.ErrVaultLocked)

	vb, ab, db := balances(t, svc, v)
	assert.Equal(t, uint64(1000), vb)
	assert.Equal(t, uint64(0), ab)
	assert.Equal(t, uint64(500), db)
	assert.Equal(t, seen, rec.len())

	_, err = svc.SetLocked(t.Context(), v.ID, authority, false)
	require.NoError(t, err)

	_, err = svc.Deposit(t.Context(), Request{VaultID: v.ID, Actor: depositor, Amount: 100})
	require.NoError(t, err)
}

func TestService_DuplicateRequest(t *testing.T) {
	t.Parallel()

	svc, _, v := newFixture(t)
	req := Request{VaultID: v.ID, Actor: depositor, Amount: 100, RequestID: "dep-1"}

	_, err := svc.Deposit(t.Context(), req)
	require.NoError(t, err)

	_, err = svc.Deposit(t.Context(), req)
	require.ErrorIs(t, err, events.ErrDuplicateRequest)

	vb, _, db := balances(t, svc, v)
	assert.Equal(t, uint64(1100), vb)
	assert.Equal(t, uint64(400), db)

	other := Request{VaultID: v.ID, Actor: authority, Amount: 100, RequestID: "dep-1"}
	_, err = svc.Withdraw(t.Context(), other)
	require.NoError(t, err, "request ids are scoped per actor")
}

func TestService_DuplicateRequest_AfterStateChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		change func(t *testing.T, svc *Service, v vault.Vault)
	}{
		{
			name: "vault_locked",
			change: func(t *testing.T, svc *Service, v vault.Vault) {
				_, err := svc.SetLocked(t.Context(), v.ID, authority, true)
				require.NoError(t, err)
			},
		},
		{
			name: "depositor_spent",
			change: func(t *testing.T, svc *Service, v vault.Vault) {
				_, err := svc.Deposit(t.Context(), Request{VaultID: v.ID, Actor: depositor, Amount: 400})
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, rec, v := newFixture(t)
			req := Request{VaultID: v.ID, Actor: depositor, Amount: 100, RequestID: "dep-replay"}

			_, err := svc.Deposit(t.Context(), req)
			require.NoError(t, err)

			tt.change(t, svc, v)

			vb, ab, db := balances(t, svc, v)
			seen := rec.len()

			_, err = svc.Deposit(t.Context(), req)
			require.ErrorIs(t, err, events.ErrDuplicateRequest)

			vb2, ab2, db2 := balances(t, svc, v)
			assert.Equal(t, []uint64{vb, ab, db}, []uint64{vb2, ab2, db2})
			assert.Equal(t, seen, rec.len())
		})
	}
}

// Concurrent withdrawals serialize on the vault row and never dip below the floor.
func TestService_ConcurrentWithdrawals(t *testing.T) {
	t.Parallel()

	svc, _, v := newFixture(t)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)

	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Withdraw(context.Background(), Request{VaultID: v.ID, Actor: authority, Amount: 200})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()

				return
			}

			assert.ErrorIs(t, err, vault.ErrInsufficientBalance)
		}()
	}

	wg.Wait()

	vb, ab, _ := balances(t, svc, v)
	assert.Equal(t, 2, ok)
	assert.Equal(t, uint64(600), vb)
	assert.Equal(t, uint64(400), ab)
}

// insertForgedVault stores a record claiming authority under an id that was
// not derived from it. No binding row points at it.
func insertForgedVault(t *testing.T, db *sql.DB, balance uint64) uuid.UUID {
	t.Helper()

	forged := vault.New(authority)
	forged.ID = uuid.New()
	forged.Balance = balance

	_, err := db.ExecContext(t.Context(), `
		INSERT INTO vaults (id, record, balance) VALUES ($1, $2, $3::numeric)
	`, forged.ID, forged.EncodeRecord(), pgutils.Amount(forged.Balance))
	require.NoError(t, err)

	return forged.ID
}

func TestService_BindingMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tamper func(t *testing.T, db *sql.DB, bound uuid.UUID) uuid.UUID
	}{
		{
			name: "vault_id_not_derived",
			tamper: func(t *testing.T, db *sql.DB, _ uuid.UUID) uuid.UUID {
				return insertForgedVault(t, db, 5_000)
			},
		},
		{
			name: "binding_points_at_forged_vault",
			tamper: func(t *testing.T, db *sql.DB, _ uuid.UUID) uuid.UUID {
				forged := insertForgedVault(t, db, 5_000)

				_, err := db.ExecContext(t.Context(), `
					UPDATE vault_bindings SET vault_id = $1 WHERE authority = $2
				`, forged, authority.String())
				require.NoError(t, err)

				return forged
			},
		},
		{
			name: "binding_points_elsewhere",
			tamper: func(t *testing.T, db *sql.DB, bound uuid.UUID) uuid.UUID {
				forged := insertForgedVault(t, db, 5_000)

				_, err := db.ExecContext(t.Context(), `
					UPDATE vault_bindings SET vault_id = $1 WHERE authority = $2
				`, forged, authority.String())
				require.NoError(t, err)

				return bound
			},
		},
		{
			name: "binding_missing",
			tamper: func(t *testing.T, db *sql.DB, bound uuid.UUID) uuid.UUID {
				_, err := db.ExecContext(t.Context(), `
					DELETE FROM vault_bindings WHERE authority = $1
				`, authority.String())
				require.NoError(t, err)

				return bound
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, rec, v, db := newFixtureDB(t)
			target := tt.tamper(t, db, v.ID)

			before, err := svc.GetVault(t.Context(), target)
			require.NoError(t, err)

			vb, ab, dep := balances(t, svc, v)
			seen := rec.len()

			_, err = svc.Withdraw(t.Context(), Request{VaultID: target, Actor: authority, Amount: 100})
			require.ErrorIs(t, err, ErrBindingMismatch)
			assert.Equal(t, "unauthorized", Outcome(err))

			_, err = svc.Deposit(t.Context(), Request{VaultID: target, Actor: depositor, Amount: 100})
			require.ErrorIs(t, err, ErrBindingMismatch)

			after, err := svc.GetVault(t.Context(), target)
			require.NoError(t, err)
			assert.Equal(t, before.Vault.Balance, after.Vault.Balance)

			vb2, ab2, dep2 := balances(t, svc, v)
			assert.Equal(t, []uint64{vb, ab, dep}, []uint64{vb2, ab2, dep2})
			assert.Equal(t, seen, rec.len())
		})
	}
}
