package vault

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedArithmetic(t *testing.T) {
	t.Parallel()

	sum, err := CheckedAdd(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, err = CheckedAdd(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrOverflow)

	diff, err := CheckedSub(5, 5)
	require.NoError(t, err)
	assert.Zero(t, diff)

	_, err = CheckedSub(4, 5)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRentPolicy_ReserveFloor(t *testing.T) {
	t.Parallel()

	v := New(authority)

	assert.Equal(t, 42, v.RecordSize())
	assert.Equal(t, uint64((128+42)*3480*2), DefaultRentPolicy().ReserveFloor(v))

	huge := RentPolicy{LamportsPerByteYear: math.MaxUint64, ExemptionYears: 2, AccountOverhead: 128}
	assert.Equal(t, uint64(math.MaxUint64), huge.ReserveFloor(v))

	overhead := RentPolicy{LamportsPerByteYear: 1, ExemptionYears: 1, AccountOverhead: math.MaxUint64}
	assert.Equal(t, uint64(math.MaxUint64), overhead.ReserveFloor(v))
}

func TestAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		balance uint64
		floor   uint64
		want    uint64
	}{
		{name: "above_floor", balance: 1000, floor: 500, want: 500},
		{name: "at_floor", balance: 500, floor: 500, want: 0},
		{name: "below_floor", balance: 10, floor: 500, want: 0},
		{name: "no_floor", balance: 10, floor: 0, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := testVault(tt.balance, false)
			assert.Equal(t, tt.want, Available(v, FixedReserve(tt.floor)))
		})
	}
}
