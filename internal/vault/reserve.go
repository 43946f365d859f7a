package vault

// ReservePolicy reports the minimum balance a vault's account must keep to
// stay valid in its storage environment.
type ReservePolicy interface {
	ReserveFloor(v Vault) uint64
}

// Defaults of RentPolicy, matching a rent-exempt account on the original host.
const (
	DefaultLamportsPerByteYear uint64 = 3480
	DefaultExemptionYears      uint64 = 2
	DefaultAccountOverhead     uint64 = 128
)

// RentPolicy sizes the floor from the stored record:
// (AccountOverhead + RecordSize) * LamportsPerByteYear * ExemptionYears.
// The product saturates at the maximum amount instead of wrapping.
type RentPolicy struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
	AccountOverhead     uint64
}

func DefaultRentPolicy() RentPolicy {
	return RentPolicy{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionYears:      DefaultExemptionYears,
		AccountOverhead:     DefaultAccountOverhead,
	}
}

func (p RentPolicy) ReserveFloor(v Vault) uint64 {
	size, err := CheckedAdd(p.AccountOverhead, uint64(v.RecordSize()))
	if err != nil {
		return ^uint64(0)
	}

	return saturatingMul(saturatingMul(size, p.LamportsPerByteYear), p.ExemptionYears)
}

// FixedReserve is a constant floor, for hosts without size-based deposits.
type FixedReserve uint64

func (f FixedReserve) ReserveFloor(Vault) uint64 {
	return uint64(f)
}

// Available is the withdrawable part of the vault balance. A balance below the
// floor has nothing available.
func Available(v Vault, policy ReservePolicy) uint64 {
	avail, err := CheckedSub(v.Balance, policy.ReserveFloor(v))
	if err != nil {
		return 0
	}

	return avail
}
