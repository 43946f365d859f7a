package vault

import "math/bits"

// CheckedAdd returns a+b or ErrOverflow if the sum does not fit in 64 bits.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}

	return sum, nil
}

// CheckedSub returns a-b or ErrInsufficientBalance if b exceeds a.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrInsufficientBalance
	}

	return diff, nil
}

func saturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}

	return lo
}
