package pgutils

import (
	"fmt"
	"strconv"
)

// Amounts are stored as NUMERIC(20,0) because Postgres has no unsigned 64-bit
// integer. They travel as decimal text in both directions.

// Amount renders u for a `$n::numeric` placeholder.
func Amount(u uint64) string {
	return strconv.FormatUint(u, 10)
}

// ParseAmount reads a `::text` projection of a numeric amount column.
func ParseAmount(s string) (uint64, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}

	return u, nil
}
