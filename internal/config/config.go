package config

import (
	"time"

	"github.com/fastprodman/vaultd/internal/vault"
)

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// ReserveConfig sizes the reserve floor a vault account must keep.
// A non-zero FixedFloor replaces the size-based rent computation.
type ReserveConfig struct {
	LamportsPerByteYear uint64 `env:"RESERVE_PER_BYTE_YEAR" envDefault:"3480"`
	ExemptionYears      uint64 `env:"RESERVE_EXEMPTION_YEARS" envDefault:"2"`
	AccountOverhead     uint64 `env:"RESERVE_ACCOUNT_OVERHEAD" envDefault:"128"`
	FixedFloor          uint64 `env:"RESERVE_FIXED_FLOOR" envDefault:"0"`
}

func (c ReserveConfig) Policy() vault.ReservePolicy {
	if c.FixedFloor > 0 {
		return vault.FixedReserve(c.FixedFloor)
	}

	return vault.RentPolicy{
		LamportsPerByteYear: c.LamportsPerByteYear,
		ExemptionYears:      c.ExemptionYears,
		AccountOverhead:     c.AccountOverhead,
	}
}
