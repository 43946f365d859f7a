package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/vaultd/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// Decimals scales the display amounts in API responses (9 for lamports).
	Decimals int32 `env:"APP_AMOUNT_DECIMALS" envDefault:"9"`
	Postgres config.PostgresConfig
	Reserve  config.ReserveConfig
}

// maxDecimals is the digit count of the largest u64 amount.
const maxDecimals = 20

func (c *apiConfig) validate() error {
	if c.Decimals < 0 || c.Decimals > maxDecimals {
		return fmt.Errorf("APP_AMOUNT_DECIMALS must be within [0, %d], got %d", maxDecimals, c.Decimals)
	}

	return nil
}
