package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/vaultd/internal/api"
	"github.com/fastprodman/vaultd/internal/infra/logging"
	"github.com/fastprodman/vaultd/internal/infra/pgutils"
	"github.com/fastprodman/vaultd/internal/services/custody"
	"github.com/fastprodman/vaultd/internal/vault"
	"github.com/fastprodman/vaultd/pkg/envconf"
	"github.com/fastprodman/vaultd/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	shutdown := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdown.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdown.Add(func(context.Context) error {
		slog.Info("Close database")

		err := db.Close()
		if err != nil {
			return fmt.Errorf("close db: %w", err)
		}

		return nil
	})

	machine := vault.NewMachine(cfg.Reserve.Policy())
	custodySrv := custody.New(db, machine, custody.LogObserver(), custody.MetricsObserver())

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, custodySrv, cfg.Decimals)

	shutdown.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "addr", srv.Addr)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
