// Package store selects and opens the leave record backend.
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-service/leave"
	"github.com/warp/leave-service/store/memory"
	"github.com/warp/leave-service/store/postgres"
	"github.com/warp/leave-service/store/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Backend is a repository the server can health-check and shut down.
type Backend interface {
	leave.TxRepository
	Ping(ctx context.Context) error
	Close() error
}

// Options controls Open.
type Options struct {
	Driver string
	// DSN is a file path for sqlite, a URL for postgres, unused for memory.
	DSN     string
	Retries int
	Delay   time.Duration
	Logger  *zap.Logger
}

type dialFunc func(ctx context.Context) (Backend, error)

// Open connects to the configured backend, retrying with a fixed delay.
// Running out of attempts yields a *leave.ConfigurationError.
func Open(ctx context.Context, opts Options) (Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}

	var dial dialFunc
	switch opts.Driver {
	case DriverSQLite, "":
		dial = func(context.Context) (Backend, error) {
			return sqlite.New(opts.DSN, sqlite.WithLogger(logger))
		}
	case DriverPostgres:
		dial = func(ctx context.Context) (Backend, error) {
			return postgres.Open(ctx, opts.DSN, logger)
		}
	case DriverMemory:
		dial = func(context.Context) (Backend, error) {
			return memory.New(), nil
		}
	default:
		return nil, &leave.ConfigurationError{Reason: fmt.Sprintf("unknown store driver %q", opts.Driver)}
	}

	return openWithRetry(ctx, dial, opts.Retries, opts.Delay, logger.Named("store"))
}

func openWithRetry(ctx context.Context, dial dialFunc, retries int, delay time.Duration, logger *zap.Logger) (Backend, error) {
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for i := 1; i <= retries; i++ {
		b, err := dial(ctx)
		if err == nil {
			if err = b.Ping(ctx); err == nil {
				logger.Info("store connected", zap.Int("attempt", i))
				return b, nil
			}
			b.Close()
		}

		lastErr = err
		logger.Warn("store connection failed",
			zap.Int("attempt", i),
			zap.Int("max_attempts", retries),
			zap.Error(err),
		)
		if i == retries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, &leave.ConfigurationError{Reason: "store initialization cancelled", Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	return nil, &leave.ConfigurationError{
		Reason: fmt.Sprintf("store unreachable after %d attempts", retries),
		Err:    lastErr,
	}
}
