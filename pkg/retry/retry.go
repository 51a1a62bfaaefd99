// Package retry reintentos acotados con backoff exponencial.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config política de reintentos. MaxAttempts cuenta el primer intento.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Retryable decide si un error amerita otro intento. nil = ninguno se reintenta.
	Retryable func(error) bool
	// OnRetry se invoca antes de esperar el siguiente intento (logs, métricas).
	OnRetry func(attempt int, err error)
}

// Do ejecuta fn hasta que tenga éxito, falle con un error no reintentable o se agoten
// los intentos. El último error se devuelve envuelto.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		res, err := fn(ctx, attempt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if cfg.Retryable == nil || !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, ctx.Err()
			case <-t.C:
			}
			if cfg.BackoffFactor > 1 {
				delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			}
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}
	return zero, fmt.Errorf("reintentos agotados (%d): %w", attempts, lastErr)
}
