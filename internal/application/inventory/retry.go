package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// RetryConfig política de reintento ante ConcurrentModification.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig 5 intentos con backoff exponencial corto.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

// withRetry repite fn completa (transacción incluida) solo si falló por versión.
// Cualquier otro error se devuelve de inmediato sin reintentar.
func withRetry(ctx context.Context, cfg RetryConfig, log *logger.Logger, op string, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	exp := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		exp.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		exp.MaxInterval = cfg.MaxInterval
	}
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	try := 0
	return backoff.Retry(func() error {
		try++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrConcurrentModification) {
			log.Debug().Str("op", op).Int("attempt", try).Err(err).Msg("conflicto de versión, reintentando")
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
