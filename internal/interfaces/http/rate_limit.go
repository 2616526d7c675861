package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
)

// NewLimiter construye el limitador. Con redisClient nil los contadores quedan en memoria del proceso.
func NewLimiter(formatted string, redisClient *redis.Client) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	if redisClient == nil {
		return limiter.New(memory.NewStore(), rate), nil
	}
	store, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "inventario_limiter"})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// RateLimit limita peticiones por usuario autenticado (o IP si no hay token).
func RateLimit(l *limiter.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := GetUserID(c)
		if key == "" {
			key = c.IP()
		}
		lc, err := l.Get(c.UserContext(), key)
		if err != nil {
			// Store caído: se deja pasar.
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
		if lc.Reached {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiadas solicitudes"})
		}
		return c.Next()
	}
}
