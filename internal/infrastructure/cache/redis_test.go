package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/cache"
)

func TestNewRedisClient_URLInvalida(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), "http://no-es-redis")
	assert.Error(t, err)
}
