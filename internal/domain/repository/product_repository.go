package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ProductRepository puerto de lectura sobre el catálogo externo.
type ProductRepository interface {
	// GetByID devuelve nil, nil si el producto no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
