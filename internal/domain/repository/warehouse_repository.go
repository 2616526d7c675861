package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// WarehouseRepository puerto de lectura sobre el registro de bodegas.
type WarehouseRepository interface {
	// GetByID devuelve nil, nil si la bodega no existe.
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
}
