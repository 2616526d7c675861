package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// RecordFilter filtros para listar saldos. Campos vacíos = sin filtro.
type RecordFilter struct {
	CompanyID   string // dueña del producto
	ProductID   string
	WarehouseID string
	BatchNumber *string
	Limit       int // 0 = sin límite
	Offset      int
}

// InventoryRecordRepository define el puerto de persistencia para saldos (DIP).
// Update es la única escritura y está condicionada por versión (concurrencia optimista).
type InventoryRecordRepository interface {
	// Get devuelve nil, nil si el registro no existe.
	Get(ctx context.Context, key entity.StockKey) (*entity.InventoryRecord, error)
	// GetOrCreate crea el registro en 0/0/versión 0 si no existe (primer movimiento).
	GetOrCreate(ctx context.Context, key entity.StockKey, expiry *time.Time) (*entity.InventoryRecord, error)
	// Update escribe cantidades y punto de reorden si la versión almacenada es expectedVersion;
	// si no, devuelve *domain.ConcurrentModificationError. En éxito rec.Version = expectedVersion+1.
	Update(ctx context.Context, rec *entity.InventoryRecord, expectedVersion int64) error
	List(ctx context.Context, filter RecordFilter) ([]*entity.InventoryRecord, error)
	// Count ignora Limit y Offset.
	Count(ctx context.Context, filter RecordFilter) (int, error)
}
