package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementFilter filtros del listado de auditoría. Nil/vacío = sin filtro.
type MovementFilter struct {
	CompanyID   string // dueña del producto
	ProductID   string
	WarehouseID string
	BatchNumber *string
	State       entity.ApprovalState
	TransferID  string
	From        *time.Time
	To          *time.Time
	Limit       int // 0 = sin límite
	Offset      int
}

// StockMovementRepository define el puerto de persistencia del libro de movimientos (DIP).
// Solo se agregan filas; la única actualización permitida es DRAFT -> APPLIED.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// MarkApplied devuelve *domain.AlreadyAppliedError si el movimiento no está en DRAFT.
	MarkApplied(ctx context.Context, id, approvedBy string, at time.Time) error
	// List ordena por instante de creación descendente.
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	// Count ignora Limit y Offset.
	Count(ctx context.Context, filter MovementFilter) (int, error)
}
