package inventory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Todo lo que la función escriba se confirma junto o no se confirma.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		recordRepo repository.InventoryRecordRepository,
	) error) error
}

// EventPublisher publica hechos ya confirmados hacia consumidores externos (Kafka).
// Un fallo al publicar nunca revierte el libro.
type EventPublisher interface {
	PublishMovements(ctx context.Context, movements []*entity.StockMovement) error
	PublishAlerts(ctx context.Context, alerts []entity.StockAlert) error
}

// NopPublisher descarta los eventos; se usa cuando no hay brokers configurados.
type NopPublisher struct{}

func (NopPublisher) PublishMovements(context.Context, []*entity.StockMovement) error { return nil }
func (NopPublisher) PublishAlerts(context.Context, []entity.StockAlert) error        { return nil }

var _ EventPublisher = NopPublisher{}
