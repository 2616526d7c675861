package inventory

import (
	"context"
	"errors"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// ReservationInput reserva, liberación o despacho sobre un StockKey.
type ReservationInput struct {
	ProductID   string
	WarehouseID string
	BatchNumber string
	Quantity    int64
	Actor       entity.Actor
}

// Key StockKey de la reserva.
func (in ReservationInput) Key() entity.StockKey {
	return entity.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID, BatchNumber: in.BatchNumber}
}

// FulfilInput despacho de una reserva; genera un movimiento OUT/SALE.
type FulfilInput struct {
	ReservationInput
	Reference string
	Notes     string
}

// ReservationGateway aparta y libera stock para pedidos de venta.
// Reservar y liberar no generan movimientos; despachar sí.
type ReservationGateway struct {
	engine    *BalanceEngine
	publisher EventPublisher
	log       *logger.Logger
}

// NewReservationGateway construye el gateway.
func NewReservationGateway(engine *BalanceEngine, publisher EventPublisher, log *logger.Logger) *ReservationGateway {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReservationGateway{engine: engine, publisher: publisher, log: log}
}

// Reserve falla con InsufficientStockError si available < cantidad; sin registro, available es 0.
func (g *ReservationGateway) Reserve(ctx context.Context, in ReservationInput) (rec *entity.InventoryRecord, err error) {
	ctx, span := startSpan(ctx, "ReservationGateway.Reserve", in.Key())
	defer func() { endSpan(span, err) }()

	rec, err = g.mutate(ctx, "reserve", in, func(cur *entity.InventoryRecord) (*entity.InventoryRecord, error) {
		return ledger.Reserve(cur, in.Quantity)
	})
	var missing *domain.NotFoundError
	if errors.As(err, &missing) && missing.Resource == "record" {
		return nil, &domain.InsufficientStockError{
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			BatchNumber: in.BatchNumber,
			Requested:   in.Quantity,
		}
	}
	if err != nil {
		return nil, err
	}
	g.log.Debug().Str("record_id", rec.ID).Int64("quantity", in.Quantity).Int64("reserved", rec.Reserved).Msg("stock reservado")
	return rec, nil
}

// Release libera hasta la cantidad indicada; Reserved nunca baja de cero.
func (g *ReservationGateway) Release(ctx context.Context, in ReservationInput) (rec *entity.InventoryRecord, err error) {
	ctx, span := startSpan(ctx, "ReservationGateway.Release", in.Key())
	defer func() { endSpan(span, err) }()

	rec, err = g.mutate(ctx, "release", in, func(cur *entity.InventoryRecord) (*entity.InventoryRecord, error) {
		return ledger.Release(cur, in.Quantity)
	})
	if err != nil {
		return nil, err
	}
	g.log.Debug().Str("record_id", rec.ID).Int64("quantity", in.Quantity).Int64("reserved", rec.Reserved).Msg("reserva liberada")
	return rec, nil
}

// Fulfil baja Reserved y Quantity en la misma cantidad y agrega el movimiento OUT/SALE
// en la misma transacción.
func (g *ReservationGateway) Fulfil(ctx context.Context, in FulfilInput) (res *MovementResult, err error) {
	ctx, span := startSpan(ctx, "ReservationGateway.Fulfil", in.Key())
	defer func() { endSpan(span, err) }()

	if in.Quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	if _, err := g.engine.authorize(ctx, in.Key(), in.Actor); err != nil {
		return nil, err
	}
	err = g.engine.inTx(ctx, "fulfil", func(movRepo repository.StockMovementRepository, recordRepo repository.InventoryRecordRepository) error {
		rec, err := g.engine.transition(ctx, recordRepo, in.Key(), nil, false, func(cur *entity.InventoryRecord) (*entity.InventoryRecord, error) {
			return ledger.Fulfil(cur, in.Quantity)
		})
		if err != nil {
			return err
		}
		mov := g.engine.newMovement(in.Key(), entity.MovementKindOut, entity.ReasonSale, in.Quantity, in.Actor)
		mov.Reference = in.Reference
		mov.Notes = in.Notes
		mov.ExpiryDate = rec.ExpiryDate
		mov.MarkApplied(in.Actor.ID, mov.CreatedAt)
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		res = &MovementResult{Movement: mov, Record: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.log.Info().Str("movement_id", res.Movement.ID).Int64("quantity", in.Quantity).Int64("stock", res.Record.Quantity).Msg("reserva despachada")
	if err := g.publisher.PublishMovements(ctx, []*entity.StockMovement{res.Movement}); err != nil {
		g.log.Warn().Err(err).Str("movement_id", res.Movement.ID).Msg("no se pudo publicar evento de despacho")
	}
	return res, nil
}

func (g *ReservationGateway) mutate(ctx context.Context, op string, in ReservationInput, fn transitionFunc) (*entity.InventoryRecord, error) {
	if in.Quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	if _, err := g.engine.authorize(ctx, in.Key(), in.Actor); err != nil {
		return nil, err
	}
	var rec *entity.InventoryRecord
	err := g.engine.inTx(ctx, op, func(_ repository.StockMovementRepository, recordRepo repository.InventoryRecordRepository) error {
		var err error
		rec, err = g.engine.transition(ctx, recordRepo, in.Key(), nil, false, fn)
		return err
	})
	return rec, err
}
