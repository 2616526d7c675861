package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// TransferInput traslado de un producto/lote entre dos bodegas.
type TransferInput struct {
	ProductID       string
	BatchNumber     string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int64
	Reference       string
	Notes           string
	Actor           entity.Actor
}

// TransferResult las dos patas del traslado y los saldos resultantes.
type TransferResult struct {
	TransferID  string
	Out         *entity.StockMovement
	In          *entity.StockMovement
	Source      *entity.InventoryRecord
	Destination *entity.InventoryRecord
}

// TransferCoordinator ejecuta TRANSFER_OUT + TRANSFER_IN en una sola transacción:
// o se confirman ambas patas y ambos saldos, o nada.
type TransferCoordinator struct {
	engine    *BalanceEngine
	guard     catalogGuard
	publisher EventPublisher
	log       *logger.Logger
}

// NewTransferCoordinator construye el coordinador.
func NewTransferCoordinator(
	engine *BalanceEngine,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *TransferCoordinator {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TransferCoordinator{
		engine:    engine,
		guard:     catalogGuard{productRepo: productRepo, warehouseRepo: warehouseRepo},
		publisher: publisher,
		log:       log,
	}
}

// Transfer valida, verifica disponible en origen y aplica las dos patas con un TransferID común.
// El vencimiento del lote en origen viaja al destino.
func (c *TransferCoordinator) Transfer(ctx context.Context, in TransferInput) (res *TransferResult, err error) {
	srcKey := entity.StockKey{ProductID: in.ProductID, WarehouseID: in.FromWarehouseID, BatchNumber: in.BatchNumber}
	dstKey := entity.StockKey{ProductID: in.ProductID, WarehouseID: in.ToWarehouseID, BatchNumber: in.BatchNumber}
	ctx, span := startSpan(ctx, "TransferCoordinator.Transfer", srcKey)
	defer func() { endSpan(span, err) }()

	if err := c.validate(ctx, in); err != nil {
		return nil, err
	}

	err = c.engine.inTx(ctx, "transfer", func(movRepo repository.StockMovementRepository, recordRepo repository.InventoryRecordRepository) error {
		source, err := recordRepo.Get(ctx, srcKey)
		if err != nil {
			return fmt.Errorf("get source record: %w", err)
		}
		if source == nil || source.Available() < in.Quantity {
			available := int64(0)
			if source != nil {
				available = source.Available()
			}
			return &domain.InsufficientStockError{
				ProductID:   in.ProductID,
				WarehouseID: in.FromWarehouseID,
				BatchNumber: in.BatchNumber,
				Requested:   in.Quantity,
				Available:   available,
			}
		}

		transferID := uuid.New().String()
		out := c.leg(srcKey, entity.MovementKindTransferOut, transferID, in)
		out.ExpiryDate = source.ExpiryDate
		srcRec, err := c.engine.appendAndApply(ctx, movRepo, recordRepo, out)
		if err != nil {
			return err
		}

		inLeg := c.leg(dstKey, entity.MovementKindTransferIn, transferID, in)
		inLeg.ExpiryDate = source.ExpiryDate
		dstRec, err := c.engine.appendAndApply(ctx, movRepo, recordRepo, inLeg)
		if err != nil {
			return err
		}

		res = &TransferResult{TransferID: transferID, Out: out, In: inLeg, Source: srcRec, Destination: dstRec}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("transfer_id", res.TransferID).
		Str("from", in.FromWarehouseID).
		Str("to", in.ToWarehouseID).
		Int64("quantity", in.Quantity).
		Msg("traslado aplicado")
	if err := c.publisher.PublishMovements(ctx, []*entity.StockMovement{res.Out, res.In}); err != nil {
		c.log.Warn().Err(err).Str("transfer_id", res.TransferID).Msg("no se pudo publicar evento de traslado")
	}
	return res, nil
}

func (c *TransferCoordinator) leg(key entity.StockKey, kind entity.MovementKind, transferID string, in TransferInput) *entity.StockMovement {
	m := c.engine.newMovement(key, kind, entity.ReasonTransfer, in.Quantity, in.Actor)
	m.TransferID = transferID
	m.Reference = in.Reference
	m.Notes = in.Notes
	m.MarkApplied(in.Actor.ID, m.CreatedAt)
	return m
}

func (c *TransferCoordinator) validate(ctx context.Context, in TransferInput) error {
	if in.Quantity <= 0 {
		return domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return domain.NewValidationError("to_warehouse_id", "origen y destino deben ser distintos")
	}
	p, err := c.guard.product(ctx, in.ProductID, in.Actor)
	if err != nil {
		return err
	}
	if _, err := c.guard.warehouse(ctx, "from_warehouse_id", in.FromWarehouseID, in.Actor); err != nil {
		return err
	}
	if _, err := c.guard.warehouse(ctx, "to_warehouse_id", in.ToWarehouseID, in.Actor); err != nil {
		return err
	}
	return c.guard.batch(p, in.BatchNumber)
}
