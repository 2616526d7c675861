package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

var tracer = otel.Tracer("github.com/jhoicas/inventario-ledger/internal/application/inventory")

// transitionFunc calcula el siguiente estado de un registro sin efectos laterales.
type transitionFunc func(rec *entity.InventoryRecord) (*entity.InventoryRecord, error)

// BalanceEngine es el único escritor de Quantity y Reserved. Cada cambio es
// leer registro -> calcular con ledger -> escritura condicionada por versión,
// y el movimiento que lo explica se agrega en la misma transacción.
type BalanceEngine struct {
	txRunner TxRunner
	guard    catalogGuard
	retry    RetryConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewBalanceEngine construye el motor. Los repositorios de catálogo validan que el
// StockKey pertenezca a la empresa de quien opera.
func NewBalanceEngine(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	retry RetryConfig,
	log *logger.Logger,
) *BalanceEngine {
	if log == nil {
		log = logger.Nop()
	}
	return &BalanceEngine{
		txRunner: txRunner,
		guard:    catalogGuard{productRepo: productRepo, warehouseRepo: warehouseRepo},
		retry:    retry,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock reemplaza el reloj (tests).
func (e *BalanceEngine) WithClock(now func() time.Time) *BalanceEngine {
	e.now = now
	return e
}

// Apply aplica un movimiento ya autorizado y lo agrega al libro como APPLIED.
// Crea el registro en cero si es el primer movimiento del StockKey.
func (e *BalanceEngine) Apply(ctx context.Context, mov *entity.StockMovement) (rec *entity.InventoryRecord, err error) {
	ctx, span := startSpan(ctx, "BalanceEngine.Apply", mov.Key())
	defer func() { endSpan(span, err) }()

	err = e.inTx(ctx, "apply", func(movRepo repository.StockMovementRepository, recordRepo repository.InventoryRecordRepository) error {
		approver := mov.ApprovedBy
		if approver == "" {
			approver = mov.PerformedBy
		}
		mov.MarkApplied(approver, e.now())
		var txErr error
		rec, txErr = e.appendAndApply(ctx, movRepo, recordRepo, mov)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("movement_id", mov.ID).
		Str("kind", string(mov.Kind)).
		Int64("quantity", mov.Quantity).
		Int64("stock", rec.Quantity).
		Msg("movimiento aplicado")
	return rec, nil
}

// SetReorderPoint cambia el umbral de alerta con la misma escritura versionada.
func (e *BalanceEngine) SetReorderPoint(ctx context.Context, key entity.StockKey, reorderPoint int64, actor entity.Actor) (rec *entity.InventoryRecord, err error) {
	ctx, span := startSpan(ctx, "BalanceEngine.SetReorderPoint", key)
	defer func() { endSpan(span, err) }()

	if reorderPoint < 0 {
		return nil, domain.NewValidationError("reorder_point", "no puede ser negativo")
	}
	if _, err := e.authorize(ctx, key, actor); err != nil {
		return nil, err
	}
	err = e.inTx(ctx, "set_reorder_point", func(_ repository.StockMovementRepository, recordRepo repository.InventoryRecordRepository) error {
		var txErr error
		rec, txErr = e.transition(ctx, recordRepo, key, nil, true, func(cur *entity.InventoryRecord) (*entity.InventoryRecord, error) {
			next := cur.Clone()
			next.ReorderPoint = reorderPoint
			return next, nil
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// authorize exige que producto y bodega existan y sean de la empresa del actor,
// y que el lote venga informado si el producto lo controla.
func (e *BalanceEngine) authorize(ctx context.Context, key entity.StockKey, actor entity.Actor) (*entity.Product, error) {
	p, err := e.guard.product(ctx, key.ProductID, actor)
	if err != nil {
		return nil, err
	}
	if _, err := e.guard.warehouse(ctx, "warehouse_id", key.WarehouseID, actor); err != nil {
		return nil, err
	}
	if err := e.guard.batch(p, key.BatchNumber); err != nil {
		return nil, err
	}
	return p, nil
}

// inTx corre fn en una transacción y la repite completa ante conflicto de versión.
func (e *BalanceEngine) inTx(ctx context.Context, op string, fn func(repository.StockMovementRepository, repository.InventoryRecordRepository) error) error {
	return withRetry(ctx, e.retry, e.log, op, func() error {
		return e.txRunner.Run(ctx, fn)
	})
}

// appendAndApply aplica el delta del movimiento y lo agrega al libro dentro de la tx actual.
func (e *BalanceEngine) appendAndApply(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	recordRepo repository.InventoryRecordRepository,
	mov *entity.StockMovement,
) (*entity.InventoryRecord, error) {
	rec, err := e.applyDelta(ctx, recordRepo, mov)
	if err != nil {
		return nil, err
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	return rec, nil
}

// applyDelta actualiza el saldo según el movimiento sin escribir el movimiento.
func (e *BalanceEngine) applyDelta(
	ctx context.Context,
	recordRepo repository.InventoryRecordRepository,
	mov *entity.StockMovement,
) (*entity.InventoryRecord, error) {
	return e.transition(ctx, recordRepo, mov.Key(), mov.ExpiryDate, true, func(cur *entity.InventoryRecord) (*entity.InventoryRecord, error) {
		next, err := ledger.Apply(cur, mov.Kind, mov.Quantity)
		if err != nil {
			return nil, err
		}
		if next.ExpiryDate == nil && mov.ExpiryDate != nil {
			exp := *mov.ExpiryDate
			next.ExpiryDate = &exp
		}
		return next, nil
	})
}

// transition lee el registro (creándolo si create), calcula el siguiente estado y lo escribe
// condicionado a la versión leída.
func (e *BalanceEngine) transition(
	ctx context.Context,
	recordRepo repository.InventoryRecordRepository,
	key entity.StockKey,
	expiry *time.Time,
	create bool,
	fn transitionFunc,
) (*entity.InventoryRecord, error) {
	var (
		current *entity.InventoryRecord
		err     error
	)
	if create {
		current, err = recordRepo.GetOrCreate(ctx, key, expiry)
	} else {
		current, err = recordRepo.Get(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &domain.NotFoundError{Resource: "record", ID: keyString(key)}
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckInvariants(next); err != nil {
		return nil, shortfall(err, current, next)
	}
	next.UpdatedAt = e.now()
	if err := recordRepo.Update(ctx, next, current.Version); err != nil {
		return nil, shortfall(err, current, next)
	}
	return next, nil
}

// shortfall completa un InsufficientStockError con el disponible leído y lo que la
// transición intentó consumir; el almacén solo conoce el estado rechazado.
func shortfall(err error, current, next *entity.InventoryRecord) error {
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		ise.Available = current.Available()
		ise.Requested = current.Available() - next.Available()
	}
	return err
}

// newMovement rellena identidad, autor y marcas de tiempo comunes.
func (e *BalanceEngine) newMovement(key entity.StockKey, kind entity.MovementKind, reason entity.MovementReason, qty int64, actor entity.Actor) *entity.StockMovement {
	return &entity.StockMovement{
		ID:              uuid.New().String(),
		ProductID:       key.ProductID,
		WarehouseID:     key.WarehouseID,
		BatchNumber:     key.BatchNumber,
		Kind:            kind,
		Reason:          reason,
		Quantity:        qty,
		PerformedBy:     actor.ID,
		PerformedByName: actor.Name,
		CreatedAt:       e.now(),
		ApprovalState:   entity.ApprovalDraft,
	}
}

func keyString(key entity.StockKey) string {
	return key.ProductID + "/" + key.WarehouseID + "/" + key.BatchNumber
}

func startSpan(ctx context.Context, name string, key entity.StockKey) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("inventory.product_id", key.ProductID),
		attribute.String("inventory.warehouse_id", key.WarehouseID),
		attribute.String("inventory.batch_number", key.BatchNumber),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
