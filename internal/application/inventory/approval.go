package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// SubmitMovementInput entrada para registrar un movimiento individual (no traslado).
// IsApproved nil deja la decisión a la política; true/false la fuerza.
type SubmitMovementInput struct {
	ProductID   string
	WarehouseID string
	BatchNumber string
	ExpiryDate  *time.Time
	Kind        entity.MovementKind
	Reason      entity.MovementReason
	Quantity    int64
	Reference   string
	Notes       string
	IsApproved  *bool
	Actor       entity.Actor
}

// MovementResult movimiento registrado y, si se aplicó, el saldo resultante.
type MovementResult struct {
	Movement *entity.StockMovement
	Record   *entity.InventoryRecord // nil mientras el movimiento está en DRAFT
}

// ApprovalGate decide si un movimiento se aplica de inmediato o queda en DRAFT,
// y ejecuta la transición DRAFT -> APPLIED una sola vez.
type ApprovalGate struct {
	engine      *BalanceEngine
	guard       catalogGuard
	publisher   EventPublisher
	autoApprove bool
	log         *logger.Logger
}

// NewApprovalGate construye la compuerta. autoApprove aplica a los tipos que no son compra.
func NewApprovalGate(
	engine *BalanceEngine,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	publisher EventPublisher,
	autoApprove bool,
	log *logger.Logger,
) *ApprovalGate {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ApprovalGate{
		engine:      engine,
		guard:       catalogGuard{productRepo: productRepo, warehouseRepo: warehouseRepo},
		publisher:   publisher,
		autoApprove: autoApprove,
		log:         log,
	}
}

// Submit valida y registra el movimiento. Aprobado: se aplica en una tx junto al saldo.
// No aprobado: se guarda en DRAFT y el saldo no cambia.
func (g *ApprovalGate) Submit(ctx context.Context, in SubmitMovementInput) (res *MovementResult, err error) {
	key := entity.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID, BatchNumber: in.BatchNumber}
	ctx, span := startSpan(ctx, "ApprovalGate.Submit", key)
	defer func() { endSpan(span, err) }()

	if err := g.validate(ctx, in); err != nil {
		return nil, err
	}

	mov := g.engine.newMovement(key, in.Kind, in.Reason, in.Quantity, in.Actor)
	mov.ExpiryDate = in.ExpiryDate
	mov.Reference = in.Reference
	mov.Notes = in.Notes

	if !g.approved(in) {
		err = g.engine.inTx(ctx, "submit_draft", func(movRepo repository.StockMovementRepository, _ repository.InventoryRecordRepository) error {
			return movRepo.Create(ctx, mov)
		})
		if err != nil {
			return nil, fmt.Errorf("create draft movement: %w", err)
		}
		g.log.Info().Str("movement_id", mov.ID).Str("kind", string(mov.Kind)).Msg("movimiento en borrador pendiente de aprobación")
		return &MovementResult{Movement: mov}, nil
	}

	mov.ApprovedBy = in.Actor.ID
	rec, err := g.engine.Apply(ctx, mov)
	if err != nil {
		return nil, err
	}
	g.publish(ctx, mov)
	return &MovementResult{Movement: mov, Record: rec}, nil
}

// Approve aplica un DRAFT. Si ya estaba aplicado devuelve AlreadyAppliedError y no toca el saldo.
func (g *ApprovalGate) Approve(ctx context.Context, movementID string, approver entity.Actor) (res *MovementResult, err error) {
	ctx, span := tracer.Start(ctx, "ApprovalGate.Approve")
	defer func() { endSpan(span, err) }()

	var (
		mov *entity.StockMovement
		rec *entity.InventoryRecord
	)
	err = g.engine.inTx(ctx, "approve", func(movRepo repository.StockMovementRepository, recordRepo repository.InventoryRecordRepository) error {
		m, err := movRepo.GetByID(ctx, movementID)
		if err != nil {
			return fmt.Errorf("get movement: %w", err)
		}
		if m == nil {
			return &domain.NotFoundError{Resource: "movement", ID: movementID}
		}
		if _, err := g.guard.product(ctx, m.ProductID, approver); err != nil {
			return err
		}
		if _, err := g.guard.warehouse(ctx, "warehouse_id", m.WarehouseID, approver); err != nil {
			return err
		}
		if m.IsApplied() {
			return &domain.AlreadyAppliedError{MovementID: movementID}
		}
		r, err := g.engine.applyDelta(ctx, recordRepo, m)
		if err != nil {
			return err
		}
		at := g.engine.now()
		if err := movRepo.MarkApplied(ctx, movementID, approver.ID, at); err != nil {
			return err
		}
		m.MarkApplied(approver.ID, at)
		mov, rec = m, r
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.log.Info().Str("movement_id", movementID).Str("approved_by", approver.ID).Int64("stock", rec.Quantity).Msg("movimiento aprobado y aplicado")
	g.publish(ctx, mov)
	return &MovementResult{Movement: mov, Record: rec}, nil
}

// approved: IsApproved explícito manda; si no, las compras se aplican siempre
// y el resto según la configuración.
func (g *ApprovalGate) approved(in SubmitMovementInput) bool {
	if in.IsApproved != nil {
		return *in.IsApproved
	}
	if in.Kind == entity.MovementKindIn && in.Reason == entity.ReasonPurchase {
		return true
	}
	return g.autoApprove
}

func (g *ApprovalGate) validate(ctx context.Context, in SubmitMovementInput) error {
	if !in.Kind.Valid() {
		return domain.NewValidationError("kind", "tipo de movimiento desconocido: "+string(in.Kind))
	}
	if in.Kind.IsTransfer() || in.Reason == entity.ReasonTransfer {
		return domain.NewValidationError("kind", "los traslados se registran con el coordinador de traslados")
	}
	if !in.Reason.Valid() {
		return domain.NewValidationError("reason", "motivo desconocido: "+string(in.Reason))
	}
	if in.Quantity <= 0 {
		return domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	p, err := g.guard.product(ctx, in.ProductID, in.Actor)
	if err != nil {
		return err
	}
	if _, err := g.guard.warehouse(ctx, "warehouse_id", in.WarehouseID, in.Actor); err != nil {
		return err
	}
	return g.guard.batch(p, in.BatchNumber)
}

func (g *ApprovalGate) publish(ctx context.Context, movements ...*entity.StockMovement) {
	if err := g.publisher.PublishMovements(ctx, movements); err != nil {
		g.log.Warn().Err(err).Int("count", len(movements)).Msg("no se pudo publicar evento de movimiento")
	}
}
