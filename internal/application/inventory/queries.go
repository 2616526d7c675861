package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// QueryUseCase lecturas de saldos y del libro; no escribe nada.
// Todo queda acotado a la empresa del actor.
type QueryUseCase struct {
	recordRepo repository.InventoryRecordRepository
	movRepo    repository.StockMovementRepository
	guard      catalogGuard
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(
	recordRepo repository.InventoryRecordRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
) *QueryUseCase {
	return &QueryUseCase{
		recordRepo: recordRepo,
		movRepo:    movRepo,
		guard:      catalogGuard{productRepo: productRepo, warehouseRepo: warehouseRepo},
	}
}

// GetBalance saldo de un StockKey; NotFoundError si nunca tuvo movimientos.
func (uc *QueryUseCase) GetBalance(ctx context.Context, key entity.StockKey, actor entity.Actor) (*entity.InventoryRecord, error) {
	if _, err := uc.guard.product(ctx, key.ProductID, actor); err != nil {
		return nil, err
	}
	if _, err := uc.guard.warehouse(ctx, "warehouse_id", key.WarehouseID, actor); err != nil {
		return nil, err
	}
	rec, err := uc.recordRepo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return nil, &domain.NotFoundError{Resource: "record", ID: keyString(key)}
	}
	return rec, nil
}

// ListBalances saldos filtrados por producto/bodega/lote.
func (uc *QueryUseCase) ListBalances(ctx context.Context, filter repository.RecordFilter, actor entity.Actor) ([]*entity.InventoryRecord, error) {
	filter.CompanyID = actor.CompanyID
	records, err := uc.recordRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// CountBalances total para paginar ListBalances.
func (uc *QueryUseCase) CountBalances(ctx context.Context, filter repository.RecordFilter, actor entity.Actor) (int, error) {
	filter.CompanyID = actor.CompanyID
	n, err := uc.recordRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// ListMovements libro de auditoría, más reciente primero. Incluye DRAFT y APPLIED.
func (uc *QueryUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter, actor entity.Actor) ([]*entity.StockMovement, error) {
	if err := validRange(filter); err != nil {
		return nil, err
	}
	filter.CompanyID = actor.CompanyID
	movs, err := uc.movRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movs, nil
}

// CountMovements total para paginar ListMovements.
func (uc *QueryUseCase) CountMovements(ctx context.Context, filter repository.MovementFilter, actor entity.Actor) (int, error) {
	if err := validRange(filter); err != nil {
		return 0, err
	}
	filter.CompanyID = actor.CompanyID
	n, err := uc.movRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

// VerifyReplay recalcula la cantidad desde los movimientos APPLIED y la compara con la almacenada.
func (uc *QueryUseCase) VerifyReplay(ctx context.Context, key entity.StockKey, actor entity.Actor) (ledger.ReplayResult, error) {
	rec, err := uc.GetBalance(ctx, key, actor)
	if err != nil {
		return ledger.ReplayResult{}, err
	}
	batch := key.BatchNumber
	movs, err := uc.movRepo.List(ctx, repository.MovementFilter{
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		BatchNumber: &batch,
	})
	if err != nil {
		return ledger.ReplayResult{}, fmt.Errorf("list movements: %w", err)
	}
	return ledger.Verify(key, rec.Quantity, movs), nil
}

func validRange(filter repository.MovementFilter) error {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return domain.NewValidationError("to", "debe ser posterior a from")
	}
	return nil
}
