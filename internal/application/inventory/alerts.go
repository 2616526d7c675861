package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// AlertFilter filtros opcionales; Level vacío = ambos niveles.
// CompanyID vacío abarca todas las empresas (difusión programada).
type AlertFilter struct {
	CompanyID   string
	ProductID   string
	WarehouseID string
	Level       entity.AlertLevel
}

// AlertUseCase deriva alertas de stock bajo/agotado a partir de los saldos actuales.
// No guarda estado: dos llamadas sobre los mismos saldos dan el mismo resultado.
type AlertUseCase struct {
	recordRepo    repository.InventoryRecordRepository
	warehouseRepo repository.WarehouseRepository
}

// NewAlertUseCase construye el caso de uso.
func NewAlertUseCase(recordRepo repository.InventoryRecordRepository, warehouseRepo repository.WarehouseRepository) *AlertUseCase {
	return &AlertUseCase{recordRepo: recordRepo, warehouseRepo: warehouseRepo}
}

// ListAlerts OUT_OF_STOCK primero, luego LOW_STOCK; nunca devuelve nil.
func (uc *AlertUseCase) ListAlerts(ctx context.Context, filter AlertFilter) (alerts []entity.StockAlert, err error) {
	ctx, span := tracer.Start(ctx, "AlertUseCase.ListAlerts")
	defer func() { endSpan(span, err) }()

	records, err := uc.recordRepo.List(ctx, repository.RecordFilter{
		CompanyID:   filter.CompanyID,
		ProductID:   filter.ProductID,
		WarehouseID: filter.WarehouseID,
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	derived := ledger.DeriveAlerts(records)
	alerts = make([]entity.StockAlert, 0, len(derived))
	names := make(map[string]string)
	for _, a := range derived {
		if filter.Level != "" && a.Level != filter.Level {
			continue
		}
		name, ok := names[a.WarehouseID]
		if !ok {
			w, err := uc.warehouseRepo.GetByID(ctx, a.WarehouseID)
			if err != nil {
				return nil, fmt.Errorf("get warehouse: %w", err)
			}
			if w != nil {
				name = w.Name
			}
			names[a.WarehouseID] = name
		}
		a.WarehouseName = name
		alerts = append(alerts, a)
	}
	return alerts, nil
}
