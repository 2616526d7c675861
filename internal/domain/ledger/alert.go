package ledger

import (
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Classify clasifica un registro: available == 0 -> OUT_OF_STOCK;
// 0 < available <= reorderPoint -> LOW_STOCK; en otro caso sin alerta.
func Classify(rec *entity.InventoryRecord) (entity.AlertLevel, bool) {
	available := rec.Available()
	switch {
	case available <= 0:
		return entity.AlertOutOfStock, true
	case available <= rec.ReorderPoint:
		return entity.AlertLowStock, true
	}
	return "", false
}

// DeriveAlerts recalcula las alertas desde los saldos actuales.
// Orden: prioridad descendente, luego producto, bodega y lote.
func DeriveAlerts(records []*entity.InventoryRecord) []entity.StockAlert {
	alerts := make([]entity.StockAlert, 0)
	for _, rec := range records {
		level, ok := Classify(rec)
		if !ok {
			continue
		}
		alerts = append(alerts, entity.StockAlert{
			ProductID:    rec.ProductID,
			WarehouseID:  rec.WarehouseID,
			BatchNumber:  rec.BatchNumber,
			Level:        level,
			Quantity:     rec.Quantity,
			Reserved:     rec.Reserved,
			Available:    rec.Available(),
			ReorderPoint: rec.ReorderPoint,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Level.Priority() != b.Level.Priority() {
			return a.Level.Priority() > b.Level.Priority()
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.BatchNumber < b.BatchNumber
	})
	return alerts
}
