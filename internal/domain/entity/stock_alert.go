package entity

// AlertLevel clasificación derivada del saldo disponible.
type AlertLevel string

const (
	AlertOutOfStock AlertLevel = "OUT_OF_STOCK"
	AlertLowStock   AlertLevel = "LOW_STOCK"
)

// Priority mayor = más urgente. OUT_OF_STOCK > LOW_STOCK.
func (l AlertLevel) Priority() int {
	switch l {
	case AlertOutOfStock:
		return 2
	case AlertLowStock:
		return 1
	}
	return 0
}

// StockAlert hecho derivado; nunca se persiste.
type StockAlert struct {
	ProductID     string
	WarehouseID   string
	WarehouseName string
	BatchNumber   string
	Level         AlertLevel
	Quantity      int64
	Reserved      int64
	Available     int64
	ReorderPoint  int64
}
