package entity

import "time"

// StockKey identifica un saldo: producto + bodega + lote. BatchNumber vacío = stock sin lote.
type StockKey struct {
	ProductID   string
	WarehouseID string
	BatchNumber string
}

// InventoryRecord saldo actual de un StockKey. Solo el motor de saldos escribe Quantity/Reserved.
// Nunca se elimina: un registro en cero conserva historial y punto de reorden.
type InventoryRecord struct {
	ID           string
	ProductID    string
	WarehouseID  string
	BatchNumber  string
	ExpiryDate   *time.Time
	Quantity     int64 // unidades físicamente presentes
	Reserved     int64 // unidades apartadas para pedidos sin despachar
	ReorderPoint int64
	Version      int64 // control de concurrencia optimista
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewInventoryRecord crea el registro implícito de primer movimiento (0/0/versión 0).
func NewInventoryRecord(id string, key StockKey, expiry *time.Time, now time.Time) *InventoryRecord {
	return &InventoryRecord{
		ID:          id,
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		BatchNumber: key.BatchNumber,
		ExpiryDate:  expiry,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Key devuelve el StockKey del registro.
func (r *InventoryRecord) Key() StockKey {
	return StockKey{ProductID: r.ProductID, WarehouseID: r.WarehouseID, BatchNumber: r.BatchNumber}
}

// Available = Quantity - Reserved. Derivado, nunca se persiste.
func (r *InventoryRecord) Available() int64 {
	return r.Quantity - r.Reserved
}

// Clone copia el registro (incluida la fecha de vencimiento) para mutarlo sin efectos laterales.
func (r *InventoryRecord) Clone() *InventoryRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.ExpiryDate != nil {
		exp := *r.ExpiryDate
		c.ExpiryDate = &exp
	}
	return &c
}
