package dto

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/ledger"
)

// SubmitMovementRequest body para POST /api/inventory/movements.
// is_approved ausente = política por defecto (compras se aplican, el resto según configuración).
type SubmitMovementRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	BatchNumber string `json:"batch_number,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"` // YYYY-MM-DD
	Kind        string `json:"kind"`                  // IN | OUT | ADJUSTMENT_IN | ADJUSTMENT_OUT
	Reason      string `json:"reason"`                // PURCHASE | SALE | ADJUSTMENT | DAMAGE | RETURN
	Quantity    int64  `json:"quantity"`
	Reference   string `json:"reference,omitempty"`
	Notes       string `json:"notes,omitempty"`
	IsApproved  *bool  `json:"is_approved,omitempty"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID       string `json:"product_id"`
	BatchNumber     string `json:"batch_number,omitempty"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	Reference       string `json:"reference,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// ReservationRequest body para reservar, liberar o despachar.
type ReservationRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	BatchNumber string `json:"batch_number,omitempty"`
	Quantity    int64  `json:"quantity"`
	Reference   string `json:"reference,omitempty"` // solo despacho
	Notes       string `json:"notes,omitempty"`
}

// ReorderPointRequest body para PUT .../reorder-point.
type ReorderPointRequest struct {
	ReorderPoint int64 `json:"reorder_point"`
}

// BalanceResponse saldo de un producto/bodega/lote.
type BalanceResponse struct {
	ID           string     `json:"id"`
	ProductID    string     `json:"product_id"`
	WarehouseID  string     `json:"warehouse_id"`
	BatchNumber  string     `json:"batch_number,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	Quantity     int64      `json:"quantity"`
	Reserved     int64      `json:"reserved"`
	Available    int64      `json:"available"`
	ReorderPoint int64      `json:"reorder_point"`
	Version      int64      `json:"version"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MovementResponse entrada del libro. Pending = true mientras está en DRAFT.
type MovementResponse struct {
	ID              string     `json:"id"`
	ProductID       string     `json:"product_id"`
	WarehouseID     string     `json:"warehouse_id"`
	BatchNumber     string     `json:"batch_number,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Kind            string     `json:"kind"`
	Reason          string     `json:"reason"`
	Quantity        int64      `json:"quantity"`
	Reference       string     `json:"reference,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	PerformedBy     string     `json:"performed_by"`
	PerformedByName string     `json:"performed_by_name,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovalState   string     `json:"approval_state"`
	Pending         bool       `json:"pending"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	AppliedAt       *time.Time `json:"applied_at,omitempty"`
	TransferID      string     `json:"transfer_id,omitempty"`
}

// MovementResultResponse respuesta de registrar/aprobar/despachar.
type MovementResultResponse struct {
	Movement MovementResponse `json:"movement"`
	Balance  *BalanceResponse `json:"balance,omitempty"`
}

// TransferResponse las dos patas y ambos saldos.
type TransferResponse struct {
	TransferID  string           `json:"transfer_id"`
	Out         MovementResponse `json:"out"`
	In          MovementResponse `json:"in"`
	Source      BalanceResponse  `json:"source"`
	Destination BalanceResponse  `json:"destination"`
}

// AlertResponse alerta derivada de stock bajo/agotado.
type AlertResponse struct {
	ProductID     string `json:"product_id"`
	WarehouseID   string `json:"warehouse_id"`
	WarehouseName string `json:"warehouse_name,omitempty"`
	BatchNumber   string `json:"batch_number,omitempty"`
	Level         string `json:"level"`
	Quantity      int64  `json:"quantity"`
	Reserved      int64  `json:"reserved"`
	Available     int64  `json:"available"`
	ReorderPoint  int64  `json:"reorder_point"`
}

// ReplayResponse comparación entre saldo almacenado y reproducción del libro.
type ReplayResponse struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	BatchNumber string `json:"batch_number,omitempty"`
	Stored      int64  `json:"stored_quantity"`
	Replayed    int64  `json:"replayed_quantity"`
	Applied     int    `json:"applied_movements"`
	Drafts      int    `json:"draft_movements"`
	Consistent  bool   `json:"consistent"`
}

// NewBalanceResponse mapea un registro a su respuesta.
func NewBalanceResponse(rec *entity.InventoryRecord) BalanceResponse {
	return BalanceResponse{
		ID:           rec.ID,
		ProductID:    rec.ProductID,
		WarehouseID:  rec.WarehouseID,
		BatchNumber:  rec.BatchNumber,
		ExpiryDate:   rec.ExpiryDate,
		Quantity:     rec.Quantity,
		Reserved:     rec.Reserved,
		Available:    rec.Available(),
		ReorderPoint: rec.ReorderPoint,
		Version:      rec.Version,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// NewMovementResponse mapea un movimiento a su respuesta.
func NewMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		BatchNumber:     m.BatchNumber,
		ExpiryDate:      m.ExpiryDate,
		Kind:            string(m.Kind),
		Reason:          string(m.Reason),
		Quantity:        m.Quantity,
		Reference:       m.Reference,
		Notes:           m.Notes,
		PerformedBy:     m.PerformedBy,
		PerformedByName: m.PerformedByName,
		CreatedAt:       m.CreatedAt,
		ApprovalState:   string(m.ApprovalState),
		Pending:         !m.IsApplied(),
		ApprovedBy:      m.ApprovedBy,
		ApprovedAt:      m.ApprovedAt,
		AppliedAt:       m.AppliedAt,
		TransferID:      m.TransferID,
	}
}

// NewMovementResultResponse respuesta de un movimiento y su saldo (si se aplicó).
func NewMovementResultResponse(m *entity.StockMovement, rec *entity.InventoryRecord) MovementResultResponse {
	out := MovementResultResponse{Movement: NewMovementResponse(m)}
	if rec != nil {
		b := NewBalanceResponse(rec)
		out.Balance = &b
	}
	return out
}

// NewAlertResponse mapea una alerta.
func NewAlertResponse(a entity.StockAlert) AlertResponse {
	return AlertResponse{
		ProductID:     a.ProductID,
		WarehouseID:   a.WarehouseID,
		WarehouseName: a.WarehouseName,
		BatchNumber:   a.BatchNumber,
		Level:         string(a.Level),
		Quantity:      a.Quantity,
		Reserved:      a.Reserved,
		Available:     a.Available,
		ReorderPoint:  a.ReorderPoint,
	}
}

// NewReplayResponse mapea el resultado de la verificación.
func NewReplayResponse(r ledger.ReplayResult) ReplayResponse {
	return ReplayResponse{
		ProductID:   r.Key.ProductID,
		WarehouseID: r.Key.WarehouseID,
		BatchNumber: r.Key.BatchNumber,
		Stored:      r.Stored,
		Replayed:    r.Replayed,
		Applied:     r.Applied,
		Drafts:      r.Drafts,
		Consistent:  r.Consistent,
	}
}
