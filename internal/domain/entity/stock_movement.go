package entity

import "time"

// MovementKind tipo de movimiento; determina el signo del efecto sobre el saldo.
type MovementKind string

const (
	MovementKindIn            MovementKind = "IN"
	MovementKindOut           MovementKind = "OUT"
	MovementKindAdjustmentIn  MovementKind = "ADJUSTMENT_IN"
	MovementKindAdjustmentOut MovementKind = "ADJUSTMENT_OUT"
	MovementKindTransferOut   MovementKind = "TRANSFER_OUT"
	MovementKindTransferIn    MovementKind = "TRANSFER_IN"
)

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementKindIn, MovementKindOut, MovementKindAdjustmentIn,
		MovementKindAdjustmentOut, MovementKindTransferOut, MovementKindTransferIn:
		return true
	}
	return false
}

// Inbound true para IN, ADJUSTMENT_IN y TRANSFER_IN.
func (k MovementKind) Inbound() bool {
	return k == MovementKindIn || k == MovementKindAdjustmentIn || k == MovementKindTransferIn
}

// IsTransfer true para las dos patas de un traslado.
func (k MovementKind) IsTransfer() bool {
	return k == MovementKindTransferOut || k == MovementKindTransferIn
}

// MovementReason motivo de negocio del movimiento.
type MovementReason string

const (
	ReasonPurchase   MovementReason = "PURCHASE"
	ReasonSale       MovementReason = "SALE"
	ReasonAdjustment MovementReason = "ADJUSTMENT"
	ReasonDamage     MovementReason = "DAMAGE"
	ReasonReturn     MovementReason = "RETURN"
	ReasonTransfer   MovementReason = "TRANSFER"
)

// Valid indica si el motivo es uno de los conocidos.
func (r MovementReason) Valid() bool {
	switch r {
	case ReasonPurchase, ReasonSale, ReasonAdjustment, ReasonDamage, ReasonReturn, ReasonTransfer:
		return true
	}
	return false
}

// ApprovalState máquina de dos estados; APPLIED es terminal.
type ApprovalState string

const (
	ApprovalDraft   ApprovalState = "DRAFT"
	ApprovalApplied ApprovalState = "APPLIED"
)

// StockMovement entrada del libro mayor. Inmutable una vez APPLIED: las correcciones se hacen
// agregando un ADJUSTMENT_IN/ADJUSTMENT_OUT opuesto.
type StockMovement struct {
	ID              string
	ProductID       string
	WarehouseID     string
	BatchNumber     string
	ExpiryDate      *time.Time
	Kind            MovementKind
	Reason          MovementReason
	Quantity        int64 // siempre positivo; el signo lo da Kind
	Reference       string
	Notes           string
	PerformedBy     string
	PerformedByName string
	CreatedAt       time.Time
	ApprovalState   ApprovalState
	ApprovedBy      string
	ApprovedAt      *time.Time
	AppliedAt       *time.Time // orden de reproducción del libro
	TransferID      string
}

// Key devuelve el StockKey afectado por el movimiento.
func (m *StockMovement) Key() StockKey {
	return StockKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID, BatchNumber: m.BatchNumber}
}

// SignedQuantity efecto con signo sobre Quantity.
func (m *StockMovement) SignedQuantity() int64 {
	if m.Kind.Inbound() {
		return m.Quantity
	}
	return -m.Quantity
}

// IsApplied true si el movimiento ya afectó el saldo.
func (m *StockMovement) IsApplied() bool {
	return m.ApprovalState == ApprovalApplied
}

// MarkApplied transición única DRAFT -> APPLIED. No existe la transición inversa.
func (m *StockMovement) MarkApplied(approvedBy string, at time.Time) {
	m.ApprovalState = ApprovalApplied
	m.ApprovedBy = approvedBy
	m.ApprovedAt = &at
	m.AppliedAt = &at
}
