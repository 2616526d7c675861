// Package ledger contiene las transiciones puras de saldo: sin I/O, sin reloj, sin estado.
// El motor de aplicación las ejecuta dentro de una transacción y persiste el resultado.
package ledger

import (
	"fmt"
	"math"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// SignedDelta efecto con signo de un movimiento sobre Quantity.
// IN, ADJUSTMENT_IN, TRANSFER_IN suman; OUT, ADJUSTMENT_OUT, TRANSFER_OUT restan.
func SignedDelta(kind entity.MovementKind, quantity int64) int64 {
	if kind.Inbound() {
		return quantity
	}
	return -quantity
}

// Apply devuelve una copia del registro con el movimiento aplicado.
// Ningún tipo de salida puede dejar Available negativo, tampoco ADJUSTMENT_OUT:
// una merma mayor que lo disponible exige liberar reservas primero.
// La versión no se toca aquí; la incrementa la escritura condicionada.
func Apply(rec *entity.InventoryRecord, kind entity.MovementKind, quantity int64) (*entity.InventoryRecord, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("kind", "tipo de movimiento desconocido: "+string(kind))
	}
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	delta := SignedDelta(kind, quantity)
	if delta > 0 && rec.Quantity > math.MaxInt64-delta {
		return nil, exceedsMax(rec.Quantity)
	}
	if delta < 0 && rec.Available()+delta < 0 {
		return nil, insufficient(rec, quantity)
	}
	next := rec.Clone()
	next.Quantity += delta
	return next, nil
}

// Reserve aparta cantidad disponible sin generar movimiento.
func Reserve(rec *entity.InventoryRecord, quantity int64) (*entity.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	if rec.Reserved > math.MaxInt64-quantity {
		return nil, exceedsMax(rec.Reserved)
	}
	if rec.Available() < quantity {
		return nil, insufficient(rec, quantity)
	}
	next := rec.Clone()
	next.Reserved += quantity
	return next, nil
}

// Release libera una reserva; el resultado nunca baja de cero.
func Release(rec *entity.InventoryRecord, quantity int64) (*entity.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	next := rec.Clone()
	next.Reserved -= quantity
	if next.Reserved < 0 {
		next.Reserved = 0
	}
	return next, nil
}

// Fulfil convierte una reserva en salida: Reserved y Quantity bajan juntos,
// Available queda igual. Requiere Reserved >= quantity.
func Fulfil(rec *entity.InventoryRecord, quantity int64) (*entity.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser positiva")
	}
	if rec.Reserved < quantity {
		return nil, domain.NewValidationError("quantity", "la reserva es menor que la cantidad a despachar")
	}
	released := rec.Clone()
	released.Reserved -= quantity
	return Apply(released, entity.MovementKindOut, quantity)
}

// CheckInvariants verifica reserved >= 0 y available >= 0.
func CheckInvariants(rec *entity.InventoryRecord) error {
	if rec.Reserved < 0 || rec.Available() < 0 {
		return insufficient(rec, 0)
	}
	return nil
}

// exceedsMax la suma desbordaría int64.
func exceedsMax(current int64) error {
	return domain.NewValidationError("quantity",
		fmt.Sprintf("excede el máximo admitido: el saldo actual es %d y el tope es %d", current, int64(math.MaxInt64)))
}

func insufficient(rec *entity.InventoryRecord, requested int64) error {
	return &domain.InsufficientStockError{
		ProductID:   rec.ProductID,
		WarehouseID: rec.WarehouseID,
		BatchNumber: rec.BatchNumber,
		Requested:   requested,
		Available:   rec.Available(),
	}
}
