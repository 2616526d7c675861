package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrConcurrentModification = errors.New("modificación concurrente del registro")
	ErrAlreadyApplied         = errors.New("el movimiento ya fue aplicado")
)

// NotFoundError indica que un producto, bodega, registro o movimiento no existe.
type NotFoundError struct {
	Resource string // product, warehouse, movement, record
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError lleva la identidad del registro y las cantidades para construir
// un mensaje preciso al usuario.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	BatchNumber string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en bodega %s (lote %q): solicitado %d, disponible %d",
		e.ProductID, e.WarehouseID, e.BatchNumber, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ConcurrentModificationError: otro escritor cambió la versión del registro primero.
type ConcurrentModificationError struct {
	ProductID       string
	WarehouseID     string
	BatchNumber     string
	ExpectedVersion int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("registro %s/%s/%q modificado concurrentemente (versión esperada %d)",
		e.ProductID, e.WarehouseID, e.BatchNumber, e.ExpectedVersion)
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// AlreadyAppliedError protege la transición DRAFT -> APPLIED contra aprobaciones duplicadas.
type AlreadyAppliedError struct {
	MovementID string
}

func (e *AlreadyAppliedError) Error() string {
	return fmt.Sprintf("el movimiento %s ya fue aplicado", e.MovementID)
}

func (e *AlreadyAppliedError) Is(target error) bool { return target == ErrAlreadyApplied }

// ValidationError entrada inválida (cantidad no positiva, lote faltante, traslado malformado...).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError atajo para construir errores de validación.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
