package ledger_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/ledger"
)

func record(quantity, reserved int64) *entity.InventoryRecord {
	return &entity.InventoryRecord{
		ProductID:   "prod-1",
		WarehouseID: "wh-1",
		BatchNumber: "L-01",
		Quantity:    quantity,
		Reserved:    reserved,
		Version:     3,
	}
}

func TestSignedDelta_SignoSegunTipo(t *testing.T) {
	cases := map[entity.MovementKind]int64{
		entity.MovementKindIn:            5,
		entity.MovementKindAdjustmentIn:  5,
		entity.MovementKindTransferIn:    5,
		entity.MovementKindOut:           -5,
		entity.MovementKindAdjustmentOut: -5,
		entity.MovementKindTransferOut:   -5,
	}
	for kind, want := range cases {
		assert.Equal(t, want, ledger.SignedDelta(kind, 5), "delta para %s", kind)
	}
}

func TestApply_EntradaSumaSinTocarVersion(t *testing.T) {
	rec := record(0, 0)
	next, err := ledger.Apply(rec, entity.MovementKindIn, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), next.Quantity)
	assert.Equal(t, int64(100), next.Available())
	assert.Equal(t, int64(3), next.Version, "la versión la incrementa la escritura, no la transición")
	assert.Equal(t, int64(0), rec.Quantity, "el registro original no debe mutar")
}

func TestApply_SalidaMayorQueDisponible_StockInsuficiente(t *testing.T) {
	rec := record(100, 0)
	_, err := ledger.Apply(rec, entity.MovementKindOut, 150)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(150), ise.Requested)
	assert.Equal(t, int64(100), ise.Available)
	assert.Equal(t, "L-01", ise.BatchNumber)
}

func TestApply_SalidaRespetaReservas(t *testing.T) {
	rec := record(100, 60)
	_, err := ledger.Apply(rec, entity.MovementKindOut, 41)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	next, err := ledger.Apply(rec, entity.MovementKindOut, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(0), next.Available())
}

// Política explícita: ADJUSTMENT_OUT tampoco puede dejar available (ni quantity) negativo.
func TestApply_AjusteSalidaNoPuedeDejarNegativo(t *testing.T) {
	rec := record(10, 4)
	_, err := ledger.Apply(rec, entity.MovementKindAdjustmentOut, 7)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	next, err := ledger.Apply(rec, entity.MovementKindAdjustmentOut, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.Quantity)
	assert.Equal(t, int64(0), next.Available())
}

func TestApply_CantidadNoPositiva_Validacion(t *testing.T) {
	for _, q := range []int64{0, -3} {
		_, err := ledger.Apply(record(10, 0), entity.MovementKindIn, q)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad %d", q)
	}
	_, err := ledger.Apply(record(10, 0), entity.MovementKind("BOGUS"), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReserve_YRelease(t *testing.T) {
	rec := record(100, 0)
	reserved, err := ledger.Reserve(rec, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), reserved.Reserved)
	assert.Equal(t, int64(40), reserved.Available())

	_, err = ledger.Reserve(reserved, 41)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	released, err := ledger.Release(reserved, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), released.Reserved, "la liberación se limita a cero")
}

func TestFulfil_ConvierteReservaEnSalida(t *testing.T) {
	rec := record(100, 60)
	next, err := ledger.Fulfil(rec, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(40), next.Quantity)
	assert.Equal(t, int64(0), next.Reserved)
	assert.Equal(t, int64(40), next.Available())

	_, err = ledger.Fulfil(rec, 61)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckInvariants_DetectaNegativos(t *testing.T) {
	assert.NoError(t, ledger.CheckInvariants(record(10, 10)))
	assert.Error(t, ledger.CheckInvariants(record(5, 6)))
	assert.Error(t, ledger.CheckInvariants(record(5, -1)))
}

func TestApply_EntradaQueDesbordaInt64_Validacion(t *testing.T) {
	rec := record(100, 0)
	_, err := ledger.Apply(rec, entity.MovementKindIn, math.MaxInt64)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)
	assert.Contains(t, ve.Message, "100")

	next, err := ledger.Apply(rec, entity.MovementKindIn, math.MaxInt64-100)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), next.Quantity)
}

func TestReserve_QueDesbordaInt64_Validacion(t *testing.T) {
	_, err := ledger.Reserve(record(100, 10), math.MaxInt64)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ledger.Reserve(record(100, 0), math.MaxInt64)
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(math.MaxInt64), ise.Requested)
	assert.Equal(t, int64(100), ise.Available)
}
