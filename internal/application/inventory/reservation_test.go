package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

func TestReserve_LuegoDespacho(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 100)

	rec, err := f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 60, Actor: bodeguero})
	require.NoError(t, err)
	assert.Equal(t, int64(60), rec.Reserved)
	assert.Equal(t, int64(40), rec.Available())

	res, err := f.reservations.Fulfil(ctx, inventory.FulfilInput{
		ReservationInput: inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 60, Actor: bodeguero},
		Reference:        "SO-991",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Record.Quantity)
	assert.Equal(t, int64(0), res.Record.Reserved)
	assert.Equal(t, int64(40), res.Record.Available())
	assert.Equal(t, entity.MovementKindOut, res.Movement.Kind)
	assert.Equal(t, entity.ReasonSale, res.Movement.Reason)
	assert.Equal(t, entity.ApprovalApplied, res.Movement.ApprovalState)

	movs, err := f.queries.ListMovements(ctx, repository.MovementFilter{ProductID: productX}, admin)
	require.NoError(t, err)
	assert.Len(t, movs, 2, "reservar no genera movimiento; despachar sí")
}

func TestReserve_MasQueDisponible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 10)

	_, err := f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 11, Actor: bodeguero})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(0), f.balance(t, productX, wh1, "").Reserved)

	_, err = f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh2, Quantity: 1, Actor: bodeguero})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), insufficient.Available)
}

func TestRelease_NoBajaDeCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 10)
	_, err := f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 4, Actor: bodeguero})
	require.NoError(t, err)

	rec, err := f.reservations.Release(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 9, Actor: bodeguero})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Reserved)
	assert.Equal(t, int64(10), rec.Available())

	_, err = f.reservations.Release(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh2, Quantity: 1, Actor: bodeguero})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFulfil_MasQueReservado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 10)
	_, err := f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 2, Actor: bodeguero})
	require.NoError(t, err)

	_, err = f.reservations.Fulfil(ctx, inventory.FulfilInput{
		ReservationInput: inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 3, Actor: bodeguero},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	rec := f.balance(t, productX, wh1, "")
	assert.Equal(t, int64(10), rec.Quantity)
	assert.Equal(t, int64(2), rec.Reserved)
}

func TestReservas_BloqueanSalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 10)
	_, err := f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 7, Actor: bodeguero})
	require.NoError(t, err)

	_, err = f.gate.Submit(ctx, inventory.SubmitMovementInput{
		ProductID: productX, WarehouseID: wh1,
		Kind: entity.MovementKindAdjustmentOut, Reason: entity.ReasonDamage,
		Quantity: 4, IsApproved: boolPtr(true), Actor: admin,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
}
