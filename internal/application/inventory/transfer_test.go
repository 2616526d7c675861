package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestTransfer_MueveStockYEnlazaTramos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expiry := mustDate(t, "2027-01-15")
	_, err := f.gate.Submit(ctx, inventory.SubmitMovementInput{
		ProductID: productLot, WarehouseID: wh1, BatchNumber: "B", ExpiryDate: &expiry,
		Kind: entity.MovementKindIn, Reason: entity.ReasonPurchase, Quantity: 20, Actor: bodeguero,
	})
	require.NoError(t, err)

	res, err := f.transfers.Transfer(ctx, inventory.TransferInput{
		ProductID: productLot, BatchNumber: "B",
		FromWarehouseID: wh1, ToWarehouseID: wh2,
		Quantity: 20, Actor: bodeguero,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Source.Available())
	assert.Equal(t, int64(20), res.Destination.Quantity)
	require.NotNil(t, res.Destination.ExpiryDate)
	assert.True(t, res.Destination.ExpiryDate.Equal(expiry), "el vencimiento viaja con el lote")

	assert.NotEmpty(t, res.TransferID)
	assert.Equal(t, res.TransferID, res.Out.TransferID)
	assert.Equal(t, res.TransferID, res.In.TransferID)
	assert.Equal(t, entity.MovementKindTransferOut, res.Out.Kind)
	assert.Equal(t, entity.MovementKindTransferIn, res.In.Kind)

	legs, err := f.queries.ListMovements(ctx, repository.MovementFilter{TransferID: res.TransferID}, admin)
	require.NoError(t, err)
	assert.Len(t, legs, 2)
	for _, m := range legs {
		assert.Equal(t, entity.ApprovalApplied, m.ApprovalState)
		assert.Equal(t, entity.ReasonTransfer, m.Reason)
	}
}

func TestTransfer_OrigenInsuficienteNoTocaNingunLado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 5)

	_, err := f.transfers.Transfer(ctx, inventory.TransferInput{
		ProductID: productX, FromWarehouseID: wh1, ToWarehouseID: wh2, Quantity: 6, Actor: bodeguero,
	})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5), insufficient.Available)

	assert.Equal(t, int64(5), f.balance(t, productX, wh1, "").Quantity)
	_, err = f.queries.GetBalance(ctx, entity.StockKey{ProductID: productX, WarehouseID: wh2}, admin)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransfer_StockReservadoNoSeTraslada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 10)
	_, err := f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh1, Quantity: 8, Actor: bodeguero})
	require.NoError(t, err)

	_, err = f.transfers.Transfer(ctx, inventory.TransferInput{
		ProductID: productX, FromWarehouseID: wh1, ToWarehouseID: wh2, Quantity: 3, Actor: bodeguero,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestTransfer_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.transfers.Transfer(ctx, inventory.TransferInput{ProductID: productX, FromWarehouseID: wh1, ToWarehouseID: wh1, Quantity: 1, Actor: admin})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.transfers.Transfer(ctx, inventory.TransferInput{ProductID: productX, FromWarehouseID: wh1, ToWarehouseID: wh2, Quantity: 0, Actor: admin})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.transfers.Transfer(ctx, inventory.TransferInput{ProductID: productX, FromWarehouseID: wh1, ToWarehouseID: "ghost", Quantity: 1, Actor: admin})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.transfers.Transfer(ctx, inventory.TransferInput{ProductID: productLot, FromWarehouseID: wh1, ToWarehouseID: wh2, Quantity: 1, Actor: admin})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

// failingRecords falla la escritura de un StockKey concreto para simular un error a mitad de traslado.
type failingRecords struct {
	repository.InventoryRecordRepository
	key entity.StockKey
	err error
}

func (f failingRecords) Update(ctx context.Context, rec *entity.InventoryRecord, expected int64) error {
	if rec.Key() == f.key {
		return f.err
	}
	return f.InventoryRecordRepository.Update(ctx, rec, expected)
}

type failingRunner struct {
	inner inventory.TxRunner
	key   entity.StockKey
	err   error
	armed *bool
}

func (r failingRunner) Run(ctx context.Context, fn func(repository.StockMovementRepository, repository.InventoryRecordRepository) error) error {
	return r.inner.Run(ctx, func(movRepo repository.StockMovementRepository, recRepo repository.InventoryRecordRepository) error {
		if *r.armed {
			recRepo = failingRecords{InventoryRecordRepository: recRepo, key: r.key, err: r.err}
		}
		return fn(movRepo, recRepo)
	})
}

func TestTransfer_FalloEnDestinoRevierteOrigen(t *testing.T) {
	boom := errors.New("disco lleno")
	armed := false
	dst := entity.StockKey{ProductID: productX, WarehouseID: wh2}
	f := newFixture(t, withRunner(func(inner inventory.TxRunner) inventory.TxRunner {
		return failingRunner{inner: inner, key: dst, err: boom, armed: &armed}
	}))
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 30)

	armed = true
	_, err := f.transfers.Transfer(ctx, inventory.TransferInput{
		ProductID: productX, FromWarehouseID: wh1, ToWarehouseID: wh2, Quantity: 10, Actor: bodeguero,
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(30), f.balance(t, productX, wh1, "").Quantity)
	movs, err := f.queries.ListMovements(ctx, repository.MovementFilter{ProductID: productX}, admin)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementKindIn, movs[0].Kind)
}
