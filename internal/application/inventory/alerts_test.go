package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

func TestAlerts_StockBajoDesapareceTrasRecepcion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := entity.StockKey{ProductID: productX, WarehouseID: wh1}
	f.receive(t, productX, wh1, "", 5)
	_, err := f.engine.SetReorderPoint(ctx, key, 10, admin)
	require.NoError(t, err)

	alerts, err := f.alerts.ListAlerts(ctx, inventory.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.AlertLowStock, alerts[0].Level)
	assert.Equal(t, "Principal", alerts[0].WarehouseName)
	assert.Equal(t, int64(5), alerts[0].Available)

	f.receive(t, productX, wh1, "", 20)

	alerts, err = f.alerts.ListAlerts(ctx, inventory.AlertFilter{})
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.NotNil(t, alerts)
}

func TestAlerts_AgotadoPrimeroYFiltroPorNivel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, productX, wh1, "", 3)
	_, err := f.engine.SetReorderPoint(ctx, entity.StockKey{ProductID: productX, WarehouseID: wh1}, 5, admin)
	require.NoError(t, err)

	f.receive(t, productX, wh2, "", 4)
	_, err = f.reservations.Reserve(ctx, inventory.ReservationInput{ProductID: productX, WarehouseID: wh2, Quantity: 4, Actor: bodeguero})
	require.NoError(t, err)

	alerts, err := f.alerts.ListAlerts(ctx, inventory.AlertFilter{ProductID: productX})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, entity.AlertOutOfStock, alerts[0].Level)
	assert.Equal(t, wh2, alerts[0].WarehouseID)
	assert.Equal(t, entity.AlertLowStock, alerts[1].Level)

	onlyLow, err := f.alerts.ListAlerts(ctx, inventory.AlertFilter{Level: entity.AlertLowStock})
	require.NoError(t, err)
	require.Len(t, onlyLow, 1)
	assert.Equal(t, wh1, onlyLow[0].WarehouseID)

	again, err := f.alerts.ListAlerts(ctx, inventory.AlertFilter{ProductID: productX})
	require.NoError(t, err)
	assert.Equal(t, alerts, again)
}
