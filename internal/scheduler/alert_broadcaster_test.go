package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/scheduler"
)

type stubSource struct {
	alerts []entity.StockAlert
	err    error
}

func (s stubSource) ListAlerts(context.Context, inventory.AlertFilter) ([]entity.StockAlert, error) {
	return s.alerts, s.err
}

type capturePublisher struct {
	inventory.NopPublisher
	alerts []entity.StockAlert
}

func (p *capturePublisher) PublishAlerts(_ context.Context, alerts []entity.StockAlert) error {
	p.alerts = append(p.alerts, alerts...)
	return nil
}

func TestBroadcast_PublicaAlertasVigentes(t *testing.T) {
	pub := &capturePublisher{}
	src := stubSource{alerts: []entity.StockAlert{
		{ProductID: "p1", WarehouseID: "w1", Level: entity.AlertOutOfStock},
		{ProductID: "p2", WarehouseID: "w1", Level: entity.AlertLowStock},
	}}
	b := scheduler.NewAlertBroadcaster("@every 1h", src, pub, nil)

	n, err := b.Broadcast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, pub.alerts, 2)
}

func TestBroadcast_NadaQuePublicar(t *testing.T) {
	pub := &capturePublisher{}
	b := scheduler.NewAlertBroadcaster("@every 1h", stubSource{}, pub, nil)

	n, err := b.Broadcast(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.alerts)
}

func TestBroadcast_ErrorDeOrigen(t *testing.T) {
	b := scheduler.NewAlertBroadcaster("@every 1h", stubSource{err: errors.New("db")}, &capturePublisher{}, nil)

	_, err := b.Broadcast(context.Background())
	assert.Error(t, err)
}

func TestStart_ExpresionCronInvalida(t *testing.T) {
	b := scheduler.NewAlertBroadcaster("cada hora", stubSource{}, &capturePublisher{}, nil)
	assert.Error(t, b.Start())
}

func TestStartStop_ProgramaYDetiene(t *testing.T) {
	b := scheduler.NewAlertBroadcaster("@every 1h", stubSource{}, &capturePublisher{}, nil)
	require.NoError(t, b.Start())
	b.Stop()
}
