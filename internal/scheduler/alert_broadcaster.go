// Package scheduler tareas periódicas del servicio.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// AlertSource origen de las alertas vigentes.
type AlertSource interface {
	ListAlerts(ctx context.Context, filter inventory.AlertFilter) ([]entity.StockAlert, error)
}

// AlertBroadcaster publica periódicamente la foto de alertas para consumidores de notificación.
// No corrige ni reconcilia saldos.
type AlertBroadcaster struct {
	cron      *cron.Cron
	spec      string
	source    AlertSource
	publisher inventory.EventPublisher
	timeout   time.Duration
	log       *logger.Logger
}

// NewAlertBroadcaster crea el programador. spec es una expresión cron estándar de 5 campos.
func NewAlertBroadcaster(spec string, source AlertSource, publisher inventory.EventPublisher, log *logger.Logger) *AlertBroadcaster {
	if log == nil {
		log = logger.Nop()
	}
	return &AlertBroadcaster{
		cron:      cron.New(),
		spec:      spec,
		source:    source,
		publisher: publisher,
		timeout:   time.Minute,
		log:       log,
	}
}

// Start registra la tarea y arranca el cron. Error si la expresión es inválida.
func (b *AlertBroadcaster) Start() error {
	if _, err := b.cron.AddFunc(b.spec, b.run); err != nil {
		return fmt.Errorf("programar difusión de alertas %q: %w", b.spec, err)
	}
	b.log.Info().Str("cron", b.spec).Msg("difusión de alertas programada")
	b.cron.Start()
	return nil
}

// Stop detiene el cron y espera la ejecución en curso.
func (b *AlertBroadcaster) Stop() {
	<-b.cron.Stop().Done()
}

func (b *AlertBroadcaster) run() {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if _, err := b.Broadcast(ctx); err != nil {
		b.log.Error().Err(err).Msg("falló la difusión de alertas")
	}
}

// Broadcast deriva y publica las alertas actuales; devuelve cuántas publicó.
func (b *AlertBroadcaster) Broadcast(ctx context.Context) (int, error) {
	alerts, err := b.source.ListAlerts(ctx, inventory.AlertFilter{})
	if err != nil {
		return 0, err
	}
	if len(alerts) == 0 {
		b.log.Debug().Msg("sin alertas de stock")
		return 0, nil
	}
	if err := b.publisher.PublishAlerts(ctx, alerts); err != nil {
		return 0, err
	}
	b.log.Info().Int("count", len(alerts)).Msg("alertas de stock publicadas")
	return len(alerts), nil
}
