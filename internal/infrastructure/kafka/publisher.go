// Package kafka publica los hechos del libro (movimientos aplicados y alertas) en Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

const (
	EventMovementApplied = "inventory.movement.applied"
	EventStockAlert      = "inventory.stock.alert"
)

var _ inventory.EventPublisher = (*Publisher)(nil)

// MessageWriter lo que el publicador necesita de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MovementEvent carga útil de un movimiento aplicado.
type MovementEvent struct {
	EventType   string    `json:"event_type"`
	MovementID  string    `json:"movement_id"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	BatchNumber string    `json:"batch_number,omitempty"`
	Kind        string    `json:"kind"`
	Reason      string    `json:"reason"`
	Quantity    int64     `json:"quantity"`
	Delta       int64     `json:"delta"`
	Reference   string    `json:"reference,omitempty"`
	TransferID  string    `json:"transfer_id,omitempty"`
	PerformedBy string    `json:"performed_by"`
	ApprovedBy  string    `json:"approved_by,omitempty"`
	AppliedAt   time.Time `json:"applied_at"`
}

// AlertEvent carga útil de una alerta de stock.
type AlertEvent struct {
	EventType     string    `json:"event_type"`
	ProductID     string    `json:"product_id"`
	WarehouseID   string    `json:"warehouse_id"`
	WarehouseName string    `json:"warehouse_name,omitempty"`
	BatchNumber   string    `json:"batch_number,omitempty"`
	Level         string    `json:"level"`
	Quantity      int64     `json:"quantity"`
	Reserved      int64     `json:"reserved"`
	Available     int64     `json:"available"`
	ReorderPoint  int64     `json:"reorder_point"`
	DetectedAt    time.Time `json:"detected_at"`
}

// Publisher escribe eventos en dos tópicos; la clave del mensaje es el StockKey
// para que los eventos de un mismo saldo queden en la misma partición.
type Publisher struct {
	movements MessageWriter
	alerts    MessageWriter
	log       *logger.Logger
	now       func() time.Time
}

// NewPublisher crea writers de kafka-go para los tópicos configurados.
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) *Publisher {
	return NewPublisherWithWriters(newWriter(cfg.Brokers, cfg.MovementsTopic), newWriter(cfg.Brokers, cfg.AlertsTopic), log)
}

// NewPublisherWithWriters permite inyectar writers (tests).
func NewPublisherWithWriters(movements, alerts MessageWriter, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		movements: movements,
		alerts:    alerts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// PublishMovements publica solo movimientos APPLIED; los borradores no son hechos todavía.
func (p *Publisher) PublishMovements(ctx context.Context, movements []*entity.StockMovement) error {
	msgs := make([]kafka.Message, 0, len(movements))
	for _, m := range movements {
		if !m.IsApplied() {
			continue
		}
		ev := MovementEvent{
			EventType:   EventMovementApplied,
			MovementID:  m.ID,
			ProductID:   m.ProductID,
			WarehouseID: m.WarehouseID,
			BatchNumber: m.BatchNumber,
			Kind:        string(m.Kind),
			Reason:      string(m.Reason),
			Quantity:    m.Quantity,
			Delta:       m.SignedQuantity(),
			Reference:   m.Reference,
			TransferID:  m.TransferID,
			PerformedBy: m.PerformedBy,
			ApprovedBy:  m.ApprovedBy,
		}
		if m.AppliedAt != nil {
			ev.AppliedAt = *m.AppliedAt
		}
		msg, err := p.message(ctx, m.Key(), ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.write(ctx, p.movements, msgs)
}

// PublishAlerts publica una foto de las alertas vigentes.
func (p *Publisher) PublishAlerts(ctx context.Context, alerts []entity.StockAlert) error {
	now := p.now()
	msgs := make([]kafka.Message, 0, len(alerts))
	for _, a := range alerts {
		ev := AlertEvent{
			EventType:     EventStockAlert,
			ProductID:     a.ProductID,
			WarehouseID:   a.WarehouseID,
			WarehouseName: a.WarehouseName,
			BatchNumber:   a.BatchNumber,
			Level:         string(a.Level),
			Quantity:      a.Quantity,
			Reserved:      a.Reserved,
			Available:     a.Available,
			ReorderPoint:  a.ReorderPoint,
			DetectedAt:    now,
		}
		key := entity.StockKey{ProductID: a.ProductID, WarehouseID: a.WarehouseID, BatchNumber: a.BatchNumber}
		msg, err := p.message(ctx, key, ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.write(ctx, p.alerts, msgs)
}

// Close cierra ambos writers.
func (p *Publisher) Close() error {
	errMov := p.movements.Close()
	errAlert := p.alerts.Close()
	if errMov != nil {
		return errMov
	}
	return errAlert
}

func (p *Publisher) message(ctx context.Context, key entity.StockKey, payload any) (kafka.Message, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("serializar evento: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key.ProductID + "/" + key.WarehouseID + "/" + key.BatchNumber),
		Value: value,
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})
	return msg, nil
}

func (p *Publisher) write(ctx context.Context, w MessageWriter, msgs []kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar %d eventos: %w", len(msgs), err)
	}
	p.log.Debug().Int("count", len(msgs)).Msg("eventos publicados")
	return nil
}

// headerCarrier adapta los headers de kafka.Message a propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
