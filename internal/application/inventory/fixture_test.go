package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

const (
	companyID  = "c1"
	productX   = "prod-x"
	productLot = "prod-lot"
	wh1        = "wh-1"
	wh2        = "wh-2"
)

var (
	admin     = entity.Actor{ID: "u-admin", Name: "Ana Admin", CompanyID: companyID, Role: "admin"}
	bodeguero = entity.Actor{ID: "u-bod", Name: "Beto", CompanyID: companyID, Role: "bodeguero"}
)

type recordingPublisher struct {
	mu        sync.Mutex
	movements []*entity.StockMovement
	alerts    []entity.StockAlert
}

func (p *recordingPublisher) PublishMovements(_ context.Context, movs []*entity.StockMovement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movements = append(p.movements, movs...)
	return nil
}

func (p *recordingPublisher) PublishAlerts(_ context.Context, alerts []entity.StockAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alerts...)
	return nil
}

func (p *recordingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.movements)
}

type fixture struct {
	store        *memory.Store
	engine       *inventory.BalanceEngine
	gate         *inventory.ApprovalGate
	transfers    *inventory.TransferCoordinator
	reservations *inventory.ReservationGateway
	alerts       *inventory.AlertUseCase
	queries      *inventory.QueryUseCase
	publisher    *recordingPublisher
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	autoApprove bool
	wrapRunner  func(inventory.TxRunner) inventory.TxRunner
	retry       inventory.RetryConfig
}

func withAutoApprove(v bool) fixtureOption {
	return func(c *fixtureConfig) { c.autoApprove = v }
}

func withRunner(wrap func(inventory.TxRunner) inventory.TxRunner) fixtureOption {
	return func(c *fixtureConfig) { c.wrapRunner = wrap }
}

func withRetry(r inventory.RetryConfig) fixtureOption {
	return func(c *fixtureConfig) { c.retry = r }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{
		autoApprove: true,
		retry:       inventory.RetryConfig{MaxAttempts: 50, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	}
	for _, o := range opts {
		o(&cfg)
	}

	store := memory.NewStore()
	store.PutProduct(&entity.Product{ID: productX, CompanyID: companyID, SKU: "X-1", Name: "Producto X"})
	store.PutProduct(&entity.Product{ID: productLot, CompanyID: companyID, SKU: "L-1", Name: "Jarabe", BatchTracked: true})
	store.PutWarehouse(&entity.Warehouse{ID: wh1, CompanyID: companyID, Name: "Principal"})
	store.PutWarehouse(&entity.Warehouse{ID: wh2, CompanyID: companyID, Name: "Sucursal Norte"})

	runner := store.TxRunner()
	if cfg.wrapRunner != nil {
		runner = cfg.wrapRunner(runner)
	}
	log := logger.Nop()
	pub := &recordingPublisher{}
	engine := inventory.NewBalanceEngine(runner, store.Products(), store.Warehouses(), cfg.retry, log)

	return &fixture{
		store:        store,
		engine:       engine,
		gate:         inventory.NewApprovalGate(engine, store.Products(), store.Warehouses(), pub, cfg.autoApprove, log),
		transfers:    inventory.NewTransferCoordinator(engine, store.Products(), store.Warehouses(), pub, log),
		reservations: inventory.NewReservationGateway(engine, pub, log),
		alerts:       inventory.NewAlertUseCase(store.Records(), store.Warehouses()),
		queries:      inventory.NewQueryUseCase(store.Records(), store.Movements(), store.Products(), store.Warehouses()),
		publisher:    pub,
	}
}

func boolPtr(v bool) *bool { return &v }

func (f *fixture) receive(t *testing.T, product, warehouse, batch string, qty int64) *inventory.MovementResult {
	t.Helper()
	res, err := f.gate.Submit(context.Background(), inventory.SubmitMovementInput{
		ProductID:   product,
		WarehouseID: warehouse,
		BatchNumber: batch,
		Kind:        entity.MovementKindIn,
		Reason:      entity.ReasonPurchase,
		Quantity:    qty,
		Actor:       bodeguero,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) balance(t *testing.T, product, warehouse, batch string) *entity.InventoryRecord {
	t.Helper()
	rec, err := f.queries.GetBalance(context.Background(), entity.StockKey{ProductID: product, WarehouseID: warehouse, BatchNumber: batch}, admin)
	require.NoError(t, err)
	return rec
}
