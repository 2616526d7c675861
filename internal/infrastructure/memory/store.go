// Package memory implementa los puertos de persistencia en memoria con transacciones
// optimistas: cada tx trabaja sobre copias y al confirmar revalida versiones.
// Se usa en tests y con LEDGER_STORE=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
)

// Store estado confirmado. Solo commit escribe records y movements.
type Store struct {
	mu         sync.RWMutex
	records    map[entity.StockKey]*entity.InventoryRecord
	movements  map[string]*entity.StockMovement
	order      []string
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
	now        func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		records:    make(map[entity.StockKey]*entity.InventoryRecord),
		movements:  make(map[string]*entity.StockMovement),
		products:   make(map[string]*entity.Product),
		warehouses: make(map[string]*entity.Warehouse),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PutProduct registra un producto del catálogo.
func (s *Store) PutProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.products[p.ID] = &c
}

// PutWarehouse registra una bodega.
func (s *Store) PutWarehouse(w *entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *w
	s.warehouses[w.ID] = &c
}

// LoadCatalog registra todos los productos y bodegas del catálogo.
func (s *Store) LoadCatalog(c *catalog.Catalog) {
	for _, p := range c.Products {
		s.PutProduct(p)
	}
	for _, w := range c.Warehouses {
		s.PutWarehouse(w)
	}
}

// Records repositorio de saldos fuera de transacción (cada llamada confirma sola).
func (s *Store) Records() repository.InventoryRecordRepository { return autoRecordRepo{s: s} }

// Movements repositorio del libro fuera de transacción.
func (s *Store) Movements() repository.StockMovementRepository { return autoMovementRepo{s: s} }

// Products lectura del catálogo.
func (s *Store) Products() repository.ProductRepository { return productRepo{s: s} }

// Warehouses lectura del registro de bodegas.
func (s *Store) Warehouses() repository.WarehouseRepository { return warehouseRepo{s: s} }

// TxRunner implementación de inventory.TxRunner sobre el Store.
func (s *Store) TxRunner() inventory.TxRunner { return txRunner{s: s} }

type txRunner struct {
	s *Store
}

var _ inventory.TxRunner = txRunner{}

// Run ejecuta fn sobre una tx nueva; si fn falla nada se confirma.
func (r txRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	recordRepo repository.InventoryRecordRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := r.s.begin()
	if err := fn(movementRepo{t: t}, recordRepo{t: t}); err != nil {
		return err
	}
	return t.commit()
}

// ownedBy companyID vacío no filtra; un producto fuera del catálogo no pertenece a nadie.
func (s *Store) ownedBy(productID, companyID string) bool {
	if companyID == "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	return ok && p.CompanyID == companyID
}

type productRepo struct{ s *Store }

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

type warehouseRepo struct{ s *Store }

func (r warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

var (
	_ repository.ProductRepository   = productRepo{}
	_ repository.WarehouseRepository = warehouseRepo{}
)
