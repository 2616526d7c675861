package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

type appliedMark struct {
	by string
	at time.Time
}

// tx cambios pendientes de una transacción. Nada es visible fuera hasta commit.
type tx struct {
	s *Store

	records map[entity.StockKey]*entity.InventoryRecord
	base    map[entity.StockKey]int64 // versión confirmada al primer acceso
	created map[entity.StockKey]bool  // no existía al primer acceso
	dirty   map[entity.StockKey]bool

	movements []*entity.StockMovement
	applied   map[string]appliedMark
}

func (s *Store) begin() *tx {
	return &tx{
		s:       s,
		records: make(map[entity.StockKey]*entity.InventoryRecord),
		base:    make(map[entity.StockKey]int64),
		created: make(map[entity.StockKey]bool),
		dirty:   make(map[entity.StockKey]bool),
		applied: make(map[string]appliedMark),
	}
}

// record devuelve el registro visible en la tx (staged o confirmado); nil si no existe.
func (t *tx) record(key entity.StockKey) *entity.InventoryRecord {
	if r, ok := t.records[key]; ok {
		return r
	}
	t.s.mu.RLock()
	committed, ok := t.s.records[key]
	t.s.mu.RUnlock()
	if !ok {
		return nil
	}
	r := committed.Clone()
	t.records[key] = r
	t.base[key] = r.Version
	return r
}

func (t *tx) getOrCreate(key entity.StockKey, expiry *time.Time) *entity.InventoryRecord {
	if r := t.record(key); r != nil {
		return r
	}
	now := t.s.now()
	r := entity.NewInventoryRecord(uuid.New().String(), key, cloneTime(expiry), now)
	t.records[key] = r
	t.created[key] = true
	t.dirty[key] = true
	return r
}

func (t *tx) update(rec *entity.InventoryRecord, expected int64) error {
	key := rec.Key()
	cur := t.record(key)
	if cur == nil {
		return &domain.NotFoundError{Resource: "record", ID: key.ProductID + "/" + key.WarehouseID + "/" + key.BatchNumber}
	}
	if cur.Version != expected {
		return conflict(key, expected)
	}
	next := rec.Clone()
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.Version = expected + 1
	t.records[key] = next
	t.dirty[key] = true
	rec.Version = next.Version
	return nil
}

// movement busca primero los creados en la tx y luego los confirmados, con la marca de aplicado encima.
func (t *tx) movement(id string) *entity.StockMovement {
	var m *entity.StockMovement
	for _, nm := range t.movements {
		if nm.ID == id {
			m = cloneMovement(nm)
			break
		}
	}
	if m == nil {
		t.s.mu.RLock()
		committed, ok := t.s.movements[id]
		t.s.mu.RUnlock()
		if !ok {
			return nil
		}
		m = cloneMovement(committed)
	}
	if mark, ok := t.applied[id]; ok {
		m.MarkApplied(mark.by, mark.at)
	}
	return m
}

// commit revalida versiones y estados contra lo confirmado y aplica todo bajo el lock.
func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range t.dirty {
		committed, exists := s.records[key]
		switch {
		case t.created[key] && exists:
			return conflict(key, 0)
		case !t.created[key] && (!exists || committed.Version != t.base[key]):
			return conflict(key, t.base[key])
		}
	}
	for _, m := range t.movements {
		if _, dup := s.movements[m.ID]; dup {
			return fmt.Errorf("movimiento %s duplicado", m.ID)
		}
	}
	for id := range t.applied {
		if m, ok := s.movements[id]; ok && m.IsApplied() {
			return &domain.AlreadyAppliedError{MovementID: id}
		}
	}

	for key := range t.dirty {
		s.records[key] = t.records[key].Clone()
	}
	for _, m := range t.movements {
		s.movements[m.ID] = cloneMovement(m)
		s.order = append(s.order, m.ID)
	}
	for id, mark := range t.applied {
		if m, ok := s.movements[id]; ok {
			m.MarkApplied(mark.by, mark.at)
		}
	}
	return nil
}

func conflict(key entity.StockKey, expected int64) error {
	return &domain.ConcurrentModificationError{
		ProductID:       key.ProductID,
		WarehouseID:     key.WarehouseID,
		BatchNumber:     key.BatchNumber,
		ExpectedVersion: expected,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	c.ExpiryDate = cloneTime(m.ExpiryDate)
	c.ApprovedAt = cloneTime(m.ApprovedAt)
	c.AppliedAt = cloneTime(m.AppliedAt)
	return &c
}
