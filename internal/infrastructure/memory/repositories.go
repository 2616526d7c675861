package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryRecordRepository = recordRepo{}
	_ repository.StockMovementRepository   = movementRepo{}
	_ repository.InventoryRecordRepository = autoRecordRepo{}
	_ repository.StockMovementRepository   = autoMovementRepo{}
)

// recordRepo saldos atados a una tx.
type recordRepo struct{ t *tx }

func (r recordRepo) Get(_ context.Context, key entity.StockKey) (*entity.InventoryRecord, error) {
	return r.t.record(key).Clone(), nil
}

func (r recordRepo) GetOrCreate(_ context.Context, key entity.StockKey, expiry *time.Time) (*entity.InventoryRecord, error) {
	return r.t.getOrCreate(key, expiry).Clone(), nil
}

func (r recordRepo) Update(_ context.Context, rec *entity.InventoryRecord, expectedVersion int64) error {
	return r.t.update(rec, expectedVersion)
}

func (r recordRepo) List(_ context.Context, filter repository.RecordFilter) ([]*entity.InventoryRecord, error) {
	return paginate(r.filtered(filter), filter.Limit, filter.Offset), nil
}

func (r recordRepo) Count(_ context.Context, filter repository.RecordFilter) (int, error) {
	return len(r.filtered(filter)), nil
}

func (r recordRepo) filtered(filter repository.RecordFilter) []*entity.InventoryRecord {
	s := r.t.s
	s.mu.RLock()
	keys := make(map[entity.StockKey]struct{}, len(s.records)+len(r.t.records))
	for k := range s.records {
		keys[k] = struct{}{}
	}
	s.mu.RUnlock()
	for k := range r.t.records {
		keys[k] = struct{}{}
	}

	out := make([]*entity.InventoryRecord, 0, len(keys))
	for k := range keys {
		rec := r.t.record(k)
		if rec == nil || !matchRecord(rec, filter) || !s.ownedBy(rec.ProductID, filter.CompanyID) {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.BatchNumber < b.BatchNumber
	})
	return out
}

func matchRecord(rec *entity.InventoryRecord, f repository.RecordFilter) bool {
	if f.ProductID != "" && rec.ProductID != f.ProductID {
		return false
	}
	if f.WarehouseID != "" && rec.WarehouseID != f.WarehouseID {
		return false
	}
	if f.BatchNumber != nil && rec.BatchNumber != *f.BatchNumber {
		return false
	}
	return true
}

// movementRepo libro atado a una tx.
type movementRepo struct{ t *tx }

func (r movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		return domain.NewValidationError("id", "requerido")
	}
	if r.t.movement(m.ID) != nil {
		return fmt.Errorf("movimiento %s duplicado", m.ID)
	}
	r.t.movements = append(r.t.movements, cloneMovement(m))
	return nil
}

func (r movementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	return r.t.movement(id), nil
}

func (r movementRepo) MarkApplied(_ context.Context, id, approvedBy string, at time.Time) error {
	m := r.t.movement(id)
	if m == nil {
		return &domain.NotFoundError{Resource: "movement", ID: id}
	}
	if m.IsApplied() {
		return &domain.AlreadyAppliedError{MovementID: id}
	}
	r.t.applied[id] = appliedMark{by: approvedBy, at: at}
	return nil
}

func (r movementRepo) List(_ context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	return paginate(r.filtered(filter), filter.Limit, filter.Offset), nil
}

func (r movementRepo) Count(_ context.Context, filter repository.MovementFilter) (int, error) {
	return len(r.filtered(filter)), nil
}

func (r movementRepo) filtered(filter repository.MovementFilter) []*entity.StockMovement {
	s := r.t.s
	s.mu.RLock()
	ids := make([]string, 0, len(s.order)+len(r.t.movements))
	ids = append(ids, s.order...)
	s.mu.RUnlock()
	for _, m := range r.t.movements {
		ids = append(ids, m.ID)
	}

	// Más reciente primero; a igual instante, el insertado después primero.
	out := make([]*entity.StockMovement, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		m := r.t.movement(ids[i])
		if m == nil || !matchMovement(m, filter) || !s.ownedBy(m.ProductID, filter.CompanyID) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func matchMovement(m *entity.StockMovement, f repository.MovementFilter) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
		return false
	}
	if f.BatchNumber != nil && m.BatchNumber != *f.BatchNumber {
		return false
	}
	if f.State != "" && m.ApprovalState != f.State {
		return false
	}
	if f.TransferID != "" && m.TransferID != f.TransferID {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// autoRecordRepo cada operación corre en su propia tx y confirma al terminar.
type autoRecordRepo struct{ s *Store }

func (r autoRecordRepo) Get(ctx context.Context, key entity.StockKey) (*entity.InventoryRecord, error) {
	return recordRepo{t: r.s.begin()}.Get(ctx, key)
}

func (r autoRecordRepo) GetOrCreate(ctx context.Context, key entity.StockKey, expiry *time.Time) (*entity.InventoryRecord, error) {
	t := r.s.begin()
	rec, err := recordRepo{t: t}.GetOrCreate(ctx, key, expiry)
	if err != nil {
		return nil, err
	}
	return rec, t.commit()
}

func (r autoRecordRepo) Update(ctx context.Context, rec *entity.InventoryRecord, expectedVersion int64) error {
	t := r.s.begin()
	if err := (recordRepo{t: t}).Update(ctx, rec, expectedVersion); err != nil {
		return err
	}
	return t.commit()
}

func (r autoRecordRepo) List(ctx context.Context, filter repository.RecordFilter) ([]*entity.InventoryRecord, error) {
	return recordRepo{t: r.s.begin()}.List(ctx, filter)
}

func (r autoRecordRepo) Count(ctx context.Context, filter repository.RecordFilter) (int, error) {
	return recordRepo{t: r.s.begin()}.Count(ctx, filter)
}

type autoMovementRepo struct{ s *Store }

func (r autoMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	t := r.s.begin()
	if err := (movementRepo{t: t}).Create(ctx, m); err != nil {
		return err
	}
	return t.commit()
}

func (r autoMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	return movementRepo{t: r.s.begin()}.GetByID(ctx, id)
}

func (r autoMovementRepo) MarkApplied(ctx context.Context, id, approvedBy string, at time.Time) error {
	t := r.s.begin()
	if err := (movementRepo{t: t}).MarkApplied(ctx, id, approvedBy, at); err != nil {
		return err
	}
	return t.commit()
}

func (r autoMovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	return movementRepo{t: r.s.begin()}.List(ctx, filter)
}

func (r autoMovementRepo) Count(ctx context.Context, filter repository.MovementFilter) (int, error) {
	return movementRepo{t: r.s.begin()}.Count(ctx, filter)
}
