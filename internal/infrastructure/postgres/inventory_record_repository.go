package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

const recordColumns = `id, product_id, warehouse_id, batch_number, expiry_date, quantity, reserved,
	reorder_point, version, created_at, updated_at`

// InventoryRecordRepo saldos sobre PostgreSQL (usable con pool o tx).
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

// Get obtiene el saldo de un StockKey; nil, nil si no existe.
func (r *InventoryRecordRepo) Get(ctx context.Context, key entity.StockKey) (*entity.InventoryRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM inventory_records WHERE product_id = $1 AND warehouse_id = $2 AND batch_number = $3`
	rec, err := scanRecord(r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID, key.BatchNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

// GetOrCreate inserta el registro en cero si no existe y lo devuelve.
// ON CONFLICT DO NOTHING cubre la carrera de dos primeros movimientos simultáneos.
func (r *InventoryRecordRepo) GetOrCreate(ctx context.Context, key entity.StockKey, expiry *time.Time) (*entity.InventoryRecord, error) {
	query := `
		INSERT INTO inventory_records (id, product_id, warehouse_id, batch_number, expiry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (product_id, warehouse_id, batch_number) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, uuid.New().String(), key.ProductID, key.WarehouseID, key.BatchNumber, expiry); err != nil {
		return nil, fmt.Errorf("create inventory record: %w", err)
	}
	rec, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("create inventory record: registro %s/%s/%q no visible tras insertar",
			key.ProductID, key.WarehouseID, key.BatchNumber)
	}
	return rec, nil
}

// Update escritura condicionada por versión: 0 filas afectadas = otro escritor ganó.
func (r *InventoryRecordRepo) Update(ctx context.Context, rec *entity.InventoryRecord, expectedVersion int64) error {
	query := `
		UPDATE inventory_records
		SET quantity = $1, reserved = $2, reorder_point = $3, expiry_date = $4,
		    version = version + 1, updated_at = $5
		WHERE product_id = $6 AND warehouse_id = $7 AND batch_number = $8 AND version = $9`
	tag, err := r.q.Exec(ctx, query,
		rec.Quantity, rec.Reserved, rec.ReorderPoint, rec.ExpiryDate, rec.UpdatedAt,
		rec.ProductID, rec.WarehouseID, rec.BatchNumber, expectedVersion,
	)
	if err != nil {
		if isCheckViolation(err) {
			// Cantidades a cargo del motor, que conoce el estado leído.
			return &domain.InsufficientStockError{
				ProductID:   rec.ProductID,
				WarehouseID: rec.WarehouseID,
				BatchNumber: rec.BatchNumber,
			}
		}
		return fmt.Errorf("update inventory record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConcurrentModificationError{
			ProductID:       rec.ProductID,
			WarehouseID:     rec.WarehouseID,
			BatchNumber:     rec.BatchNumber,
			ExpectedVersion: expectedVersion,
		}
	}
	rec.Version = expectedVersion + 1
	return nil
}

// List saldos filtrados, ordenados por producto, bodega y lote.
func (r *InventoryRecordRepo) List(ctx context.Context, filter repository.RecordFilter) ([]*entity.InventoryRecord, error) {
	where, args, pos := recordWhere(filter)
	query := `SELECT ` + recordColumns + ` FROM inventory_records` + where +
		" ORDER BY product_id, warehouse_id, batch_number"
	query, args = withPage(query, args, pos, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory records: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.InventoryRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// Count total de saldos que cumplen el filtro, sin paginar.
func (r *InventoryRecordRepo) Count(ctx context.Context, filter repository.RecordFilter) (int, error) {
	where, args, _ := recordWhere(filter)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_records`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count inventory records: %w", err)
	}
	return n, nil
}

func recordWhere(filter repository.RecordFilter) (string, []any, int) {
	var w whereBuilder
	if filter.CompanyID != "" {
		w.add("product_id IN (SELECT id FROM products WHERE company_id = $%d)", filter.CompanyID)
	}
	if filter.ProductID != "" {
		w.add("product_id = $%d", filter.ProductID)
	}
	if filter.WarehouseID != "" {
		w.add("warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.BatchNumber != nil {
		w.add("batch_number = $%d", *filter.BatchNumber)
	}
	return w.build()
}

func scanRecord(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := row.Scan(
		&rec.ID, &rec.ProductID, &rec.WarehouseID, &rec.BatchNumber, &rec.ExpiryDate,
		&rec.Quantity, &rec.Reserved, &rec.ReorderPoint, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// whereBuilder arma condiciones AND con placeholders numerados.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, v any) {
	w.args = append(w.args, v)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

// build devuelve la cláusula WHERE (o vacío), los args y la siguiente posición libre.
func (w *whereBuilder) build() (string, []any, int) {
	if len(w.conds) == 0 {
		return "", nil, 1
	}
	return " WHERE " + strings.Join(w.conds, " AND "), w.args, len(w.args) + 1
}

// withPage agrega LIMIT/OFFSET solo cuando se piden.
func withPage(query string, args []any, pos, limit, offset int) (string, []any) {
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, limit)
		pos++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, offset)
	}
	return query, args
}
