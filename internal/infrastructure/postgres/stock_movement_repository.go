package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, warehouse_id, batch_number, expiry_date, kind, reason, quantity,
	reference, notes, performed_by, performed_by_name, created_at, approval_state, approved_by,
	approved_at, applied_at, transfer_id`

// StockMovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento (DRAFT o APPLIED).
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.WarehouseID, m.BatchNumber, m.ExpiryDate, string(m.Kind), string(m.Reason), m.Quantity,
		m.Reference, m.Notes, m.PerformedBy, m.PerformedByName, m.CreatedAt, string(m.ApprovalState),
		nullString(m.ApprovedBy), m.ApprovedAt, m.AppliedAt, nullString(m.TransferID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create stock movement %s: %w", m.ID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento; nil, nil si no existe.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// MarkApplied DRAFT -> APPLIED condicionado al estado; la segunda aprobación no afecta filas.
func (r *StockMovementRepo) MarkApplied(ctx context.Context, id, approvedBy string, at time.Time) error {
	query := `
		UPDATE stock_movements
		SET approval_state = 'APPLIED', approved_by = $2, approved_at = $3, applied_at = $3
		WHERE id = $1 AND approval_state = 'DRAFT'`
	tag, err := r.q.Exec(ctx, query, id, approvedBy, at)
	if err != nil {
		return fmt.Errorf("mark movement applied: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &domain.NotFoundError{Resource: "movement", ID: id}
	}
	return &domain.AlreadyAppliedError{MovementID: id}
}

// List libro filtrado, más reciente primero.
func (r *StockMovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	where, args, pos := movementWhere(filter)
	query := `SELECT ` + movementColumns + ` FROM stock_movements` + where + " ORDER BY created_at DESC, id DESC"
	query, args = withPage(query, args, pos, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Count total de movimientos que cumplen el filtro, sin paginar.
func (r *StockMovementRepo) Count(ctx context.Context, filter repository.MovementFilter) (int, error) {
	where, args, _ := movementWhere(filter)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stock movements: %w", err)
	}
	return n, nil
}

func movementWhere(filter repository.MovementFilter) (string, []any, int) {
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
	if filter.State != "" {
		w.add("approval_state = $%d", string(filter.State))
	}
	if filter.TransferID != "" {
		w.add("transfer_id = $%d", filter.TransferID)
	}
	if filter.From != nil {
		w.add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		w.add("created_at <= $%d", *filter.To)
	}
	return w.build()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m                      entity.StockMovement
		kind, reason, state    string
		approvedBy, transferID *string
	)
	err := row.Scan(
		&m.ID, &m.ProductID, &m.WarehouseID, &m.BatchNumber, &m.ExpiryDate, &kind, &reason, &m.Quantity,
		&m.Reference, &m.Notes, &m.PerformedBy, &m.PerformedByName, &m.CreatedAt, &state, &approvedBy,
		&m.ApprovedAt, &m.AppliedAt, &transferID,
	)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	m.Reason = entity.MovementReason(reason)
	m.ApprovalState = entity.ApprovalState(state)
	if approvedBy != nil {
		m.ApprovedBy = *approvedBy
	}
	if transferID != nil {
		m.TransferID = *transferID
	}
	return &m, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
