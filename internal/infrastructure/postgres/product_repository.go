package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo lectura del catálogo sobre PostgreSQL.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Acepta pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT id, company_id, sku, name, batch_tracked FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.BatchTracked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Upsert crea o actualiza un producto del catálogo (comando seed_catalog).
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, company_id, sku, name, batch_tracked)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET company_id = EXCLUDED.company_id, sku = EXCLUDED.sku, name = EXCLUDED.name,
		    batch_tracked = EXCLUDED.batch_tracked`
	if _, err := r.q.Exec(ctx, query, p.ID, p.CompanyID, p.SKU, p.Name, p.BatchTracked); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
