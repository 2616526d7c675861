package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// catalogGuard valida referencias al catálogo y al registro de bodegas antes de tocar el libro.
type catalogGuard struct {
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
}

// product valida existencia y que pertenezca a la empresa del actor.
func (g catalogGuard) product(ctx context.Context, id string, actor entity.Actor) (*entity.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("product_id", "requerido")
	}
	p, err := g.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, &domain.NotFoundError{Resource: "product", ID: id}
	}
	if actor.CompanyID != "" && p.CompanyID != "" && p.CompanyID != actor.CompanyID {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func (g catalogGuard) warehouse(ctx context.Context, field, id string, actor entity.Actor) (*entity.Warehouse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError(field, "requerido")
	}
	w, err := g.warehouseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	if w == nil {
		return nil, &domain.NotFoundError{Resource: "warehouse", ID: id}
	}
	if actor.CompanyID != "" && w.CompanyID != "" && w.CompanyID != actor.CompanyID {
		return nil, domain.ErrForbidden
	}
	return w, nil
}

// batch exige lote en productos con control de lote.
func (g catalogGuard) batch(p *entity.Product, batchNumber string) error {
	if p.BatchTracked && strings.TrimSpace(batchNumber) == "" {
		return domain.NewValidationError("batch_number", "el producto exige número de lote")
	}
	return nil
}
