// Package catalog lee el catálogo de productos y bodegas desde un archivo JSON.
// Lo usan el modo memory y el comando seed_catalog.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Catalog productos y bodegas conocidos por el libro.
type Catalog struct {
	Products   []*entity.Product
	Warehouses []*entity.Warehouse
}

type fileProduct struct {
	ID           string `json:"id"`
	CompanyID    string `json:"company_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	BatchTracked bool   `json:"batch_tracked"`
}

type fileWarehouse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
}

type file struct {
	Products   []fileProduct   `json:"products"`
	Warehouses []fileWarehouse `json:"warehouses"`
}

// Load abre y decodifica el archivo.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir catálogo: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode valida que cada entrada tenga id y empresa, sin ids repetidos.
func Decode(r io.Reader) (*Catalog, error) {
	var raw file
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decodificar catálogo: %w", err)
	}

	c := &Catalog{}
	seen := make(map[string]struct{})
	for i, p := range raw.Products {
		id := strings.TrimSpace(p.ID)
		if id == "" || p.CompanyID == "" {
			return nil, fmt.Errorf("producto #%d: id y company_id son obligatorios", i)
		}
		if _, dup := seen["p:"+id]; dup {
			return nil, fmt.Errorf("producto %s repetido", id)
		}
		seen["p:"+id] = struct{}{}
		c.Products = append(c.Products, &entity.Product{
			ID: id, CompanyID: p.CompanyID, SKU: p.SKU, Name: p.Name, BatchTracked: p.BatchTracked,
		})
	}
	for i, w := range raw.Warehouses {
		id := strings.TrimSpace(w.ID)
		if id == "" || w.CompanyID == "" {
			return nil, fmt.Errorf("bodega #%d: id y company_id son obligatorios", i)
		}
		if _, dup := seen["w:"+id]; dup {
			return nil, fmt.Errorf("bodega %s repetida", id)
		}
		seen["w:"+id] = struct{}{}
		c.Warehouses = append(c.Warehouses, &entity.Warehouse{ID: id, CompanyID: w.CompanyID, Name: w.Name})
	}
	return c, nil
}
