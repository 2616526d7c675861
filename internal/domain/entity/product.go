package entity

// Product vista mínima del catálogo externo que necesita el libro de inventario.
// BatchTracked exige número de lote en todos sus movimientos.
type Product struct {
	ID           string
	CompanyID    string
	SKU          string
	Name         string
	BatchTracked bool
}
