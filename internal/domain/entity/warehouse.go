package entity

// Warehouse representa una bodega del registro externo; Name se usa solo para mostrar.
type Warehouse struct {
	ID        string
	CompanyID string
	Name      string
}
