package entity

// Actor quién ejecuta un comando (performedBy / approvedBy), tomado del token.
type Actor struct {
	ID        string
	Name      string
	CompanyID string
	Role      string
}
