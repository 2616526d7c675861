package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"

	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Inventory InventoryServices
	JWTSecret string
	Limiter   *limiter.Limiter // nil = sin límite de tasa
	TxTimeout time.Duration    // por comando; 0 = sin límite
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	if deps.Limiter != nil {
		protected.Use(RateLimit(deps.Limiter))
	}

	adminOnly := RequireRole(jwt.RoleAdmin)
	warehouseStaff := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)

	inv := protected.Group("/inventory")
	h := NewInventoryHandler(deps.Inventory, deps.TxTimeout)

	// Libro de movimientos
	inv.Post("/movements", h.SubmitMovement)
	inv.Get("/movements", h.ListMovements)
	inv.Post("/movements/:id/approve", adminOnly, h.ApproveMovement)

	// Traslados
	inv.Post("/transfers", warehouseStaff, h.Transfer)

	// Saldos
	inv.Get("/balances", h.ListBalances)
	inv.Get("/balances/:product_id/:warehouse_id", h.GetBalance)
	inv.Put("/balances/:product_id/:warehouse_id/reorder-point", adminOnly, h.SetReorderPoint)
	inv.Get("/balances/:product_id/:warehouse_id/replay", adminOnly, h.VerifyReplay)

	// Alertas
	inv.Get("/alerts", h.ListAlerts)

	// Reservas (pipeline de pedidos)
	inv.Post("/reservations", h.Reserve)
	inv.Post("/reservations/release", h.Release)
	inv.Post("/reservations/fulfil", h.Fulfil)
}
