package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

const dateLayout = "2006-01-02"

// InventoryServices casos de uso que expone el handler.
type InventoryServices struct {
	Gate         *inventory.ApprovalGate
	Transfers    *inventory.TransferCoordinator
	Reservations *inventory.ReservationGateway
	Engine       *inventory.BalanceEngine
	Queries      *inventory.QueryUseCase
	Alerts       *inventory.AlertUseCase
}

// InventoryHandler maneja las peticiones HTTP del libro de inventario (protegido).
type InventoryHandler struct {
	svc     InventoryServices
	timeout time.Duration
}

// NewInventoryHandler construye el handler. timeout acota cada comando (0 = sin límite).
func NewInventoryHandler(svc InventoryServices, timeout time.Duration) *InventoryHandler {
	return &InventoryHandler{svc: svc, timeout: timeout}
}

func (h *InventoryHandler) commandContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// SubmitMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Entradas, salidas y ajustes. Las compras se aplican de inmediato; el resto según is_approved o la política.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SubmitMovementRequest  true  "product_id, warehouse_id, kind, reason, quantity"
// @Success      201   {object}  dto.MovementResultResponse  "aplicado"
// @Success      202   {object}  dto.MovementResultResponse  "pendiente de aprobación"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) SubmitMovement(c *fiber.Ctx) error {
	var req dto.SubmitMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	expiry, err := parseOptionalDate("expiry_date", req.ExpiryDate)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := h.commandContext(c)
	defer cancel()

	res, err := h.svc.Gate.Submit(ctx, inventory.SubmitMovementInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		BatchNumber: req.BatchNumber,
		ExpiryDate:  expiry,
		Kind:        entity.MovementKind(req.Kind),
		Reason:      entity.MovementReason(req.Reason),
		Quantity:    req.Quantity,
		Reference:   req.Reference,
		Notes:       req.Notes,
		IsApproved:  req.IsApproved,
		Actor:       GetActor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Record == nil {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(dto.NewMovementResultResponse(res.Movement, res.Record))
}

// ApproveMovement godoc
// @Summary      Aprobar movimiento pendiente
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResultResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "ALREADY_APPLIED o INSUFFICIENT_STOCK"
// @Router       /api/inventory/movements/{id}/approve [post]
func (h *InventoryHandler) ApproveMovement(c *fiber.Ctx) error {
	ctx, cancel := h.commandContext(c)
	defer cancel()
	res, err := h.svc.Gate.Approve(ctx, c.Params("id"), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewMovementResultResponse(res.Movement, res.Record))
}

// ListMovements godoc
// @Summary      Auditoría de movimientos
// @Description  Más reciente primero. from/to aceptan YYYY-MM-DD o RFC3339.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        batch         query  string  false  "Lote (vacío = sin lote)"
// @Param        state         query  string  false  "DRAFT | APPLIED"
// @Param        transfer_id   query  string  false  "Traslado"
// @Param        from          query  string  false  "Desde"
// @Param        to            query  string  false  "Hasta"
// @Param        limit         query  int     false  "Límite (default 20)"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	from, err := parseOptionalTime("from", c.Query("from"), false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseOptionalTime("to", c.Query("to"), true)
	if err != nil {
		return writeError(c, err)
	}
	state := entity.ApprovalState(c.Query("state"))
	if state != "" && state != entity.ApprovalDraft && state != entity.ApprovalApplied {
		return writeError(c, domain.NewValidationError("state", "debe ser DRAFT o APPLIED"))
	}

	actor := GetActor(c)
	filter := repository.MovementFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		BatchNumber: optionalQuery(c, "batch"),
		State:       state,
		TransferID:  c.Query("transfer_id"),
		From:        from,
		To:          to,
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	list, err := h.svc.Queries.ListMovements(c.UserContext(), filter, actor)
	if err != nil {
		return writeError(c, err)
	}
	total, err := h.svc.Queries.CountMovements(c.UserContext(), filter, actor)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.NewMovementResponse(m))
	}
	return c.JSON(fiber.Map{
		"total": total,
		"items": items,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas
// @Description  Registra TRANSFER_OUT y TRANSFER_IN enlazados de forma atómica.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := h.commandContext(c)
	defer cancel()

	res, err := h.svc.Transfers.Transfer(ctx, inventory.TransferInput{
		ProductID:       req.ProductID,
		BatchNumber:     req.BatchNumber,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		Quantity:        req.Quantity,
		Reference:       req.Reference,
		Notes:           req.Notes,
		Actor:           GetActor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		TransferID:  res.TransferID,
		Out:         dto.NewMovementResponse(res.Out),
		In:          dto.NewMovementResponse(res.In),
		Source:      dto.NewBalanceResponse(res.Source),
		Destination: dto.NewBalanceResponse(res.Destination),
	})
}

// ListBalances godoc
// @Summary      Saldos actuales
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        batch         query  string  false  "Lote"
// @Param        limit         query  int     false  "Límite (default 20)"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/balances [get]
func (h *InventoryHandler) ListBalances(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	actor := GetActor(c)
	filter := repository.RecordFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		BatchNumber: optionalQuery(c, "batch"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	list, err := h.svc.Queries.ListBalances(c.UserContext(), filter, actor)
	if err != nil {
		return writeError(c, err)
	}
	total, err := h.svc.Queries.CountBalances(c.UserContext(), filter, actor)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.BalanceResponse, 0, len(list))
	for _, rec := range list {
		items = append(items, dto.NewBalanceResponse(rec))
	}
	return c.JSON(fiber.Map{
		"total": total,
		"items": items,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// GetBalance godoc
// @Summary      Saldo de un producto en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "Producto"
// @Param        warehouse_id  path   string  true   "Bodega"
// @Param        batch         query  string  false  "Lote"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{product_id}/{warehouse_id} [get]
func (h *InventoryHandler) GetBalance(c *fiber.Ctx) error {
	rec, err := h.svc.Queries.GetBalance(c.UserContext(), keyFromPath(c), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBalanceResponse(rec))
}

// SetReorderPoint godoc
// @Summary      Configurar punto de reorden
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        product_id    path   string                   true   "Producto"
// @Param        warehouse_id  path   string                   true   "Bodega"
// @Param        batch         query  string                   false  "Lote"
// @Param        body          body   dto.ReorderPointRequest  true   "reorder_point >= 0"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{product_id}/{warehouse_id}/reorder-point [put]
func (h *InventoryHandler) SetReorderPoint(c *fiber.Ctx) error {
	var req dto.ReorderPointRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := h.commandContext(c)
	defer cancel()
	rec, err := h.svc.Engine.SetReorderPoint(ctx, keyFromPath(c), req.ReorderPoint, GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBalanceResponse(rec))
}

// VerifyReplay godoc
// @Summary      Verificar saldo contra el libro
// @Description  Reproduce los movimientos aplicados desde cero y compara con el saldo almacenado.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "Producto"
// @Param        warehouse_id  path   string  true   "Bodega"
// @Param        batch         query  string  false  "Lote"
// @Success      200  {object}  dto.ReplayResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{product_id}/{warehouse_id}/replay [get]
func (h *InventoryHandler) VerifyReplay(c *fiber.Ctx) error {
	res, err := h.svc.Queries.VerifyReplay(c.UserContext(), keyFromPath(c), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewReplayResponse(res))
}

// ListAlerts godoc
// @Summary      Alertas de stock bajo y agotado
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        level         query  string  false  "LOW_STOCK | OUT_OF_STOCK"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/alerts [get]
func (h *InventoryHandler) ListAlerts(c *fiber.Ctx) error {
	level := entity.AlertLevel(c.Query("level"))
	if level != "" && level != entity.AlertLowStock && level != entity.AlertOutOfStock {
		return writeError(c, domain.NewValidationError("level", "debe ser LOW_STOCK u OUT_OF_STOCK"))
	}
	list, err := h.svc.Alerts.ListAlerts(c.UserContext(), inventory.AlertFilter{
		CompanyID:   GetActor(c).CompanyID,
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Level:       level,
	})
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.AlertResponse, 0, len(list))
	for _, a := range list {
		items = append(items, dto.NewAlertResponse(a))
	}
	return c.JSON(fiber.Map{
		"total":  len(items),
		"alerts": items,
	})
}

// Reserve godoc
// @Summary      Reservar stock para un pedido
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, warehouse_id, quantity"
// @Success      200   {object}  dto.BalanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	var req dto.ReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := h.commandContext(c)
	defer cancel()
	rec, err := h.svc.Reservations.Reserve(ctx, reservationInput(req, GetActor(c)))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBalanceResponse(rec))
}

// Release godoc
// @Summary      Liberar reserva
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, warehouse_id, quantity"
// @Success      200   {object}  dto.BalanceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	var req dto.ReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := h.commandContext(c)
	defer cancel()
	rec, err := h.svc.Reservations.Release(ctx, reservationInput(req, GetActor(c)))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBalanceResponse(rec))
}

// Fulfil godoc
// @Summary      Despachar reserva
// @Description  Consume la reserva y registra una salida SALE aplicada.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, warehouse_id, quantity, reference"
// @Success      201   {object}  dto.MovementResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/fulfil [post]
func (h *InventoryHandler) Fulfil(c *fiber.Ctx) error {
	var req dto.ReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := h.commandContext(c)
	defer cancel()
	res, err := h.svc.Reservations.Fulfil(ctx, inventory.FulfilInput{
		ReservationInput: reservationInput(req, GetActor(c)),
		Reference:        req.Reference,
		Notes:            req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMovementResultResponse(res.Movement, res.Record))
}

func reservationInput(req dto.ReservationRequest, actor entity.Actor) inventory.ReservationInput {
	return inventory.ReservationInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		BatchNumber: req.BatchNumber,
		Quantity:    req.Quantity,
		Actor:       actor,
	}
}

func keyFromPath(c *fiber.Ctx) entity.StockKey {
	return entity.StockKey{
		ProductID:   c.Params("product_id"),
		WarehouseID: c.Params("warehouse_id"),
		BatchNumber: c.Query("batch"),
	}
}

// optionalQuery distingue "?batch=" (stock sin lote) de la ausencia del parámetro.
func optionalQuery(c *fiber.Ctx, name string) *string {
	if !c.Context().QueryArgs().Has(name) {
		return nil
	}
	v := c.Query(name)
	return &v
}

func pageFromQuery(c *fiber.Ctx) (dto.PageRequest, error) {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return page, domain.NewValidationError("page", "limit/offset inválidos")
	}
	page.DefaultPage()
	if page.Limit > 100 {
		page.Limit = 100
	}
	return page, nil
}

func parseOptionalDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, domain.NewValidationError(field, "formato esperado YYYY-MM-DD")
	}
	return &t, nil
}

// parseOptionalTime acepta RFC3339 o fecha simple; con endOfDay la fecha simple cubre el día completo.
func parseOptionalTime(field, v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := parseOptionalDate(field, v)
	if err != nil || !endOfDay {
		return t, err
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end, nil
}
