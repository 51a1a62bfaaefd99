package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-ledger/internal/application/dto"
	"github.com/jhoicas/fulfillment-ledger/internal/application/inventory"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
)

// InventoryHandler ajustes, traslados y consultas del libro de inventario (protegido).
type InventoryHandler struct {
	svc *inventory.Service
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(svc *inventory.Service) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Adjust godoc
// @Summary      Ajustar existencias (ADD / REMOVE / SET)
// @Description  REMOVE mayor que lo existente se recorta a cero y responde clamped=true.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustInventoryRequest  true  "part_id, type, quantity >= 0, reason"
// @Success      201  {object}  dto.AdjustInventoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	brandID, err := scopedBrand(c, in.BrandID)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.Adjust(c.Context(), inventory.AdjustInput{
		BrandID:  brandID,
		PartID:   in.PartID,
		Type:     in.Type,
		Quantity: in.Quantity,
		Reason:   in.Reason,
		ActorID:  GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AdjustInventoryResponse{
		Record:       dto.NewInventoryRecordDTO(res.Record),
		Entry:        dto.NewInventoryLedgerEntryDTO(res.Entry),
		Requested:    res.Requested,
		AppliedDelta: res.AppliedDelta,
		Clamped:      res.Clamped,
	})
}

// Transfer godoc
// @Summary      Trasladar unidades entre buckets
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferInventoryRequest  true  "part_id, from, to, quantity > 0"
// @Success      201  {object}  dto.TransferInventoryResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	brandID, err := scopedBrand(c, in.BrandID)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.Transfer(c.Context(), inventory.TransferInput{
		BrandID:  brandID,
		PartID:   in.PartID,
		From:     in.From,
		To:       in.To,
		Quantity: in.Quantity,
		Reason:   in.Reason,
		ActorID:  GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferInventoryResponse{
		Record: dto.NewInventoryRecordDTO(res.Record),
		Entry:  dto.NewInventoryLedgerEntryDTO(res.Entry),
	})
}

// GetRecord godoc
// @Summary      Cantidades por bucket de un repuesto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        partID  path  string  true  "ID del repuesto"
// @Success      200  {object}  dto.InventoryRecordDTO
// @Router       /api/inventory/parts/{partID} [get]
func (h *InventoryHandler) GetRecord(c *fiber.Ctx) error {
	brandID, partID, err := h.partScope(c)
	if err != nil {
		return writeError(c, err)
	}
	rec, err := h.svc.Get(c.Context(), brandID, partID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewInventoryRecordDTO(rec))
}

// ListLedger godoc
// @Summary      Libro de movimientos de un repuesto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        partID  path  string  true  "ID del repuesto"
// @Success      200  {object}  dto.ListResponse[dto.InventoryLedgerEntryDTO]
// @Router       /api/inventory/parts/{partID}/ledger [get]
func (h *InventoryHandler) ListLedger(c *fiber.Ctx) error {
	brandID, partID, err := h.partScope(c)
	if err != nil {
		return writeError(c, err)
	}
	entries, err := h.svc.ListLedger(c.Context(), brandID, partID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.InventoryLedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.NewInventoryLedgerEntryDTO(e))
	}
	return c.JSON(dto.NewListResponse(out))
}

// Reconcile godoc
// @Summary      Conciliar registro contra replay del libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        partID  path  string  true  "ID del repuesto"
// @Success      200  {object}  dto.InventoryReconciliationResponse
// @Router       /api/inventory/parts/{partID}/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	brandID, partID, err := h.partScope(c)
	if err != nil {
		return writeError(c, err)
	}
	rec, err := h.svc.Reconcile(c.Context(), brandID, partID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.InventoryReconciliationResponse{
		Snapshot:   dto.NewInventoryRecordDTO(rec.Snapshot),
		Replayed:   dto.NewInventoryRecordDTO(rec.Replayed),
		Entries:    rec.EntriesLen,
		Consistent: rec.Consistent,
		Detail:     rec.Detail,
	})
}

func (h *InventoryHandler) partScope(c *fiber.Ctx) (string, string, error) {
	brandID, err := scopedBrand(c, c.Query("brand_id"))
	if err != nil {
		return "", "", err
	}
	partID := c.Params("partID")
	if partID == "" {
		return "", "", domain.ErrInvalidInput
	}
	return brandID, partID, nil
}
