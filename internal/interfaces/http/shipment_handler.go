package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-ledger/internal/application/dto"
	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// ShipmentHandler creación de envíos individuales y por lote (protegido).
type ShipmentHandler struct {
	orchestrator *fulfillment.Orchestrator
	batch        *fulfillment.BatchCoordinator
}

// NewShipmentHandler construye el handler.
func NewShipmentHandler(o *fulfillment.Orchestrator, b *fulfillment.BatchCoordinator) *ShipmentHandler {
	return &ShipmentHandler{orchestrator: o, batch: b}
}

// Create godoc
// @Summary      Crear un envío
// @Description  Cotiza, debita la billetera de la marca y reserva con el transportador.
// @Description  Si el transportador falla, el débito se compensa. Reintentar con el mismo
// @Description  reference_id nunca debita dos veces.
// @Tags         shipments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ShipmentRequestDTO  true  "reference_id, weight, num_boxes, priority, pickup, destination"
// @Success      201  {object}  entity.FulfillmentOutcome
// @Success      200  {object}  entity.FulfillmentOutcome  "duplicado ya liquidado"
// @Failure      402  {object}  entity.FulfillmentOutcome
// @Failure      502  {object}  entity.FulfillmentOutcome
// @Router       /api/shipments [post]
func (h *ShipmentHandler) Create(c *fiber.Ctx) error {
	var in dto.ShipmentRequestDTO
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	req, err := h.toRequest(c, in)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.orchestrator.Fulfill(c.Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(outcomeStatus(out)).JSON(out)
}

// CreateBatch godoc
// @Summary      Crear envíos por lote (máximo 50)
// @Description  Cada ítem se procesa de forma independiente; la respuesta trae un resultado
// @Description  por ítem en el mismo orden y un resumen del lote. Un ítem con brand_id fuera
// @Description  del alcance del token queda FAILED sin afectar a los demás.
// @Tags         shipments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchShipmentRequest  true  "requests"
// @Success      200  {object}  fulfillment.BatchResult
// @Failure      413  {object}  dto.ErrorResponse
// @Router       /api/shipments/batch [post]
func (h *ShipmentHandler) CreateBatch(c *fiber.Ctx) error {
	var in dto.BatchShipmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if limit := h.batch.MaxSize(); len(in.Requests) > limit {
		return writeError(c, &domain.BatchTooLargeError{Size: len(in.Requests), Max: limit})
	}
	reqs := make([]entity.ShipmentRequest, 0, len(in.Requests))
	rejected := make(map[int]entity.FulfillmentOutcome)
	for i, item := range in.Requests {
		req, err := h.toRequest(c, item)
		if err != nil {
			// un ítem fuera de alcance falla solo, sin rechazar el lote
			rejected[i] = rejectedOutcome(item, err)
			continue
		}
		reqs = append(reqs, req)
	}
	res, err := h.batch.ProcessBatch(c.Context(), reqs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res.WithRejected(rejected))
}

func rejectedOutcome(in dto.ShipmentRequestDTO, err error) entity.FulfillmentOutcome {
	id := in.RequestID
	if id == "" {
		id = in.ReferenceID
	}
	return entity.FulfillmentOutcome{
		RequestID:   id,
		ReferenceID: in.ReferenceID,
		BrandID:     in.BrandID,
		State:       entity.StateFailed,
		Error:       err.Error(),
	}
}

func (h *ShipmentHandler) toRequest(c *fiber.Ctx, in dto.ShipmentRequestDTO) (entity.ShipmentRequest, error) {
	brandID, err := scopedBrand(c, in.BrandID)
	if err != nil {
		return entity.ShipmentRequest{}, err
	}
	return in.ToEntity(requesterFor(c, brandID), GetUserID(c)), nil
}

// outcomeStatus código HTTP de un resultado individual.
func outcomeStatus(out entity.FulfillmentOutcome) int {
	switch {
	case out.Success && out.Duplicate:
		return fiber.StatusOK
	case out.Success:
		return fiber.StatusCreated
	case out.InsufficientBalance:
		return fiber.StatusPaymentRequired
	case out.State == entity.StateCompensated:
		return fiber.StatusBadGateway
	case out.Duplicate:
		return fiber.StatusConflict
	}
	return fiber.StatusUnprocessableEntity
}
