package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-ledger/internal/application/dto"
	"github.com/jhoicas/fulfillment-ledger/internal/application/pricing"
)

// PricingHandler cotización de envíos sin débito (protegido).
type PricingHandler struct {
	resolver *pricing.Resolver
}

// NewPricingHandler construye el handler.
func NewPricingHandler(resolver *pricing.Resolver) *PricingHandler {
	return &PricingHandler{resolver: resolver}
}

// Estimate godoc
// @Summary      Cotizar un envío
// @Description  Desglose base / peso / servicio / zona remota / markup. No debita la billetera.
// @Tags         pricing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PriceEstimateRequest  true  "weight, num_boxes, priority, destination_pincode"
// @Success      200  {object}  entity.ShipmentCostEstimate
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/pricing/estimate [post]
func (h *PricingHandler) Estimate(c *fiber.Ctx) error {
	var in dto.PriceEstimateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	brandID, err := scopedBrand(c, in.BrandID)
	if err != nil {
		return writeError(c, err)
	}
	est, err := h.resolver.Resolve(c.Context(), in.ToParams(brandID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(est)
}
