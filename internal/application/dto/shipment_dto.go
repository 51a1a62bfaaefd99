package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// ShipmentRequestDTO solicitud de envío. reference_id es la clave de idempotencia: el
// cliente debe reutilizarla al reintentar. Si falta, se genera una.
type ShipmentRequestDTO struct {
	RequestID     string          `json:"request_id"`
	ReferenceID   string          `json:"reference_id"`
	BrandID       string          `json:"brand_id"`
	Weight        decimal.Decimal `json:"weight"`
	NumBoxes      int             `json:"num_boxes"`
	Priority      string          `json:"priority"`
	Pickup        entity.Address  `json:"pickup"`
	Destination   entity.Address  `json:"destination"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
}

// BatchShipmentRequest lote de hasta 50 solicitudes.
type BatchShipmentRequest struct {
	Requests []ShipmentRequestDTO `json:"requests"`
}

// PriceEstimateRequest cotización sin débito.
type PriceEstimateRequest struct {
	BrandID            string          `json:"brand_id"`
	Weight             decimal.Decimal `json:"weight"`
	NumBoxes           int             `json:"num_boxes"`
	Priority           string          `json:"priority"`
	DestinationPincode string          `json:"destination_pincode"`
	DeclaredValue      decimal.Decimal `json:"declared_value"`
}

// ToEntity construye la solicitud de dominio para el solicitante dado.
func (r ShipmentRequestDTO) ToEntity(requester entity.Requester, actorID string) entity.ShipmentRequest {
	priority := r.Priority
	if priority == "" {
		priority = entity.PriorityStandard
	}
	return entity.ShipmentRequest{
		RequestID:     r.RequestID,
		ReferenceID:   r.ReferenceID,
		Requester:     requester,
		Weight:        r.Weight,
		NumBoxes:      r.NumBoxes,
		Priority:      priority,
		Pickup:        r.Pickup,
		Destination:   r.Destination,
		DeclaredValue: r.DeclaredValue,
		CreatedBy:     actorID,
	}
}

// ToParams parámetros de tarifa para la marca indicada.
func (r PriceEstimateRequest) ToParams(brandID string) entity.ShipmentParams {
	priority := r.Priority
	if priority == "" {
		priority = entity.PriorityStandard
	}
	return entity.ShipmentParams{
		BrandID:            brandID,
		Weight:             r.Weight,
		NumBoxes:           r.NumBoxes,
		Priority:           priority,
		DestinationPincode: r.DestinationPincode,
		DeclaredValue:      r.DeclaredValue,
	}
}
