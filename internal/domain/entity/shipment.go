package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una solicitud de envío dentro del orquestador.
const (
	StatePriced      = "PRICED"
	StateAdmitted    = "ADMITTED"
	StateBooked      = "BOOKED"
	StateSettled     = "SETTLED"
	StateRejected    = "REJECTED"
	StateCompensated = "COMPENSATED"
	StateFailed      = "FAILED"
	StateAborted     = "ABORTED"
)

// ShipmentParams entrada del PricingResolver.
type ShipmentParams struct {
	BrandID            string
	Weight             decimal.Decimal // kg
	NumBoxes           int
	Priority           string
	DestinationPincode string
	DeclaredValue      decimal.Decimal
}

// ShipmentCostEstimate desglose de costo (no persistido). FinalTotal es la suma de los
// componentes y es lo único que se debita.
type ShipmentCostEstimate struct {
	BaseRate            decimal.Decimal `json:"base_rate"`
	WeightCharges       decimal.Decimal `json:"weight_charges"`
	ServiceCharges      decimal.Decimal `json:"service_charges"`
	RemoteAreaSurcharge decimal.Decimal `json:"remote_area_surcharge"`
	PlatformMarkup      decimal.Decimal `json:"platform_markup"`
	FinalTotal          decimal.Decimal `json:"final_total"`
}

// Address dirección mínima que se entrega al transportador.
type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// ShipmentRequest solicitud de envío de un ítem del lote.
type ShipmentRequest struct {
	RequestID     string
	ReferenceID   string // clave de idempotencia; se reutiliza en reintentos
	Requester     Requester
	Weight        decimal.Decimal
	NumBoxes      int
	Priority      string
	Pickup        Address
	Destination   Address
	DeclaredValue decimal.Decimal
	CreatedBy     string
}

// Params convierte la solicitud en parámetros de tarifa para la marca pagadora.
func (r ShipmentRequest) Params() ShipmentParams {
	return ShipmentParams{
		BrandID:            ChargeableBrand(r.Requester),
		Weight:             r.Weight,
		NumBoxes:           r.NumBoxes,
		Priority:           r.Priority,
		DestinationPincode: r.Destination.Pincode,
		DeclaredValue:      r.DeclaredValue,
	}
}

// FulfillmentOutcome resultado por ítem. Exactamente uno de AWBNumber o Error está presente.
type FulfillmentOutcome struct {
	RequestID           string                `json:"request_id"`
	ReferenceID         string                `json:"reference_id"`
	BrandID             string                `json:"brand_id"`
	State               string                `json:"state"`
	Success             bool                  `json:"success"`
	AWBNumber           string                `json:"awb_number,omitempty"`
	TrackingURL         string                `json:"tracking_url,omitempty"`
	CostEstimate        *ShipmentCostEstimate `json:"cost_estimate,omitempty"`
	WalletDeducted      bool                  `json:"wallet_deducted"`
	Error               string                `json:"error,omitempty"`
	InsufficientBalance bool                  `json:"insufficient_balance,omitempty"`
	Shortfall           *decimal.Decimal      `json:"shortfall,omitempty"`
	Duplicate           bool                  `json:"duplicate,omitempty"`
}

// ShipmentRecord resultado persistido por referencia (paso "registrar resultado").
type ShipmentRecord struct {
	ReferenceID string
	RequestID   string
	BrandID     string
	State       string
	AWBNumber   string
	TrackingURL string
	Amount      decimal.Decimal
	Error       string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outcome reconstruye el resultado a partir del registro persistido.
func (s ShipmentRecord) Outcome() FulfillmentOutcome {
	out := FulfillmentOutcome{
		RequestID:      s.RequestID,
		ReferenceID:    s.ReferenceID,
		BrandID:        s.BrandID,
		State:          s.State,
		Success:        s.State == StateSettled,
		AWBNumber:      s.AWBNumber,
		TrackingURL:    s.TrackingURL,
		WalletDeducted: s.State == StateSettled,
		Error:          s.Error,
	}
	if !out.Success && out.Error == "" {
		out.Error = "solicitud previa terminó en estado " + s.State
	}
	return out
}

// CarrierBookingRequest petición opaca al transportador.
type CarrierBookingRequest struct {
	ReferenceID   string
	BrandID       string
	Pickup        Address
	Destination   Address
	Weight        decimal.Decimal
	NumBoxes      int
	Priority      string
	DeclaredValue decimal.Decimal
}

// CarrierBookingResult respuesta del transportador.
type CarrierBookingResult struct {
	Success      bool
	AWBNumber    string
	TrackingURL  string
	CostEstimate *decimal.Decimal
	Error        string
}
