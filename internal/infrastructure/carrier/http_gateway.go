// Package carrier adaptadores del transportador: cliente HTTP JSON, simulador para
// desarrollo y un circuit breaker que envuelve a cualquiera de los dos.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// Verificar en tiempo de compilación que HTTPGateway implementa CarrierGateway.
var _ fulfillment.CarrierGateway = (*HTTPGateway)(nil)

// HTTPGateway reserva envíos contra la API REST del transportador.
// La referencia viaja como Idempotency-Key para que los reintentos no dupliquen la guía.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPGateway construye el adaptador. El orquestador impone además un timeout por intento.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ── Estructuras del protocolo ─────────────────────────────────────────────────

type bookingPayload struct {
	ReferenceID   string         `json:"reference_id"`
	BrandID       string         `json:"brand_id"`
	Pickup        entity.Address `json:"pickup"`
	Destination   entity.Address `json:"destination"`
	WeightKg      string         `json:"weight_kg"`
	NumBoxes      int            `json:"num_boxes"`
	Priority      string         `json:"priority"`
	DeclaredValue string         `json:"declared_value"`
}

type bookingResponse struct {
	Success      bool   `json:"success"`
	AWBNumber    string `json:"awb_number"`
	TrackingURL  string `json:"tracking_url"`
	CostEstimate string `json:"cost_estimate"`
	Error        *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// BookShipment envía la reserva. Errores de red, 408, 429 y 5xx son transitorios;
// el resto de 4xx y las respuestas success=false son permanentes.
func (g *HTTPGateway) BookShipment(ctx context.Context, req entity.CarrierBookingRequest) (entity.CarrierBookingResult, error) {
	if g.baseURL == "" {
		return entity.CarrierBookingResult{}, domain.NewCarrierError("CONFIG", "CARRIER_BASE_URL no configurado", false, nil)
	}

	body, err := json.Marshal(bookingPayload{
		ReferenceID:   req.ReferenceID,
		BrandID:       req.BrandID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		WeightKg:      req.Weight.String(),
		NumBoxes:      req.NumBoxes,
		Priority:      req.Priority,
		DeclaredValue: req.DeclaredValue.String(),
	})
	if err != nil {
		return entity.CarrierBookingResult{}, domain.NewCarrierError("ENCODE", "serializar reserva", false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/shipments", bytes.NewReader(body))
	if err != nil {
		return entity.CarrierBookingResult{}, domain.NewCarrierError("REQUEST", "crear HTTP request", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ReferenceID)
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return entity.CarrierBookingResult{}, domain.NewCarrierError("TIMEOUT", "timeout o cancelación", true, ctx.Err())
		}
		return entity.CarrierBookingResult{}, domain.NewCarrierError("NETWORK", "llamada HTTP fallida", true, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return entity.CarrierBookingResult{}, domain.NewCarrierError("READ", "leer respuesta", true, err)
	}

	var parsed bookingResponse
	jsonErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, msg := strconv.Itoa(resp.StatusCode), strings.TrimSpace(string(raw))
		if jsonErr == nil && parsed.Error != nil {
			code, msg = parsed.Error.Code, parsed.Error.Message
		}
		return entity.CarrierBookingResult{}, domain.NewCarrierError(code, msg, transientStatus(resp.StatusCode), nil)
	}
	if jsonErr != nil {
		return entity.CarrierBookingResult{}, domain.NewCarrierError("DECODE", "deserializar respuesta", false, jsonErr)
	}

	out := entity.CarrierBookingResult{
		Success:     parsed.Success,
		AWBNumber:   parsed.AWBNumber,
		TrackingURL: parsed.TrackingURL,
	}
	if parsed.Error != nil {
		out.Error = fmt.Sprintf("%s: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.CostEstimate != "" {
		if v, err := decimal.NewFromString(parsed.CostEstimate); err == nil {
			out.CostEstimate = &v
		}
	}
	return out, nil
}

func transientStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

// isTransient utilidad para el breaker: timeouts y CarrierError transitorios.
func isTransient(err error) bool {
	return errors.Is(err, domain.ErrCarrierTransient) || errors.Is(err, context.DeadlineExceeded)
}
