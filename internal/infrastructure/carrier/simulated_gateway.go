package carrier

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

var _ fulfillment.CarrierGateway = (*SimulatedGateway)(nil)

// SimulatedConfig comportamiento del simulador (CARRIER_MODE=simulated).
type SimulatedConfig struct {
	Latency time.Duration
	// Destinos cuyo código postal empieza con alguno de estos prefijos se rechazan.
	RejectPincodePrefixes []string
	TrackingBaseURL       string
}

// SimulatedGateway transportador determinista: la misma referencia produce siempre la
// misma guía, igual que una API real con Idempotency-Key.
type SimulatedGateway struct {
	cfg SimulatedConfig
}

// NewSimulatedGateway construye el simulador.
func NewSimulatedGateway(cfg SimulatedConfig) *SimulatedGateway {
	if cfg.TrackingBaseURL == "" {
		cfg.TrackingBaseURL = "https://tracking.local/awb/"
	}
	return &SimulatedGateway{cfg: cfg}
}

// BookShipment implementa fulfillment.CarrierGateway.
func (g *SimulatedGateway) BookShipment(ctx context.Context, req entity.CarrierBookingRequest) (entity.CarrierBookingResult, error) {
	if g.cfg.Latency > 0 {
		t := time.NewTimer(g.cfg.Latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return entity.CarrierBookingResult{}, domain.NewCarrierError("TIMEOUT", "timeout del simulador", true, ctx.Err())
		case <-t.C:
		}
	}
	for _, p := range g.cfg.RejectPincodePrefixes {
		if p != "" && strings.HasPrefix(req.Destination.Pincode, p) {
			return entity.CarrierBookingResult{Success: false, Error: "destino no servido: " + req.Destination.Pincode}, nil
		}
	}
	sum := sha1.Sum([]byte(req.ReferenceID))
	awb := "SIM" + strings.ToUpper(hex.EncodeToString(sum[:])[:12])
	return entity.CarrierBookingResult{
		Success:     true,
		AWBNumber:   awb,
		TrackingURL: g.cfg.TrackingBaseURL + awb,
	}, nil
}
