package carrier_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/carrier"
)

func bookingReq(ref string) entity.CarrierBookingRequest {
	return entity.CarrierBookingRequest{
		ReferenceID: ref,
		BrandID:     "b1",
		Destination: entity.Address{Pincode: "110001"},
		Weight:      decimal.NewFromInt(2),
		NumBoxes:    1,
		Priority:    entity.PriorityStandard,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// HTTPGateway
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTPGateway_ReservaExitosa(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shipments", r.URL.Path)
		assert.Equal(t, "ref-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-1", body["reference_id"])
		assert.Equal(t, "2", body["weight_kg"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true, "awb_number": "AWB123", "tracking_url": "https://t/AWB123", "cost_estimate": "98.50",
		})
	}))
	defer srv.Close()

	g := carrier.NewHTTPGateway(srv.URL+"/", "secret", time.Second)
	res, err := g.BookShipment(context.Background(), bookingReq("ref-1"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "AWB123", res.AWBNumber)
	require.NotNil(t, res.CostEstimate)
	assert.Equal(t, "98.5", res.CostEstimate.String())
}

func TestHTTPGateway_ClasificaErrores(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		transient bool
	}{
		{"servidor caído", http.StatusBadGateway, true},
		{"rate limit", http.StatusTooManyRequests, true},
		{"petición inválida", http.StatusUnprocessableEntity, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"code":"E1","message":"fallo"}}`))
			}))
			defer srv.Close()

			_, err := carrier.NewHTTPGateway(srv.URL, "", time.Second).BookShipment(context.Background(), bookingReq("r"))
			require.Error(t, err)
			assert.Equal(t, tc.transient, errors.Is(err, domain.ErrCarrierTransient))
			assert.Equal(t, !tc.transient, errors.Is(err, domain.ErrCarrierPermanent))

			var cerr *domain.CarrierError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, "E1", cerr.Code)
		})
	}
}

func TestHTTPGateway_TimeoutEsTransitorio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := carrier.NewHTTPGateway(srv.URL, "", time.Second).BookShipment(ctx, bookingReq("r"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCarrierTransient)
}

func TestHTTPGateway_RechazoDeNegocio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"PIN","message":"no servido"}}`))
	}))
	defer srv.Close()

	res, err := carrier.NewHTTPGateway(srv.URL, "", time.Second).BookShipment(context.Background(), bookingReq("r"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "PIN: no servido", res.Error)
}

// ──────────────────────────────────────────────────────────────────────────────
// SimulatedGateway
// ──────────────────────────────────────────────────────────────────────────────

func TestSimulatedGateway_GuiaDeterministaPorReferencia(t *testing.T) {
	g := carrier.NewSimulatedGateway(carrier.SimulatedConfig{})
	a, err := g.BookShipment(context.Background(), bookingReq("ref-1"))
	require.NoError(t, err)
	b, err := g.BookShipment(context.Background(), bookingReq("ref-1"))
	require.NoError(t, err)
	c, err := g.BookShipment(context.Background(), bookingReq("ref-2"))
	require.NoError(t, err)

	assert.True(t, a.Success)
	assert.Equal(t, a.AWBNumber, b.AWBNumber)
	assert.NotEqual(t, a.AWBNumber, c.AWBNumber)
	assert.Contains(t, a.TrackingURL, a.AWBNumber)
}

func TestSimulatedGateway_RechazaPrefijosYRespetaTimeout(t *testing.T) {
	g := carrier.NewSimulatedGateway(carrier.SimulatedConfig{RejectPincodePrefixes: []string{"11"}})
	res, err := g.BookShipment(context.Background(), bookingReq("r"))
	require.NoError(t, err)
	assert.False(t, res.Success)

	slow := carrier.NewSimulatedGateway(carrier.SimulatedConfig{Latency: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.BookShipment(ctx, bookingReq("r"))
	assert.ErrorIs(t, err, domain.ErrCarrierTransient)
}

// ──────────────────────────────────────────────────────────────────────────────
// BreakerGateway
// ──────────────────────────────────────────────────────────────────────────────

type countingGateway struct {
	calls atomic.Int32
	err   error
	res   entity.CarrierBookingResult
}

func (g *countingGateway) BookShipment(context.Context, entity.CarrierBookingRequest) (entity.CarrierBookingResult, error) {
	g.calls.Add(1)
	return g.res, g.err
}

func TestBreakerGateway_AbreTrasFallosTransitorios(t *testing.T) {
	inner := &countingGateway{err: domain.NewCarrierError("503", "caído", true, nil)}
	b := carrier.NewBreakerGateway(inner, carrier.BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.BookShipment(context.Background(), bookingReq("r"))
		assert.ErrorIs(t, err, domain.ErrCarrierTransient)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.BookShipment(context.Background(), bookingReq("r"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCarrierPermanent, "con el circuito abierto se falla de inmediato")
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestBreakerGateway_RechazosNoAbrenCircuito(t *testing.T) {
	inner := &countingGateway{res: entity.CarrierBookingResult{Success: false, Error: "no servido"}}
	b := carrier.NewBreakerGateway(inner, carrier.BreakerConfig{FailureThreshold: 1}, nil)

	for i := 0; i < 3; i++ {
		res, err := b.BookShipment(context.Background(), bookingReq("r"))
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())

	inner.err = domain.NewCarrierError("400", "inválido", false, nil)
	_, err := b.BookShipment(context.Background(), bookingReq("r"))
	assert.ErrorIs(t, err, domain.ErrCarrierPermanent)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
