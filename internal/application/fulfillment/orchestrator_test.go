package fulfillment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-ledger/internal/application/pricing"
	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	pricingdomain "github.com/jhoicas/fulfillment-ledger/internal/domain/pricing"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testBrand = "brand-acme"

// Comportamientos del transportador de prueba por referencia.
const (
	behaviorTimeout       = "timeout"
	behaviorReject        = "reject"
	behaviorTransientOnce = "transient-once"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// scriptedCarrier responde según el comportamiento asignado a cada referencia.
type scriptedCarrier struct {
	mu        sync.Mutex
	behaviors map[string]string
	calls     map[string]int
}

func newScriptedCarrier() *scriptedCarrier {
	return &scriptedCarrier{behaviors: map[string]string{}, calls: map[string]int{}}
}

func (c *scriptedCarrier) set(ref, behavior string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.behaviors[ref] = behavior
}

func (c *scriptedCarrier) callsFor(ref string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[ref]
}

func (c *scriptedCarrier) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *scriptedCarrier) BookShipment(ctx context.Context, req entity.CarrierBookingRequest) (entity.CarrierBookingResult, error) {
	c.mu.Lock()
	c.calls[req.ReferenceID]++
	n := c.calls[req.ReferenceID]
	behavior := c.behaviors[req.ReferenceID]
	c.mu.Unlock()

	switch behavior {
	case behaviorTimeout:
		<-ctx.Done()
		return entity.CarrierBookingResult{}, ctx.Err()
	case behaviorReject:
		return entity.CarrierBookingResult{Success: false, Error: "pincode no servido"}, nil
	case behaviorTransientOnce:
		if n == 1 {
			return entity.CarrierBookingResult{}, domain.NewCarrierError("503", "servicio no disponible", true, nil)
		}
	}
	return entity.CarrierBookingResult{
		Success:     true,
		AWBNumber:   "AWB-" + req.ReferenceID,
		TrackingURL: "https://track.example/AWB-" + req.ReferenceID,
	}, nil
}

type fixture struct {
	wallet    *wallet.Service
	carrier   *scriptedCarrier
	shipments *memory.ShipmentRepository
	orch      *fulfillment.Orchestrator
}

// newFixture cada envío de 1 kg / 1 caja STANDARD cuesta exactamente 150.
func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()
	rate := d("150")
	rates := pricingdomain.Config{
		DefaultBaseRate: &rate,
		FreeWeightKg:    d("5"),
		PerKgRate:       d("10"),
		MarkupPct:       decimal.Zero,
	}
	dir := memory.NewBrandDirectory(entity.Brand{ID: testBrand, Name: "Acme"})
	resolver := pricing.NewResolver(dir, nil, pricing.Config{Rates: rates}, nil)

	w := wallet.NewService(memory.NewWalletStore(), nil)
	if balance != "" {
		_, err := w.Credit(context.Background(), wallet.CreditInput{BrandID: testBrand, Amount: d(balance), Reason: "recarga"})
		require.NoError(t, err)
	}
	carrier := newScriptedCarrier()
	shipments := memory.NewShipmentRepository()
	orch := fulfillment.NewOrchestrator(resolver, w, carrier, shipments, nil, fulfillment.Config{
		CarrierTimeout:    20 * time.Millisecond,
		MaxCarrierRetries: 1,
	}, nil)
	return &fixture{wallet: w, carrier: carrier, shipments: shipments, orch: orch}
}

func shipment(ref string) entity.ShipmentRequest {
	return entity.ShipmentRequest{
		RequestID:   "req-" + ref,
		ReferenceID: ref,
		Requester:   entity.BrandRequester{BrandID: testBrand},
		Weight:      d("1"),
		NumBoxes:    1,
		Priority:    entity.PriorityStandard,
		Destination: entity.Address{Pincode: "110001"},
	}
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	bal, err := f.wallet.GetBalance(context.Background(), testBrand)
	require.NoError(t, err)
	return bal
}

// ──────────────────────────────────────────────────────────────────────────────
// Orquestador
// ──────────────────────────────────────────────────────────────────────────────

func TestFulfill_FlujoFelizLiquida(t *testing.T) {
	f := newFixture(t, "500")

	out, err := f.orch.Fulfill(context.Background(), shipment("s1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StateSettled, out.State)
	assert.True(t, out.Success)
	assert.True(t, out.WalletDeducted)
	assert.Equal(t, "AWB-s1", out.AWBNumber)
	assert.Empty(t, out.Error)
	require.NotNil(t, out.CostEstimate)
	assert.Equal(t, "150.00", out.CostEstimate.FinalTotal.StringFixed(2))
	assert.True(t, d("350").Equal(f.balance(t)))

	rec, err := f.shipments.GetByReference(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entity.StateSettled, rec.State)
}

func TestFulfill_SaldoInsuficienteRechazaSinLlamarTransportador(t *testing.T) {
	f := newFixture(t, "100")

	out, err := f.orch.Fulfill(context.Background(), shipment("s1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StateRejected, out.State)
	assert.False(t, out.Success)
	assert.True(t, out.InsufficientBalance)
	require.NotNil(t, out.Shortfall)
	assert.True(t, d("50").Equal(*out.Shortfall))
	assert.Equal(t, 0, f.carrier.totalCalls())
	assert.True(t, d("100").Equal(f.balance(t)))
}

func TestFulfill_TimeoutReintentaYCompensa(t *testing.T) {
	f := newFixture(t, "500")
	f.carrier.set("s1", behaviorTimeout)

	out, err := f.orch.Fulfill(context.Background(), shipment("s1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompensated, out.State)
	assert.False(t, out.Success)
	assert.False(t, out.WalletDeducted)
	assert.NotEmpty(t, out.Error)
	assert.Empty(t, out.AWBNumber)
	assert.Equal(t, 2, f.carrier.callsFor("s1"), "un intento más un reintento con la misma referencia")
	assert.True(t, d("500").Equal(f.balance(t)))

	txs, err := f.wallet.ListTransactions(context.Background(), testBrand)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, entity.WalletTxDebit, txs[1].Type)
	assert.True(t, txs[2].IsCompensation())
	assert.Equal(t, "s1", txs[2].ReferenceID)
	assert.True(t, d("150").Equal(txs[2].Amount))
}

func TestFulfill_RechazoPermanenteNoReintenta(t *testing.T) {
	f := newFixture(t, "500")
	f.carrier.set("s1", behaviorReject)

	out, err := f.orch.Fulfill(context.Background(), shipment("s1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompensated, out.State)
	assert.Contains(t, out.Error, "pincode no servido")
	assert.Equal(t, 1, f.carrier.callsFor("s1"))
	assert.True(t, d("500").Equal(f.balance(t)))
}

func TestFulfill_ErrorTransitorioSeReintentaYLiquida(t *testing.T) {
	f := newFixture(t, "500")
	f.carrier.set("s1", behaviorTransientOnce)

	out, err := f.orch.Fulfill(context.Background(), shipment("s1"))
	require.NoError(t, err)
	assert.Equal(t, entity.StateSettled, out.State)
	assert.Equal(t, 2, f.carrier.callsFor("s1"))
	assert.True(t, d("350").Equal(f.balance(t)))
}

func TestFulfill_ReferenciaRepetidaNoDebitaDosVeces(t *testing.T) {
	f := newFixture(t, "500")
	ctx := context.Background()

	first, err := f.orch.Fulfill(ctx, shipment("s1"))
	require.NoError(t, err)
	second, err := f.orch.Fulfill(ctx, shipment("s1"))
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, entity.StateSettled, second.State)
	assert.Equal(t, first.AWBNumber, second.AWBNumber)
	assert.Equal(t, 1, f.carrier.callsFor("s1"))
	assert.True(t, d("350").Equal(f.balance(t)))
}

func TestFulfill_ReferenciaRepetidaConcurrente(t *testing.T) {
	f := newFixture(t, "1000")

	var wg sync.WaitGroup
	outs := make([]entity.FulfillmentOutcome, 5)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], _ = f.orch.Fulfill(context.Background(), shipment("s1"))
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, o := range outs {
		if !o.Duplicate {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, f.carrier.callsFor("s1"))
	assert.True(t, d("850").Equal(f.balance(t)))
}

func TestFulfill_CompensadoNoSeReprocesa(t *testing.T) {
	f := newFixture(t, "500")
	f.carrier.set("s1", behaviorReject)
	ctx := context.Background()

	_, err := f.orch.Fulfill(ctx, shipment("s1"))
	require.NoError(t, err)
	again, err := f.orch.Fulfill(ctx, shipment("s1"))
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, entity.StateCompensated, again.State)
	assert.Equal(t, 1, f.carrier.callsFor("s1"))
	assert.True(t, d("500").Equal(f.balance(t)))
}

func TestFulfill_MarcaSinRegistroCotizaConTarifaPorDefecto(t *testing.T) {
	f := newFixture(t, "500")
	req := shipment("s1")
	req.Requester = entity.BrandRequester{BrandID: "otra"}

	out, err := f.orch.Fulfill(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, entity.StateRejected, out.State)
	assert.True(t, out.InsufficientBalance)
	require.NotNil(t, out.CostEstimate)
	require.NotNil(t, out.Shortfall)
	assert.True(t, out.CostEstimate.FinalTotal.Equal(*out.Shortfall))
	assert.Equal(t, 0, f.carrier.totalCalls())
	assert.True(t, d("500").Equal(f.balance(t)))
}

func TestFulfill_ParametrosInvalidosFallaSinTocarBilletera(t *testing.T) {
	f := newFixture(t, "500")
	req := shipment("s1")
	req.NumBoxes = 0

	out, err := f.orch.Fulfill(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, entity.StateFailed, out.State)
	assert.NotEmpty(t, out.Error)
	assert.Nil(t, out.CostEstimate)
	assert.Equal(t, 0, f.carrier.totalCalls())
	assert.True(t, d("500").Equal(f.balance(t)))
}

func TestFulfill_DistribuidorCobraALaMarca(t *testing.T) {
	f := newFixture(t, "500")
	req := shipment("s1")
	req.Requester = entity.DistributorRequester{DistributorID: "dist-9", BrandID: testBrand}

	out, err := f.orch.Fulfill(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, entity.StateSettled, out.State)
	assert.Equal(t, testBrand, out.BrandID)
	assert.True(t, d("350").Equal(f.balance(t)))
}

func TestFulfill_SinReferenciaGeneraUna(t *testing.T) {
	f := newFixture(t, "500")
	req := shipment("")
	req.RequestID = ""

	out, err := f.orch.Fulfill(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ReferenceID)
	assert.Equal(t, out.ReferenceID, out.RequestID)
	assert.Equal(t, entity.StateSettled, out.State)
}

func TestIsTransientCarrierError(t *testing.T) {
	assert.True(t, fulfillment.IsTransientCarrierError(domain.NewCarrierError("503", "x", true, nil)))
	assert.True(t, fulfillment.IsTransientCarrierError(context.DeadlineExceeded))
	assert.False(t, fulfillment.IsTransientCarrierError(domain.NewCarrierError("400", "x", false, nil)))
}
