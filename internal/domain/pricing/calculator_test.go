package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/pricing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func baseConfig() pricing.Config {
	return pricing.Config{
		DefaultBaseRate: dp("100"),
		FreeWeightKg:    d("2"),
		PerKgRate:       d("20"),
		PriorityMultipliers: map[string]decimal.Decimal{
			entity.PriorityStandard: d("1"),
			entity.PriorityExpress:  d("1.5"),
		},
		RemoteSurcharge: d("50"),
		MarkupPct:       d("10"),
	}
}

func params(weight string, boxes int, priority string) entity.ShipmentParams {
	return entity.ShipmentParams{
		BrandID: "b1", Weight: d(weight), NumBoxes: boxes, Priority: priority,
		DestinationPincode: "110001", DeclaredValue: d("1000"),
	}
}

func assertEstimate(t *testing.T, est entity.ShipmentCostEstimate, base, weight, service, remote, markup, final string) {
	t.Helper()
	assert.Equal(t, d(base).StringFixed(2), est.BaseRate.StringFixed(2), "base")
	assert.Equal(t, d(weight).StringFixed(2), est.WeightCharges.StringFixed(2), "peso")
	assert.Equal(t, d(service).StringFixed(2), est.ServiceCharges.StringFixed(2), "servicio")
	assert.Equal(t, d(remote).StringFixed(2), est.RemoteAreaSurcharge.StringFixed(2), "remoto")
	assert.Equal(t, d(markup).StringFixed(2), est.PlatformMarkup.StringFixed(2), "markup")
	assert.Equal(t, d(final).StringFixed(2), est.FinalTotal.StringFixed(2), "total")
}

func TestCalculate_OrdenDePasos(t *testing.T) {
	est, err := pricing.Calculate(pricing.Input{Params: params("5", 1, entity.PriorityExpress)}, baseConfig())
	require.NoError(t, err)
	// 100 + (5-2)*20 = 160; ×1.5 → servicio 80; markup 10% de 240 = 24
	assertEstimate(t, est, "100", "60", "80", "0", "24", "264")
}

func TestCalculate_TotalEsSumaDeComponentes(t *testing.T) {
	cases := []struct {
		name   string
		in     pricing.Input
		remote bool
	}{
		{"standard liviano", pricing.Input{Params: params("1.2", 2, entity.PriorityStandard)}, false},
		{"express remoto", pricing.Input{Params: params("7.35", 3, entity.PriorityExpress), Remote: true}, true},
		{"prioridad desconocida", pricing.Input{Params: params("2.01", 1, "SAME_DAY")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			est, err := pricing.Calculate(tc.in, baseConfig())
			require.NoError(t, err)
			sum := est.BaseRate.Add(est.WeightCharges).Add(est.ServiceCharges).Add(est.RemoteAreaSurcharge).Add(est.PlatformMarkup)
			assert.True(t, sum.Equal(est.FinalTotal))
			assert.Equal(t, tc.remote, est.RemoteAreaSurcharge.IsPositive())
		})
	}
}

func TestCalculate_RemotoAntesDelMarkup(t *testing.T) {
	est, err := pricing.Calculate(pricing.Input{Params: params("1", 2, entity.PriorityStandard), Remote: true}, baseConfig())
	require.NoError(t, err)
	// 200 + 50 = 250; markup 25
	assertEstimate(t, est, "200", "0", "0", "50", "25", "275")
}

func TestCalculate_TarifaYMarkupDeMarca(t *testing.T) {
	brand := entity.BrandPricing{BaseRate: dp("80"), MarkupPct: dp("5")}
	est, err := pricing.Calculate(pricing.Input{Params: params("2", 1, entity.PriorityStandard), Brand: brand}, baseConfig())
	require.NoError(t, err)
	assertEstimate(t, est, "80", "0", "0", "0", "4", "84")
}

func TestCalculate_SinTarifaEsErrorDeConfiguracion(t *testing.T) {
	cfg := baseConfig()
	cfg.DefaultBaseRate = nil
	_, err := pricing.Calculate(pricing.Input{Params: params("1", 1, entity.PriorityStandard)}, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCalculate_EntradaInvalida(t *testing.T) {
	_, err := pricing.Calculate(pricing.Input{Params: params("1", 0, entity.PriorityStandard)}, baseConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = pricing.Calculate(pricing.Input{Params: params("-1", 1, entity.PriorityStandard)}, baseConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reglas
// ──────────────────────────────────────────────────────────────────────────────

func TestCalculate_ReglasRateMultiplicadorYRecargo(t *testing.T) {
	brand := entity.BrandPricing{Rules: []entity.PricingRule{
		{ID: "r1", Action: entity.RuleActionRate, Value: d("60"), Precedence: 1, Active: true},
		{ID: "r2", Action: entity.RuleActionMultiplier, Value: d("1.2"), Precedence: 2, Active: true},
		{ID: "r3", Action: entity.RuleActionMultiplier, Value: d("1.1"), Precedence: 3, Active: true},
		{ID: "r4", Action: entity.RuleActionSurcharge, Value: d("15"), Precedence: 4, Active: true},
		{ID: "r5", Action: entity.RuleActionSurcharge, Value: d("999"), Precedence: 5, Active: false},
	}}
	cfg := baseConfig()
	cfg.MarkupPct = decimal.Zero
	est, err := pricing.Calculate(pricing.Input{Params: params("2", 1, entity.PriorityStandard), Brand: brand}, cfg)
	require.NoError(t, err)
	// base 60; multiplicador 1 + 0.2 + 0.1 = 1.3 → servicio 18 + recargo 15 = 33
	assertEstimate(t, est, "60", "0", "33", "0", "0", "93")
}

func TestApplicableRules_ExclusivaSuprimeLasDemas(t *testing.T) {
	heavy := d("10")
	rules := []entity.PricingRule{
		{ID: "sur", Action: entity.RuleActionSurcharge, Value: d("5"), Precedence: 1, Active: true},
		{ID: "excl-pesado", Action: entity.RuleActionRate, Value: d("300"), Precedence: 3, Active: true, Exclusive: true,
			Condition: entity.RuleCondition{MinWeight: &heavy}},
		{ID: "excl-express", Action: entity.RuleActionMultiplier, Value: d("2"), Precedence: 2, Active: true, Exclusive: true,
			Condition: entity.RuleCondition{Priority: entity.PriorityExpress}},
	}

	got := pricing.ApplicableRules(rules, params("12", 1, entity.PriorityExpress))
	require.Len(t, got, 1)
	assert.Equal(t, "excl-express", got[0].ID, "la exclusiva de menor precedencia gana")

	got = pricing.ApplicableRules(rules, params("12", 1, entity.PriorityStandard))
	require.Len(t, got, 1)
	assert.Equal(t, "excl-pesado", got[0].ID)

	got = pricing.ApplicableRules(rules, params("1", 1, entity.PriorityStandard))
	require.Len(t, got, 1)
	assert.Equal(t, "sur", got[0].ID)
}

func TestRuleCondition_PrefijosDeCodigoPostal(t *testing.T) {
	cond := entity.RuleCondition{PincodePrefixes: []string{"79", "80"}}
	p := params("1", 1, entity.PriorityStandard)
	assert.False(t, cond.Matches(p))
	p.DestinationPincode = "800123"
	assert.True(t, cond.Matches(p))
}
