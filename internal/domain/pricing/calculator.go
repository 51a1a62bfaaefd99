// Package pricing calcula el costo de un envío (servicio de dominio, sin efectos laterales).
// El orden de los pasos es fijo y la conciliación de facturación depende del desglose:
//
//	tarifa base × cajas → recargo por peso → multiplicadores (prioridad × reglas)
//	→ recargos de reglas → recargo zona remota → markup de plataforma sobre el subtotal
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Config valores de plataforma. Se construye una vez desde la configuración de la aplicación.
type Config struct {
	DefaultBaseRate     *decimal.Decimal // nil = sin tarifa por defecto
	FreeWeightKg        decimal.Decimal
	PerKgRate           decimal.Decimal
	PriorityMultipliers map[string]decimal.Decimal
	RemoteSurcharge     decimal.Decimal
	MarkupPct           decimal.Decimal
}

// Input parámetros del envío más la configuración de la marca pagadora.
type Input struct {
	Params entity.ShipmentParams
	Brand  entity.BrandPricing
	Remote bool
}

// Calculate aplica los pasos en orden. Cada componente se redondea a 2 decimales y
// FinalTotal es la suma de los componentes redondeados.
func Calculate(in Input, cfg Config) (entity.ShipmentCostEstimate, error) {
	p := in.Params
	if p.NumBoxes <= 0 || p.Weight.IsNegative() || p.DeclaredValue.IsNegative() {
		return entity.ShipmentCostEstimate{}, domain.ErrInvalidInput
	}

	rules := ApplicableRules(in.Brand.Rules, p)

	rate, err := baseRate(in.Brand, rules, cfg, p.BrandID)
	if err != nil {
		return entity.ShipmentCostEstimate{}, err
	}

	// 1. tarifa base × cajas
	base := rate.Mul(decimal.NewFromInt(int64(p.NumBoxes))).Round(2)

	// 2. recargo por peso sobre el excedente del umbral gratuito
	weight := decimal.Zero
	if p.Weight.GreaterThan(cfg.FreeWeightKg) {
		weight = p.Weight.Sub(cfg.FreeWeightKg).Mul(cfg.PerKgRate).Round(2)
	}

	// 3. multiplicadores: prioridad × (1 + Σ(m−1)) de las reglas MULTIPLIER
	mult := priorityMultiplier(cfg, p.Priority)
	ruleMult := one
	surcharge := decimal.Zero
	for _, r := range rules {
		switch r.Action {
		case entity.RuleActionMultiplier:
			ruleMult = ruleMult.Add(r.Value.Sub(one))
		case entity.RuleActionSurcharge:
			surcharge = surcharge.Add(r.Value)
		}
	}
	mult = mult.Mul(ruleMult)
	partial := base.Add(weight)
	service := partial.Mul(mult).Sub(partial)

	// 4. recargos fijos de reglas
	service = service.Add(surcharge).Round(2)

	// 5. zona remota
	remote := decimal.Zero
	if in.Remote {
		remote = cfg.RemoteSurcharge.Round(2)
	}

	// 6. markup sobre el subtotal
	pct := cfg.MarkupPct
	if in.Brand.MarkupPct != nil {
		pct = *in.Brand.MarkupPct
	}
	subtotal := base.Add(weight).Add(service).Add(remote)
	markup := subtotal.Mul(pct).Div(hundred).Round(2)

	est := entity.ShipmentCostEstimate{
		BaseRate:            base,
		WeightCharges:       weight,
		ServiceCharges:      service,
		RemoteAreaSurcharge: remote,
		PlatformMarkup:      markup,
		FinalTotal:          subtotal.Add(markup),
	}
	if !est.FinalTotal.IsPositive() {
		return entity.ShipmentCostEstimate{}, &domain.ConfigurationError{
			BrandID: p.BrandID,
			Reason:  fmt.Sprintf("total calculado no positivo (%s)", est.FinalTotal.String()),
		}
	}
	return est, nil
}

// ApplicableRules reglas activas que coinciden con el envío, ordenadas por precedencia.
// Si alguna coincidente es exclusiva, solo se devuelve la primera exclusiva.
func ApplicableRules(rules []entity.PricingRule, p entity.ShipmentParams) []entity.PricingRule {
	matched := make([]entity.PricingRule, 0, len(rules))
	for _, r := range rules {
		if r.Active && r.Condition.Matches(p) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Precedence < matched[j].Precedence })
	for _, r := range matched {
		if r.Exclusive {
			return []entity.PricingRule{r}
		}
	}
	return matched
}

// baseRate precedencia: tarifa del admin de la marca, luego regla RATE, luego la de plataforma.
func baseRate(brand entity.BrandPricing, rules []entity.PricingRule, cfg Config, brandID string) (decimal.Decimal, error) {
	if brand.BaseRate != nil {
		return *brand.BaseRate, nil
	}
	for _, r := range rules {
		if r.Action == entity.RuleActionRate {
			return r.Value, nil
		}
	}
	if cfg.DefaultBaseRate != nil {
		return *cfg.DefaultBaseRate, nil
	}
	return decimal.Zero, &domain.ConfigurationError{BrandID: brandID, Reason: "no hay tarifa base de marca ni tarifa por defecto"}
}

func priorityMultiplier(cfg Config, priority string) decimal.Decimal {
	if m, ok := cfg.PriorityMultipliers[strings.ToUpper(priority)]; ok && m.IsPositive() {
		return m
	}
	return one
}
