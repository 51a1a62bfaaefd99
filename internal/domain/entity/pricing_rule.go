package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Prioridades de envío.
const (
	PriorityStandard = "STANDARD"
	PriorityExpress  = "EXPRESS"
)

// Acciones de regla de tarifa.
const (
	RuleActionRate       = "RATE"       // reemplaza la tarifa base por caja
	RuleActionMultiplier = "MULTIPLIER" // multiplica base + peso
	RuleActionSurcharge  = "SURCHARGE"  // recargo fijo
)

// RuleCondition predicado de una regla. Campos nil o vacíos no restringen.
type RuleCondition struct {
	MinWeight        *decimal.Decimal
	MaxWeight        *decimal.Decimal
	Priority         string
	PincodePrefixes  []string
	MinDeclaredValue *decimal.Decimal
}

// Matches evalúa la condición contra los parámetros del envío.
func (c RuleCondition) Matches(p ShipmentParams) bool {
	if c.MinWeight != nil && p.Weight.LessThan(*c.MinWeight) {
		return false
	}
	if c.MaxWeight != nil && p.Weight.GreaterThan(*c.MaxWeight) {
		return false
	}
	if c.Priority != "" && !strings.EqualFold(c.Priority, p.Priority) {
		return false
	}
	if len(c.PincodePrefixes) > 0 {
		ok := false
		for _, prefix := range c.PincodePrefixes {
			if strings.HasPrefix(p.DestinationPincode, prefix) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if c.MinDeclaredValue != nil && p.DeclaredValue.LessThan(*c.MinDeclaredValue) {
		return false
	}
	return true
}

// PricingRule regla avanzada configurada por el administrador de la marca.
// Precedence menor = se evalúa primero.
type PricingRule struct {
	ID         string
	BrandID    string
	Name       string
	Condition  RuleCondition
	Action     string
	Value      decimal.Decimal
	Exclusive  bool
	Precedence int
	Active     bool
}

// BrandPricing configuración de tarifas de una marca (lectura para el orquestador).
type BrandPricing struct {
	BaseRate  *decimal.Decimal // tarifa base configurada por el admin; nil = sin tarifa propia
	MarkupPct *decimal.Decimal // nil = markup de plataforma por defecto
	Rules     []PricingRule
}

// Brand identidad de tenant (creada externamente).
type Brand struct {
	ID      string
	Name    string
	Pricing BrandPricing
}
