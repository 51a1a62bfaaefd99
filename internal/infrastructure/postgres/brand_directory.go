package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

var _ repository.BrandDirectory = (*BrandDirectoryRepo)(nil)

// BrandDirectoryRepo marcas y reglas de tarifa sobre PostgreSQL (usable con pool o tx).
type BrandDirectoryRepo struct {
	q Querier
}

// NewBrandDirectory construye el adaptador. Pasar pool o tx (Querier).
func NewBrandDirectory(q Querier) *BrandDirectoryRepo {
	return &BrandDirectoryRepo{q: q}
}

// ruleConditionJSON forma persistida de entity.RuleCondition (columna JSONB).
type ruleConditionJSON struct {
	MinWeight        *decimal.Decimal `json:"min_weight,omitempty"`
	MaxWeight        *decimal.Decimal `json:"max_weight,omitempty"`
	Priority         string           `json:"priority,omitempty"`
	PincodePrefixes  []string         `json:"pincode_prefixes,omitempty"`
	MinDeclaredValue *decimal.Decimal `json:"min_declared_value,omitempty"`
}

// GetBrand devuelve la marca con sus reglas activas o (nil, nil) si no existe.
func (r *BrandDirectoryRepo) GetBrand(ctx context.Context, id string) (*entity.Brand, error) {
	query := `SELECT id, name, base_rate, markup_pct FROM brands WHERE id = $1`
	var b entity.Brand
	var baseRate, markup decimal.NullDecimal
	err := r.q.QueryRow(ctx, query, id).Scan(&b.ID, &b.Name, &baseRate, &markup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	if baseRate.Valid {
		b.Pricing.BaseRate = &baseRate.Decimal
	}
	if markup.Valid {
		b.Pricing.MarkupPct = &markup.Decimal
	}

	rules, err := r.listRules(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Pricing.Rules = rules
	return &b, nil
}

func (r *BrandDirectoryRepo) listRules(ctx context.Context, brandID string) ([]entity.PricingRule, error) {
	query := `
		SELECT id, brand_id, name, condition, action, value, exclusive, precedence, active
		FROM pricing_rules WHERE brand_id = $1 AND active ORDER BY precedence, id`
	rows, err := r.q.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}
	defer rows.Close()
	var list []entity.PricingRule
	for rows.Next() {
		var pr entity.PricingRule
		var raw []byte
		if err := rows.Scan(&pr.ID, &pr.BrandID, &pr.Name, &raw, &pr.Action, &pr.Value,
			&pr.Exclusive, &pr.Precedence, &pr.Active); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		var cond ruleConditionJSON
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &cond); err != nil {
				return nil, fmt.Errorf("pricing rule %s: condición inválida: %w", pr.ID, err)
			}
		}
		pr.Condition = entity.RuleCondition(cond)
		list = append(list, pr)
	}
	return list, rows.Err()
}

// UpsertBrand registra o actualiza la tarifa de una marca (alta administrativa).
func (r *BrandDirectoryRepo) UpsertBrand(ctx context.Context, b entity.Brand) error {
	query := `
		INSERT INTO brands (id, name, base_rate, markup_pct, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, base_rate = EXCLUDED.base_rate, markup_pct = EXCLUDED.markup_pct, updated_at = now()`
	_, err := r.q.Exec(ctx, query, b.ID, b.Name, nullDecimal(b.Pricing.BaseRate), nullDecimal(b.Pricing.MarkupPct))
	if err != nil {
		return fmt.Errorf("upsert brand: %w", err)
	}
	return nil
}

// CreateRule inserta una regla de tarifa para la marca.
func (r *BrandDirectoryRepo) CreateRule(ctx context.Context, rule *entity.PricingRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	cond, err := json.Marshal(ruleConditionJSON(rule.Condition))
	if err != nil {
		return fmt.Errorf("encode rule condition: %w", err)
	}
	query := `
		INSERT INTO pricing_rules (id, brand_id, name, condition, action, value, exclusive, precedence, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.q.Exec(ctx, query, rule.ID, rule.BrandID, rule.Name, cond, rule.Action, rule.Value,
		rule.Exclusive, rule.Precedence, rule.Active)
	if err != nil {
		return fmt.Errorf("create pricing rule: %w", err)
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
