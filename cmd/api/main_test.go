package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/pkg/config"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
)

func memoryConfig(seeds ...config.BrandSeed) *config.Config {
	rate := decimal.NewFromInt(100)
	return &config.Config{
		Store: config.StoreConfig{Driver: "memory", SeedBrands: seeds},
		Pricing: config.PricingConfig{
			DefaultBaseRate:    &rate,
			FreeWeightKg:       decimal.NewFromInt(2),
			PerKgRate:          decimal.NewFromInt(20),
			StandardMultiplier: decimal.NewFromInt(1),
			ExpressMultiplier:  decimal.RequireFromString("1.5"),
			MarkupPct:          decimal.NewFromInt(10),
			LookupRetries:      1,
		},
	}
}

func TestOpenStores_MemoriaSiembraMarcas(t *testing.T) {
	cfg := memoryConfig(config.BrandSeed{ID: "brand-acme", Name: "Acme"})
	st, err := openStores(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer st.close()

	b, err := st.brands.GetBrand(context.Background(), "brand-acme")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Acme", b.Name)
}

func TestOpenStores_MemoriaCotizaMarcaSinRegistro(t *testing.T) {
	cfg := memoryConfig()
	st, err := openStores(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer st.close()

	est, err := newResolver(cfg, st.brands, logger.Nop()).Resolve(context.Background(), entity.ShipmentParams{
		BrandID: "brand-x", Weight: decimal.NewFromInt(1), NumBoxes: 1, Priority: entity.PriorityStandard,
	})
	require.NoError(t, err)
	assert.Equal(t, "110.00", est.FinalTotal.StringFixed(2))
}
