package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

var _ repository.BrandDirectory = (*BrandDirectory)(nil)

// BrandDirectory directorio de marcas en memoria.
type BrandDirectory struct {
	mu     sync.RWMutex
	brands map[string]entity.Brand
}

// NewBrandDirectory construye el directorio con las marcas dadas.
func NewBrandDirectory(brands ...entity.Brand) *BrandDirectory {
	d := &BrandDirectory{brands: make(map[string]entity.Brand, len(brands))}
	for _, b := range brands {
		d.brands[b.ID] = b
	}
	return d
}

// Put registra o reemplaza una marca.
func (d *BrandDirectory) Put(b entity.Brand) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.brands[b.ID] = b
}

// GetBrand devuelve una copia de la marca o (nil, nil) si no existe.
func (d *BrandDirectory) GetBrand(_ context.Context, id string) (*entity.Brand, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.brands[id]
	if !ok {
		return nil, nil
	}
	rules := make([]entity.PricingRule, len(b.Pricing.Rules))
	copy(rules, b.Pricing.Rules)
	b.Pricing.Rules = rules
	return &b, nil
}
