package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// BrandDirectory consulta de identidad y configuración de tarifas de una marca (solo lectura).
// Devuelve (nil, nil) si la marca no existe.
type BrandDirectory interface {
	GetBrand(ctx context.Context, id string) (*entity.Brand, error)
}
