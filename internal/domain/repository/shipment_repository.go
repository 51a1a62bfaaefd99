package repository

import (
	"context"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// ShipmentRepository registra el resultado de cada solicitud por referencia.
type ShipmentRepository interface {
	// GetByReference devuelve (nil, nil) si no existe.
	GetByReference(ctx context.Context, referenceID string) (*entity.ShipmentRecord, error)
	// Save inserta o actualiza el registro (clave: ReferenceID).
	Save(ctx context.Context, record *entity.ShipmentRecord) error
}
