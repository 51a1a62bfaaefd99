package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

var _ repository.ShipmentRepository = (*ShipmentRepository)(nil)

// ShipmentRepository registros de envío en memoria, por referencia.
type ShipmentRepository struct {
	mu      sync.RWMutex
	records map[string]entity.ShipmentRecord
}

// NewShipmentRepository construye el repositorio vacío.
func NewShipmentRepository() *ShipmentRepository {
	return &ShipmentRepository{records: make(map[string]entity.ShipmentRecord)}
}

// GetByReference devuelve (nil, nil) si no existe.
func (r *ShipmentRepository) GetByReference(_ context.Context, referenceID string) (*entity.ShipmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[referenceID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Save inserta o actualiza por ReferenceID.
func (r *ShipmentRepository) Save(_ context.Context, record *entity.ShipmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if prev, ok := r.records[record.ReferenceID]; ok {
		record.CreatedAt = prev.CreatedAt
	} else if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	r.records[record.ReferenceID] = *record
	return nil
}
