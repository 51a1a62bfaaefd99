package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

var _ repository.ShipmentRepository = (*ShipmentRepo)(nil)

// ShipmentRepo resultados de envío por referencia sobre PostgreSQL.
type ShipmentRepo struct {
	q Querier
}

// NewShipmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewShipmentRepository(q Querier) *ShipmentRepo {
	return &ShipmentRepo{q: q}
}

// GetByReference devuelve (nil, nil) si no existe.
func (r *ShipmentRepo) GetByReference(ctx context.Context, referenceID string) (*entity.ShipmentRecord, error) {
	query := `
		SELECT reference_id, request_id, brand_id, state, awb_number, tracking_url, amount, error,
		       created_by, created_at, updated_at
		FROM shipments WHERE reference_id = $1`
	var s entity.ShipmentRecord
	var awb, tracking, errMsg, createdBy *string
	err := r.q.QueryRow(ctx, query, referenceID).Scan(
		&s.ReferenceID, &s.RequestID, &s.BrandID, &s.State, &awb, &tracking, &s.Amount, &errMsg,
		&createdBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	s.AWBNumber, s.TrackingURL = derefString(awb), derefString(tracking)
	s.Error, s.CreatedBy = derefString(errMsg), derefString(createdBy)
	return &s, nil
}

// Save inserta o actualiza por reference_id. created_at se conserva en la actualización.
func (r *ShipmentRepo) Save(ctx context.Context, s *entity.ShipmentRecord) error {
	query := `
		INSERT INTO shipments (reference_id, request_id, brand_id, state, awb_number, tracking_url, amount, error,
		                       created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (reference_id) DO UPDATE
		SET state = EXCLUDED.state, awb_number = EXCLUDED.awb_number, tracking_url = EXCLUDED.tracking_url,
		    amount = EXCLUDED.amount, error = EXCLUDED.error, updated_at = now()
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		s.ReferenceID, s.RequestID, s.BrandID, s.State, nullIfEmpty(s.AWBNumber), nullIfEmpty(s.TrackingURL),
		s.Amount, nullIfEmpty(s.Error), nullIfEmpty(s.CreatedBy),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save shipment: %w", err)
	}
	return nil
}
