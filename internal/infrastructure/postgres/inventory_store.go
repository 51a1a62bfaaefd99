package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

var _ repository.InventoryStore = (*LedgerStore[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry])(nil)

// NewInventoryStore libro de inventario sobre inventory_records / inventory_ledger.
func NewInventoryStore(pool *pgxpool.Pool) *LedgerStore[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry] {
	return &LedgerStore[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry]{
		pool:  pool,
		tx:    NewTxRunner(pool),
		table: inventoryTable{},
	}
}

type inventoryTable struct{}

func (inventoryTable) initial(key entity.PartKey) entity.InventoryRecord {
	return entity.NewInventoryRecord(key)
}

func (inventoryTable) ensure(ctx context.Context, q Querier, key entity.PartKey) error {
	query := `
		INSERT INTO inventory_records (brand_id, part_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (brand_id, part_id) DO NOTHING`
	if _, err := q.Exec(ctx, query, key.BrandID, key.PartID); err != nil {
		return fmt.Errorf("ensure inventory record: %w", err)
	}
	return nil
}

func (inventoryTable) get(ctx context.Context, q Querier, key entity.PartKey, forUpdate bool) (entity.InventoryRecord, bool, error) {
	query := `
		SELECT brand_id, part_id, on_hand, available, reserved, defective, quarantine, in_transit, updated_at
		FROM inventory_records WHERE brand_id = $1 AND part_id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var r entity.InventoryRecord
	err := q.QueryRow(ctx, query, key.BrandID, key.PartID).Scan(
		&r.BrandID, &r.PartID, &r.OnHand, &r.Available, &r.Reserved,
		&r.Defective, &r.Quarantine, &r.InTransit, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.InventoryRecord{}, false, nil
		}
		return entity.InventoryRecord{}, false, fmt.Errorf("get inventory record: %w", err)
	}
	return r, true, nil
}

func (inventoryTable) save(ctx context.Context, q Querier, r entity.InventoryRecord) error {
	query := `
		UPDATE inventory_records
		SET on_hand = $3, available = $4, reserved = $5, defective = $6, quarantine = $7,
		    in_transit = $8, updated_at = $9
		WHERE brand_id = $1 AND part_id = $2`
	_, err := q.Exec(ctx, query, r.BrandID, r.PartID, r.OnHand, r.Available, r.Reserved,
		r.Defective, r.Quarantine, r.InTransit, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update inventory record: %w", err)
	}
	return nil
}

func (inventoryTable) insert(ctx context.Context, q Querier, e entity.InventoryLedgerEntry) error {
	query := `
		INSERT INTO inventory_ledger (id, brand_id, part_id, action_type, quantity, delta, source, destination,
		                              reference_note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := q.Exec(ctx, query,
		e.ID, e.BrandID, e.PartID, e.ActionType, e.Quantity, e.Delta,
		nullIfEmpty(e.Source), nullIfEmpty(e.Destination), nullIfEmpty(e.ReferenceNote),
		nullIfEmpty(e.CreatedBy), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory ledger entry: %w", err)
	}
	return nil
}

const inventoryLedgerColumns = `id, brand_id, part_id, action_type, quantity, delta, source, destination,
		reference_note, created_by, created_at`

func (inventoryTable) byReference(ctx context.Context, q Querier, key entity.PartKey, reference string) ([]entity.InventoryLedgerEntry, error) {
	query := `SELECT ` + inventoryLedgerColumns + `
		FROM inventory_ledger WHERE brand_id = $1 AND part_id = $2 AND reference_note = $3 ORDER BY seq`
	return scanInventoryLedger(q.Query(ctx, query, key.BrandID, key.PartID, reference))
}

func (inventoryTable) list(ctx context.Context, q Querier, key entity.PartKey) ([]entity.InventoryLedgerEntry, error) {
	query := `SELECT ` + inventoryLedgerColumns + `
		FROM inventory_ledger WHERE brand_id = $1 AND part_id = $2 ORDER BY seq`
	return scanInventoryLedger(q.Query(ctx, query, key.BrandID, key.PartID))
}

func scanInventoryLedger(rows pgx.Rows, err error) ([]entity.InventoryLedgerEntry, error) {
	if err != nil {
		return nil, fmt.Errorf("list inventory ledger: %w", err)
	}
	defer rows.Close()
	var list []entity.InventoryLedgerEntry
	for rows.Next() {
		var e entity.InventoryLedgerEntry
		var source, dest, note, createdBy *string
		if err := rows.Scan(&e.ID, &e.BrandID, &e.PartID, &e.ActionType, &e.Quantity, &e.Delta,
			&source, &dest, &note, &createdBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory ledger entry: %w", err)
		}
		e.Source, e.Destination = derefString(source), derefString(dest)
		e.ReferenceNote, e.CreatedBy = derefString(note), derefString(createdBy)
		list = append(list, e)
	}
	return list, rows.Err()
}
