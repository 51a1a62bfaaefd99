package entity

import (
	"fmt"
	"time"
)

// Tipos de ajuste de inventario.
const (
	AdjustAdd    = "ADD"
	AdjustRemove = "REMOVE"
	AdjustSet    = "SET"
	// ActionTransfer movimiento entre buckets (despacho, devolución, cuarentena...).
	ActionTransfer = "TRANSFER"
)

// Buckets de inventario. AVAILABLE es derivado; ON_HAND no es origen/destino de traslados.
const (
	BucketOnHand     = "ON_HAND"
	BucketAvailable  = "AVAILABLE"
	BucketReserved   = "RESERVED"
	BucketDefective  = "DEFECTIVE"
	BucketQuarantine = "QUARANTINE"
	BucketInTransit  = "IN_TRANSIT"
)

// PartKey identifica un registro de inventario (marca, repuesto).
type PartKey struct {
	BrandID string
	PartID  string
}

func (k PartKey) String() string { return k.BrandID + "/" + k.PartID }

// InventoryRecord cantidades de un repuesto para una marca.
// Invariante: todos >= 0 y Available == max(0, OnHand - Reserved - Defective - Quarantine).
// InTransit se lleva fuera de OnHand.
type InventoryRecord struct {
	BrandID    string
	PartID     string
	OnHand     int64
	Available  int64
	Reserved   int64
	Defective  int64
	Quarantine int64
	InTransit  int64
	UpdatedAt  time.Time
}

// NewInventoryRecord registro en cero.
func NewInventoryRecord(key PartKey) InventoryRecord {
	return InventoryRecord{BrandID: key.BrandID, PartID: key.PartID}
}

// Key devuelve la clave del registro.
func (r InventoryRecord) Key() PartKey { return PartKey{BrandID: r.BrandID, PartID: r.PartID} }

// Recompute recalcula Available tras cualquier cambio de buckets.
func (r *InventoryRecord) Recompute() {
	avail := r.OnHand - r.Reserved - r.Defective - r.Quarantine
	if avail < 0 {
		avail = 0
	}
	r.Available = avail
}

// CheckInvariant valida no-negatividad y el valor derivado de Available.
func (r InventoryRecord) CheckInvariant() error {
	for name, v := range map[string]int64{
		BucketOnHand: r.OnHand, BucketAvailable: r.Available, BucketReserved: r.Reserved,
		BucketDefective: r.Defective, BucketQuarantine: r.Quarantine, BucketInTransit: r.InTransit,
	} {
		if v < 0 {
			return fmt.Errorf("bucket %s negativo (%d)", name, v)
		}
	}
	expected := r.OnHand - r.Reserved - r.Defective - r.Quarantine
	if expected < 0 {
		expected = 0
	}
	if r.Available != expected {
		return fmt.Errorf("available %d != %d", r.Available, expected)
	}
	return nil
}

// BucketQuantity cantidad actual de un bucket.
func (r InventoryRecord) BucketQuantity(bucket string) (int64, bool) {
	switch bucket {
	case BucketOnHand:
		return r.OnHand, true
	case BucketAvailable:
		return r.Available, true
	case BucketReserved:
		return r.Reserved, true
	case BucketDefective:
		return r.Defective, true
	case BucketQuarantine:
		return r.Quarantine, true
	case BucketInTransit:
		return r.InTransit, true
	}
	return 0, false
}

// IsTransferBucket indica si el bucket puede ser origen o destino de un traslado.
func IsTransferBucket(bucket string) bool {
	switch bucket {
	case BucketAvailable, BucketReserved, BucketDefective, BucketQuarantine, BucketInTransit:
		return true
	}
	return false
}

// ApplyTransfer mueve qty de from a to. Los buckets físicos (AVAILABLE, RESERVED, DEFECTIVE,
// QUARANTINE) viven dentro de OnHand; IN_TRANSIT está fuera. No valida suficiencia.
func (r *InventoryRecord) ApplyTransfer(from, to string, qty int64) {
	switch from {
	case BucketReserved:
		r.Reserved -= qty
	case BucketDefective:
		r.Defective -= qty
	case BucketQuarantine:
		r.Quarantine -= qty
	}
	if from == BucketInTransit {
		r.InTransit -= qty
	} else {
		r.OnHand -= qty
	}

	switch to {
	case BucketReserved:
		r.Reserved += qty
	case BucketDefective:
		r.Defective += qty
	case BucketQuarantine:
		r.Quarantine += qty
	}
	if to == BucketInTransit {
		r.InTransit += qty
	} else {
		r.OnHand += qty
	}
	r.Recompute()
}

// InventoryLedgerEntry fila inmutable del libro de inventario.
// Quantity es la cantidad solicitada (objetivo absoluto para SET); Delta es el cambio
// real aplicado sobre OnHand (con signo), que es lo que se usa para replay.
type InventoryLedgerEntry struct {
	ID            string
	BrandID       string
	PartID        string
	ActionType    string
	Quantity      int64
	Delta         int64
	Source        string
	Destination   string
	ReferenceNote string
	CreatedBy     string
	CreatedAt     time.Time
}

// EntryReference implementa ledger.Entry.
func (e InventoryLedgerEntry) EntryReference() string { return e.ReferenceNote }

// ReplayInventory reconstruye el registro aplicando las filas en orden.
func ReplayInventory(key PartKey, entries []InventoryLedgerEntry) (InventoryRecord, error) {
	rec := NewInventoryRecord(key)
	for i, e := range entries {
		switch e.ActionType {
		case AdjustAdd, AdjustRemove, AdjustSet:
			rec.OnHand += e.Delta
			rec.Recompute()
		case ActionTransfer:
			if !IsTransferBucket(e.Source) || !IsTransferBucket(e.Destination) {
				return rec, fmt.Errorf("fila %d (%s): buckets inválidos %s→%s", i, e.ID, e.Source, e.Destination)
			}
			rec.ApplyTransfer(e.Source, e.Destination, e.Quantity)
		default:
			return rec, fmt.Errorf("fila %d (%s): acción %q desconocida", i, e.ID, e.ActionType)
		}
		if err := rec.CheckInvariant(); err != nil {
			return rec, fmt.Errorf("fila %d (%s): %w", i, e.ID, err)
		}
		rec.UpdatedAt = e.CreatedAt
	}
	return rec, nil
}
