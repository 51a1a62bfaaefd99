package dto

import (
	"time"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// AdjustInventoryRequest ajuste ADD / REMOVE / SET. Para SET, quantity es el valor absoluto.
// BrandID solo lo usa un admin de plataforma; el resto opera sobre la marca del token.
type AdjustInventoryRequest struct {
	BrandID  string `json:"brand_id"`
	PartID   string `json:"part_id"`
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

// TransferInventoryRequest traslado entre buckets.
type TransferInventoryRequest struct {
	BrandID  string `json:"brand_id"`
	PartID   string `json:"part_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

// InventoryRecordDTO cantidades por bucket.
type InventoryRecordDTO struct {
	BrandID    string     `json:"brand_id"`
	PartID     string     `json:"part_id"`
	OnHand     int64      `json:"on_hand"`
	Available  int64      `json:"available"`
	Reserved   int64      `json:"reserved"`
	Defective  int64      `json:"defective"`
	Quarantine int64      `json:"quarantine"`
	InTransit  int64      `json:"in_transit"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// InventoryLedgerEntryDTO fila del libro de inventario.
type InventoryLedgerEntryDTO struct {
	ID            string    `json:"id"`
	ActionType    string    `json:"action_type"`
	Quantity      int64     `json:"quantity"`
	Delta         int64     `json:"delta"`
	Source        string    `json:"source,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	ReferenceNote string    `json:"reference_note,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AdjustInventoryResponse registro resultante; clamped=true si un REMOVE se recortó a lo existente.
type AdjustInventoryResponse struct {
	Record       InventoryRecordDTO      `json:"record"`
	Entry        InventoryLedgerEntryDTO `json:"entry"`
	Requested    int64                   `json:"requested"`
	AppliedDelta int64                   `json:"applied_delta"`
	Clamped      bool                    `json:"clamped"`
}

// TransferInventoryResponse registro resultante y fila anexada.
type TransferInventoryResponse struct {
	Record InventoryRecordDTO      `json:"record"`
	Entry  InventoryLedgerEntryDTO `json:"entry"`
}

// InventoryReconciliationResponse registro actual frente al replay del libro.
type InventoryReconciliationResponse struct {
	Snapshot   InventoryRecordDTO `json:"snapshot"`
	Replayed   InventoryRecordDTO `json:"replayed"`
	Entries    int                `json:"entries"`
	Consistent bool               `json:"consistent"`
	Detail     string             `json:"detail,omitempty"`
}

// NewInventoryRecordDTO mapea el registro.
func NewInventoryRecordDTO(r entity.InventoryRecord) InventoryRecordDTO {
	out := InventoryRecordDTO{
		BrandID:    r.BrandID,
		PartID:     r.PartID,
		OnHand:     r.OnHand,
		Available:  r.Available,
		Reserved:   r.Reserved,
		Defective:  r.Defective,
		Quarantine: r.Quarantine,
		InTransit:  r.InTransit,
	}
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// NewInventoryLedgerEntryDTO mapea una fila del libro.
func NewInventoryLedgerEntryDTO(e entity.InventoryLedgerEntry) InventoryLedgerEntryDTO {
	return InventoryLedgerEntryDTO{
		ID:            e.ID,
		ActionType:    e.ActionType,
		Quantity:      e.Quantity,
		Delta:         e.Delta,
		Source:        e.Source,
		Destination:   e.Destination,
		ReferenceNote: e.ReferenceNote,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
	}
}
