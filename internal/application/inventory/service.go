package inventory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/ledger"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
)

// Service registra ajustes y traslados de inventario por (marca, repuesto). Cada mutación
// actualiza los buckets y anexa exactamente una fila al libro, como una sola unidad.
type Service struct {
	ledger *ledger.Ledger[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry]
	log    *logger.Logger
	now    func() time.Time
}

// NewService construye el servicio sobre el store de inventario.
func NewService(store repository.InventoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("inventory")
	return &Service{
		ledger: ledger.New(store, entity.InventoryRecord.CheckInvariant, log.Zerolog()),
		log:    log,
		now:    time.Now,
	}
}

// AdjustInput entrada de un ajuste ADD / REMOVE / SET sobre OnHand.
// Para SET, Quantity es el valor absoluto objetivo.
type AdjustInput struct {
	BrandID  string
	PartID   string
	Type     string
	Quantity int64
	Reason   string
	ActorID  string
}

// AdjustResult registro resultante más el detalle del cambio aplicado.
// Clamped=true cuando un REMOVE pidió más de lo que había: se aplicó solo lo disponible.
type AdjustResult struct {
	Record       entity.InventoryRecord
	Entry        entity.InventoryLedgerEntry
	Requested    int64
	AppliedDelta int64
	Clamped      bool
}

// TransferInput traslado entre buckets (despacho, devolución, cuarentena...).
type TransferInput struct {
	BrandID  string
	PartID   string
	From     string
	To       string
	Quantity int64
	Reason   string
	ActorID  string
}

// TransferResult registro resultante y la fila anexada.
type TransferResult struct {
	Record entity.InventoryRecord
	Entry  entity.InventoryLedgerEntry
}

// Reconciliation comparación entre el registro actual y el replay del libro.
type Reconciliation struct {
	Key        entity.PartKey
	Snapshot   entity.InventoryRecord
	Replayed   entity.InventoryRecord
	EntriesLen int
	Consistent bool
	Detail     string
}

// Adjust aplica un ajuste. REMOVE nunca deja OnHand negativo: si se pide más de lo que hay
// se descuenta solo lo existente y la fila registra el delta real, no el solicitado.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (AdjustResult, error) {
	if in.BrandID == "" || in.PartID == "" {
		return AdjustResult{}, domain.ErrInvalidInput
	}
	if in.Quantity < 0 {
		return AdjustResult{}, domain.ErrInvalidQuantity
	}
	switch in.Type {
	case entity.AdjustAdd, entity.AdjustRemove, entity.AdjustSet:
	default:
		return AdjustResult{}, domain.ErrInvalidInput
	}

	key := entity.PartKey{BrandID: in.BrandID, PartID: in.PartID}
	res := AdjustResult{Requested: in.Quantity}
	rec, entry, err := s.ledger.Apply(ctx, key, func(_ context.Context, cur entity.InventoryRecord, _ ledger.History[entity.InventoryLedgerEntry]) (entity.InventoryRecord, *entity.InventoryLedgerEntry, error) {
		next := cur
		var delta int64
		source, dest := "", entity.BucketOnHand
		switch in.Type {
		case entity.AdjustAdd:
			if in.Quantity > math.MaxInt64-cur.OnHand {
				return cur, nil, fmt.Errorf("%w: ADD %d desborda ON_HAND %d", domain.ErrInvalidQuantity, in.Quantity, cur.OnHand)
			}
			delta = in.Quantity
		case entity.AdjustRemove:
			delta = -in.Quantity
			if cur.OnHand < in.Quantity {
				delta = -cur.OnHand
				res.Clamped = true
			}
			source, dest = entity.BucketOnHand, ""
		case entity.AdjustSet:
			delta = in.Quantity - cur.OnHand
		}
		next.OnHand += delta
		next.Recompute()
		now := s.now().UTC()
		next.UpdatedAt = now
		res.AppliedDelta = delta
		return next, &entity.InventoryLedgerEntry{
			ID:            uuid.New().String(),
			BrandID:       in.BrandID,
			PartID:        in.PartID,
			ActionType:    in.Type,
			Quantity:      in.Quantity,
			Delta:         delta,
			Source:        source,
			Destination:   dest,
			ReferenceNote: in.Reason,
			CreatedBy:     in.ActorID,
			CreatedAt:     now,
		}, nil
	})
	if err != nil {
		return AdjustResult{}, err
	}
	res.Record = rec
	res.Entry = *entry

	ev := s.log.Info()
	if res.Clamped {
		ev = s.log.Warn()
	}
	ev.Str("brand_id", in.BrandID).
		Str("part_id", in.PartID).
		Str("type", in.Type).
		Int64("requested", in.Quantity).
		Int64("delta", res.AppliedDelta).
		Bool("clamped", res.Clamped).
		Msg("ajuste de inventario")
	return res, nil
}

// Transfer mueve Quantity de un bucket a otro. Falla con *domain.InsufficientBucketError si el
// bucket origen no alcanza. Mover desde un bucket físico hacia IN_TRANSIT descuenta OnHand;
// desde IN_TRANSIT hacia un bucket físico lo incrementa.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if in.BrandID == "" || in.PartID == "" {
		return TransferResult{}, domain.ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return TransferResult{}, domain.ErrInvalidQuantity
	}
	if !entity.IsTransferBucket(in.From) || !entity.IsTransferBucket(in.To) || in.From == in.To {
		return TransferResult{}, domain.ErrInvalidBucket
	}

	key := entity.PartKey{BrandID: in.BrandID, PartID: in.PartID}
	rec, entry, err := s.ledger.Apply(ctx, key, func(_ context.Context, cur entity.InventoryRecord, _ ledger.History[entity.InventoryLedgerEntry]) (entity.InventoryRecord, *entity.InventoryLedgerEntry, error) {
		have, _ := cur.BucketQuantity(in.From)
		if have < in.Quantity {
			return cur, nil, &domain.InsufficientBucketError{Bucket: in.From, Available: have, Requested: in.Quantity}
		}
		// tras un REMOVE recortado OnHand puede quedar por debajo de los buckets físicos
		if in.From != entity.BucketInTransit && in.To == entity.BucketInTransit && cur.OnHand < in.Quantity {
			return cur, nil, &domain.InsufficientBucketError{Bucket: entity.BucketOnHand, Available: cur.OnHand, Requested: in.Quantity}
		}
		if dest, _ := cur.BucketQuantity(in.To); dest > math.MaxInt64-in.Quantity {
			return cur, nil, fmt.Errorf("%w: traslado desborda %s", domain.ErrInvalidQuantity, in.To)
		}
		if in.From == entity.BucketInTransit && cur.OnHand > math.MaxInt64-in.Quantity {
			return cur, nil, fmt.Errorf("%w: traslado desborda %s", domain.ErrInvalidQuantity, entity.BucketOnHand)
		}
		next := cur
		next.ApplyTransfer(in.From, in.To, in.Quantity)
		now := s.now().UTC()
		next.UpdatedAt = now
		var delta int64
		switch {
		case in.To == entity.BucketInTransit:
			delta = -in.Quantity
		case in.From == entity.BucketInTransit:
			delta = in.Quantity
		}
		return next, &entity.InventoryLedgerEntry{
			ID:            uuid.New().String(),
			BrandID:       in.BrandID,
			PartID:        in.PartID,
			ActionType:    entity.ActionTransfer,
			Quantity:      in.Quantity,
			Delta:         delta,
			Source:        in.From,
			Destination:   in.To,
			ReferenceNote: in.Reason,
			CreatedBy:     in.ActorID,
			CreatedAt:     now,
		}, nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.log.Info().
		Str("brand_id", in.BrandID).
		Str("part_id", in.PartID).
		Str("from", in.From).
		Str("to", in.To).
		Int64("quantity", in.Quantity).
		Msg("traslado de inventario")
	return TransferResult{Record: rec, Entry: *entry}, nil
}

// Get registro actual (en cero si aún no hubo movimientos).
func (s *Service) Get(ctx context.Context, brandID, partID string) (entity.InventoryRecord, error) {
	if brandID == "" || partID == "" {
		return entity.InventoryRecord{}, domain.ErrInvalidInput
	}
	rec, _, err := s.ledger.Query(ctx, entity.PartKey{BrandID: brandID, PartID: partID})
	if err != nil {
		return entity.InventoryRecord{}, fmt.Errorf("inventory: leer registro: %w", err)
	}
	return rec, nil
}

// ListLedger historial del repuesto en orden de inserción.
func (s *Service) ListLedger(ctx context.Context, brandID, partID string) ([]entity.InventoryLedgerEntry, error) {
	if brandID == "" || partID == "" {
		return nil, domain.ErrInvalidInput
	}
	entries, err := s.ledger.Replay(ctx, entity.PartKey{BrandID: brandID, PartID: partID})
	if err != nil {
		return nil, fmt.Errorf("inventory: listar libro: %w", err)
	}
	return entries, nil
}

// Reconcile reconstruye el registro desde el libro y lo compara con el actual.
func (s *Service) Reconcile(ctx context.Context, brandID, partID string) (Reconciliation, error) {
	snap, err := s.Get(ctx, brandID, partID)
	if err != nil {
		return Reconciliation{}, err
	}
	entries, err := s.ListLedger(ctx, brandID, partID)
	if err != nil {
		return Reconciliation{}, err
	}
	key := entity.PartKey{BrandID: brandID, PartID: partID}
	out := Reconciliation{Key: key, Snapshot: snap, EntriesLen: len(entries), Consistent: true}
	replayed, rerr := entity.ReplayInventory(key, entries)
	out.Replayed = replayed
	switch {
	case rerr != nil:
		out.Consistent, out.Detail = false, rerr.Error()
	case !sameBuckets(snap, replayed):
		out.Consistent = false
		out.Detail = fmt.Sprintf("actual %+v, replay %+v", snap, replayed)
	}
	if !out.Consistent {
		s.log.Error().Str("key", key.String()).Str("detail", out.Detail).Msg("conciliación de inventario inconsistente")
	}
	return out, nil
}

func sameBuckets(a, b entity.InventoryRecord) bool {
	return a.OnHand == b.OnHand && a.Available == b.Available && a.Reserved == b.Reserved &&
		a.Defective == b.Defective && a.Quarantine == b.Quarantine && a.InTransit == b.InTransit
}
