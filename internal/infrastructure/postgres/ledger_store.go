package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/ledger"
)

// ledgerTable acceso SQL a un libro concreto (tabla de estado + tabla de historial).
type ledgerTable[K comparable, S any, E ledger.Entry] interface {
	initial(key K) S
	// ensure inserta la fila de estado en cero si no existe, para poder bloquearla.
	ensure(ctx context.Context, q Querier, key K) error
	get(ctx context.Context, q Querier, key K, forUpdate bool) (S, bool, error)
	save(ctx context.Context, q Querier, state S) error
	insert(ctx context.Context, q Querier, entry E) error
	byReference(ctx context.Context, q Querier, key K, reference string) ([]E, error)
	list(ctx context.Context, q Querier, key K) ([]E, error)
}

// LedgerStore libro genérico sobre PostgreSQL. Apply abre una transacción, bloquea la fila
// de estado con SELECT FOR UPDATE, ejecuta la mutación y escribe estado e historial en la
// misma transacción. Las mutaciones de la misma clave se serializan en la BD.
type LedgerStore[K comparable, S any, E ledger.Entry] struct {
	pool  Querier
	tx    *TxRunner
	table ledgerTable[K, S, E]
}

// Query lee el estado actual sin bloquear.
func (s *LedgerStore[K, S, E]) Query(ctx context.Context, key K) (S, bool, error) {
	st, ok, err := s.table.get(ctx, s.pool, key, false)
	if err != nil {
		var zero S
		return zero, false, err
	}
	if !ok {
		return s.table.initial(key), false, nil
	}
	return st, true, nil
}

// Apply ejecuta la mutación dentro de una transacción con la fila de estado bloqueada.
func (s *LedgerStore[K, S, E]) Apply(ctx context.Context, key K, mut ledger.Mutation[S, E]) (S, *E, error) {
	var (
		next    S
		written *E
	)
	err := s.tx.Run(ctx, func(q Querier) error {
		if err := s.table.ensure(ctx, q, key); err != nil {
			return err
		}
		current, ok, err := s.table.get(ctx, q, key, true)
		if err != nil {
			return err
		}
		if !ok {
			return errNotLocked
		}
		n, entry, err := mut(ctx, current, txHistory[K, S, E]{q: q, key: key, table: s.table})
		if err != nil {
			return err
		}
		if entry == nil {
			// no-op: se descarta también la fila creada por ensure
			next = current
			return errRollback
		}
		if err := s.table.save(ctx, q, n); err != nil {
			return err
		}
		if err := s.table.insert(ctx, q, *entry); err != nil {
			return err
		}
		next, written = n, entry
		return nil
	})
	if err != nil {
		var zero S
		if isCheckViolation(err) {
			return zero, nil, &domain.InvariantViolationError{Key: fmt.Sprint(key), Detail: err.Error()}
		}
		if isUniqueViolation(err) {
			return zero, nil, fmt.Errorf("%w: referencia ya registrada para %v", domain.ErrConflict, key)
		}
		return zero, nil, err
	}
	if written == nil {
		return next, nil, nil
	}
	e := *written
	return next, &e, nil
}

// Replay historial completo en orden de inserción.
func (s *LedgerStore[K, S, E]) Replay(ctx context.Context, key K) ([]E, error) {
	return s.table.list(ctx, s.pool, key)
}

type txHistory[K comparable, S any, E ledger.Entry] struct {
	q     Querier
	key   K
	table ledgerTable[K, S, E]
}

func (h txHistory[K, S, E]) ByReference(ctx context.Context, reference string) ([]E, error) {
	if reference == "" {
		return nil, nil
	}
	return h.table.byReference(ctx, h.q, h.key, reference)
}

// errNotLocked ensure no dejó fila que bloquear; no debería ocurrir.
var errNotLocked = errors.New("postgres: fila de estado no encontrada tras ensure")
