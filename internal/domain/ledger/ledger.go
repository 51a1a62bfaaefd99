// Package ledger define el patrón de libro: un estado actual (saldo o buckets) más un
// historial inmutable cuyo replay reconstruye ese estado. La billetera y el inventario
// son especializaciones de este mismo patrón.
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
)

// Entry fila inmutable del historial.
type Entry interface {
	EntryReference() string
}

// History lectura del historial de una clave dentro de la sección serializada.
type History[E Entry] interface {
	ByReference(ctx context.Context, reference string) ([]E, error)
}

// Mutation calcula el siguiente estado y la fila a anexar a partir del estado actual.
// Si entry es nil no se escribe nada (no-op, p. ej. replay idempotente).
type Mutation[S any, E Entry] func(ctx context.Context, current S, history History[E]) (next S, entry *E, err error)

// Store puerto de persistencia del libro. Apply debe:
//   - serializar las llamadas para la misma clave (bloqueo por clave o SELECT FOR UPDATE),
//   - escribir estado y fila como una sola unidad atómica (ambos o ninguno).
type Store[K comparable, S any, E Entry] interface {
	Query(ctx context.Context, key K) (S, bool, error)
	Apply(ctx context.Context, key K, mut Mutation[S, E]) (S, *E, error)
	Replay(ctx context.Context, key K) ([]E, error)
}

// Ledger envuelve un Store y valida la invariante del estado antes de confirmar.
type Ledger[K comparable, S any, E Entry] struct {
	store     Store[K, S, E]
	invariant func(S) error
	log       zerolog.Logger
}

// New construye el libro. invariant se evalúa sobre el estado siguiente de cada mutación.
func New[K comparable, S any, E Entry](store Store[K, S, E], invariant func(S) error, log zerolog.Logger) *Ledger[K, S, E] {
	return &Ledger[K, S, E]{store: store, invariant: invariant, log: log}
}

// Query lee el estado actual (nunca el historial).
func (l *Ledger[K, S, E]) Query(ctx context.Context, key K) (S, bool, error) {
	return l.store.Query(ctx, key)
}

// Apply ejecuta la mutación de forma serializada por clave. Si el estado resultante viola
// la invariante no se escribe nada y se devuelve *domain.InvariantViolationError.
func (l *Ledger[K, S, E]) Apply(ctx context.Context, key K, mut Mutation[S, E]) (S, *E, error) {
	guarded := func(ctx context.Context, current S, history History[E]) (S, *E, error) {
		next, entry, err := mut(ctx, current, history)
		if err != nil || entry == nil {
			return next, entry, err
		}
		if l.invariant != nil {
			if verr := l.invariant(next); verr != nil {
				l.log.Error().
					Str("key", fmt.Sprint(key)).
					Err(verr).
					Msg("ledger: mutación rechazada por invariante")
				var zero S
				return zero, nil, &domain.InvariantViolationError{Key: fmt.Sprint(key), Detail: verr.Error()}
			}
		}
		return next, entry, nil
	}
	return l.store.Apply(ctx, key, guarded)
}

// Replay devuelve el historial completo de la clave en orden de inserción.
func (l *Ledger[K, S, E]) Replay(ctx context.Context, key K) ([]E, error) {
	return l.store.Replay(ctx, key)
}
