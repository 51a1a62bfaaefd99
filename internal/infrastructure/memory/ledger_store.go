// Package memory implementa los puertos de persistencia en memoria. Se usa en modo
// desarrollo (STORE_DRIVER=memory) y en las pruebas de concurrencia.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/ledger"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

var (
	_ repository.WalletStore    = (*LedgerStore[string, entity.WalletAccount, entity.WalletTransaction])(nil)
	_ repository.InventoryStore = (*LedgerStore[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry])(nil)
)

// LedgerStore libro genérico en memoria. Apply toma un mutex por clave, así que las
// mutaciones de la misma clave se serializan y las de claves distintas corren en paralelo.
// Estado y fila se publican juntos bajo mu: un lector nunca ve uno sin el otro.
type LedgerStore[K comparable, S any, E ledger.Entry] struct {
	mu      sync.RWMutex
	keyMu   map[K]*sync.Mutex
	states  map[K]S
	entries map[K][]E
	initial func(K) S
}

// NewLedgerStore construye el store. initial devuelve el estado vacío para una clave nueva.
func NewLedgerStore[K comparable, S any, E ledger.Entry](initial func(K) S) *LedgerStore[K, S, E] {
	return &LedgerStore[K, S, E]{
		keyMu:   make(map[K]*sync.Mutex),
		states:  make(map[K]S),
		entries: make(map[K][]E),
		initial: initial,
	}
}

// NewWalletStore store de billetera en memoria.
func NewWalletStore() *LedgerStore[string, entity.WalletAccount, entity.WalletTransaction] {
	return NewLedgerStore[string, entity.WalletAccount, entity.WalletTransaction](entity.NewWalletAccount)
}

// NewInventoryStore store de inventario en memoria.
func NewInventoryStore() *LedgerStore[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry] {
	return NewLedgerStore[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry](entity.NewInventoryRecord)
}

func (s *LedgerStore[K, S, E]) lockFor(key K) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.keyMu[key]
	if !ok {
		m = &sync.Mutex{}
		s.keyMu[key] = m
	}
	return m
}

// Query devuelve el estado actual; si la clave no existe, el estado inicial y false.
func (s *LedgerStore[K, S, E]) Query(_ context.Context, key K) (S, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	if !ok {
		return s.initial(key), false, nil
	}
	return st, true, nil
}

// Apply ejecuta la mutación con el mutex de la clave tomado.
func (s *LedgerStore[K, S, E]) Apply(ctx context.Context, key K, mut ledger.Mutation[S, E]) (S, *E, error) {
	km := s.lockFor(key)
	km.Lock()
	defer km.Unlock()

	current, _, _ := s.Query(ctx, key)
	next, entry, err := mut(ctx, current, history[E]{lookup: func(ref string) []E { return s.byReference(key, ref) }})
	if err != nil {
		var zero S
		return zero, nil, err
	}
	if entry == nil {
		return current, nil, nil
	}

	s.mu.Lock()
	s.states[key] = next
	s.entries[key] = append(s.entries[key], *entry)
	s.mu.Unlock()

	e := *entry
	return next, &e, nil
}

// Replay devuelve una copia del historial en orden de inserción.
func (s *LedgerStore[K, S, E]) Replay(_ context.Context, key K) ([]E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]E, len(s.entries[key]))
	copy(out, s.entries[key])
	return out, nil
}

type history[E ledger.Entry] struct {
	lookup func(ref string) []E
}

func (h history[E]) ByReference(_ context.Context, reference string) ([]E, error) {
	return h.lookup(reference), nil
}

func (s *LedgerStore[K, S, E]) byReference(key K, ref string) []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []E
	for _, e := range s.entries[key] {
		if e.EntryReference() == ref {
			out = append(out, e)
		}
	}
	return out
}
