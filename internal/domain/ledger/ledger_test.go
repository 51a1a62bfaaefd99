package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/ledger"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/memory"
)

type walletLedger = ledger.Ledger[string, entity.WalletAccount, entity.WalletTransaction]

func newWalletLedger() *walletLedger {
	return ledger.New[string, entity.WalletAccount, entity.WalletTransaction](
		memory.NewWalletStore(), entity.WalletAccount.CheckInvariant, zerolog.Nop())
}

// setBalance mutación que fuerza un saldo sin mantener los totales (rompe la invariante
// cuando total abonado - debitado no coincide).
func setBalance(balance, credited string) ledger.Mutation[entity.WalletAccount, entity.WalletTransaction] {
	return func(_ context.Context, cur entity.WalletAccount, _ ledger.History[entity.WalletTransaction]) (entity.WalletAccount, *entity.WalletTransaction, error) {
		next := cur
		next.Balance = decimal.RequireFromString(balance)
		next.TotalCredited = decimal.RequireFromString(credited)
		return next, &entity.WalletTransaction{
			ID: "tx", BrandID: cur.BrandID, Type: entity.WalletTxCredit,
			Amount: next.Balance, ResultingBalance: next.Balance, ReferenceID: "ref",
		}, nil
	}
}

func TestApply_EscribeEstadoYFilaJuntos(t *testing.T) {
	l := newWalletLedger()
	ctx := context.Background()

	next, entry, err := l.Apply(ctx, "b1", setBalance("50", "50"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, decimal.NewFromInt(50).Equal(next.Balance))

	st, found, err := l.Query(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, decimal.NewFromInt(50).Equal(st.Balance))

	entries, err := l.Replay(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApply_InvarianteVioladaNoEscribe(t *testing.T) {
	l := newWalletLedger()
	ctx := context.Background()

	_, entry, err := l.Apply(ctx, "b1", setBalance("50", "10"))
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	var inv *domain.InvariantViolationError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "b1", inv.Key)

	_, found, _ := l.Query(ctx, "b1")
	assert.False(t, found)
	entries, _ := l.Replay(ctx, "b1")
	assert.Empty(t, entries)
}

func TestApply_ErrorDeMutacionNoEscribe(t *testing.T) {
	l := newWalletLedger()
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := l.Apply(ctx, "b1", func(_ context.Context, cur entity.WalletAccount, _ ledger.History[entity.WalletTransaction]) (entity.WalletAccount, *entity.WalletTransaction, error) {
		return cur, nil, boom
	})
	assert.ErrorIs(t, err, boom)
	entries, _ := l.Replay(ctx, "b1")
	assert.Empty(t, entries)
}

func TestApply_HistorialPorReferencia(t *testing.T) {
	l := newWalletLedger()
	ctx := context.Background()
	_, _, err := l.Apply(ctx, "b1", setBalance("50", "50"))
	require.NoError(t, err)

	var seen int
	_, entry, err := l.Apply(ctx, "b1", func(ctx context.Context, cur entity.WalletAccount, h ledger.History[entity.WalletTransaction]) (entity.WalletAccount, *entity.WalletTransaction, error) {
		prior, err := h.ByReference(ctx, "ref")
		seen = len(prior)
		return cur, nil, err
	})
	require.NoError(t, err)
	assert.Nil(t, entry, "mutación no-op")
	assert.Equal(t, 1, seen)

	entries, _ := l.Replay(ctx, "b1")
	assert.Len(t, entries, 1)
}

func TestApply_ClavesIndependientes(t *testing.T) {
	l := newWalletLedger()
	ctx := context.Background()
	_, _, err := l.Apply(ctx, "b1", setBalance("50", "50"))
	require.NoError(t, err)

	st, found, err := l.Query(ctx, "b2")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "b2", st.BrandID)
	assert.True(t, st.Balance.IsZero())
}
