package wallet_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testBrand = "brand-acme"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFundedService(t *testing.T, amount string) *wallet.Service {
	t.Helper()
	svc := wallet.NewService(memory.NewWalletStore(), nil)
	if amount != "" {
		_, err := svc.Credit(context.Background(), wallet.CreditInput{BrandID: testBrand, Amount: d(amount), Reason: "recarga inicial"})
		require.NoError(t, err)
	}
	return svc
}

// ──────────────────────────────────────────────────────────────────────────────
// Abonos y consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestCredit_CreaCuentaYAcumulaSaldo(t *testing.T) {
	svc := newFundedService(t, "")
	ctx := context.Background()

	bal, err := svc.GetBalance(ctx, testBrand)
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "una marca sin cuenta tiene saldo 0")

	res, err := svc.Credit(ctx, wallet.CreditInput{BrandID: testBrand, Amount: d("250.50"), Reason: "recarga"})
	require.NoError(t, err)
	assert.True(t, d("250.50").Equal(res.NewBalance))
	assert.NotEmpty(t, res.TransactionID)

	acc, err := svc.GetAccount(ctx, testBrand)
	require.NoError(t, err)
	assert.True(t, d("250.50").Equal(acc.TotalCredited))
	assert.False(t, acc.CreatedAt.IsZero())
}

func TestCredit_MontoNoPositivoRechazado(t *testing.T) {
	svc := newFundedService(t, "100")
	for _, amount := range []string{"0", "-5"} {
		_, err := svc.Credit(context.Background(), wallet.CreditInput{BrandID: testBrand, Amount: d(amount)})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "monto %s", amount)
	}
}

func TestCredit_FraccionDeCentavoRechazada(t *testing.T) {
	svc := newFundedService(t, "100")
	ctx := context.Background()
	for _, amount := range []string{"0.004", "1.005"} {
		_, err := svc.Credit(ctx, wallet.CreditInput{BrandID: testBrand, Amount: d(amount)})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "monto %s", amount)
	}

	res, err := svc.Credit(ctx, wallet.CreditInput{BrandID: testBrand, Amount: d("1.500")})
	require.NoError(t, err, "ceros a la derecha no son fracción de centavo")
	assert.True(t, d("101.50").Equal(res.NewBalance))
}

func TestCredit_MotivoCompensacionReservado(t *testing.T) {
	svc := newFundedService(t, "")
	_, err := svc.Credit(context.Background(), wallet.CreditInput{BrandID: testBrand, Amount: d("10"), Reason: entity.ReasonCompensation})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCredit_ReferenciaRepetidaNoDuplica(t *testing.T) {
	svc := newFundedService(t, "")
	ctx := context.Background()
	in := wallet.CreditInput{BrandID: testBrand, Amount: d("100"), Reason: "recarga", ReferenceID: "pago-1"}

	first, err := svc.Credit(ctx, in)
	require.NoError(t, err)
	second, err := svc.Credit(ctx, in)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	bal, _ := svc.GetBalance(ctx, testBrand)
	assert.True(t, d("100").Equal(bal))
}

func TestCheckBalance_InformaFaltante(t *testing.T) {
	svc := newFundedService(t, "100")
	check, err := svc.CheckBalance(context.Background(), testBrand, d("130"))
	require.NoError(t, err)
	assert.False(t, check.Sufficient)
	assert.True(t, d("30").Equal(check.Shortfall))

	check, err = svc.CheckBalance(context.Background(), testBrand, d("100"))
	require.NoError(t, err)
	assert.True(t, check.Sufficient)
	assert.True(t, check.Shortfall.IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Débitos
// ──────────────────────────────────────────────────────────────────────────────

func TestDebitOrReject_SaldoInsuficienteNoEscribe(t *testing.T) {
	svc := newFundedService(t, "100")
	ctx := context.Background()

	_, err := svc.DebitOrReject(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("150"), ReferenceID: "ship-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	var insufficient *domain.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, d("50").Equal(insufficient.Shortfall))
	assert.True(t, d("100").Equal(insufficient.Balance))

	txs, err := svc.ListTransactions(ctx, testBrand)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "solo el abono inicial")
}

func TestDebitOrReject_RequiereReferencia(t *testing.T) {
	svc := newFundedService(t, "100")
	_, err := svc.DebitOrReject(context.Background(), wallet.DebitInput{BrandID: testBrand, Amount: d("10")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDebitOrReject_MismaReferenciaDebitaUnaSolaVez(t *testing.T) {
	svc := newFundedService(t, "500")
	ctx := context.Background()
	in := wallet.DebitInput{BrandID: testBrand, Amount: d("120"), Reason: "envío", ReferenceID: "ship-42"}

	first, err := svc.DebitOrReject(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.True(t, d("380").Equal(first.NewBalance))

	second, err := svc.DebitOrReject(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.True(t, d("380").Equal(second.NewBalance))

	txs, _ := svc.ListTransactions(ctx, testBrand)
	assert.Len(t, txs, 2)
}

func TestDebitOrReject_ConcurrentesNoSobregiran(t *testing.T) {
	svc := newFundedService(t, "500")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.DebitOrReject(ctx, wallet.DebitInput{
				BrandID: testBrand, Amount: d("400"), ReferenceID: fmt.Sprintf("ship-%d", i),
			})
		}(i)
	}
	wg.Wait()

	ok, rejected := 0, 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var insufficient *domain.InsufficientBalanceError
		require.True(t, errors.As(err, &insufficient))
		assert.True(t, d("300").Equal(insufficient.Shortfall))
		rejected++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	bal, _ := svc.GetBalance(ctx, testBrand)
	assert.True(t, d("100").Equal(bal))
}

func TestDebitOrReject_MuchosConcurrentesMantienenInvariante(t *testing.T) {
	svc := newFundedService(t, "1000")
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.DebitOrReject(ctx, wallet.DebitInput{
				BrandID: testBrand, Amount: d("30"), ReferenceID: fmt.Sprintf("ship-%d", i),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 33, succeeded, "1000 / 30 = 33 débitos caben")
	acc, err := svc.GetAccount(ctx, testBrand)
	require.NoError(t, err)
	require.NoError(t, acc.CheckInvariant())
	assert.True(t, d("10").Equal(acc.Balance))
	assert.True(t, acc.TotalCredited.Sub(acc.TotalDebited).Equal(acc.Balance))

	rec, err := svc.Reconcile(ctx, testBrand)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, rec.Detail)
	assert.Equal(t, 34, rec.TransactionsLen)
}

func TestDebit_MontoInvalido(t *testing.T) {
	svc := newFundedService(t, "100")
	_, err := svc.Debit(context.Background(), wallet.DebitInput{BrandID: testBrand, Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDebit_FraccionDeCentavoRechazada(t *testing.T) {
	svc := newFundedService(t, "100")
	ctx := context.Background()

	_, err := svc.Debit(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("0.004")})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = svc.DebitOrReject(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("1.005"), ReferenceID: "ship-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	bal, _ := svc.GetBalance(ctx, testBrand)
	assert.True(t, d("100").Equal(bal))
}

func TestDebit_ReferenciaRepetidaEsConflicto(t *testing.T) {
	svc := newFundedService(t, "100")
	ctx := context.Background()

	_, err := svc.Debit(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("10"), ReferenceID: "ajuste-1"})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("10"), ReferenceID: "ajuste-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// sin referencia no hay control de duplicados
	_, err = svc.Debit(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("10")})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("10")})
	require.NoError(t, err)

	bal, _ := svc.GetBalance(ctx, testBrand)
	assert.True(t, d("70").Equal(bal))
	txs, _ := svc.ListTransactions(ctx, testBrand)
	assert.Len(t, txs, 4)
}

// ──────────────────────────────────────────────────────────────────────────────
// Compensación y replay
// ──────────────────────────────────────────────────────────────────────────────

func TestCompensate_DevuelveMontoUnaSolaVez(t *testing.T) {
	svc := newFundedService(t, "500")
	ctx := context.Background()

	_, err := svc.DebitOrReject(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("150"), ReferenceID: "ship-7"})
	require.NoError(t, err)

	first, err := svc.Compensate(ctx, testBrand, "ship-7")
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.True(t, d("500").Equal(first.NewBalance))
	assert.Equal(t, entity.ReasonCompensation, first.Transaction.Reason)
	assert.True(t, d("150").Equal(first.Transaction.Amount))

	second, err := svc.Compensate(ctx, testBrand, "ship-7")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.True(t, d("500").Equal(second.NewBalance))

	txs, _ := svc.ListTransactions(ctx, testBrand)
	assert.Len(t, txs, 3)
}

func TestCompensate_SinDebitoEsConflicto(t *testing.T) {
	svc := newFundedService(t, "500")
	_, err := svc.Compensate(context.Background(), testBrand, "no-existe")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReplay_ReconstruyeSaldo(t *testing.T) {
	svc := newFundedService(t, "300")
	ctx := context.Background()

	_, err := svc.DebitOrReject(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("75.25"), ReferenceID: "a"})
	require.NoError(t, err)
	_, err = svc.DebitOrReject(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("20"), ReferenceID: "b"})
	require.NoError(t, err)
	_, err = svc.Compensate(ctx, testBrand, "b")
	require.NoError(t, err)
	_, err = svc.Credit(ctx, wallet.CreditInput{BrandID: testBrand, Amount: d("10"), Reason: "ajuste"})
	require.NoError(t, err)

	txs, err := svc.ListTransactions(ctx, testBrand)
	require.NoError(t, err)
	replayed, err := entity.ReplayWallet(testBrand, txs)
	require.NoError(t, err)

	acc, _ := svc.GetAccount(ctx, testBrand)
	assert.True(t, acc.Balance.Equal(replayed.Balance))
	assert.True(t, d("234.75").Equal(replayed.Balance))

	rec, err := svc.Reconcile(ctx, testBrand)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}
