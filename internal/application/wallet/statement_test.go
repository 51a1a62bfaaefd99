package wallet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/memory"
)

type captureGenerator struct {
	got wallet.Statement
}

func (g *captureGenerator) GenerateStatementPDF(_ context.Context, st wallet.Statement) ([]byte, error) {
	g.got = st
	return []byte("%PDF-fake"), nil
}

func seedStatement(t *testing.T) *wallet.Service {
	t.Helper()
	ctx := context.Background()
	svc := newFundedService(t, "500")
	_, err := svc.DebitOrReject(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("150"), Reason: "shipment", ReferenceID: "r1"})
	require.NoError(t, err)
	_, err = svc.Compensate(ctx, testBrand, "r1")
	require.NoError(t, err)
	_, err = svc.DebitOrReject(ctx, wallet.DebitInput{BrandID: testBrand, Amount: d("100"), Reason: "shipment", ReferenceID: "r2"})
	require.NoError(t, err)
	return svc
}

func TestBuildStatement_TotalesDelPeriodo(t *testing.T) {
	svc := seedStatement(t)

	st, err := svc.BuildStatement(context.Background(), testBrand, nil, nil)
	require.NoError(t, err)
	assert.Len(t, st.Transactions, 4)
	assert.True(t, st.OpeningBalance.IsZero())
	assert.True(t, d("650").Equal(st.TotalCredited))
	assert.True(t, d("250").Equal(st.TotalDebited))
	assert.True(t, d("400").Equal(st.ClosingBalance))
	assert.Equal(t, 1, st.Compensations)
	assert.True(t, st.Consistent)
}

func TestBuildStatement_DesdeFuturoSoloSaldoInicial(t *testing.T) {
	svc := seedStatement(t)
	from := time.Now().Add(time.Hour)

	st, err := svc.BuildStatement(context.Background(), testBrand, &from, nil)
	require.NoError(t, err)
	assert.Empty(t, st.Transactions)
	assert.True(t, d("400").Equal(st.OpeningBalance))
	assert.True(t, st.OpeningBalance.Equal(st.ClosingBalance))
}

func TestBuildStatement_RangoInvertido(t *testing.T) {
	svc := seedStatement(t)
	from, to := time.Now(), time.Now().Add(-time.Hour)

	_, err := svc.BuildStatement(context.Background(), testBrand, &from, &to)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDownloadStatementPDF(t *testing.T) {
	svc := seedStatement(t)
	gen := &captureGenerator{}
	brands := memory.NewBrandDirectory(entity.Brand{ID: testBrand, Name: "Acme Repuestos"})
	uc := wallet.NewStatementUseCase(svc, brands, gen)

	pdfBytes, filename, err := uc.DownloadStatementPDF(context.Background(), testBrand, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pdfBytes)
	assert.Contains(t, filename, testBrand)
	assert.Equal(t, "Acme Repuestos", gen.got.BrandName)

	_, _, err = uc.DownloadStatementPDF(context.Background(), "desconocida", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
