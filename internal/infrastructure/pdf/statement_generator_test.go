package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

func TestGenerateStatementPDF_GeneraDocumento(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := wallet.Statement{
		BrandID:        "b1",
		BrandName:      "Acme",
		OpeningBalance: decimal.Zero,
		TotalCredited:  decimal.NewFromInt(500),
		TotalDebited:   decimal.NewFromInt(150),
		ClosingBalance: decimal.NewFromInt(350),
		Transactions: []entity.WalletTransaction{
			{ID: "t1", Type: entity.WalletTxCredit, Amount: decimal.NewFromInt(500), Reason: "recarga", ResultingBalance: decimal.NewFromInt(500), CreatedAt: now},
			{ID: "t2", Type: entity.WalletTxDebit, Amount: decimal.NewFromInt(150), Reason: "shipment", ReferenceID: "r1", ResultingBalance: decimal.NewFromInt(350), CreatedAt: now},
		},
		Consistent:  true,
		GeneratedAt: now,
	}

	out, err := NewStatementGenerator().GenerateStatementPDF(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"999.5":      "999.50",
		"1234567.25": "1,234,567.25",
		"-1500":      "-1,500.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}
