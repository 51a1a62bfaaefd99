package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

// StatementGenerator puerto de salida: genera el extracto en PDF.
type StatementGenerator interface {
	GenerateStatementPDF(ctx context.Context, st Statement) ([]byte, error)
}

// Statement extracto de billetera de una marca en un rango de fechas.
type Statement struct {
	BrandID        string
	BrandName      string
	From           *time.Time
	To             *time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	TotalCredited  decimal.Decimal
	TotalDebited   decimal.Decimal
	Compensations  int
	Transactions   []entity.WalletTransaction
	Consistent     bool // la conciliación contra el replay cuadró al generar
	GeneratedAt    time.Time
}

// BuildStatement arma el extracto a partir del historial. El saldo de apertura es el saldo
// resultante de la última transacción anterior a from.
func (s *Service) BuildStatement(ctx context.Context, brandID string, from, to *time.Time) (Statement, error) {
	if from != nil && to != nil && to.Before(*from) {
		return Statement{}, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	rec, err := s.Reconcile(ctx, brandID)
	if err != nil {
		return Statement{}, err
	}
	txs, err := s.ListTransactions(ctx, brandID)
	if err != nil {
		return Statement{}, err
	}

	st := Statement{
		BrandID:        brandID,
		From:           from,
		To:             to,
		OpeningBalance: decimal.Zero,
		TotalCredited:  decimal.Zero,
		TotalDebited:   decimal.Zero,
		Consistent:     rec.Consistent,
		GeneratedAt:    s.now().UTC(),
	}
	for _, tx := range txs {
		if from != nil && tx.CreatedAt.Before(*from) {
			st.OpeningBalance = tx.ResultingBalance
			continue
		}
		if to != nil && tx.CreatedAt.After(*to) {
			break
		}
		st.Transactions = append(st.Transactions, tx)
		switch tx.Type {
		case entity.WalletTxCredit:
			st.TotalCredited = st.TotalCredited.Add(tx.Amount)
			if tx.IsCompensation() {
				st.Compensations++
			}
		case entity.WalletTxDebit:
			st.TotalDebited = st.TotalDebited.Add(tx.Amount)
		}
	}
	st.ClosingBalance = st.OpeningBalance.Add(st.TotalCredited).Sub(st.TotalDebited)
	return st, nil
}

// StatementUseCase genera el extracto en PDF de una marca.
type StatementUseCase struct {
	wallet    *Service
	brands    repository.BrandDirectory
	generator StatementGenerator
}

// NewStatementUseCase construye el caso de uso.
func NewStatementUseCase(wallet *Service, brands repository.BrandDirectory, generator StatementGenerator) *StatementUseCase {
	return &StatementUseCase{wallet: wallet, brands: brands, generator: generator}
}

// DownloadStatementPDF devuelve los bytes del PDF y el nombre de archivo sugerido.
//
// Retorna:
//   - domain.ErrNotFound     si la marca no existe en el directorio.
//   - domain.ErrInvalidInput si el rango de fechas es inválido.
func (uc *StatementUseCase) DownloadStatementPDF(ctx context.Context, brandID string, from, to *time.Time) ([]byte, string, error) {
	brand, err := uc.brands.GetBrand(ctx, brandID)
	if err != nil {
		return nil, "", fmt.Errorf("extracto: obtener marca: %w", err)
	}
	if brand == nil {
		return nil, "", domain.ErrNotFound
	}
	st, err := uc.wallet.BuildStatement(ctx, brandID, from, to)
	if err != nil {
		return nil, "", err
	}
	st.BrandName = brand.Name

	pdfBytes, err := uc.generator.GenerateStatementPDF(ctx, st)
	if err != nil {
		return nil, "", fmt.Errorf("extracto: generar PDF: %w", err)
	}
	filename := fmt.Sprintf("extracto-%s-%s.pdf", brandID, st.GeneratedAt.Format("20060102"))
	return pdfBytes, filename, nil
}
