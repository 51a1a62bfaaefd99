package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// CreditRequest abono manual a la billetera (recarga).
type CreditRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	ReferenceID string          `json:"reference_id"`
}

// CheckBalanceRequest consulta informativa de suficiencia.
type CheckBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CheckBalanceResponse resultado de CheckBalance. No reserva saldo.
type CheckBalanceResponse struct {
	Sufficient     bool            `json:"sufficient"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Shortfall      decimal.Decimal `json:"shortfall"`
}

// WalletAccountResponse saldo actual de una marca.
type WalletAccountResponse struct {
	BrandID       string          `json:"brand_id"`
	Balance       decimal.Decimal `json:"balance"`
	TotalCredited decimal.Decimal `json:"total_credited"`
	TotalDebited  decimal.Decimal `json:"total_debited"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}

// WalletMutationResponse resultado de un abono o débito.
type WalletMutationResponse struct {
	TransactionID string          `json:"transaction_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Replayed      bool            `json:"replayed"`
}

// WalletTransactionDTO fila del historial.
type WalletTransactionDTO struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason,omitempty"`
	ReferenceID      string          `json:"reference_id,omitempty"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	CreatedAt        time.Time       `json:"created_at"`
}

// WalletReconciliationResponse saldo actual frente al replay del historial.
type WalletReconciliationResponse struct {
	BrandID         string          `json:"brand_id"`
	SnapshotBalance decimal.Decimal `json:"snapshot_balance"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
	Transactions    int             `json:"transactions"`
	Consistent      bool            `json:"consistent"`
	Detail          string          `json:"detail,omitempty"`
}

// NewWalletAccountResponse mapea la cuenta.
func NewWalletAccountResponse(a entity.WalletAccount) WalletAccountResponse {
	out := WalletAccountResponse{
		BrandID:       a.BrandID,
		Balance:       a.Balance,
		TotalCredited: a.TotalCredited,
		TotalDebited:  a.TotalDebited,
	}
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// NewWalletTransactionDTOs mapea el historial conservando el orden.
func NewWalletTransactionDTOs(txs []entity.WalletTransaction) []WalletTransactionDTO {
	out := make([]WalletTransactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, WalletTransactionDTO{
			ID:               t.ID,
			Type:             t.Type,
			Amount:           t.Amount,
			Reason:           t.Reason,
			ReferenceID:      t.ReferenceID,
			ResultingBalance: t.ResultingBalance,
			CreatedAt:        t.CreatedAt,
		})
	}
	return out
}
