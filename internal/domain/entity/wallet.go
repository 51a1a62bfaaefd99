package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transacción de billetera.
const (
	WalletTxCredit = "CREDIT" // abono
	WalletTxDebit  = "DEBIT"  // cargo
)

// ReasonCompensation motivo del abono que revierte un débito cuando falla el transportador.
const ReasonCompensation = "compensation"

// WalletAccount saldo prepagado de una marca (una por marca, se crea con el primer abono).
// Invariante: Balance == TotalCredited - TotalDebited y Balance >= 0.
type WalletAccount struct {
	BrandID       string
	Balance       decimal.Decimal
	TotalCredited decimal.Decimal
	TotalDebited  decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewWalletAccount cuenta vacía para una marca.
func NewWalletAccount(brandID string) WalletAccount {
	return WalletAccount{
		BrandID:       brandID,
		Balance:       decimal.Zero,
		TotalCredited: decimal.Zero,
		TotalDebited:  decimal.Zero,
	}
}

// CheckInvariant valida no-negatividad y la identidad de totales.
func (a WalletAccount) CheckInvariant() error {
	if a.Balance.IsNegative() {
		return fmt.Errorf("saldo negativo %s", a.Balance.String())
	}
	if a.TotalCredited.IsNegative() || a.TotalDebited.IsNegative() {
		return fmt.Errorf("totales negativos")
	}
	if !a.Balance.Equal(a.TotalCredited.Sub(a.TotalDebited)) {
		return fmt.Errorf("saldo %s != abonado %s - debitado %s",
			a.Balance.String(), a.TotalCredited.String(), a.TotalDebited.String())
	}
	return nil
}

// WalletTransaction fila inmutable del libro de billetera.
type WalletTransaction struct {
	ID               string
	BrandID          string
	Type             string
	Amount           decimal.Decimal // siempre > 0
	Reason           string
	ReferenceID      string
	ResultingBalance decimal.Decimal
	CreatedAt        time.Time
}

// EntryReference implementa ledger.Entry.
func (t WalletTransaction) EntryReference() string { return t.ReferenceID }

// IsCompensation indica si el abono revierte un débito previo.
func (t WalletTransaction) IsCompensation() bool {
	return t.Type == WalletTxCredit && t.Reason == ReasonCompensation
}

// signedAmount monto con signo según el tipo.
func (t WalletTransaction) signedAmount() decimal.Decimal {
	if t.Type == WalletTxDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ReplayWallet reconstruye la cuenta a partir del libro en orden de inserción.
// Falla si algún ResultingBalance no es consistente con el anterior más/menos el monto.
func ReplayWallet(brandID string, txs []WalletTransaction) (WalletAccount, error) {
	acc := NewWalletAccount(brandID)
	for i, tx := range txs {
		if !tx.Amount.IsPositive() {
			return acc, fmt.Errorf("fila %d (%s): monto no positivo", i, tx.ID)
		}
		switch tx.Type {
		case WalletTxCredit:
			acc.TotalCredited = acc.TotalCredited.Add(tx.Amount)
		case WalletTxDebit:
			acc.TotalDebited = acc.TotalDebited.Add(tx.Amount)
		default:
			return acc, fmt.Errorf("fila %d (%s): tipo %q desconocido", i, tx.ID, tx.Type)
		}
		acc.Balance = acc.Balance.Add(tx.signedAmount())
		if !acc.Balance.Equal(tx.ResultingBalance) {
			return acc, fmt.Errorf("fila %d (%s): saldo resultante %s, esperado %s",
				i, tx.ID, tx.ResultingBalance.String(), acc.Balance.String())
		}
		if acc.Balance.IsNegative() {
			return acc, fmt.Errorf("fila %d (%s): saldo negativo", i, tx.ID)
		}
		acc.UpdatedAt = tx.CreatedAt
		if i == 0 {
			acc.CreatedAt = tx.CreatedAt
		}
	}
	return acc, nil
}
