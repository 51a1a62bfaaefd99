package repository

import (
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/ledger"
)

// WalletStore puerto de persistencia del libro de billetera (clave: brandID).
// Implementaciones: memoria (bloqueo por clave) y PostgreSQL (SELECT FOR UPDATE en tx).
type WalletStore = ledger.Store[string, entity.WalletAccount, entity.WalletTransaction]
