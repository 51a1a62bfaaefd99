package repository

import (
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/ledger"
)

// InventoryStore puerto de persistencia del libro de inventario (clave: marca + repuesto).
type InventoryStore = ledger.Store[entity.PartKey, entity.InventoryRecord, entity.InventoryLedgerEntry]
