package fulfillment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
)

// CarrierGateway reserva opaca con el transportador. Un error de tipo *domain.CarrierError
// indica si se puede reintentar; un resultado con Success=false es un rechazo permanente.
type CarrierGateway interface {
	BookShipment(ctx context.Context, req entity.CarrierBookingRequest) (entity.CarrierBookingResult, error)
}

// PricingResolver cotiza un envío para la marca pagadora.
type PricingResolver interface {
	Resolve(ctx context.Context, params entity.ShipmentParams) (entity.ShipmentCostEstimate, error)
}

// WalletGateway subconjunto de la billetera que usa el orquestador.
type WalletGateway interface {
	DebitOrReject(ctx context.Context, in wallet.DebitInput) (wallet.Result, error)
	Compensate(ctx context.Context, brandID, referenceID string) (wallet.Result, error)
}

// Metrics métricas del flujo de despacho. Implementaciones deben tolerar llamadas concurrentes.
type Metrics interface {
	ObserveOutcome(brandID, state string)
	ObserveCarrierAttempt(result string)
	AddSettlement(brandID string, amount decimal.Decimal)
	ObserveBatch(size int, duration time.Duration)
}

// NopMetrics descarta todo.
type NopMetrics struct{}

func (NopMetrics) ObserveOutcome(string, string) {}
func (NopMetrics) ObserveCarrierAttempt(string) {}
func (NopMetrics) AddSettlement(string, decimal.Decimal) {}
func (NopMetrics) ObserveBatch(int, time.Duration) {}
