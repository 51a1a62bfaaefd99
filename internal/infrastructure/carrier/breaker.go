package carrier

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
)

var _ fulfillment.CarrierGateway = (*BreakerGateway)(nil)

// BreakerConfig umbrales del circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // solicitudes permitidas en half-open
	Interval         time.Duration // ventana para limpiar conteos (0 = nunca)
	Timeout          time.Duration // open → half-open
	FailureThreshold uint32        // fallos consecutivos para abrir
}

// BreakerGateway envuelve un CarrierGateway con gobreaker. Solo los errores transitorios
// cuentan como fallo: un rechazo de negocio no indica que el transportador esté caído.
// Con el circuito abierto se falla de inmediato con un error permanente, así el
// orquestador compensa sin agotar reintentos.
type BreakerGateway struct {
	inner fulfillment.CarrierGateway
	cb    *gobreaker.CircuitBreaker
	log   *logger.Logger
}

// NewBreakerGateway construye el wrapper.
func NewBreakerGateway(inner fulfillment.CarrierGateway, cfg BreakerConfig, log *logger.Logger) *BreakerGateway {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Name == "" {
		cfg.Name = "carrier"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	log = log.Component("carrier_breaker")
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("cambio de estado del circuit breaker")
		},
	}
	return &BreakerGateway{inner: inner, cb: gobreaker.NewCircuitBreaker(settings), log: log}
}

// permanentResult transporta un resultado o error que no debe abrir el circuito.
type permanentResult struct {
	res entity.CarrierBookingResult
	err error
}

// BookShipment implementa fulfillment.CarrierGateway.
func (b *BreakerGateway) BookShipment(ctx context.Context, req entity.CarrierBookingRequest) (entity.CarrierBookingResult, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		res, err := b.inner.BookShipment(ctx, req)
		if err != nil && isTransient(err) {
			return nil, err
		}
		return permanentResult{res: res, err: err}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.log.Warn().Str("reference_id", req.ReferenceID).Err(err).Msg("transportador no disponible")
			return entity.CarrierBookingResult{}, domain.NewCarrierError("CIRCUIT_OPEN", "transportador no disponible", false, err)
		}
		return entity.CarrierBookingResult{}, err
	}
	pr := v.(permanentResult)
	return pr.res, pr.err
}

// State estado actual del circuito.
func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}
