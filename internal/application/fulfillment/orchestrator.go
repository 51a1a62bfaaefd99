// Package fulfillment orquesta cada solicitud de envío: cotizar, admitir contra la billetera,
// reservar con el transportador y liquidar o compensar.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
	"github.com/jhoicas/fulfillment-ledger/pkg/retry"
)

// Resultados de un intento con el transportador (etiqueta de métricas).
const (
	attemptOK        = "ok"
	attemptTransient = "transient"
	attemptPermanent = "permanent"
)

// DebitReason motivo de los débitos generados por el orquestador.
const DebitReason = "shipment"

// Config límites del llamado al transportador.
type Config struct {
	CarrierTimeout    time.Duration // por intento
	MaxCarrierRetries int           // reintentos adicionales al primer intento
	RetryBackoff      time.Duration
}

// Orchestrator máquina de estados por solicitud:
// PRICED → ADMITTED → BOOKED → SETTLED, PRICED → REJECTED, ADMITTED → COMPENSATED.
type Orchestrator struct {
	pricing   PricingResolver
	wallet    WalletGateway
	carrier   CarrierGateway
	shipments repository.ShipmentRepository
	metrics   Metrics
	cfg       Config
	log       *logger.Logger
}

// NewOrchestrator construye el orquestador. metrics nil = NopMetrics.
func NewOrchestrator(
	pricing PricingResolver,
	wallet WalletGateway,
	carrier CarrierGateway,
	shipments repository.ShipmentRepository,
	metrics Metrics,
	cfg Config,
	log *logger.Logger,
) *Orchestrator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.CarrierTimeout <= 0 {
		cfg.CarrierTimeout = 10 * time.Second
	}
	if cfg.MaxCarrierRetries < 0 {
		cfg.MaxCarrierRetries = 0
	}
	return &Orchestrator{
		pricing:   pricing,
		wallet:    wallet,
		carrier:   carrier,
		shipments: shipments,
		metrics:   metrics,
		cfg:       cfg,
		log:       log.Component("fulfillment"),
	}
}

// Fulfill procesa una solicitud. Los errores de negocio (cotización, saldo, transportador)
// se devuelven dentro del outcome; el error solo es no-nil ante una violación de invariante
// del libro, que debe detener el procesamiento.
//
// Una vez iniciada la solicitud no se cancela: se ignora la cancelación de ctx para no
// dejar un débito sin reserva confirmada ni compensación.
func (o *Orchestrator) Fulfill(ctx context.Context, req entity.ShipmentRequest) (entity.FulfillmentOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	if req.ReferenceID == "" {
		req.ReferenceID = uuid.New().String()
	}
	if req.RequestID == "" {
		req.RequestID = req.ReferenceID
	}
	brandID := entity.ChargeableBrand(req.Requester)
	out := entity.FulfillmentOutcome{RequestID: req.RequestID, ReferenceID: req.ReferenceID, BrandID: brandID}
	log := o.log.With().
		Str("request_id", req.RequestID).
		Str("reference_id", req.ReferenceID).
		Str("brand_id", brandID).
		Logger()

	if brandID == "" {
		return o.finish(out, entity.StateFailed, "solicitante sin marca pagadora"), nil
	}

	// reintento del cliente o referencia repetida en el lote
	if dup, ok := o.previous(ctx, req); ok {
		log.Info().Str("state", dup.State).Msg("solicitud duplicada, se devuelve el resultado previo")
		return dup, nil
	}

	// PRICED
	est, err := o.pricing.Resolve(ctx, req.Params())
	if err != nil {
		log.Warn().Err(err).Msg("cotización fallida")
		return o.finish(out, entity.StateFailed, err.Error()), nil
	}
	out.CostEstimate = &est

	// ADMITTED / REJECTED
	debit, err := o.wallet.DebitOrReject(ctx, wallet.DebitInput{
		BrandID:     brandID,
		Amount:      est.FinalTotal,
		Reason:      DebitReason,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		var insufficient *domain.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			shortfall := insufficient.Shortfall
			out.InsufficientBalance = true
			out.Shortfall = &shortfall
			return o.finish(out, entity.StateRejected, err.Error()), nil
		case errors.Is(err, domain.ErrInvariantViolation):
			log.Error().Err(err).Msg("débito abortado por violación de invariante")
			return o.finish(out, entity.StateAborted, "error interno del libro"), err
		default:
			log.Error().Err(err).Msg("débito fallido")
			return o.finish(out, entity.StateFailed, err.Error()), nil
		}
	}
	if debit.Replayed {
		// otra ejecución con la misma referencia ya debitó y aún no registró su resultado
		if dup, ok := o.previous(ctx, req); ok {
			return dup, nil
		}
		out.Duplicate = true
		out.State = entity.StateAdmitted
		out.Error = domain.ErrDuplicateRequest.Error()
		return out, nil
	}
	o.record(ctx, req, brandID, entity.StateAdmitted, est, "", "", "")

	// BOOKED
	booking, err := o.book(ctx, req, brandID)
	if err != nil {
		return o.compensate(ctx, out, req, brandID, est, err)
	}

	// SETTLED
	out.Success = true
	out.WalletDeducted = true
	out.AWBNumber = booking.AWBNumber
	out.TrackingURL = booking.TrackingURL
	o.record(ctx, req, brandID, entity.StateSettled, est, booking.AWBNumber, booking.TrackingURL, "")
	o.metrics.AddSettlement(brandID, est.FinalTotal)
	log.Info().
		Str("awb", booking.AWBNumber).
		Str("amount", est.FinalTotal.StringFixed(2)).
		Msg("envío liquidado")
	return o.finish(out, entity.StateSettled, ""), nil
}

// book llama al transportador con timeout por intento; solo reintenta errores transitorios,
// siempre con la misma referencia.
func (o *Orchestrator) book(ctx context.Context, req entity.ShipmentRequest, brandID string) (entity.CarrierBookingResult, error) {
	booking := entity.CarrierBookingRequest{
		ReferenceID:   req.ReferenceID,
		BrandID:       brandID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		Weight:        req.Weight,
		NumBoxes:      req.NumBoxes,
		Priority:      req.Priority,
		DeclaredValue: req.DeclaredValue,
	}
	return retry.Do(ctx, retry.Config{
		MaxAttempts:   o.cfg.MaxCarrierRetries + 1,
		InitialDelay:  o.cfg.RetryBackoff,
		BackoffFactor: 2,
		Retryable:     IsTransientCarrierError,
		OnRetry: func(attempt int, err error) {
			o.log.Warn().
				Str("reference_id", req.ReferenceID).
				Int("attempt", attempt).
				Err(err).
				Msg("reintentando reserva con transportador")
		},
	}, func(ctx context.Context, _ int) (entity.CarrierBookingResult, error) {
		actx, cancel := context.WithTimeout(ctx, o.cfg.CarrierTimeout)
		defer cancel()
		res, err := o.carrier.BookShipment(actx, booking)
		switch {
		case err != nil:
			if actx.Err() != nil && !errors.Is(err, domain.ErrCarrierTransient) {
				err = domain.NewCarrierError("TIMEOUT", "tiempo de espera agotado", true, err)
			}
		case !res.Success:
			err = domain.NewCarrierError("REJECTED", res.Error, false, nil)
		case res.AWBNumber == "":
			err = domain.NewCarrierError("NO_AWB", "respuesta sin número de guía", false, nil)
		}
		if err != nil {
			if IsTransientCarrierError(err) {
				o.metrics.ObserveCarrierAttempt(attemptTransient)
			} else {
				o.metrics.ObserveCarrierAttempt(attemptPermanent)
			}
			return entity.CarrierBookingResult{}, err
		}
		o.metrics.ObserveCarrierAttempt(attemptOK)
		return res, nil
	})
}

// compensate devuelve el débito con la misma referencia y deja el outcome en COMPENSATED.
func (o *Orchestrator) compensate(ctx context.Context, out entity.FulfillmentOutcome, req entity.ShipmentRequest, brandID string, est entity.ShipmentCostEstimate, carrierErr error) (entity.FulfillmentOutcome, error) {
	if _, err := o.wallet.Compensate(ctx, brandID, req.ReferenceID); err != nil {
		o.log.Error().
			Str("reference_id", req.ReferenceID).
			Str("brand_id", brandID).
			AnErr("carrier_error", carrierErr).
			Err(err).
			Msg("compensación fallida: débito sin reserva")
		if errors.Is(err, domain.ErrInvariantViolation) {
			return o.finish(out, entity.StateAborted, "error interno del libro"), err
		}
		out.WalletDeducted = true
		msg := fmt.Sprintf("%v; compensación pendiente: %v", carrierErr, err)
		o.record(ctx, req, brandID, entity.StateFailed, est, "", "", msg)
		return o.finish(out, entity.StateFailed, msg), nil
	}
	o.record(ctx, req, brandID, entity.StateCompensated, est, "", "", carrierErr.Error())
	o.log.Warn().
		Str("reference_id", req.ReferenceID).
		Str("brand_id", brandID).
		Str("amount", est.FinalTotal.StringFixed(2)).
		Err(carrierErr).
		Msg("reserva fallida, débito compensado")
	return o.finish(out, entity.StateCompensated, carrierErr.Error()), nil
}

// previous busca un resultado ya registrado para la referencia.
func (o *Orchestrator) previous(ctx context.Context, req entity.ShipmentRequest) (entity.FulfillmentOutcome, bool) {
	if o.shipments == nil {
		return entity.FulfillmentOutcome{}, false
	}
	rec, err := o.shipments.GetByReference(ctx, req.ReferenceID)
	if err != nil {
		// sin registro legible la idempotencia recae en DebitOrReject
		o.log.Warn().Str("reference_id", req.ReferenceID).Err(err).Msg("no se pudo leer el registro de envío")
		return entity.FulfillmentOutcome{}, false
	}
	if rec == nil {
		return entity.FulfillmentOutcome{}, false
	}
	out := rec.Outcome()
	out.RequestID = req.RequestID
	out.Duplicate = true
	if rec.State == entity.StateAdmitted {
		out.Error = domain.ErrDuplicateRequest.Error()
	}
	o.metrics.ObserveOutcome(rec.BrandID, "DUPLICATE")
	return out, true
}

// record persiste el estado; un fallo aquí no cambia el resultado del envío.
func (o *Orchestrator) record(ctx context.Context, req entity.ShipmentRequest, brandID, state string, est entity.ShipmentCostEstimate, awb, tracking, errMsg string) {
	if o.shipments == nil {
		return
	}
	rec := &entity.ShipmentRecord{
		ReferenceID: req.ReferenceID,
		RequestID:   req.RequestID,
		BrandID:     brandID,
		State:       state,
		AWBNumber:   awb,
		TrackingURL: tracking,
		Amount:      est.FinalTotal,
		Error:       errMsg,
		CreatedBy:   req.CreatedBy,
	}
	if err := o.shipments.Save(ctx, rec); err != nil {
		o.log.Error().Str("reference_id", req.ReferenceID).Str("state", state).Err(err).Msg("no se pudo registrar el envío")
	}
}

func (o *Orchestrator) finish(out entity.FulfillmentOutcome, state, errMsg string) entity.FulfillmentOutcome {
	out.State = state
	if !out.Success && errMsg != "" {
		out.Error = errMsg
	}
	o.metrics.ObserveOutcome(out.BrandID, state)
	return out
}

// IsTransientCarrierError solo los errores transitorios (timeouts incluidos) se reintentan.
func IsTransientCarrierError(err error) bool {
	return errors.Is(err, domain.ErrCarrierTransient) || errors.Is(err, context.DeadlineExceeded)
}
