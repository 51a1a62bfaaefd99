// Package metrics expone métricas Prometheus del flujo de despacho y de la billetera.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
)

var _ fulfillment.Metrics = (*FulfillmentMetrics)(nil)

// FulfillmentMetrics contadores e histogramas del orquestador. Un receptor nil o construido
// sin registerer no registra nada.
type FulfillmentMetrics struct {
	outcomes   *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	settlement *prometheus.CounterVec
	batchSize  prometheus.Histogram
	batchTime  prometheus.Histogram
}

// NewFulfillmentMetrics registra las métricas en reg.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_outcomes_total",
		Help: "Resultados de solicitudes de envío por marca y estado final.",
	}, []string{"brand_id", "state"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_carrier_attempts_total",
		Help: "Intentos de reserva con el transportador por resultado.",
	}, []string{"result"})
	settlement := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_settled_amount_total",
		Help: "Monto debitado y liquidado por marca.",
	}, []string{"brand_id"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fulfillment_batch_size",
		Help:    "Solicitudes por lote.",
		Buckets: []float64{1, 5, 10, 20, 30, 40, 50},
	})
	batchTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fulfillment_batch_duration_seconds",
		Help:    "Duración del procesamiento de un lote.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, attempts, settlement, batchSize, batchTime)
	return &FulfillmentMetrics{
		outcomes:   outcomes,
		attempts:   attempts,
		settlement: settlement,
		batchSize:  batchSize,
		batchTime:  batchTime,
	}
}

// ObserveOutcome cuenta un resultado.
func (m *FulfillmentMetrics) ObserveOutcome(brandID, state string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(brandID), normalizeLabel(state)).Inc()
}

// ObserveCarrierAttempt cuenta un intento con el transportador.
func (m *FulfillmentMetrics) ObserveCarrierAttempt(result string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(result)).Inc()
}

// AddSettlement acumula el monto liquidado de la marca.
func (m *FulfillmentMetrics) AddSettlement(brandID string, amount decimal.Decimal) {
	if m == nil || m.settlement == nil || !amount.IsPositive() {
		return
	}
	m.settlement.WithLabelValues(normalizeLabel(brandID)).Add(amount.InexactFloat64())
}

// ObserveBatch registra tamaño y duración de un lote.
func (m *FulfillmentMetrics) ObserveBatch(size int, duration time.Duration) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(size))
	m.batchTime.Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
