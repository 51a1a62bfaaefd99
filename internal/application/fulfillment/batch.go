package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
)

// MaxBatchSize límite duro de solicitudes por lote.
const MaxBatchSize = 50

// Fulfiller procesa una solicitud individual (Orchestrator).
type Fulfiller interface {
	Fulfill(ctx context.Context, req entity.ShipmentRequest) (entity.FulfillmentOutcome, error)
}

// BatchConfig tamaño máximo (nunca mayor que MaxBatchSize) y concurrencia del lote.
type BatchConfig struct {
	MaxSize     int
	Concurrency int
}

// BatchSummary agregados del lote. SettlementByBrand suma solo débitos liquidados en este lote.
type BatchSummary struct {
	Total                    int                        `json:"total"`
	Successful               int                        `json:"successful"`
	Failed                   int                        `json:"failed"`
	InsufficientBalanceCount int                        `json:"insufficient_balance_count"`
	CompensatedCount         int                        `json:"compensated_count"`
	SuccessRatePercent       decimal.Decimal            `json:"success_rate_percent"`
	SettlementByBrand        map[string]decimal.Decimal `json:"settlement_by_brand"`
}

// BatchResult un outcome por solicitud, en el mismo orden de entrada.
type BatchResult struct {
	Results []entity.FulfillmentOutcome `json:"results"`
	Summary BatchSummary                `json:"summary"`
}

// BatchCoordinator procesa lotes de forma independiente por ítem: el fallo de uno nunca
// revierte ni detiene a los demás, salvo una violación de invariante del libro.
type BatchCoordinator struct {
	fulfiller Fulfiller
	cfg       BatchConfig
	metrics   Metrics
	log       *logger.Logger
}

// NewBatchCoordinator construye el coordinador.
func NewBatchCoordinator(f Fulfiller, cfg BatchConfig, metrics Metrics, log *logger.Logger) *BatchCoordinator {
	if cfg.MaxSize <= 0 || cfg.MaxSize > MaxBatchSize {
		cfg.MaxSize = MaxBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BatchCoordinator{fulfiller: f, cfg: cfg, metrics: metrics, log: log.Component("batch")}
}

// ProcessBatch procesa todas las solicitudes. Falla con *domain.BatchTooLargeError antes de
// procesar cualquier ítem si el lote excede el máximo. Si un ítem reporta violación de
// invariante, los ítems aún no iniciados quedan ABORTED y se devuelve el error junto con
// los resultados parciales.
func (b *BatchCoordinator) ProcessBatch(ctx context.Context, reqs []entity.ShipmentRequest) (BatchResult, error) {
	if len(reqs) > b.cfg.MaxSize {
		return BatchResult{}, &domain.BatchTooLargeError{Size: len(reqs), Max: b.cfg.MaxSize}
	}
	start := time.Now()
	results := make([]entity.FulfillmentOutcome, len(reqs))

	// una vez despachado, el lote no se cancela a mitad de camino
	dctx := context.WithoutCancel(ctx)
	var aborted atomic.Bool
	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for i := range reqs {
		req := reqs[i]
		g.Go(func() error {
			if aborted.Load() {
				results[i] = abortedOutcome(req)
				return nil
			}
			out, err := b.fulfiller.Fulfill(dctx, req)
			results[i] = out
			if err != nil && errors.Is(err, domain.ErrInvariantViolation) {
				aborted.Store(true)
				return err
			}
			return nil
		})
	}
	werr := g.Wait()

	res := BatchResult{Results: results, Summary: Summarize(results)}
	b.metrics.ObserveBatch(len(reqs), time.Since(start))

	if werr != nil {
		b.log.Error().Err(werr).Int("total", len(reqs)).Msg("lote abortado por violación de invariante")
		return res, fmt.Errorf("%w: %w", domain.ErrBatchAborted, werr)
	}
	b.log.Info().
		Int("total", res.Summary.Total).
		Int("successful", res.Summary.Successful).
		Int("insufficient_balance", res.Summary.InsufficientBalanceCount).
		Int("compensated", res.Summary.CompensatedCount).
		Dur("elapsed", time.Since(start)).
		Msg("lote procesado")
	return res, nil
}

// MaxSize tamaño máximo de lote aceptado.
func (b *BatchCoordinator) MaxSize() int { return b.cfg.MaxSize }

// WithRejected intercala, en su posición de entrada, los ítems descartados antes de procesar
// el lote (por ejemplo, fuera del alcance del solicitante) y recalcula el resumen.
func (r BatchResult) WithRejected(rejected map[int]entity.FulfillmentOutcome) BatchResult {
	if len(rejected) == 0 {
		return r
	}
	total := len(r.Results) + len(rejected)
	merged := make([]entity.FulfillmentOutcome, 0, total)
	next := 0
	for i := 0; i < total; i++ {
		if out, ok := rejected[i]; ok {
			merged = append(merged, out)
			continue
		}
		merged = append(merged, r.Results[next])
		next++
	}
	return BatchResult{Results: merged, Summary: Summarize(merged)}
}

// Summarize calcula los agregados de un conjunto de outcomes.
func Summarize(results []entity.FulfillmentOutcome) BatchSummary {
	s := BatchSummary{
		Total:              len(results),
		SuccessRatePercent: decimal.Zero,
		SettlementByBrand:  make(map[string]decimal.Decimal),
	}
	for _, r := range results {
		if r.Success {
			s.Successful++
		}
		if r.InsufficientBalance {
			s.InsufficientBalanceCount++
		}
		if r.State == entity.StateCompensated {
			s.CompensatedCount++
		}
		if r.State == entity.StateSettled && r.WalletDeducted && !r.Duplicate && r.CostEstimate != nil {
			s.SettlementByBrand[r.BrandID] = s.SettlementByBrand[r.BrandID].Add(r.CostEstimate.FinalTotal)
		}
	}
	s.Failed = s.Total - s.Successful
	if s.Total > 0 {
		s.SuccessRatePercent = decimal.NewFromInt(int64(s.Successful)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.Total))).
			Round(2)
	}
	return s
}

func abortedOutcome(req entity.ShipmentRequest) entity.FulfillmentOutcome {
	ref := req.ReferenceID
	id := req.RequestID
	if id == "" {
		id = ref
	}
	return entity.FulfillmentOutcome{
		RequestID:   id,
		ReferenceID: ref,
		BrandID:     entity.ChargeableBrand(req.Requester),
		State:       entity.StateAborted,
		Error:       domain.ErrBatchAborted.Error(),
	}
}
