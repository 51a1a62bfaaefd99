// Package pricing resuelve el costo de un envío para la marca pagadora: consulta su
// configuración en el directorio de marcas y delega el cálculo al servicio de dominio.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	pricingdomain "github.com/jhoicas/fulfillment-ledger/internal/domain/pricing"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
	"github.com/jhoicas/fulfillment-ledger/pkg/retry"
)

// RemoteAreaClassifier indica si un código postal de destino es zona remota.
type RemoteAreaClassifier interface {
	IsRemote(pincode string) bool
}

// PrefixClassifier clasifica por prefijos de código postal configurados.
type PrefixClassifier struct {
	prefixes []string
}

// NewPrefixClassifier ignora prefijos vacíos.
func NewPrefixClassifier(prefixes []string) *PrefixClassifier {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return &PrefixClassifier{prefixes: out}
}

// IsRemote implementa RemoteAreaClassifier.
func (c *PrefixClassifier) IsRemote(pincode string) bool {
	for _, p := range c.prefixes {
		if strings.HasPrefix(pincode, p) {
			return true
		}
	}
	return false
}

// Config tarifas de plataforma y política de reintentos de la consulta de marca.
type Config struct {
	Rates         pricingdomain.Config
	LookupRetries int
	LookupBackoff time.Duration
}

// Resolver PricingResolver: sin efectos laterales dado el estado actual de las reglas.
type Resolver struct {
	brands     repository.BrandDirectory
	classifier RemoteAreaClassifier
	cfg        Config
	log        *logger.Logger
}

// NewResolver construye el resolver. classifier nil = ningún destino es remoto.
func NewResolver(brands repository.BrandDirectory, classifier RemoteAreaClassifier, cfg Config, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.LookupRetries < 1 {
		cfg.LookupRetries = 1
	}
	return &Resolver{brands: brands, classifier: classifier, cfg: cfg, log: log.Component("pricing")}
}

// Resolve calcula el desglose de costo para la marca de params.BrandID.
// Falla con *domain.ConfigurationError si no hay tarifa base en ningún nivel.
func (r *Resolver) Resolve(ctx context.Context, params entity.ShipmentParams) (entity.ShipmentCostEstimate, error) {
	if params.BrandID == "" {
		return entity.ShipmentCostEstimate{}, domain.ErrInvalidInput
	}
	brand, err := r.lookup(ctx, params.BrandID)
	if err != nil {
		return entity.ShipmentCostEstimate{}, err
	}

	remote := r.classifier != nil && r.classifier.IsRemote(params.DestinationPincode)
	est, err := pricingdomain.Calculate(pricingdomain.Input{Params: params, Brand: brand.Pricing, Remote: remote}, r.cfg.Rates)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			r.log.Error().Str("brand_id", params.BrandID).Err(err).Msg("sin tarifa configurada")
		}
		return entity.ShipmentCostEstimate{}, err
	}

	r.log.Debug().
		Str("brand_id", params.BrandID).
		Str("final_total", est.FinalTotal.StringFixed(2)).
		Bool("remote", remote).
		Msg("envío cotizado")
	return est, nil
}

// lookup consulta la marca reintentando errores de infraestructura (lectura idempotente).
func (r *Resolver) lookup(ctx context.Context, brandID string) (*entity.Brand, error) {
	brand, err := retry.Do(ctx, retry.Config{
		MaxAttempts:   r.cfg.LookupRetries,
		InitialDelay:  r.cfg.LookupBackoff,
		BackoffFactor: 2,
		Retryable:     isTransientLookup,
		OnRetry: func(attempt int, err error) {
			r.log.Warn().Str("brand_id", brandID).Int("attempt", attempt).Err(err).Msg("reintentando consulta de marca")
		},
	}, func(ctx context.Context, _ int) (*entity.Brand, error) {
		return r.brands.GetBrand(ctx, brandID)
	})
	if err != nil {
		return nil, fmt.Errorf("pricing: consultar marca %s: %w", brandID, err)
	}
	if brand == nil {
		// Marca sin registro: sin tarifa propia, aplica la tarifa por defecto.
		r.log.Debug().Str("brand_id", brandID).Msg("marca sin registro, se usa la tarifa por defecto")
		return &entity.Brand{ID: brandID}, nil
	}
	return brand, nil
}

func isTransientLookup(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrConfiguration):
		return false
	}
	return true
}
