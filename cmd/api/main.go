package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-ledger/internal/application/inventory"
	"github.com/jhoicas/fulfillment-ledger/internal/application/pricing"
	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
	pricingdomain "github.com/jhoicas/fulfillment-ledger/internal/domain/pricing"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/carrier"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/fulfillment-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/fulfillment-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/fulfillment-ledger/internal/interfaces/http"
	"github.com/jhoicas/fulfillment-ledger/pkg/config"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// stores adaptadores de persistencia según STORE_DRIVER.
type stores struct {
	wallet    repository.WalletStore
	inventory repository.InventoryStore
	brands    repository.BrandDirectory
	shipments repository.ShipmentRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Str("carrier", cfg.Carrier.Mode).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(reg)

	resolver := newResolver(cfg, st.brands, log)

	walletSvc := wallet.NewService(st.wallet, log)
	inventorySvc := inventory.NewService(st.inventory, log)
	statementUC := wallet.NewStatementUseCase(walletSvc, st.brands, infrapdf.NewStatementGenerator())

	orchestrator := fulfillment.NewOrchestrator(
		resolver, walletSvc, newCarrier(cfg.Carrier, log), st.shipments, fulfillmentMetrics,
		fulfillment.Config{
			CarrierTimeout:    cfg.Carrier.Timeout,
			MaxCarrierRetries: cfg.Carrier.MaxRetries,
			RetryBackoff:      cfg.Carrier.RetryBackoff,
		}, log,
	)
	batch := fulfillment.NewBatchCoordinator(orchestrator, fulfillment.BatchConfig{
		MaxSize:     cfg.Fulfillment.MaxBatchSize,
		Concurrency: cfg.Fulfillment.BatchConcurrency,
	}, fulfillmentMetrics, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // un lote de 50 con reintentos del transportador
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Fulfillment Ledger API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Wallet:       walletSvc,
		Statement:    statementUC,
		Inventory:    inventorySvc,
		Pricing:      resolver,
		Orchestrator: orchestrator,
		Batch:        batch,
		Gatherer:     reg,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// ShutdownWithContext espera las solicitudes en curso: un envío admitido termina
	// de liquidarse o compensarse antes de cerrar el pool.
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Store.Driver != "postgres" {
		log.Warn().Msg("STORE_DRIVER=memory: los libros no sobreviven a un reinicio")
		return &stores{
			wallet:    memory.NewWalletStore(),
			inventory: memory.NewInventoryStore(),
			brands:    seededBrands(cfg.Store.SeedBrands, log),
			shipments: memory.NewShipmentRepository(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
	if err != nil {
		return nil, err
	}
	if cfg.Store.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema verificado")
	}
	return &stores{
		wallet:    postgres.NewWalletStore(pool),
		inventory: postgres.NewInventoryStore(pool),
		brands:    postgres.NewBrandDirectory(pool),
		shipments: postgres.NewShipmentRepository(pool),
		close:     pool.Close,
	}, nil
}

func newResolver(cfg *config.Config, brands repository.BrandDirectory, log *logger.Logger) *pricing.Resolver {
	return pricing.NewResolver(brands, pricing.NewPrefixClassifier(cfg.Pricing.RemotePincodePrefixes), pricing.Config{
		Rates: pricingdomain.Config{
			DefaultBaseRate: cfg.Pricing.DefaultBaseRate,
			FreeWeightKg:    cfg.Pricing.FreeWeightKg,
			PerKgRate:       cfg.Pricing.PerKgRate,
			PriorityMultipliers: map[string]decimal.Decimal{
				entity.PriorityStandard: cfg.Pricing.StandardMultiplier,
				entity.PriorityExpress:  cfg.Pricing.ExpressMultiplier,
			},
			RemoteSurcharge: cfg.Pricing.RemoteSurcharge,
			MarkupPct:       cfg.Pricing.MarkupPct,
		},
		LookupRetries: cfg.Pricing.LookupRetries,
		LookupBackoff: cfg.Pricing.LookupBackoff,
	}, log)
}

// seededBrands directorio en memoria con las marcas de STORE_SEED_BRANDS. Una marca
// ausente se cotiza con la tarifa por defecto.
func seededBrands(seeds []config.BrandSeed, log *logger.Logger) *memory.BrandDirectory {
	brands := make([]entity.Brand, 0, len(seeds))
	for _, s := range seeds {
		brands = append(brands, entity.Brand{ID: s.ID, Name: s.Name})
	}
	log.Info().Int("brands", len(brands)).Msg("directorio de marcas en memoria")
	return memory.NewBrandDirectory(brands...)
}

// newCarrier gateway según CARRIER_MODE, siempre detrás del circuit breaker.
func newCarrier(cfg config.CarrierConfig, log *logger.Logger) fulfillment.CarrierGateway {
	var inner fulfillment.CarrierGateway
	switch cfg.Mode {
	case "http":
		inner = carrier.NewHTTPGateway(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	default:
		inner = carrier.NewSimulatedGateway(carrier.SimulatedConfig{
			Latency:               cfg.SimulatedLatency,
			RejectPincodePrefixes: cfg.RejectPrefixes,
		})
	}
	failures := cfg.BreakerFailures
	if failures < 0 {
		failures = 0
	}
	return carrier.NewBreakerGateway(inner, carrier.BreakerConfig{
		Name:             "carrier-" + cfg.Mode,
		MaxRequests:      1,
		Timeout:          cfg.BreakerOpenPeriod,
		FailureThreshold: uint32(failures),
	}, log)
}
