package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/fulfillment-ledger/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-ledger/internal/application/inventory"
	"github.com/jhoicas/fulfillment-ledger/internal/application/pricing"
	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Wallet       *wallet.Service
	Statement    *wallet.StatementUseCase
	Inventory    *inventory.Service
	Pricing      *pricing.Resolver
	Orchestrator *fulfillment.Orchestrator
	Batch        *fulfillment.BatchCoordinator
	Gatherer     prometheus.Gatherer // nil = sin /metrics
	JWTSecret    string
}

var (
	allRoles    = []string{jwt.RoleAdmin, jwt.RoleBrandAdmin, jwt.RoleBrandUser, jwt.RoleDistributor, jwt.RoleServiceCenter}
	brandRoles  = []string{jwt.RoleAdmin, jwt.RoleBrandAdmin, jwt.RoleBrandUser}
	walletAdmin = []string{jwt.RoleAdmin, jwt.RoleBrandAdmin}
)

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Billetera
	walletGroup := api.Group("/wallet")
	walletHandler := NewWalletHandler(deps.Wallet, deps.Statement)
	walletGroup.Get("/balance", RequireRole(brandRoles...), walletHandler.GetBalance)
	walletGroup.Post("/check-balance", RequireRole(brandRoles...), walletHandler.CheckBalance)
	walletGroup.Get("/transactions", RequireRole(brandRoles...), walletHandler.ListTransactions)
	walletGroup.Post("/credit", RequireRole(walletAdmin...), walletHandler.Credit)
	walletGroup.Get("/reconcile", RequireRole(walletAdmin...), walletHandler.Reconcile)
	walletGroup.Get("/statement.pdf", RequireRole(walletAdmin...), walletHandler.DownloadStatement)

	// Inventario
	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Inventory)
	invGroup.Post("/adjust", RequireRole(brandRoles...), inventoryHandler.Adjust)
	invGroup.Post("/transfer", RequireRole(allRoles...), inventoryHandler.Transfer)
	invGroup.Get("/parts/:partID", RequireRole(allRoles...), inventoryHandler.GetRecord)
	invGroup.Get("/parts/:partID/ledger", RequireRole(allRoles...), inventoryHandler.ListLedger)
	invGroup.Get("/parts/:partID/reconcile", RequireRole(walletAdmin...), inventoryHandler.Reconcile)

	// Tarifas
	pricingHandler := NewPricingHandler(deps.Pricing)
	api.Post("/pricing/estimate", RequireRole(allRoles...), pricingHandler.Estimate)

	// Envíos
	shipments := api.Group("/shipments", RequireRole(allRoles...))
	shipmentHandler := NewShipmentHandler(deps.Orchestrator, deps.Batch)
	shipments.Post("/", shipmentHandler.Create)
	shipments.Post("/batch", shipmentHandler.CreateBatch)
}
