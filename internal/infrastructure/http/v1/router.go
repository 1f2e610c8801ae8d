package v1

import (
	"github.com/gin-gonic/gin"

	"atelier/internal/domain/auth"
	"atelier/internal/domain/catalogs/customer"
	"atelier/internal/domain/catalogs/product"
	"atelier/internal/domain/catalogs/storeunit"
	"atelier/internal/domain/catalogs/supplier"
	"atelier/internal/domain/finance"
	"atelier/internal/domain/ledger"
	"atelier/internal/domain/orders/purchase"
	"atelier/internal/domain/orders/sales"
	"atelier/internal/domain/pricing"
	"atelier/internal/domain/reports"
	"atelier/internal/domain/returns"
	"atelier/internal/domain/transfers"
	"atelier/internal/infrastructure/http/v1/handlers"
	"atelier/internal/infrastructure/http/v1/middleware"
	"atelier/internal/infrastructure/storage/postgres"
	"atelier/pkg/logger"
)

// RouterConfig wires the constructed services into the HTTP surface.
type RouterConfig struct {
	Pool    *postgres.Pool
	Logger  *logger.Logger
	Version string

	JWTValidator middleware.JWTValidator

	AuthService     *auth.Service
	ProductService  *product.Service
	SupplierService *supplier.Service
	CustomerService *customer.Service
	UnitService     *storeunit.Service
	LedgerService   *ledger.Service
	PurchaseService *purchase.Service
	SalesService    *sales.Service
	TransferService *transfers.Service
	ReturnService   *returns.Service
	FinanceService  *finance.Service
	PricingService  *pricing.Service
	ReportsService  *reports.Service

	AuditStore *postgres.AuditStore
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	apiV1 := router.Group("/api/v1")

	registerAuthRoutes(apiV1, base, cfg)

	// Everything else requires a valid token. Mutations are admin gated
	// and leave an audit trail.
	protected := apiV1.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	protected.Use(middleware.Audit(cfg.AuditStore))
	admin := middleware.RequireAdmin()

	registerCatalogRoutes(protected, base, cfg, admin)
	registerStockRoutes(protected, base, cfg, admin)
	registerDocumentRoutes(protected, base, cfg, admin)
	registerFinanceRoutes(protected, base, cfg, admin)
	registerPricingRoutes(protected, base, cfg, admin)
	registerReportRoutes(protected, base, cfg)
	registerAuditRoutes(protected, base, cfg, admin)

	return router
}

func registerAuthRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	public := rg.Group("/auth")
	{
		public.POST("/login", authHandler.Login)
		public.POST("/refresh", authHandler.Refresh)
	}

	protected := rg.Group("/auth")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	{
		protected.POST("/logout", authHandler.Logout)
		protected.GET("/me", authHandler.Me)

		users := protected.Group("/users")
		users.Use(middleware.RequireAdmin())
		{
			users.POST("", authHandler.Register)
			users.GET("", authHandler.ListUsers)
			users.POST("/:id/role", authHandler.SetRole)
			users.POST("/:id/active", authHandler.SetActive)
		}
	}
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, admin gin.HandlerFunc) {
	catalogs := rg.Group("/catalog")

	productHandler := handlers.NewProductHandler(base, cfg.ProductService)
	productGroup := catalogs.Group("/products")
	RegisterCatalogRoutes(productGroup, productHandler, admin)
	{
		productGroup.GET("/low-stock", productHandler.LowStock)
		productGroup.GET("/barcode/:barcode", productHandler.FindByBarcode)
		productGroup.POST("/:id/image", admin, productHandler.UploadImage)
		productGroup.GET("/:id/variants", productHandler.ListVariants)
		productGroup.POST("/:id/variants", admin, productHandler.CreateVariant)
		productGroup.PUT("/:id/variants/:variantId", admin, productHandler.UpdateVariant)
		productGroup.DELETE("/:id/variants/:variantId", admin, productHandler.DeleteVariant)
	}

	customerHandler := handlers.NewCustomerHandler(base, cfg.CustomerService)
	customerGroup := catalogs.Group("/customers")
	RegisterCatalogRoutes(customerGroup, customerHandler, admin)
	customerGroup.GET("/document/:document", customerHandler.FindByDocument)

	supplierHandler := handlers.NewCatalogHandler(base, cfg.SupplierService.CatalogService,
		"supplier", func() *supplier.Supplier { return &supplier.Supplier{} })
	RegisterCatalogRoutes(catalogs.Group("/suppliers"), supplierHandler, admin)

	unitHandler := handlers.NewCatalogHandler(base, cfg.UnitService.CatalogService,
		"store unit", func() *storeunit.StoreUnit { return &storeunit.StoreUnit{} })
	RegisterCatalogRoutes(catalogs.Group("/store-units"), unitHandler, admin)
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, admin gin.HandlerFunc) {
	stockHandler := handlers.NewStockHandler(base, cfg.LedgerService)

	stock := rg.Group("/stock")
	{
		stock.GET("/movements", stockHandler.ListMovements)
		stock.POST("/movements", admin, stockHandler.RecordMovement)
		stock.GET("/units/:id", stockHandler.UnitStock)
		stock.GET("/availability/:id", stockHandler.Availability)
		stock.GET("/alerts", stockHandler.ListAlerts)
		stock.POST("/alerts/:id/read", stockHandler.MarkAlertRead)
		stock.POST("/alerts/scan", admin, stockHandler.ScanAlerts)
	}
}

func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, admin gin.HandlerFunc) {
	purchaseHandler := handlers.NewPurchaseHandler(base, cfg.PurchaseService)
	po := rg.Group("/purchase-orders")
	{
		po.GET("", purchaseHandler.List)
		po.GET("/:id", purchaseHandler.Get)
		po.POST("", admin, purchaseHandler.Create)
		po.PUT("/:id", admin, purchaseHandler.Update)
		po.POST("/:id/status", admin, purchaseHandler.UpdateStatus)
		po.POST("/:id/receive", admin, purchaseHandler.Receive)
	}

	salesHandler := handlers.NewSalesHandler(base, cfg.SalesService)
	so := rg.Group("/sales-orders")
	{
		so.GET("", salesHandler.List)
		so.GET("/:id", salesHandler.Get)
		so.POST("", admin, salesHandler.Create)
		so.PUT("/:id", admin, salesHandler.Update)
		so.POST("/:id/status", admin, salesHandler.UpdateStatus)
		so.POST("/:id/confirm", admin, salesHandler.Confirm)
	}

	transferHandler := handlers.NewTransferHandler(base, cfg.TransferService)
	tr := rg.Group("/transfers")
	{
		tr.GET("", transferHandler.List)
		tr.GET("/:id", transferHandler.Get)
		tr.POST("", admin, transferHandler.Create)
		tr.POST("/:id/approve", admin, transferHandler.Approve)
		tr.POST("/:id/cancel", admin, transferHandler.Cancel)
		tr.POST("/:id/ship", admin, transferHandler.Ship)
		tr.POST("/:id/receive", admin, transferHandler.Receive)
	}

	returnHandler := handlers.NewReturnHandler(base, cfg.ReturnService)
	ret := rg.Group("/returns")
	{
		ret.GET("", returnHandler.List)
		ret.GET("/:id", returnHandler.Get)
		// Return requests can be opened by any authenticated user;
		// review and settlement stay admin only.
		ret.POST("", returnHandler.Create)
		ret.POST("/:id/approve", admin, returnHandler.Approve)
		ret.POST("/:id/reject", admin, returnHandler.Reject)
		ret.POST("/:id/process", admin, returnHandler.Process)
	}
}

func registerFinanceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, admin gin.HandlerFunc) {
	financeHandler := handlers.NewFinanceHandler(base, cfg.FinanceService)

	fin := rg.Group("/finance")
	{
		accounts := fin.Group("/accounts")
		accounts.GET("", financeHandler.ListAccounts)
		accounts.GET("/:id", financeHandler.GetAccount)
		accounts.POST("", admin, financeHandler.CreateAccount)
		accounts.POST("/:id/pay", admin, financeHandler.RegisterPayment)
		accounts.POST("/:id/cancel", admin, financeHandler.CancelAccount)

		cashFlow := fin.Group("/cash-flow")
		cashFlow.GET("", financeHandler.ListCashFlowEntries)
		cashFlow.GET("/:id", financeHandler.GetCashFlowEntry)
		cashFlow.POST("", admin, financeHandler.CreateCashFlowEntry)
		cashFlow.PUT("/:id", admin, financeHandler.UpdateCashFlowEntry)
		cashFlow.DELETE("/:id", admin, financeHandler.DeleteCashFlowEntry)
	}
}

func registerPricingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, admin gin.HandlerFunc) {
	pricingHandler := handlers.NewPricingHandler(base, cfg.PricingService)

	pr := rg.Group("/pricing")
	{
		pr.POST("/calculate-price", pricingHandler.CalculatePrice)
		pr.POST("/simulate-margin", pricingHandler.SimulateMargin)
		pr.POST("/quote", pricingHandler.Quote)

		RegisterCatalogRoutes(pr.Group("/rules"), pricingHandler, admin)
	}
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	reportsHandler := handlers.NewReportsHandler(base, cfg.ReportsService)

	rep := rg.Group("/reports")
	{
		rep.GET("/cash-flow-summary", reportsHandler.CashFlowSummary)
		rep.GET("/dre", reportsHandler.DRE)
		rep.GET("/abc-analysis", reportsHandler.ABCAnalysis)
		rep.GET("/stock-turnover", reportsHandler.StockTurnover)
	}
}

func registerAuditRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, admin gin.HandlerFunc) {
	auditHandler := handlers.NewAuditHandler(base, cfg.AuditStore)
	rg.GET("/audit", admin, auditHandler.List)
}
