// Package main is the entry point for the Atelier API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

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
	v1 "atelier/internal/infrastructure/http/v1"
	"atelier/internal/infrastructure/notify"
	"atelier/internal/infrastructure/objectstore"
	"atelier/internal/infrastructure/storage/postgres"
	"atelier/internal/infrastructure/storage/postgres/auth_repo"
	"atelier/internal/infrastructure/storage/postgres/catalog_repo"
	"atelier/internal/infrastructure/storage/postgres/document_repo"
	"atelier/internal/infrastructure/storage/postgres/finance_repo"
	"atelier/internal/infrastructure/storage/postgres/register_repo"
	"atelier/internal/infrastructure/storage/postgres/report_repo"
	"atelier/pkg/logger"
	"atelier/pkg/numerator"
)

var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting atelier server")

	// --- Database ---

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	num := numerator.New(pool)

	// --- Auth ---

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))
	authService := auth.NewService(
		auth_repo.NewUserRepo(txManager),
		auth_repo.NewTokenRepo(txManager),
		txManager,
		jwtService,
		auth.DefaultServiceConfig(),
	)

	// --- Catalogs ---

	imageStore, err := objectstore.NewLocalStore(
		getEnv("IMAGE_DIR", "./data/images"),
		getEnv("IMAGE_BASE_URL", "/static/images"),
	)
	if err != nil {
		log.Fatalw("failed to initialize image store", "error", err)
	}

	productService := product.NewService(
		catalog_repo.NewProductRepo(txManager),
		catalog_repo.NewVariantRepo(txManager),
		txManager, num, imageStore,
	)
	supplierService := supplier.NewService(catalog_repo.NewSupplierRepo(txManager), txManager, num)
	customerService := customer.NewService(catalog_repo.NewCustomerRepo(txManager), txManager, num)
	unitService := storeunit.NewService(catalog_repo.NewStoreUnitRepo(txManager), txManager, num)

	// --- Stock ledger ---

	ledgerService := ledger.NewService(
		register_repo.NewLedgerRepo(txManager),
		txManager,
		notify.NewLogNotifier(),
	)

	// --- Finance ---

	financeService := finance.NewService(finance_repo.NewFinanceRepo(txManager), txManager)

	// --- Documents ---

	purchaseService := purchase.NewService(
		document_repo.NewPurchaseOrderRepo(txManager), txManager, num, ledgerService)
	salesService := sales.NewService(
		document_repo.NewSalesOrderRepo(txManager), txManager, num, financeService)
	transferService := transfers.NewService(
		document_repo.NewTransferRepo(txManager), txManager, num, ledgerService)
	returnService := returns.NewService(
		document_repo.NewReturnRepo(txManager), txManager, num, ledgerService, financeService)

	// --- Pricing and reports ---

	pricingService, err := pricing.NewService(catalog_repo.NewPricingRuleRepo(txManager), txManager, num)
	if err != nil {
		log.Fatalw("failed to initialize pricing service", "error", err)
	}

	reportsService := reports.NewService(report_repo.NewReportRepo(txManager))

	// --- Audit ---

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- Router ---

	router := v1.NewRouter(v1.RouterConfig{
		Pool:            pool,
		Logger:          log,
		Version:         version,
		JWTValidator:    jwtService,
		AuthService:     authService,
		ProductService:  productService,
		SupplierService: supplierService,
		CustomerService: customerService,
		UnitService:     unitService,
		LedgerService:   ledgerService,
		PurchaseService: purchaseService,
		SalesService:    salesService,
		TransferService: transferService,
		ReturnService:   returnService,
		FinanceService:  financeService,
		PricingService:  pricingService,
		ReportsService:  reportsService,
		AuditStore:      auditStore,
	})

	// --- HTTP server ---

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port, "version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// Retry alert notifications that were recorded but never delivered.
	alertCtx, stopAlerts := context.WithCancel(ctx)
	defer stopAlerts()
	go retryAlertsLoop(alertCtx, ledgerService, log)

	// --- Graceful shutdown ---

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopAlerts()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// retryAlertsLoop periodically redelivers stock alerts whose notification
// failed at record time.
func retryAlertsLoop(ctx context.Context, svc *ledger.Service, log *logger.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.RetryUnnotifiedAlerts(ctx, 100)
			if err != nil {
				log.Warnw("alert retry failed", "error", err)
				continue
			}
			if n > 0 {
				log.Infow("redelivered stock alerts", "count", n)
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
