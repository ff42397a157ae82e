package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/terrapos/terrapos/internal/advance"
	"github.com/terrapos/terrapos/internal/app"
	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/estimates"
	"github.com/terrapos/terrapos/internal/invoice"
	"github.com/terrapos/terrapos/internal/notify"
	"github.com/terrapos/terrapos/internal/orders"
	"github.com/terrapos/terrapos/internal/platform/cache"
	"github.com/terrapos/terrapos/internal/platform/db"
	"github.com/terrapos/terrapos/internal/public"
	"github.com/terrapos/terrapos/jobs"
	"github.com/terrapos/terrapos/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var dispatcher notify.Dispatcher = notify.Noop{}
	if cfg.WAGatewayURL != "" {
		dispatcher = notify.NewGatewayClient(cfg.WAGatewayURL, cfg.WAAPIKey, cfg.WATimeout, logger)
	} else {
		logger.Info("whatsapp gateway not configured, notifications disabled")
	}

	pdfClient := report.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo, logger)
	customersHandler := customers.NewHandler(logger, customersService)

	advanceRepo := advance.NewRepository(pool)
	advanceCache := advance.NewCache(redisClient, logger)
	advanceLedger := advance.NewService(advanceRepo, advanceCache)
	advanceAnalytics := advance.NewAnalytics(advanceRepo, advanceCache, logger)
	advanceHandler := advance.NewHandler(logger, advanceLedger, advanceAnalytics)

	invoiceRepo := invoice.NewRepository(pool)
	invoiceService := invoice.NewService(invoiceRepo, pdfClient, logger)

	estimatesRepo := estimates.NewRepository(pool)
	estimatesService := estimates.NewService(estimatesRepo, catalogService, customersService, cfg.PublicBaseURL, logger)
	estimatesHandler := estimates.NewHandler(logger, estimatesService)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(
		ordersRepo,
		catalogService,
		customersService,
		advanceLedger,
		invoiceService,
		estimatesService,
		dispatcher,
		cfg.PublicBaseURL,
		logger,
	)
	ordersHandler := orders.NewHandler(logger, ordersService)

	publicHandler := public.NewHandler(ordersService, invoiceService, estimatesService, customersService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		CustomersHandler: customersHandler,
		OrdersHandler:    ordersHandler,
		EstimatesHandler: estimatesHandler,
		AdvanceHandler:   advanceHandler,
		PublicHandler:    publicHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
