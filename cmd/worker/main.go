package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/terrapos/terrapos/internal/advance"
	"github.com/terrapos/terrapos/internal/app"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/notify"
	"github.com/terrapos/terrapos/internal/orders"
	"github.com/terrapos/terrapos/internal/platform/cache"
	"github.com/terrapos/terrapos/internal/platform/db"
	"github.com/terrapos/terrapos/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
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

	advanceRepo := advance.NewRepository(pool)
	advanceCache := advance.NewCache(redisClient, logger)
	advanceAnalytics := advance.NewAnalytics(advanceRepo, advanceCache, logger)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo, logger)

	// The reminder job only reads orders, so the side-effect ports stay
	// nil here.
	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(
		ordersRepo, nil, nil, nil, nil, nil, nil, cfg.PublicBaseURL, logger,
	)

	notifyJob := jobs.NewNotifyJob(dispatcher, logger)
	reminderJob := jobs.NewReminderJob(
		advanceAnalytics, ordersService, customersService, dispatcher, cfg.PublicBaseURL, logger,
	)

	reminderTask, err := jobs.NewAdvanceRemindersTask()
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNotifySend, Handler: notifyJob.Handle},
			{Type: jobs.TaskAdvanceReminders, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 4 * * *", Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("queue", jobs.QueueDefault))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
