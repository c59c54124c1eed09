package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/config"
	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/internal/events"
	"github.com/harborline/freight-notifier/internal/reminder"
	"github.com/harborline/freight-notifier/internal/report"
	"github.com/harborline/freight-notifier/internal/schedule"
	"github.com/harborline/freight-notifier/pkg/database"
	"github.com/harborline/freight-notifier/pkg/messaging"
	"github.com/harborline/freight-notifier/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notifier: scheduler, event pipeline and operator API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := observability.NewLogger("notifier", cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    "notifier",
		ServiceVersion: "0.1.0",
		Endpoint:       cfg.OTLPEndpoint,
		Environment:    cfg.Environment,
	})
	if err != nil {
		logger.Warn("tracer init failed, continuing without traces", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to booking store: %w", err)
	}
	defer db.Close()

	repo := booking.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	identities := directoryFromConfig(cfg)
	chain := buildChain(cfg, logger)

	engine := reminder.NewEngine(repo, chain, identities, reminderWindows(cfg), loc, logger)

	scheduler := schedule.New(cfg.PollInterval, logger)
	scheduler.Register(schedule.JobFunc{JobName: "cutoff-reminders", Fn: engine.Run})
	scheduler.Register(report.NewPendingSIJob(repo, chain, identities.Default(),
		cfg.Reports.DocsTeam, cfg.Reports.DocsCopy, cfg.Reports.ReferenceHour, loc, logger))
	scheduler.Register(report.NewSalesReportJob(repo, chain, identities.Default(),
		cfg.Reports.DocsCopy, cfg.Reports.ReferenceHour, loc, logger))
	scheduler.Register(report.NewVesselUpdateJob(repo, chain, identities,
		cfg.Reports.ReferenceHour, loc, logger))
	go scheduler.Start(ctx)

	startEventPipeline(ctx, cfg, chain, identities, logger)

	handler := &Handler{
		chain:      chain,
		identities: identities,
		apiSecret:  cfg.APIKeySecret,
		apiKeyHash: cfg.APIKeyHash,
		logger:     logger,
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(handler.AuthMiddleware)
	api.HandleFunc("/milestone-email", handler.MilestoneEmail).Methods(http.MethodPost)
	api.HandleFunc("/selling-email", handler.SellingEmail).Methods(http.MethodPost)
	api.HandleFunc("/delivery-status", handler.DeliveryStatus).Methods(http.MethodGet)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "notifier-request"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("operator API listening", "addr", cfg.HTTPAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildChain assembles the delivery failover chain in the order the
// deployment prefers: SMTP first normally, HTTP providers first on
// networks that block outbound SMTP.
func buildChain(cfg *config.Config, logger *observability.Logger) *dispatch.Chain {
	candidates := dispatch.OrderCandidates(cfg.ConstrainedNetwork,
		dispatch.NewSMTPTransport(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Timeout),
		dispatch.NewResendTransport(cfg.ResendAPIKey),
		dispatch.NewSendGridTransport(cfg.SendGridAPIKey, cfg.SMTP.Timeout),
	)
	return dispatch.NewChain(logger, candidates...)
}

// startEventPipeline wires Kafka intake through routing to the RabbitMQ
// worker. Both legs are optional: with no broker configured the HTTP
// operations still work and only the event-driven path is off.
func startEventPipeline(ctx context.Context, cfg *config.Config, chain *dispatch.Chain, identities *dispatch.Directory, logger *observability.Logger) {
	if cfg.RabbitURL == "" {
		logger.Info("no task broker configured, event pipeline disabled")
		return
	}

	rabbit, err := messaging.NewRabbitMQClient(messaging.DefaultConfig(cfg.RabbitURL), logger.Logger)
	if err != nil {
		logger.Warn("task broker unavailable, event pipeline disabled", "error", err)
		return
	}
	go func() {
		<-ctx.Done()
		rabbit.Close()
	}()

	for _, queue := range []string{events.QueueMilestone, events.QueueRate} {
		if _, err := rabbit.DeclareQueueWithDLQ(queue); err != nil {
			logger.Error("failed to declare task queue", "queue", queue, "error", err)
			return
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, delivery idempotency disabled", "error", err)
			redisClient = nil
		}
	}

	worker := events.NewWorker(chain, identities, redisClient, logger)
	for _, queue := range []string{events.QueueMilestone, events.QueueRate} {
		queue := queue
		go func() {
			if err := rabbit.ConsumeWithContext(ctx, queue, func(body []byte) error {
				return worker.ProcessTask(ctx, body)
			}); err != nil && ctx.Err() == nil {
				logger.Error("task consumer stopped", "queue", queue, "error", err)
			}
		}()
	}

	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no intake brokers configured, kafka consumer disabled")
		return
	}
	consumer := messaging.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	router := events.NewRouter(rabbit, logger)
	go func() {
		defer consumer.Close()
		if err := consumer.Consume(ctx, router.HandleMessage); err != nil && ctx.Err() == nil {
			logger.Error("intake consumer stopped", "error", err)
		}
	}()
}

func directoryFromConfig(cfg *config.Config) *dispatch.Directory {
	identities := make([]dispatch.Identity, 0, len(cfg.Identities))
	for _, id := range cfg.Identities {
		identities = append(identities, dispatch.Identity{
			Name:         id.Name,
			FromName:     id.FromName,
			FromEmail:    id.FromEmail,
			SMTPPassword: dispatch.NormalizeAppPassword(id.SMTPPassword),
			MatchTags:    id.MatchTags,
		})
	}
	return dispatch.NewDirectory(identities)
}

func reminderWindows(cfg *config.Config) []reminder.Window {
	windows := make([]reminder.Window, 0, len(cfg.Windows))
	for _, w := range cfg.Windows {
		windows = append(windows, reminder.Window{Name: w.Name, Lower: w.Lower, Upper: w.Upper})
	}
	return windows
}
