package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/MagicKrazik/ALPHA/internal/catalog"
	"github.com/MagicKrazik/ALPHA/internal/common/database"
	mqttcommon "github.com/MagicKrazik/ALPHA/internal/common/mqtt"
	rediscommon "github.com/MagicKrazik/ALPHA/internal/common/redis"
	"github.com/MagicKrazik/ALPHA/internal/config"
	"github.com/MagicKrazik/ALPHA/internal/consumer"
	"github.com/MagicKrazik/ALPHA/internal/evaluator"
	"github.com/MagicKrazik/ALPHA/internal/events"
	"github.com/MagicKrazik/ALPHA/internal/httpapi"
	"github.com/MagicKrazik/ALPHA/internal/models"
	"github.com/MagicKrazik/ALPHA/internal/notifier"
	"github.com/MagicKrazik/ALPHA/internal/repository"
	"github.com/MagicKrazik/ALPHA/internal/scheduler"
	"github.com/MagicKrazik/ALPHA/internal/scoring"
	"github.com/MagicKrazik/ALPHA/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stores groups the repositories the engine reads and writes.
type Stores struct {
	Cases         repository.CasesRepository
	Factors       repository.RiskFactorsRepository
	Profiles      repository.RiskProfilesRepository
	Rules         repository.AlertRulesRepository
	Alerts        repository.RiskAlertsRepository
	Notifications repository.NotificationsRepository
}

// PostgresStores backs every repository with db.
func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Cases:         repository.NewPostgresCasesRepository(db),
		Factors:       repository.NewPostgresRiskFactorsRepository(db),
		Profiles:      repository.NewPostgresRiskProfilesRepository(db),
		Rules:         repository.NewPostgresAlertRulesRepository(db),
		Alerts:        repository.NewPostgresRiskAlertsRepository(db),
		Notifications: repository.NewPostgresNotificationsRepository(db),
	}
}

// MemoryStores backs every repository with one in-memory store.
func MemoryStores(m *repository.MemoryStore) Stores {
	return Stores{Cases: m, Factors: m, Profiles: m, Rules: m, Alerts: m, Notifications: m}
}

// App wires the risk engine: repositories, services, pipeline consumers, jobs and HTTP API.
type App struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client

	stores    Stores
	publisher events.Publisher

	Profiles      *service.ProfileService
	Alerts        *service.AlertService
	Rules         *service.RuleService
	Notifications *service.NotificationService
	Engine        *evaluator.Engine
	Pipeline      *service.Pipeline

	consumers []*consumer.StreamConsumer
	scheduler *scheduler.Scheduler
	server    *httpapi.Server
}

// New connects to PostgreSQL, Redis and, when push is enabled, the MQTT broker.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	var mqttClient *mqttcommon.Client
	if cfg.Notification.PushEnabled {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT)
		if err != nil {
			redisClient.Close()
			database.Close(db)
			return nil, err
		}
	}

	var push notifier.Publisher
	if mqttClient != nil {
		push = mqttClient
	}
	a, err := Build(cfg, logger, PostgresStores(db), redisClient, push)
	if err != nil {
		if mqttClient != nil {
			mqttClient.Disconnect()
		}
		redisClient.Close()
		database.Close(db)
		return nil, err
	}
	a.db = db
	a.mqttClient = mqttClient
	return a, nil
}

// Build assembles the engine over the given stores. push may be nil when the push channel is disabled.
func Build(cfg *config.Config, logger *zap.Logger, stores Stores, redisClient *redis.Client, push notifier.Publisher) (*App, error) {
	a := &App{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		stores:      stores,
		publisher:   events.NewRedisPublisher(redisClient, logger),
	}

	scorer := scoring.NewScorer(scoring.DefaultConfig(), logger)
	cache := consumer.NewCacheManager(cfg, redisClient, logger)

	senders := map[models.NotificationChannel]service.Sender{
		models.ChannelEmail: notifier.NewEmailSender(
			cfg.Notification.MailGatewayURL,
			cfg.Notification.MailGatewayToken,
			cfg.Notification.MailFrom,
			cfg.Notification.Timeout,
			logger,
		),
	}
	if push != nil {
		senders[models.ChannelPush] = notifier.NewPushSender(push, cfg.Notification.PushTopicPrefix)
	}

	a.Profiles = service.NewProfileService(stores.Cases, stores.Factors, stores.Profiles, scorer, a.publisher, logger)
	a.Alerts = service.NewAlertService(stores.Alerts, cache, logger)
	a.Rules = service.NewRuleService(stores.Rules, logger)
	a.Notifications = service.NewNotificationService(
		stores.Cases, stores.Alerts, stores.Notifications, a.publisher, senders, push != nil, logger)
	a.Engine = evaluator.NewEngine(stores.Profiles, stores.Rules, stores.Alerts, a.publisher, logger)
	a.Pipeline = service.NewPipeline(a.Profiles, a.Engine, a.Alerts, a.Notifications, logger)

	stages := []struct {
		stream  string
		handler consumer.Handler
	}{
		{events.StreamAssessments, a.Pipeline.HandleAssessmentSaved},
		{events.StreamProfiles, a.Pipeline.HandleProfileUpdated},
		{events.StreamAlerts, a.Pipeline.HandleAlertCreated},
		{events.StreamDeliveries, a.Pipeline.HandleDeliveryRequested},
	}
	for _, stage := range stages {
		a.consumers = append(a.consumers, consumer.NewStreamConsumer(redisClient, consumer.Options{
			Stream:       stage.stream,
			Group:        cfg.Pipeline.ConsumerGroup,
			ConsumerName: cfg.Pipeline.ConsumerName,
			Workers:      cfg.Pipeline.Workers,
			BatchSize:    cfg.Pipeline.BatchSize,
			Block:        cfg.Pipeline.Block,
		}, stage.handler, logger))
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler.Timezone, logger)
		if err != nil {
			return nil, err
		}
		if err := sched.Add(scheduler.JobCleanupResolved, cfg.Scheduler.CleanupSpec,
			scheduler.CleanupResolvedAlerts(a.Alerts, cfg.Scheduler.ResolvedRetention)); err != nil {
			return nil, err
		}
		if err := sched.Add(scheduler.JobRefreshProfiles, cfg.Scheduler.RefreshSpec,
			scheduler.RefreshProfiles(stores.Cases, a.publisher, logger)); err != nil {
			return nil, err
		}
		a.scheduler = sched
	}

	a.server = httpapi.NewServer(cfg.HTTP.Addr, httpapi.Services{
		Profiles: a.Profiles,
		Alerts:   a.Alerts,
		Rules:    a.Rules,
	}, a.healthChecks(), logger)

	return a, nil
}

func (a *App) healthChecks() map[string]httpapi.HealthCheck {
	return map[string]httpapi.HealthCheck{
		"redis": func(ctx context.Context) error {
			return rediscommon.Ping(ctx, a.redisClient)
		},
		"postgres": func(ctx context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.PingContext(ctx)
		},
	}
}

// Handler exposes the HTTP API.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run starts the pipeline consumers, the scheduled jobs and the HTTP server, and blocks until ctx
// is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting risk engine",
		zap.String("http_addr", a.config.HTTP.Addr),
		zap.Int("workers_per_stream", a.config.Pipeline.Workers),
		zap.Bool("scheduler", a.scheduler != nil),
		zap.Bool("push", a.mqttClient != nil),
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range a.consumers {
		c := c
		g.Go(func() error {
			return c.Start(ctx)
		})
	}

	if a.scheduler != nil {
		a.scheduler.Start()
		g.Go(func() error {
			<-ctx.Done()
			<-a.scheduler.Stop().Done()
			return nil
		})
	}

	g.Go(a.server.ListenAndServe)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.HTTP.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.logger.Info("Risk engine stopped")
	return err
}

// Seed loads a risk factor and alert rule catalog.
func (a *App) Seed(ctx context.Context, cat *catalog.Catalog) (*catalog.SeedResult, error) {
	return catalog.NewSeeder(a.stores.Factors, a.stores.Rules, a.logger).Seed(ctx, cat)
}

// Recompute queues a profile rebuild for one case, as if its assessment had just been saved.
func (a *App) Recompute(ctx context.Context, caseID string) error {
	if caseID == "" {
		return fmt.Errorf("case_id is required")
	}
	if _, err := uuid.Parse(caseID); err != nil {
		return fmt.Errorf("case %q: %w", caseID, models.ErrNotFound)
	}
	if _, err := a.stores.Cases.GetCase(ctx, caseID); err != nil {
		return fmt.Errorf("failed to load case: %w", err)
	}
	if err := a.publisher.Publish(ctx, events.StreamAssessments, models.AssessmentSavedEvent{CaseID: caseID}); err != nil {
		return fmt.Errorf("failed to queue recompute: %w", err)
	}
	a.logger.Info("Profile recompute queued", zap.String("case_id", caseID))
	return nil
}

// Close releases connections. Safe to call once after Run returns.
func (a *App) Close() {
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("Failed to close redis", zap.Error(err))
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Error("Failed to close database", zap.Error(err))
	}
}
