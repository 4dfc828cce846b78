package bootstrap

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"cropadvisor/internal/adapters/config"
	errnoop "cropadvisor/internal/adapters/errors/noop"
	"cropadvisor/internal/adapters/errors/sentry"
	"cropadvisor/internal/adapters/kafka"
	"cropadvisor/internal/adapters/notify"
	pgclient "cropadvisor/internal/adapters/postgres"
	redisclient "cropadvisor/internal/adapters/redis"
	"cropadvisor/internal/adapters/tabular"
	"cropadvisor/internal/api"
	"cropadvisor/internal/api/health"
	"cropadvisor/internal/api/recommend"
	"cropadvisor/internal/consumers"
	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/ratelimit"
	pgrepo "cropadvisor/internal/repository/postgres"
	redisrepo "cropadvisor/internal/repository/redis"
	"cropadvisor/internal/services/advisory"
	"cropadvisor/internal/services/recommendation"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects the optional data stores
func (c *Container) MustInitInfrastructure() {
	ctx, cancel := context.WithTimeout(c.Context, 15*time.Second)
	defer cancel()

	var err error

	if c.Config.Postgres.Enabled {
		c.Log.Info("Connecting to PostgreSQL...")
		c.PG, err = pgclient.NewClient(ctx, c.Config.Postgres)
		if err != nil {
			c.Log.Fatalf("failed to connect postgres: %v", err)
		}
		if err := pgrepo.Migrate(ctx, c.PG.DB()); err != nil {
			c.Log.Fatalf("failed to migrate postgres: %v", err)
		}
		c.Log.Info("✓ PostgreSQL connected")
	}

	if c.Config.Redis.Enabled {
		c.Log.Info("Connecting to Redis...")
		c.Redis, err = redisclient.NewClient(ctx, c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Log.Info("✓ Redis connected")
	}
}

// ========================================
// Phase 3: Model
// ========================================

// MustInitModel selects the tabular store and performs the initial load.
// A failed load leaves the engine in Failed state; the service still starts.
func (c *Container) MustInitModel() {
	c.Store = provideTabularStore(c.Config, c.PG, c.Log)
	c.Engine = recommendation.NewEngine(recommendation.Config{K: c.Config.Model.K}, c.Log)

	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	state, err := c.Engine.Load(ctx, c.Store)
	if err != nil {
		metrics.RecordModelReload("failed")
		c.Log.Errorw("Initial model load failed, analyses disabled", "error", err)
		return
	}
	metrics.RecordModelReload(state.String())
	c.Log.Infow("✓ Recommendation engine loaded", "state", state)
}

// ========================================
// Phase 4: Services
// ========================================

// MustInitServices wires the advisory service with its optional collaborators
func (c *Container) MustInitServices() {
	deps := advisory.Deps{Engine: c.Engine}

	if c.Redis != nil {
		deps.Cache = redisrepo.NewAnalysisCache(c.Redis.Client())
	}
	if c.PG != nil {
		deps.Recorder = pgrepo.NewAnalysisRepository(c.PG.DB())
	}
	if c.Config.Notify.Enabled {
		deps.Notifier = notify.NewClient(c.Config.Notify, c.Log)
	}

	c.Services.Advisory = advisory.NewService(deps, advisory.Config{
		CacheTTL:      c.Config.Redis.CacheTTL,
		NotifyTimeout: c.Config.Notify.Timeout,
	}, c.Log)

	c.Log.Infow("✓ Advisory service initialized",
		"cache", deps.Cache != nil,
		"history", deps.Recorder != nil,
		"notify", deps.Notifier != nil,
	)
}

// ========================================
// Phase 5: External Adapters
// ========================================

// MustInitAdapters initializes Kafka when enabled
func (c *Container) MustInitAdapters() {
	if !c.Config.Kafka.Enabled {
		c.Log.Info("Kafka disabled")
		return
	}

	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.RecommendationConsumer = provideKafkaConsumer(c.Config, kafka.TopicRecommendationRequest, c.Log)
}

// ========================================
// Phase 6: Application Layer
// ========================================

// MustInitApplication builds the HTTP handlers and server
func (c *Container) MustInitApplication() {
	metrics.Init()

	var pgDB *sqlx.DB
	if c.PG != nil {
		pgDB = c.PG.DB()
	}
	metrics.RegisterCustomCollector(metrics.NewCustomCollector(c.Log, c.modelStatus, pgDB))

	deps := map[string]health.Pinger{}
	if c.PG != nil {
		deps["postgres"] = c.PG
	}
	if c.Redis != nil {
		deps["redis"] = c.Redis
	}

	c.Application.HealthHandler = health.New(c.Log, c.Engine, deps, c.Config.App.Name, c.Config.App.Version)
	c.Application.RecommendHandler = recommend.NewHandler(
		c.Services.Advisory,
		c.Engine,
		c.Config.App.DisplayName,
		c.Adapters.RecommendationConsumer != nil,
		c.Log,
	)
	c.Application.HTTPServer = provideHTTPServer(c.Config, c.Application.HealthHandler, c.Application.RecommendHandler, c.Log)
}

// ========================================
// Phase 7: Background Processing
// ========================================

// MustInitBackground builds the Kafka consumer service and worker scheduler
func (c *Container) MustInitBackground() {
	if c.Adapters.RecommendationConsumer != nil {
		c.Background.RecommendationSvc = consumers.NewRecommendationConsumer(
			c.Adapters.RecommendationConsumer,
			c.Adapters.KafkaProducer,
			c.Services.Advisory,
			c.Log,
		)
	}

	c.Background.WorkerScheduler = provideWorkers(c.Config, c.Engine, c.Store, c.Log)
}

func (c *Container) modelStatus() metrics.ModelStatus {
	st := c.Engine.Status()
	return metrics.ModelStatus{
		State:   st.State.String(),
		Version: st.Version,
		Samples: st.Samples,
		Stages:  st.Stages,
	}
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideTabularStore(cfg *config.Config, pg *pgclient.Client, log *logger.Logger) suitability.TabularStore {
	if cfg.Model.Source == "postgres" && pg != nil {
		log.Info("Loading datasets from PostgreSQL")
		return pgrepo.NewDatasetRepository(pg.DB())
	}

	log.Infow("Loading datasets from CSV",
		"training", cfg.Model.TrainingPath(),
		"ideal", cfg.Model.IdealPath(),
	)
	return tabular.NewCSVStore(cfg.Model.TrainingPath(), cfg.Model.IdealPath(), log)
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Info("Initializing Kafka producer...")
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	log.Info("✓ Kafka producer initialized")
	return producer
}

func provideKafkaConsumer(cfg *config.Config, topic string, log *logger.Logger) *kafka.Consumer {
	log.Infow("Initializing Kafka consumer", "topic", topic)
	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   topic,
	})
	log.Infow("✓ Kafka consumer initialized", "topic", topic)
	return consumer
}

func provideHTTPServer(
	cfg *config.Config,
	healthHandler *health.Handler,
	recommendHandler *recommend.Handler,
	log *logger.Logger,
) *api.Server {
	var limiter *ratelimit.KeyedLimiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = ratelimit.NewKeyedLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst, 10*time.Minute)
	}

	return api.NewServer(api.ServerConfig{
		Port:        cfg.HTTP.Port,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Limiter:     limiter,
	}, healthHandler, recommendHandler, log)
}
