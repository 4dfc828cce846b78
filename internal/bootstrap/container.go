package bootstrap

import (
	"context"
	"sync"

	"cropadvisor/internal/adapters/config"
	"cropadvisor/internal/adapters/kafka"
	pgclient "cropadvisor/internal/adapters/postgres"
	redisclient "cropadvisor/internal/adapters/redis"
	"cropadvisor/internal/api"
	"cropadvisor/internal/api/health"
	"cropadvisor/internal/api/recommend"
	"cropadvisor/internal/consumers"
	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/services/advisory"
	"cropadvisor/internal/services/recommendation"
	"cropadvisor/internal/workers"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (optional data stores, nil when disabled)
	PG    *pgclient.Client
	Redis *redisclient.Client

	// Domain Layer
	Store    suitability.TabularStore
	Engine   *recommendation.Engine
	Services *Services

	// External Adapters
	Adapters *Adapters

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Services groups application services
type Services struct {
	Advisory *advisory.Service
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer          *kafka.Producer
	RecommendationConsumer *kafka.Consumer
}

// Application groups application layer components
type Application struct {
	HTTPServer       *api.Server
	HealthHandler    *health.Handler
	RecommendHandler *recommend.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler   *workers.Scheduler
	RecommendationSvc *consumers.RecommendationConsumer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Services:    &Services{},
		Adapters:    &Adapters{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitModel()
	c.MustInitServices()
	c.MustInitAdapters()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if c.Background.RecommendationSvc != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			if err := c.Background.RecommendationSvc.Start(c.Context); err != nil && c.Context.Err() == nil {
				c.Log.Errorw("Recommendation consumer failed", "error", err)
			}
		}()
		c.Log.Info("✓ Kafka consumer started")
	}

	// Start HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(ShutdownTargets{
		WG:                     c.WG,
		HTTPServer:             c.Application.HTTPServer,
		WorkerScheduler:        c.Background.WorkerScheduler,
		Advisory:               c.Services.Advisory,
		RecommendationConsumer: c.Adapters.RecommendationConsumer,
		KafkaProducer:          c.Adapters.KafkaProducer,
		PG:                     c.PG,
		Redis:                  c.Redis,
		ErrorTracker:           c.ErrorTracker,
	}, c.Log)
}
