package bootstrap

import (
	"context"
	"sync"
	"time"

	"cropadvisor/internal/adapters/kafka"
	pgclient "cropadvisor/internal/adapters/postgres"
	redisclient "cropadvisor/internal/adapters/redis"
	"cropadvisor/internal/api"
	"cropadvisor/internal/services/advisory"
	"cropadvisor/internal/workers"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 60 * time.Second,
	}
}

// ShutdownTargets lists the components Shutdown closes. Nil fields are skipped.
type ShutdownTargets struct {
	WG                     *sync.WaitGroup
	HTTPServer             *api.Server
	WorkerScheduler        *workers.Scheduler
	Advisory               *advisory.Service
	RecommendationConsumer *kafka.Consumer
	KafkaProducer          *kafka.Producer
	PG                     *pgclient.Client
	Redis                  *redisclient.Client
	ErrorTracker           errors.Tracker
}

// Shutdown performs coordinated cleanup in order:
// 1. No new requests accepted
// 2. Reload worker stops
// 3. Kafka consumer unblocks before waiting for goroutines
// 4. Pending notifications drain
// 5. Producer closes after the consumer
// 6. Stores close last
// 7. Errors and logs flushed
func (l *Lifecycle) Shutdown(t ShutdownTargets, log *logger.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server (5s timeout)
	// ========================================
	log.Info("[1/8] Stopping HTTP server...")
	if t.HTTPServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := t.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	// ========================================
	// Step 2: Stop Background Workers
	// ========================================
	log.Info("[2/8] Stopping background workers...")
	if t.WorkerScheduler != nil && t.WorkerScheduler.IsRunning() {
		if err := t.WorkerScheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	// ========================================
	// Step 3: Close Kafka Consumer
	// Unblocks ReadMessage() before waiting for goroutines
	// ========================================
	log.Info("[3/8] Closing Kafka consumer...")
	if t.RecommendationConsumer != nil {
		if err := t.RecommendationConsumer.Close(); err != nil {
			log.Errorw("Kafka consumer close failed", "error", err)
		} else {
			log.Info("✓ Kafka consumer closed")
		}
	}

	// ========================================
	// Step 4: Wait for Goroutines
	// ========================================
	log.Info("[4/8] Waiting for goroutines...")
	if t.WG != nil {
		l.waitForGoroutines(t.WG, 10*time.Second, log)
	}

	// ========================================
	// Step 5: Drain Notifications
	// ========================================
	log.Info("[5/8] Waiting for pending notifications...")
	if t.Advisory != nil {
		notifyCtx, notifyCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		if err := t.Advisory.Wait(notifyCtx); err != nil {
			log.Warnw("Pending notifications abandoned", "error", err)
		}
		notifyCancel()
	}

	// ========================================
	// Step 6: Close Kafka Producer
	// ========================================
	log.Info("[6/8] Closing Kafka producer...")
	if t.KafkaProducer != nil {
		if err := t.KafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	// ========================================
	// Step 7: Close Database Connections
	// ========================================
	log.Info("[7/8] Closing database connections...")
	l.closeDatabases(t.PG, t.Redis, log)

	// ========================================
	// Step 8: Flush Error Tracker and Logs
	// ========================================
	log.Info("[8/8] Flushing error tracker and logs...")
	l.flushErrorTracker(shutdownCtx, t.ErrorTracker, log)

	log.Info("✅ Graceful shutdown complete")
	_ = logger.Sync()
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeDatabases closes all database connections
func (l *Lifecycle) closeDatabases(pgClient *pgclient.Client, redisClient *redisclient.Client, log *logger.Logger) {
	var dbErrors []error

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "redis"))
		}
	}

	if pgClient != nil {
		if err := pgClient.Close(); err != nil {
			dbErrors = append(dbErrors, errors.Wrap(err, "postgres"))
		}
	}

	if len(dbErrors) > 0 {
		log.Errorw("Database close errors", "errors", dbErrors)
	} else {
		log.Info("✓ Database connections closed")
	}
}
