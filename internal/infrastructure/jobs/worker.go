package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReceiptArchiver stores the receipt of a payment and returns its key.
type ReceiptArchiver interface {
	Archive(ctx context.Context, tenantID, paymentID uuid.UUID) (string, error)
}

// Worker wraps the Asynq server.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	archiver ReceiptArchiver
	logger   *zap.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	Jobs     config.JobsConfig
	Archiver ReceiptArchiver
	Logger   *zap.Logger
}

// NewWorker constructs a Worker with its own Redis connection.
func NewWorker(redisOpt asynq.RedisConnOpt, cfg WorkerConfig) *Worker {
	w := newWorker(cfg)
	w.server = asynq.NewServer(redisOpt, w.serverConfig(cfg.Jobs))
	return w
}

// NewWorkerFromRedis constructs a Worker on an existing Redis connection.
func NewWorkerFromRedis(rdb redis.UniversalClient, cfg WorkerConfig) *Worker {
	w := newWorker(cfg)
	w.server = asynq.NewServerFromRedisClient(rdb, w.serverConfig(cfg.Jobs))
	return w
}

func newWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		mux:      asynq.NewServeMux(),
		archiver: cfg.Archiver,
		logger:   logger.Named("jobs"),
	}
	w.mux.HandleFunc(TaskReceiptArchive, w.handleReceiptArchive)
	return w
}

func (w *Worker) serverConfig(cfg config.JobsConfig) asynq.Config {
	queue := cfg.Queue
	if queue == "" {
		queue = QueueDefault
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.Config{
		Concurrency:  concurrency,
		Queues:       map[string]int{queue: 1},
		Logger:       w.logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(w.logTaskError),
	}
}

// Run processes jobs until ctx is cancelled, then shuts the server down
// gracefully. Signal handling is left to the caller.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return errors.New("worker: not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// handleReceiptArchive processes TaskReceiptArchive tasks.
func (w *Worker) handleReceiptArchive(ctx context.Context, t *asynq.Task) error {
	payload, err := parseReceiptArchivePayload(t.Payload())
	if err != nil {
		w.logger.Error("dropping receipt archive task", zap.Error(err))
		return errors.Join(err, asynq.SkipRetry)
	}

	key, err := w.archiver.Archive(ctx, payload.TenantID, payload.PaymentID)
	if err != nil {
		if errors.Is(err, allocation.ErrPaymentNotFound) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return err
	}

	w.logger.Debug("receipt archive task done",
		zap.String("payment_id", payload.PaymentID.String()),
		zap.String("key", key),
	)
	return nil
}

func (w *Worker) logTaskError(ctx context.Context, t *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	w.logger.Warn("task failed",
		zap.String("type", t.Type()),
		zap.Int("retried", retried),
		zap.Int("max_retry", maxRetry),
		zap.Error(err),
	)
}
