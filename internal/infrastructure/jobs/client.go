package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pharmaerp/receivables/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisOpt converts the Redis settings into asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Client submits jobs to the queue.
type Client struct {
	client   *asynq.Client
	shared   bool
	queue    string
	maxRetry int
	timeout  time.Duration
}

// NewClient constructs an Asynq client with its own connection.
func NewClient(redisOpt asynq.RedisConnOpt, cfg config.JobsConfig) *Client {
	return newClient(asynq.NewClient(redisOpt), false, cfg)
}

// NewClientFromRedis reuses an existing Redis connection. Closing the client
// leaves rdb open.
func NewClientFromRedis(rdb redis.UniversalClient, cfg config.JobsConfig) *Client {
	return newClient(asynq.NewClientFromRedisClient(rdb), true, cfg)
}

func newClient(c *asynq.Client, shared bool, cfg config.JobsConfig) *Client {
	queue := cfg.Queue
	if queue == "" {
		queue = QueueDefault
	}
	return &Client{client: c, shared: shared, queue: queue, maxRetry: cfg.MaxRetry, timeout: cfg.Timeout}
}

// EnqueueReceiptArchive enqueues the receipt archive of a payment. A task
// already queued for the payment counts as success.
func (c *Client) EnqueueReceiptArchive(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	task, err := NewReceiptArchiveTask(ReceiptArchivePayload{TenantID: tenantID, PaymentID: paymentID})
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue(c.queue),
		asynq.TaskID(receiptArchiveTaskID(paymentID)),
	}
	if c.maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(c.maxRetry))
	}
	if c.timeout > 0 {
		opts = append(opts, asynq.Timeout(c.timeout))
	}

	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue %s: %w", TaskReceiptArchive, err)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	if c.shared {
		return nil
	}
	return c.client.Close()
}
