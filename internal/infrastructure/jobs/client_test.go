package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pharmaerp/receivables/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOpt(t *testing.T) {
	opt := RedisOpt(config.RedisConfig{Host: "cache", Port: 6380, Password: "secret", DB: 2})
	assert.Equal(t, asynq.RedisClientOpt{Addr: "cache:6380", Password: "secret", DB: 2}, opt)
}

func TestNewReceiptArchiveTask(t *testing.T) {
	payload := ReceiptArchivePayload{TenantID: uuid.New(), PaymentID: uuid.New()}
	task, err := NewReceiptArchiveTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TaskReceiptArchive, task.Type())

	parsed, err := parseReceiptArchivePayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, payload, parsed)
}

func TestClient_EnqueueReceiptArchive(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := NewClientFromRedis(rdb, config.JobsConfig{Queue: "receipts", MaxRetry: 3, Timeout: time.Minute})
	t.Cleanup(func() { assert.NoError(t, client.Close()) })

	ctx := context.Background()
	tenantID := uuid.New()
	paymentID := uuid.New()

	t.Run("queues one task per payment", func(t *testing.T) {
		require.NoError(t, client.EnqueueReceiptArchive(ctx, tenantID, paymentID))
		assert.True(t, mr.Exists("asynq:{receipts}:t:"+receiptArchiveTaskID(paymentID)))

		pending, err := mr.List("asynq:{receipts}:pending")
		require.NoError(t, err)
		assert.Equal(t, []string{receiptArchiveTaskID(paymentID)}, pending)
	})

	t.Run("treats a duplicate as queued", func(t *testing.T) {
		require.NoError(t, client.EnqueueReceiptArchive(ctx, tenantID, paymentID))

		pending, err := mr.List("asynq:{receipts}:pending")
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("falls back to the default queue", func(t *testing.T) {
		other := NewClientFromRedis(rdb, config.JobsConfig{})
		require.NoError(t, other.EnqueueReceiptArchive(ctx, tenantID, uuid.New()))
		assert.True(t, mr.Exists("asynq:{"+QueueDefault+"}:pending"))
	})
}
