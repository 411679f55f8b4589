package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Payment", uuid.New(), tenantID),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	started    chan struct{}
	block      chan struct{}
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.started != nil {
		close(h.started)
	}
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("delivers to subscribed types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		allocated := newTestHandler("PaymentAllocated")
		other := newTestHandler("InvoiceRecorded")
		bus.Subscribe(allocated)
		bus.Subscribe(other)

		e1 := newTestEvent("PaymentAllocated", tenantID)
		e2 := newTestEvent("PaymentAllocated", tenantID)
		require.NoError(t, bus.Publish(ctx, e1, e2))

		handled := allocated.getHandled()
		require.Len(t, handled, 2)
		assert.Equal(t, e1, handled[0])
		assert.Equal(t, e2, handled[1])
		assert.Empty(t, other.getHandled())
	})

	t.Run("explicit types override the handler's", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newTestHandler("PaymentAllocated")
		bus.Subscribe(h, "Other")

		require.NoError(t, bus.Publish(ctx, newTestEvent("PaymentAllocated", tenantID)))
		assert.Empty(t, h.getHandled())
	})

	t.Run("wildcard handler sees everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newTestHandler()
		bus.Subscribe(h)

		require.NoError(t, bus.Publish(ctx, newTestEvent("A", tenantID), newTestEvent("B", tenantID)))
		assert.Len(t, h.getHandled(), 2)
	})

	t.Run("a failing handler does not stop the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := newTestHandler("PaymentAllocated")
		failing.err = errors.New("boom")
		panicking := newTestHandler("PaymentAllocated")
		panicking.panicWith = "kaboom"
		healthy := newTestHandler("PaymentAllocated")
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		err := bus.Publish(ctx, newTestEvent("PaymentAllocated", tenantID))
		require.Error(t, err)
		assert.ErrorContains(t, err, "boom")
		assert.ErrorContains(t, err, "kaboom")
		assert.Len(t, healthy.getHandled(), 1)
	})

	t.Run("unsubscribe", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newTestHandler("PaymentAllocated")
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(ctx, newTestEvent("PaymentAllocated", tenantID)))
		assert.Empty(t, h.getHandled())
	})
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects publishes after stop", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		require.NoError(t, bus.Start(ctx))
		require.NoError(t, bus.Stop(ctx))

		err := bus.Publish(ctx, newTestEvent("PaymentAllocated", uuid.New()))
		assert.ErrorIs(t, err, ErrBusStopped)

		require.NoError(t, bus.Start(ctx))
		assert.NoError(t, bus.Publish(ctx, newTestEvent("PaymentAllocated", uuid.New())))
	})

	t.Run("waits for in-flight publishes", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newTestHandler("PaymentAllocated")
		h.started = make(chan struct{})
		h.block = make(chan struct{})
		bus.Subscribe(h)

		published := make(chan error, 1)
		go func() {
			published <- bus.Publish(ctx, newTestEvent("PaymentAllocated", uuid.New()))
		}()
		<-h.started

		stopCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, bus.Stop(stopCtx), context.DeadlineExceeded)

		close(h.block)
		require.NoError(t, <-published)
		assert.NoError(t, bus.Stop(ctx))
	})
}
