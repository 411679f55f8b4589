package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReceiptArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a copy", func(t *testing.T) {
		archive := NewMemoryReceiptArchive()
		doc := []byte(`{"payment_number":"RCV-1"}`)
		require.NoError(t, archive.Put(ctx, "t1/RCV-1.json", doc, "application/json"))
		doc[0] = 'x'

		data, contentType, ok := archive.Get("t1/RCV-1.json")
		require.True(t, ok)
		assert.Equal(t, `{"payment_number":"RCV-1"}`, string(data))
		assert.Equal(t, "application/json", contentType)
		assert.Equal(t, 1, archive.Len())
	})

	t.Run("links stored keys only", func(t *testing.T) {
		archive := NewMemoryReceiptArchive()
		require.NoError(t, archive.Put(ctx, "k.json", []byte("{}"), "application/json"))

		link, err := archive.URL(ctx, "k.json", time.Minute)
		require.NoError(t, err)
		assert.Contains(t, link, "http://localhost/receipts/k.json?expires=")

		_, err = archive.URL(ctx, "missing.json", time.Minute)
		assert.ErrorContains(t, err, "receipt not found")
	})

	t.Run("empty key", func(t *testing.T) {
		archive := NewMemoryReceiptArchive()
		assert.Error(t, archive.Put(ctx, "", nil, ""))
		_, err := archive.URL(ctx, "", time.Minute)
		assert.Error(t, err)
		_, _, ok := archive.Get("")
		assert.False(t, ok)
	})
}
