package storage

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/pharmaerp/receivables/internal/domain/allocation"
)

var _ allocation.ReceiptArchive = (*MemoryReceiptArchive)(nil)

// MemoryReceiptArchive keeps receipts in process memory. Use it for
// development and tests when no bucket is configured.
type MemoryReceiptArchive struct {
	// BaseURL prefixes generated links.
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryReceiptArchive creates an empty archive.
func NewMemoryReceiptArchive() *MemoryReceiptArchive {
	return &MemoryReceiptArchive{
		BaseURL: "http://localhost/receipts",
		objects: make(map[string]memoryObject),
	}
}

// Put stores a copy of data under key.
func (m *MemoryReceiptArchive) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// URL returns a fake link for a stored key.
func (m *MemoryReceiptArchive) URL(_ context.Context, key string, expiresIn time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", errors.New("receipt not found: " + key)
	}
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(time.Now().Add(expiresIn).Unix(), 10))
	return m.BaseURL + "/" + key + "?" + q.Encode(), nil
}

// Get returns the stored document and its content type.
func (m *MemoryReceiptArchive) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, true
}

// Len returns the number of stored receipts.
func (m *MemoryReceiptArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
