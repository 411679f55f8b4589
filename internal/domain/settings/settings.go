// Package settings holds per-tenant allocation preferences and the key/value
// store they live in.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"golang.org/x/text/language"
)

// Known keys.
const (
	KeyAutoAllocate = "allocation.auto_allocate"
	KeyCurrency     = "allocation.currency"
	KeyLocale       = "allocation.locale"
)

// ConfigStore is a string key/value store scoped to one tenant.
type ConfigStore interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// StoreProvider hands out the ConfigStore of a tenant.
type StoreProvider interface {
	ForTenant(tenantID uuid.UUID) ConfigStore
}

// Settings is the typed view over a tenant's ConfigStore.
type Settings struct {
	AutoAllocate bool                 `json:"auto_allocate"`
	Currency     valueobject.Currency `json:"currency"`
	Locale       string               `json:"locale"`
}

// Defaults returns the settings used when no key has been written.
func Defaults() Settings {
	return Settings{
		AutoAllocate: true,
		Currency:     valueobject.DefaultCurrency,
		Locale:       "en-IN",
	}
}

// LanguageTag parses Locale, falling back to Indian English.
func (s Settings) LanguageTag() language.Tag {
	tag, err := language.Parse(s.Locale)
	if err != nil {
		return language.MustParse("en-IN")
	}
	return tag
}

// KnownKeys returns the accepted keys in sorted order.
func KnownKeys() []string {
	keys := []string{KeyAutoAllocate, KeyCurrency, KeyLocale}
	sort.Strings(keys)
	return keys
}

// Normalize validates value for key and returns its canonical form.
func Normalize(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch key {
	case KeyAutoAllocate:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", invalid(key, "must be true or false")
		}
		return strconv.FormatBool(b), nil
	case KeyCurrency:
		c, err := valueobject.ParseCurrency(strings.ToUpper(value))
		if err != nil {
			return "", invalid(key, "must be an ISO 4217 currency code")
		}
		return string(c), nil
	case KeyLocale:
		tag, err := language.Parse(value)
		if err != nil {
			return "", invalid(key, "must be a BCP 47 language tag")
		}
		return tag.String(), nil
	default:
		return "", shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("unknown setting %q", key))
	}
}

func invalid(key, msg string) error {
	return shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("%s %s", key, msg))
}

// Load reads every known key from store, keeping defaults for absent ones.
// A stored value that no longer validates is ignored.
func Load(ctx context.Context, store ConfigStore, defaults Settings) (Settings, error) {
	s := defaults
	for _, key := range KnownKeys() {
		raw, ok, err := store.Get(ctx, key)
		if err != nil {
			return defaults, fmt.Errorf("read setting %s: %w", key, err)
		}
		if !ok {
			continue
		}
		v, err := Normalize(key, raw)
		if err != nil {
			continue
		}
		switch key {
		case KeyAutoAllocate:
			s.AutoAllocate = v == "true"
		case KeyCurrency:
			s.Currency = valueobject.Currency(v)
		case KeyLocale:
			s.Locale = v
		}
	}
	return s, nil
}

// Set validates and writes one key.
func Set(ctx context.Context, store ConfigStore, key, value string) (string, error) {
	v, err := Normalize(key, value)
	if err != nil {
		return "", err
	}
	if err := store.Set(ctx, key, v); err != nil {
		return "", fmt.Errorf("write setting %s: %w", key, err)
	}
	return v, nil
}
