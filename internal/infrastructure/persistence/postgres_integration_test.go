//go:build integration

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newPostgresDatabase starts a throwaway Postgres and applies the embedded
// migrations to it.
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("receivables_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gormDB, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	db := NewDatabaseFromGorm(gormDB)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_ConcurrentSubmitsNeverOverdraw(t *testing.T) {
	db := newPostgresDatabase(t)
	ledger := NewGormInvoiceLedger(db.DB)
	repo := NewGormPaymentRepository(db.DB)
	f := &paymentFixture{ledger: ledger, repo: repo, tenantID: uuid.New(), customerID: uuid.New()}
	seedInvoice(t, ledger, f.tenantID, f.customerID, "INV-1", 1, "3000", "3000")

	snapshot, err := ledger.ListOutstanding(context.Background(), f.tenantID, f.customerID)
	require.NoError(t, err)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		stale    int
	)
	for i := 0; i < workers; i++ {
		p := f.newPaymentWith(t, snapshot, "1000", "", alloc("INV-1", "1000"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Submit(context.Background(), p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case assert.ErrorIs(t, err, allocation.ErrAllocationStale):
				stale++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, workers-3, stale)
	assert.Equal(t, "0", f.amountDue(t, "INV-1"))
}

func TestPostgres_MigrationsRoundTrip(t *testing.T) {
	db := newPostgresDatabase(t)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}
