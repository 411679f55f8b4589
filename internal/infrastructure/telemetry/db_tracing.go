package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM span creation.
type DBTracingConfig struct {
	Enabled bool
	// DBName is recorded as db.name on every span.
	DBName string
	// IncludeVariables puts bound query values into span statements.
	IncludeVariables bool
	// SlowQueryThreshold marks slower queries with a db.slow_query event.
	SlowQueryThreshold time.Duration
}

const queryStartKey = "telemetry:query_start"

// RegisterDBTracing installs the otelgorm plugin and a slow-query marker on db.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if cfg.SlowQueryThreshold > 0 {
		if err := registerSlowQueryCallbacks(db, cfg.SlowQueryThreshold); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.String("db_name", cfg.DBName),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return nil
}

func registerSlowQueryCallbacks(db *gorm.DB, threshold time.Duration) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		elapsed := time.Since(v.(time.Time))
		if elapsed < threshold || tx.Statement.Context == nil {
			return
		}
		AddEvent(trace.SpanFromContext(tx.Statement.Context), "db.slow_query",
			"db.table", tx.Statement.Table,
			"db.duration_ms", elapsed.Milliseconds(),
		)
	}

	cb := db.Callback()
	type hook func(name string, fn func(*gorm.DB)) error
	steps := []struct {
		name          string
		before, after hook
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before("telemetry:slow_before_"+s.name, before); err != nil {
			return err
		}
		if err := s.after("telemetry:slow_after_"+s.name, after); err != nil {
			return err
		}
	}
	return nil
}
