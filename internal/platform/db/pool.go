package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// PoolConfig configures the shared connection pool.
type PoolConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
	// Logger receives pgx trace output at LogLevel and above. Nil disables tracing.
	Logger   *zerolog.Logger
	LogLevel tracelog.LogLevel
}

func NewPool(ctx context.Context, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(pc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	if pc.Logger != nil {
		level := pc.LogLevel
		if level == 0 {
			level = tracelog.LogLevelWarn
		}
		cfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   zerologAdapter(*pc.Logger),
			LogLevel: level,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func zerologAdapter(logger zerolog.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
		var evt *zerolog.Event
		switch level {
		case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
			evt = logger.Debug()
		case tracelog.LogLevelInfo:
			evt = logger.Info()
		case tracelog.LogLevelWarn:
			evt = logger.Warn()
		default:
			evt = logger.Error()
		}
		evt.Fields(data).Str("component", "pgx").Msg(msg)
	})
}
