// Package analytics records per-request outcomes in ClickHouse for offline
// analysis of guardrail behavior. The sink is optional; when disabled the
// service runs without it and callers hold a nil *Sink.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config holds ClickHouse connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Outcome is one answered query.
type Outcome struct {
	Timestamp       time.Time
	Query           string
	ResponseType    string
	GuardrailStatus string
	IsFallback      bool
	Loops           int
	ToolCalls       int
	LatencyMs       int64
	TraceID         string
	UserID          string
}

// Sink writes outcomes to ClickHouse. A nil Sink discards writes.
type Sink struct {
	conn driver.Conn
}

// Open connects to ClickHouse and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	s := &Sink{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) createSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS query_outcomes (
		timestamp        DateTime64(3),
		query            String,
		response_type    LowCardinality(String),
		guardrail_status LowCardinality(String),
		is_fallback      UInt8,
		loops            UInt8,
		tool_calls       UInt8,
		latency_ms       UInt32,
		trace_id         String,
		user_id          String
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (guardrail_status, timestamp)`

	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create analytics schema: %w", err)
	}
	return nil
}

// Record writes one outcome asynchronously. Failures are logged and
// dropped; analytics must never affect a user request.
func (s *Sink) Record(ctx context.Context, o Outcome) {
	if s == nil {
		return
	}
	fallback := uint8(0)
	if o.IsFallback {
		fallback = 1
	}
	err := s.conn.AsyncInsert(ctx, `
		INSERT INTO query_outcomes
			(timestamp, query, response_type, guardrail_status, is_fallback, loops, tool_calls, latency_ms, trace_id, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, false,
		o.Timestamp, o.Query, o.ResponseType, o.GuardrailStatus, fallback,
		uint8(o.Loops), uint8(o.ToolCalls), uint32(o.LatencyMs), o.TraceID, o.UserID,
	)
	if err != nil {
		log.Printf("analytics: record outcome: %v", err)
	}
}

// Close closes the connection.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	return s.conn.Close()
}
