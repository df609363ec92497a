package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
)

// ClickHouseSink mirrors appended observations into a wide analytics table.
// OHLCV strings are parsed to nullable floats; macro series land in value.
type ClickHouseSink struct {
	db    *sql.DB
	table string
}

func NewClickHouseSink(db *sql.DB, table string) drepo.Publisher {
	return &ClickHouseSink{db: db, table: table}
}

// Schema returns idempotent DDL for the sink table.
func Schema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			source LowCardinality(String),
			symbol LowCardinality(String),
			dt String,
			open Nullable(Float64),
			high Nullable(Float64),
			low Nullable(Float64),
			close Nullable(Float64),
			volume Nullable(Float64),
			value Nullable(Float64)
		) ENGINE = ReplacingMergeTree
		ORDER BY (source, symbol, dt)`, database, table),
	}
}

func (s *ClickHouseSink) PublishBatch(ctx context.Context, source, symbol string, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	// Chunked multi-row VALUES inserts keep round-trips down on backfills.
	const chunkSize = 2000
	for start := 0; start < len(obs); start += chunkSize {
		end := start + chunkSize
		if end > len(obs) {
			end = len(obs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, o := range obs[start:end] {
			if o.Datetime == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				source,
				symbol,
				o.Datetime,
				nullFloat(o.Open),
				nullFloat(o.High),
				nullFloat(o.Low),
				nullFloat(o.Close),
				nullFloat(o.Volume),
				o.Value,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (source, symbol, dt, open, high, low, close, volume, value) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("clickhouse insert: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseSink) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

func nullFloat(v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
