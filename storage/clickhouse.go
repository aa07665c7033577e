package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/thisisjab/docquery/entity"
)

type ClickHouseStorageConfig struct {
	Addr     []string `yaml:"addr"`
	Database string   `yaml:"database"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

func (c ClickHouseStorageConfig) Validate() error {
	if len(c.Addr) == 0 {
		return errors.New("clickhouse address is required")
	}

	if c.Database == "" {
		return errors.New("clickhouse database is required")
	}

	return nil
}

type ClickHouseStorage struct {
	conn clickhouse.Conn
	cfg  ClickHouseStorageConfig
	open func(opt *clickhouse.Options) (driver.Conn, error)
}

func NewClickHouseStorage(cfg ClickHouseStorageConfig) (*ClickHouseStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &ClickHouseStorage{cfg: cfg, open: clickhouse.Open}, nil
}

func setupClickHouseTables(ctx context.Context, conn driver.Conn) error {
	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS verdicts (
			id UUID,
			query String,
			source String,
			result Bool,
			lookups UInt32,
			duration_ns Int64,
			evaluated_at DateTime64(3)
		)
		ENGINE = MergeTree
		ORDER BY (evaluated_at, id)
		PARTITION BY toYYYYMM(evaluated_at)
	`)
}

func (s *ClickHouseStorage) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := s.open(&clickhouse.Options{
		Addr: s.cfg.Addr,
		Auth: clickhouse.Auth{
			Database: s.cfg.Database,
			Username: s.cfg.Username,
			Password: s.cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close() //nolint:errcheck
		return fmt.Errorf("failed to ping the database: %w", err)
	}

	s.conn = conn

	if err := setupClickHouseTables(ctx, conn); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

func (s *ClickHouseStorage) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}

	return s.conn.Close()
}

func (s *ClickHouseStorage) StoreVerdicts(ctx context.Context, verdicts ...entity.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	if s.conn == nil {
		return errors.New("clickhouse storage is not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO verdicts ("+verdictColumns+")")
	if err != nil {
		return fmt.Errorf("couldn't prepare batch: %w", err)
	}

	for _, v := range verdicts {
		err = batch.Append(v.ID, v.Query, v.Source, v.Result, uint32(v.Lookups), v.Duration.Nanoseconds(), v.EvaluatedAt)
		if err != nil {
			return fmt.Errorf("couldn't append verdict to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("couldn't send batch: %w", err)
	}

	return nil
}

func (s *ClickHouseStorage) ListVerdicts(ctx context.Context, filter VerdictFilter) ([]entity.Verdict, error) {
	query, args, err := buildVerdictQuery(filter)
	if err != nil {
		return nil, err
	}

	if s.conn == nil {
		return nil, errors.New("clickhouse storage is not connected")
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("couldn't query verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := make([]entity.Verdict, 0, filter.Limit)
	for rows.Next() {
		var (
			v          entity.Verdict
			lookups    uint32
			durationNs int64
		)

		if err := rows.Scan(&v.ID, &v.Query, &v.Source, &v.Result, &lookups, &durationNs, &v.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("couldn't scan verdict: %w", err)
		}

		v.Lookups = int(lookups)
		v.Duration = time.Duration(durationNs)
		verdicts = append(verdicts, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read verdicts: %w", err)
	}

	return verdicts, nil
}
