package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
)

const dailyRecordsSchema = `
	CREATE TABLE IF NOT EXISTS daily_records (
		symbol        TEXT             NOT NULL,
		date          DATE             NOT NULL,
		open          DOUBLE PRECISION,
		high          DOUBLE PRECISION,
		low           DOUBLE PRECISION,
		close         DOUBLE PRECISION,
		adj_close     DOUBLE PRECISION,
		volume        DOUBLE PRECISION,
		market_cap    DOUBLE PRECISION,
		delta         DOUBLE PRECISION,
		delta_percent DOUBLE PRECISION,
		PRIMARY KEY (symbol, date)
	)
`

var dailyRecordColumns = []string{
	"symbol", "date", "open", "high", "low", "close", "adj_close",
	"volume", "market_cap", "delta", "delta_percent",
}

// PostgresStore keeps processed series in a PostgreSQL/TimescaleDB table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and verifies connectivity
func NewPostgresStore(dbConfig config.DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to series database",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an existing connection pool
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the daily_records table when missing
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, dailyRecordsSchema); err != nil {
		return fmt.Errorf("failed to create daily_records table: %w", err)
	}
	return nil
}

// Load retrieves the series of a symbol
func (p *PostgresStore) Load(ctx context.Context, symbol string) (series *models.InstrumentSeries, err error) {
	start := time.Now()
	defer func() { observeLoad("postgres", start, err) }()

	query := `
		SELECT date, open, high, low, close, adj_close, volume, market_cap, delta, delta_percent
		FROM daily_records
		WHERE symbol = $1
		ORDER BY date ASC
	`

	rows, err := p.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query series for %s: %w", symbol, err)
	}
	defer rows.Close()

	var records []models.DailyRecord
	for rows.Next() {
		var rec models.DailyRecord
		if err := rows.Scan(
			&rec.Date, &rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.AdjClose,
			&rec.Volume, &rec.MarketCap, &rec.Delta, &rec.DeltaPercent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record for %s: %w", symbol, err)
		}
		rec.Date = rec.Date.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records for %s: %w", symbol, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSeriesNotFound, symbol)
	}

	return models.NewInstrumentSeries(symbol, records), nil
}

// Save replaces all records of the series' symbol in one transaction using
// COPY for the inserts
func (p *PostgresStore) Save(ctx context.Context, series *models.InstrumentSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_records WHERE symbol = $1`, series.Symbol); err != nil {
		return fmt.Errorf("failed to delete records for %s: %w", series.Symbol, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("daily_records", dailyRecordColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for i := range series.Records {
		rec := &series.Records[i]
		if _, err := stmt.ExecContext(ctx,
			series.Symbol, rec.Date, rec.Open, rec.High, rec.Low, rec.Close, rec.AdjClose,
			rec.Volume, rec.MarketCap, rec.Delta, rec.DeltaPercent,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy record for %s: %w", series.Symbol, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy for %s: %w", series.Symbol, err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy statement: %w", err)
	}

	return tx.Commit()
}

// Close closes the connection pool
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
