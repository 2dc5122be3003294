package reporting

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gr-butler/estacion/data"
	"github.com/lib/pq"
)

// Recorder appends each report as a row of the observation table.
type Recorder struct {
	db    *sql.DB
	table string
}

// NewRecorder opens the pool lazily; nothing is dialled until the first report.
func NewRecorder(dsn, table string) (*Recorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Recorder{db: db, table: table}, nil
}

func (r *Recorder) Name() string { return "postgres" }

func (r *Recorder) createStatement() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	time        TIMESTAMPTZ NOT NULL,
	altitude    DOUBLE PRECISION,
	dew_point   DOUBLE PRECISION,
	humidity    DOUBLE PRECISION,
	rainfall    DOUBLE PRECISION,
	pressure    DOUBLE PRECISION,
	heat_index  DOUBLE PRECISION,
	temperature DOUBLE PRECISION,
	wind_speed  DOUBLE PRECISION,
	wind_dir    DOUBLE PRECISION
)`, pq.QuoteIdentifier(r.table))
}

func (r *Recorder) insertStatement() string {
	return fmt.Sprintf(`INSERT INTO %s (time, altitude, dew_point, humidity, rainfall, pressure, heat_index, temperature, wind_speed, wind_dir)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, pq.QuoteIdentifier(r.table))
}

// recordArgs maps missing readings to NULL.
func recordArgs(s data.SampleSet) []interface{} {
	dir := sql.NullFloat64{}
	if deg, ok := s.WindDirection.Degrees(); ok {
		dir = sql.NullFloat64{Float64: deg, Valid: true}
	}
	return []interface{}{
		s.Time.UTC(),
		nullable(s.Altitude),
		nullable(s.DewPoint),
		nullable(s.Humidity),
		nullable(s.Rainfall),
		nullable(s.Pressure),
		nullable(s.HeatIndex),
		nullable(s.Temperature),
		nullable(s.WindSpeed),
		dir,
	}
}

func nullable(r data.Reading) sql.NullFloat64 {
	v, ok := r.Value()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func (r *Recorder) Report(ctx context.Context, s data.SampleSet) error {
	if _, err := r.db.ExecContext(ctx, r.createStatement()); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.insertStatement(), recordArgs(s)...); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}
