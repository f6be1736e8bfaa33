package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/klgeo/outlets-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock's pool
// satisfies it, which keeps the Postgres store unit-testable.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS outlets (
	id             BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name           TEXT NOT NULL,
	address        TEXT NOT NULL,
	work_day_start TEXT,
	work_day_end   TEXT,
	start_time     TEXT,
	end_time       TEXT,
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_outlets_name ON outlets(name);
CREATE INDEX IF NOT EXISTS idx_outlets_ungeocoded ON outlets(id) WHERE latitude IS NULL;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) InsertOutlets(ctx context.Context, outlets []model.Outlet) (int, error) {
	n := 0
	for _, o := range outlets {
		var err error
		if o.ID != 0 {
			_, err = s.pool.Exec(ctx,
				`INSERT INTO outlets (id, name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				 ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, address = EXCLUDED.address,
					work_day_start = EXCLUDED.work_day_start, work_day_end = EXCLUDED.work_day_end,
					start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
					latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude`,
				o.ID, o.Name, o.Address,
				pgNullStr(o.WorkDayStart), pgNullStr(o.WorkDayEnd), pgNullStr(o.StartTime), pgNullStr(o.EndTime),
				o.Latitude, o.Longitude,
			)
		} else {
			_, err = s.pool.Exec(ctx,
				`INSERT INTO outlets (name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				o.Name, o.Address,
				pgNullStr(o.WorkDayStart), pgNullStr(o.WorkDayEnd), pgNullStr(o.StartTime), pgNullStr(o.EndTime),
				o.Latitude, o.Longitude,
			)
		}
		if err != nil {
			return n, eris.Wrapf(err, "postgres: insert outlet %q", o.Name)
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) GetOutlet(ctx context.Context, id int64) (*model.Outlet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude
		 FROM outlets WHERE id = $1`, id)

	o, err := scanPgOutlet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get outlet %d", id)
	}
	return o, nil
}

func (s *PostgresStore) ListOutlets(ctx context.Context) ([]model.Outlet, error) {
	return s.listOutlets(ctx,
		`SELECT id, name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude
		 FROM outlets ORDER BY id`)
}

func (s *PostgresStore) ListUngeocoded(ctx context.Context, limit int) ([]model.Outlet, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.listOutlets(ctx,
		`SELECT id, name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude
		 FROM outlets WHERE latitude IS NULL OR longitude IS NULL
		 ORDER BY id LIMIT $1`, limit)
}

func (s *PostgresStore) listOutlets(ctx context.Context, query string, args ...any) ([]model.Outlet, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outlets")
	}
	defer rows.Close()

	var outlets []model.Outlet
	for rows.Next() {
		o, err := scanPgOutlet(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan outlet")
		}
		outlets = append(outlets, *o)
	}
	return outlets, eris.Wrap(rows.Err(), "postgres: list outlets iterate")
}

func (s *PostgresStore) UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outlets SET latitude = $1, longitude = $2 WHERE id = $3`,
		lat, lon, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update coordinates %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("outlet not found: %d", id)
	}
	return nil
}

// QueryRows runs an already-guarded read statement and returns its rows
// as ordered column-name-to-value maps.
func (s *PostgresStore) QueryRows(ctx context.Context, query string) ([]model.Row, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	out := []model.Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: row values")
		}
		r := make(model.Row, len(fields))
		for i, f := range fields {
			if i < len(values) {
				r[f.Name] = values[i]
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: query iterate")
}

func scanPgOutlet(row pgx.Row) (*model.Outlet, error) {
	var o model.Outlet
	var dayStart, dayEnd, startTime, endTime *string

	err := row.Scan(&o.ID, &o.Name, &o.Address, &dayStart, &dayEnd, &startTime, &endTime, &o.Latitude, &o.Longitude)
	if err != nil {
		return nil, err
	}

	if dayStart != nil {
		o.WorkDayStart = *dayStart
	}
	if dayEnd != nil {
		o.WorkDayEnd = *dayEnd
	}
	if startTime != nil {
		o.StartTime = *startTime
	}
	if endTime != nil {
		o.EndTime = *endTime
	}
	return &o, nil
}

func pgNullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
