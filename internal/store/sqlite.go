package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/klgeo/outlets-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS outlets (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL,
	address        TEXT NOT NULL,
	work_day_start TEXT,
	work_day_end   TEXT,
	start_time     TEXT,
	end_time       TEXT,
	latitude       REAL,
	longitude      REAL
);

CREATE INDEX IF NOT EXISTS idx_outlets_name ON outlets(name);
CREATE INDEX IF NOT EXISTS idx_outlets_geocoded ON outlets(latitude) WHERE latitude IS NULL;
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const outletColumns = `id, name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude`

// InsertOutlets bulk-inserts outlet records in a single transaction.
// Records carrying an ID upsert on it; records with a zero ID get one
// assigned by the store. Returns the number of rows written.
func (s *SQLiteStore) InsertOutlets(ctx context.Context, outlets []model.Outlet) (int, error) {
	if len(outlets) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	withID, err := tx.PrepareContext(ctx,
		`INSERT INTO outlets (`+outletColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, address = excluded.address,
			work_day_start = excluded.work_day_start, work_day_end = excluded.work_day_end,
			start_time = excluded.start_time, end_time = excluded.end_time,
			latitude = excluded.latitude, longitude = excluded.longitude`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer withID.Close() //nolint:errcheck

	withoutID, err := tx.PrepareContext(ctx,
		`INSERT INTO outlets (name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer withoutID.Close() //nolint:errcheck

	n := 0
	for _, o := range outlets {
		if o.ID != 0 {
			_, err = withID.ExecContext(ctx, o.ID, o.Name, o.Address,
				nullStr(o.WorkDayStart), nullStr(o.WorkDayEnd), nullStr(o.StartTime), nullStr(o.EndTime),
				o.Latitude, o.Longitude)
		} else {
			_, err = withoutID.ExecContext(ctx, o.Name, o.Address,
				nullStr(o.WorkDayStart), nullStr(o.WorkDayEnd), nullStr(o.StartTime), nullStr(o.EndTime),
				o.Latitude, o.Longitude)
		}
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert outlet %q", o.Name)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func (s *SQLiteStore) GetOutlet(ctx context.Context, id int64) (*model.Outlet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+outletColumns+` FROM outlets WHERE id = ?`, id)

	o, err := scanOutlet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get outlet %d", id)
	}
	return o, nil
}

func (s *SQLiteStore) ListOutlets(ctx context.Context) ([]model.Outlet, error) {
	return s.listOutlets(ctx, `SELECT `+outletColumns+` FROM outlets ORDER BY id`)
}

func (s *SQLiteStore) ListUngeocoded(ctx context.Context, limit int) ([]model.Outlet, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.listOutlets(ctx,
		`SELECT `+outletColumns+` FROM outlets
		 WHERE latitude IS NULL OR longitude IS NULL
		 ORDER BY id LIMIT ?`, limit)
}

func (s *SQLiteStore) listOutlets(ctx context.Context, query string, args ...any) ([]model.Outlet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outlets")
	}
	defer rows.Close() //nolint:errcheck

	var outlets []model.Outlet
	for rows.Next() {
		o, err := scanOutlet(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outlet")
		}
		outlets = append(outlets, *o)
	}
	return outlets, eris.Wrap(rows.Err(), "sqlite: list outlets iterate")
}

func (s *SQLiteStore) UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outlets SET latitude = ?, longitude = ? WHERE id = ?`,
		lat, lon, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update coordinates %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("outlet not found: %d", id)
	}
	return nil
}

// QueryRows runs an already-guarded read statement and returns its rows
// as ordered column-name-to-value maps.
func (s *SQLiteStore) QueryRows(ctx context.Context, query string) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query")
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}

	out := []model.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}

		r := make(model.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				r[col] = string(b)
				continue
			}
			r[col] = values[i]
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: query iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanOutlet(row scannable) (*model.Outlet, error) {
	var o model.Outlet
	var dayStart, dayEnd, startTime, endTime sql.NullString

	err := row.Scan(&o.ID, &o.Name, &o.Address, &dayStart, &dayEnd, &startTime, &endTime, &o.Latitude, &o.Longitude)
	if err != nil {
		return nil, err
	}

	o.WorkDayStart = dayStart.String
	o.WorkDayEnd = dayEnd.String
	o.StartTime = startTime.String
	o.EndTime = endTime.String
	return &o, nil
}

func nullStr(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
