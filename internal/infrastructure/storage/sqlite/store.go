// Package sqlite implements the storage.Store port for SQLite via
// database/sql and the CGO-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kodflow/supervizio/internal/domain/process"
	"github.com/kodflow/supervizio/internal/domain/storage"
)

// schema creates the two tables the data model needs: the process registry
// and its bounded metric history, per spec.md §4.4's logical schema.
const schema = `
CREATE TABLE IF NOT EXISTS processes(
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	version TEXT NOT NULL,
	status TEXT NOT NULL,
	metadata_blob TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS process_metrics(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	process_id TEXT NOT NULL,
	cpu_pct REAL NOT NULL,
	memory_bytes INTEGER NOT NULL,
	thread_count INTEGER NOT NULL DEFAULT 0,
	handle_count INTEGER NOT NULL DEFAULT 0,
	timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_process_metrics_process_ts
	ON process_metrics(process_id, timestamp);

CREATE TABLE IF NOT EXISTS kv(
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// descriptorBlob is the JSON-encoded form of everything on a Descriptor
// beyond its id/name/type/version/status, stored in metadata_blob.
type descriptorBlob struct {
	Environment      string            `json:"environment"`
	Configuration    map[string]string `json:"configuration,omitempty"`
	ExecutablePath   string            `json:"executable_path"`
	Arguments        []string          `json:"arguments,omitempty"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Env              []string          `json:"environment_vars,omitempty"`
	Policy           process.Policy    `json:"policy"`
}

// Store implements storage.Store against a single SQLite database file (or
// ":memory:" for tests).
type Store struct {
	db   *sql.DB
	kind storage.DatabaseKind
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting every query
// method run against whichever one is live for the calling context.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// execerFrom returns the transaction stashed in ctx by WithTx, or s.db if
// none is present.
func (s *Store) execerFrom(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// New opens (creating if absent) a SQLite database at path and ensures its
// schema. A path of ":memory:" pins the connection pool to a single
// connection so schema and data stay visible across all callers, per the
// same guard loykin-provisr uses for its in-memory store.
//
// Params:
//   - path: filesystem path, or ":memory:".
//
// Returns:
//   - *Store: a ready-to-use store with schema applied.
//   - error: any error opening the database or creating the schema.
func New(ctx context.Context, path string) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("sqlite: empty path")
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}

	kind := storage.KindSQLite
	if p == ":memory:" {
		db.SetMaxOpenConns(1)
		kind = storage.KindInMemory
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, kind: kind}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Kind implements storage.Store.
func (s *Store) Kind() storage.DatabaseKind {
	return s.kind
}

// UpsertDescriptor implements storage.Store.
func (s *Store) UpsertDescriptor(ctx context.Context, d process.Descriptor, status process.Status) error {
	blob := descriptorBlob{
		Environment:      d.Metadata.Environment,
		Configuration:    d.Metadata.Configuration,
		ExecutablePath:   d.ExecutablePath,
		Arguments:        d.Arguments,
		WorkingDirectory: d.WorkingDirectory,
		Env:              d.Environment,
		Policy:           d.Policy,
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.execerFrom(ctx).ExecContext(ctx, `
		INSERT INTO processes(id, name, type, version, status, metadata_blob, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			type=excluded.type,
			version=excluded.version,
			status=excluded.status,
			metadata_blob=excluded.metadata_blob,
			updated_at=excluded.updated_at;`,
		d.ID, d.Metadata.Name, d.Metadata.Type, d.Metadata.Version, status.String(), string(data), now, now)
	return err
}

// UpdateStatus implements storage.Store.
func (s *Store) UpdateStatus(ctx context.Context, id string, status process.Status) error {
	res, err := s.execerFrom(ctx).ExecContext(ctx, `
		UPDATE processes SET status = ?, updated_at = ? WHERE id = ?;`,
		status.String(), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return process.ErrNotFound
	}
	return nil
}

// GetStatus implements storage.Store.
func (s *Store) GetStatus(ctx context.Context, id string) (process.Status, error) {
	var status string
	err := s.execerFrom(ctx).QueryRowContext(ctx, `SELECT status FROM processes WHERE id = ?;`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return process.StatusStopped, process.ErrNotFound
	}
	if err != nil {
		return process.StatusStopped, err
	}
	return process.ParseStatus(status), nil
}

// GetDescriptor implements storage.Store.
func (s *Store) GetDescriptor(ctx context.Context, id string) (process.Descriptor, error) {
	row := s.execerFrom(ctx).QueryRowContext(ctx, `
		SELECT id, name, type, version, metadata_blob FROM processes WHERE id = ?;`, id)
	d, err := scanDescriptor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return process.Descriptor{}, process.ErrNotFound
	}
	return d, err
}

// ListDescriptors implements storage.Store.
func (s *Store) ListDescriptors(ctx context.Context) ([]process.Descriptor, error) {
	rows, err := s.execerFrom(ctx).QueryContext(ctx, `SELECT id, name, type, version, metadata_blob FROM processes;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []process.Descriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetActive implements storage.Store.
func (s *Store) GetActive(ctx context.Context) ([]process.Descriptor, error) {
	rows, err := s.execerFrom(ctx).QueryContext(ctx, `
		SELECT id, name, type, version, metadata_blob FROM processes WHERE status <> ?;`,
		process.StatusStopped.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []process.Descriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDescriptor implements storage.Store.
func (s *Store) DeleteDescriptor(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.execerFrom(ctx).ExecContext(ctx, `DELETE FROM processes WHERE id = ?;`, id); err != nil {
			return err
		}
		_, err := s.execerFrom(ctx).ExecContext(ctx, `DELETE FROM process_metrics WHERE process_id = ?;`, id)
		return err
	})
}

// RecordMetric implements storage.Store, pruning samples older than 24h for
// the same process in the same transaction per spec.md §4.4.
func (s *Store) RecordMetric(ctx context.Context, row storage.MetricRow) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.execerFrom(ctx).ExecContext(ctx, `
			INSERT INTO process_metrics(process_id, cpu_pct, memory_bytes, thread_count, handle_count, timestamp)
			VALUES(?, ?, ?, ?, ?, ?);`,
			row.ProcessID, row.CPUPercent, row.MemoryRSS, row.ThreadCount, row.HandleCount, row.Timestamp.UTC()); err != nil {
			return err
		}

		cutoff := row.Timestamp.UTC().Add(-24 * time.Hour)
		_, err := s.execerFrom(ctx).ExecContext(ctx, `
			DELETE FROM process_metrics WHERE process_id = ? AND timestamp < ?;`,
			row.ProcessID, cutoff)
		return err
	})
}

// QueryMetrics implements storage.Store.
func (s *Store) QueryMetrics(ctx context.Context, processID string, since time.Time) ([]storage.MetricRow, error) {
	rows, err := s.execerFrom(ctx).QueryContext(ctx, `
		SELECT process_id, cpu_pct, memory_bytes, thread_count, handle_count, timestamp
		FROM process_metrics
		WHERE process_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC;`, processID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.MetricRow
	for rows.Next() {
		var r storage.MetricRow
		if err := rows.Scan(&r.ProcessID, &r.CPUPercent, &r.MemoryRSS, &r.ThreadCount, &r.HandleCount, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneMetrics implements storage.Store.
func (s *Store) PruneMetrics(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.execerFrom(ctx).ExecContext(ctx, `DELETE FROM process_metrics WHERE timestamp < ?;`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Put implements storage.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.execerFrom(ctx).ExecContext(ctx, `
		INSERT INTO kv(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, key, value)
	return err
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.execerFrom(ctx).QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, process.ErrNotFound
	}
	return value, err
}

// WithTx implements storage.Store. modernc.org/sqlite serializes writers at
// the driver level, so this wraps fn in a database/sql transaction rather
// than hand-rolling locking. Called with a ctx that already carries a
// transaction, it runs fn inside that transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close implements storage.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDescriptor(row scanner) (process.Descriptor, error) {
	var d process.Descriptor
	var name, typ, version, blobJSON string
	if err := row.Scan(&d.ID, &name, &typ, &version, &blobJSON); err != nil {
		return process.Descriptor{}, err
	}

	var blob descriptorBlob
	if err := json.Unmarshal([]byte(blobJSON), &blob); err != nil {
		return process.Descriptor{}, err
	}

	d.Metadata = process.Metadata{Name: name, Type: typ, Version: version, Environment: blob.Environment, Configuration: blob.Configuration}
	d.ExecutablePath = blob.ExecutablePath
	d.Arguments = blob.Arguments
	d.WorkingDirectory = blob.WorkingDirectory
	d.Environment = blob.Env
	d.Policy = blob.Policy
	return d, nil
}

var _ storage.Store = (*Store)(nil)
