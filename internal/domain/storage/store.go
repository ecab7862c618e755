// Package storage defines the durable state contract used to recover
// process registrations and metric history across supervisor restarts.
package storage

import (
	"context"
	"time"

	"github.com/kodflow/supervizio/internal/domain/process"
)

// DatabaseKind tags which backend a StateStore instance is bound to, used
// for diagnostics and the health surface rather than for branching logic.
type DatabaseKind string

// Supported database kinds.
const (
	KindSQLite   DatabaseKind = "sqlite"
	KindPostgres DatabaseKind = "postgres"
	KindInMemory DatabaseKind = "in_memory"
)

// MetricRow is one persisted resource sample for a process, as written by
// StateStore.RecordMetric and read back by QueryMetrics. GC counters are
// not carried here: they describe
// the daemon's own Go runtime, not an arbitrary supervised child, and are
// exposed instead through the Prometheus endpoint (see DESIGN.md).
type MetricRow struct {
	ProcessID   string
	Timestamp   time.Time
	CPUPercent  float64
	MemoryRSS   uint64
	ThreadCount int32
	HandleCount int32
}

// Tx is a commit/rollback handle. No Store method takes or returns one:
// WithTx passes fn a ctx that carries its transaction, Store methods called
// with that ctx run inside it, and a WithTx nested in another joins the
// outer transaction, so a caller can group a descriptor upsert with its
// initial metric row atomically.
type Tx interface {
	Commit() error
	Rollback() error
}

// Store is the durable state port: descriptor persistence, runtime status
// snapshots, and metric history, plus a generic KV surface for anything
// that doesn't warrant its own table (e.g. the daemon's own generation id).
type Store interface {
	// Kind reports which backend this instance is bound to.
	Kind() DatabaseKind

	// UpsertDescriptor persists or replaces a process descriptor, stamping it
	// with status (the descriptor itself carries no runtime state).
	UpsertDescriptor(ctx context.Context, d process.Descriptor, status process.Status) error

	// GetDescriptor retrieves a descriptor by ID.
	//
	// Returns process.ErrNotFound if no row exists for id.
	GetDescriptor(ctx context.Context, id string) (process.Descriptor, error)

	// ListDescriptors returns every persisted descriptor.
	ListDescriptors(ctx context.Context) ([]process.Descriptor, error)

	// GetActive returns every persisted descriptor whose status is not
	// Stopped, the set ProcessManager.Initialize loads at startup.
	GetActive(ctx context.Context) ([]process.Descriptor, error)

	// UpdateStatus persists only the runtime status for a process, so a
	// status transition does not require re-marshaling the whole descriptor.
	//
	// Returns process.ErrNotFound if no row exists for id.
	UpdateStatus(ctx context.Context, id string, status process.Status) error

	// GetStatus retrieves the persisted status for a process.
	//
	// Returns process.ErrNotFound if no row exists for id.
	GetStatus(ctx context.Context, id string) (process.Status, error)

	// DeleteDescriptor removes a descriptor and its associated metric rows.
	DeleteDescriptor(ctx context.Context, id string) error

	// RecordMetric appends one metric sample for a process.
	RecordMetric(ctx context.Context, row MetricRow) error

	// QueryMetrics returns metric rows for a process within [since, now],
	// ordered oldest first.
	QueryMetrics(ctx context.Context, processID string, since time.Time) ([]MetricRow, error)

	// PruneMetrics deletes metric rows older than before, across all
	// processes, and returns the number of rows removed.
	PruneMetrics(ctx context.Context, before time.Time) (int64, error)

	// Put writes a generic key/value pair, for daemon-level bookkeeping.
	Put(ctx context.Context, key string, value []byte) error

	// Get reads a generic key/value pair.
	//
	// Returns process.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// WithTx runs fn within a transaction, committing if fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases underlying connections/handles.
	Close() error
}
