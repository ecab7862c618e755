// Package crashcache repurposes the teacher's bbolt dependency as a local
// crash-recovery cache: a durable, best-effort backstop for the in-memory
// output ring buffers and last-error field that SPEC_FULL.md §3 calls for
// alongside the authoritative relational StateStore. It is a second,
// lower-durability-tier store, not a StateStore replacement.
package crashcache

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	dbFileMode     = 0o600
	dbOpenTimeout  = 5 * time.Second
	int64ByteLen   = 8
	// linesPerStream bounds how many recent lines are retained per
	// (processID, stream) pair, independent of the larger in-memory ring
	// buffer capacity — this is a crash-recovery tail, not a full replay log.
	linesPerStream = 200
)

var (
	bucketLines  = []byte("lines")
	bucketErrors = []byte("errors")
)

// Cache is the bbolt-backed crash-recovery cache.
type Cache struct {
	db *bolt.DB
}

// PathFor derives the cache's file path from the relational store's own
// DSN/path, so no separate configuration key is needed: "supervizio.db"
// becomes "supervizio.crash.db" in the same directory. A DSN that isn't a
// plain filesystem path (e.g. a Postgres connection string) falls back to
// a fixed name in the working directory.
//
// Params:
//   - storeDSN: the configured StateStore DSN/path.
//
// Returns:
//   - string: the cache file's path.
func PathFor(storeDSN string) string {
	if storeDSN == "" || storeDSN == ":memory:" || strings.Contains(storeDSN, "://") || strings.Contains(storeDSN, "=") {
		return "supervizio.crash.db"
	}
	ext := filepath.Ext(storeDSN)
	base := strings.TrimSuffix(storeDSN, ext)
	return base + ".crash.db"
}

// New opens (creating if absent) the cache database at path.
//
// Returns:
//   - *Cache: a ready cache.
//   - error: any error opening the database or creating its buckets.
func New(path string) (*Cache, error) {
	db, err := bolt.Open(path, dbFileMode, &bolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("crashcache: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLines); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketErrors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("crashcache: init schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// AppendLine durably records one output line for processID/stream,
// trimming the per-stream bucket down to linesPerStream entries. It
// satisfies processhandle.OutputSink.
//
// Params:
//   - processID: the owning process's descriptor id.
//   - stream: "stdout" or "stderr".
//   - line: the text line observed.
func (c *Cache) AppendLine(processID, stream, line string) {
	// Best-effort: a crash-cache write failure must never interrupt output
	// pumping, so errors are swallowed here rather than propagated.
	_ = c.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.Bucket(bucketLines).CreateBucketIfNotExists([]byte(processID + "\x00" + stream))
		if err != nil {
			return err
		}
		seq, _ := root.NextSequence()
		if err := root.Put(seqKey(seq), []byte(line)); err != nil {
			return err
		}
		return trimOldest(root, linesPerStream)
	})
}

// SetLastError durably records processID's most recent error message. It
// satisfies processhandle.OutputSink.
func (c *Cache) SetLastError(processID, msg string) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketErrors).Put([]byte(processID), []byte(msg))
	})
}

// RecentLines returns up to linesPerStream previously cached lines for
// processID/stream, oldest first, for recovery after a daemon restart.
//
// Returns:
//   - []string: cached lines, oldest first; nil if none are cached.
//   - error: any bbolt read error.
func (c *Cache) RecentLines(processID, stream string) ([]string, error) {
	var out []string
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLines).Bucket([]byte(processID + "\x00" + stream))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			out = append(out, string(v))
			return nil
		})
	})
	return out, err
}

// LastError returns processID's last cached error message, "" if none.
//
// Returns:
//   - string: the cached message, or "".
//   - error: any bbolt read error.
func (c *Cache) LastError(processID string) (string, error) {
	var msg string
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketErrors).Get([]byte(processID)); v != nil {
			msg = string(v)
		}
		return nil
	})
	return msg, err
}

// Close releases the underlying bbolt file handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

func seqKey(seq uint64) []byte {
	var buf [int64ByteLen]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return buf[:]
}

// trimOldest deletes entries from the front of b's key order until at most
// keep remain.
func trimOldest(b *bolt.Bucket, keep int) error {
	c := b.Cursor()
	var count int
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}
	overflow := count - keep
	if overflow <= 0 {
		return nil
	}

	c = b.Cursor()
	k, _ := c.First()
	for i := 0; i < overflow && k != nil; i++ {
		if err := b.Delete(k); err != nil {
			return err
		}
		k, _ = c.Next()
	}
	return nil
}
