package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gxpmd/gxptrace/internal/annotation"
	gxperrors "github.com/gxpmd/gxptrace/internal/errors"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "extractions"

// entry is the stored form of one extraction; a nil Record means "no tags"
type entry struct {
	Record   *annotation.Record `json:"record"`
	CachedAt time.Time          `json:"cached_at"`
}

// Manager is a two-level extraction cache: an in-process memory layer in
// front of a bbolt file that survives between sweeps
type Manager struct {
	db       *bolt.DB
	memCache *gocache.Cache
	logger   *logrus.Logger
	path     string

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache effectiveness for one process
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Open opens (creating if needed) the cache database at path
func Open(path string, logger *logrus.Logger) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, gxperrors.FileSystemErrorf(err, "create cache directory for %s", path)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, gxperrors.StorageError(err, "open extraction cache "+path)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, gxperrors.StorageError(err, "initialize extraction cache "+path)
	}

	logger.WithField("path", path).Debug("Extraction cache opened")

	return &Manager{
		db:       db,
		memCache: gocache.New(30*time.Minute, time.Hour),
		logger:   logger,
		path:     path,
	}, nil
}

// Close releases the database file lock
func (m *Manager) Close() error {
	return m.db.Close()
}

// Lookup returns the cached record for key. found is false on a miss; a hit
// may carry a nil record for files without tags.
func (m *Manager) Lookup(key string) (*annotation.Record, bool) {
	if cached, found := m.memCache.Get(key); found {
		m.hits.Add(1)
		return cached.(*annotation.Record), true
	}

	var e entry
	found := false
	err := m.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &e)
	})
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Debug("Discarding unreadable cache entry")
		found = false
	}

	if !found {
		m.misses.Add(1)
		return nil, false
	}

	m.hits.Add(1)
	m.memCache.Set(key, e.Record, gocache.DefaultExpiration)
	return e.Record, true
}

// Store records an extraction. Concurrent calls are coalesced into shared
// bbolt transactions.
func (m *Manager) Store(key string, rec *annotation.Record) error {
	data, err := json.Marshal(entry{Record: rec, CachedAt: time.Now().UTC()})
	if err != nil {
		return gxperrors.StorageError(err, "encode cache entry")
	}

	if err := m.db.Batch(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	}); err != nil {
		return gxperrors.StorageError(err, "write cache entry")
	}

	m.memCache.Set(key, rec, gocache.DefaultExpiration)
	return nil
}

// Clear drops every cached extraction
func (m *Manager) Clear() error {
	m.logger.WithField("path", m.path).Info("Clearing extraction cache")
	m.memCache.Flush()

	return m.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketName)) != nil {
			if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Stats returns hit/miss counters and the number of persisted entries
func (m *Manager) Stats() Stats {
	s := Stats{Hits: m.hits.Load(), Misses: m.misses.Load()}
	_ = m.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket([]byte(bucketName)); bucket != nil {
			s.Entries = bucket.Stats().KeyN
		}
		return nil
	})
	return s
}
