package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// BoltStore keeps records in a local bbolt file, one bucket per table,
// JSON-encoded and keyed by timestamp.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
	l      *zap.Logger
}

var _ Store = &BoltStore{}

func OpenBolt(path, table string, l *zap.Logger) (*BoltStore, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt: create dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	bucket := []byte(table)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: create bucket %s: %w", table, err)
	}
	return &BoltStore{db: db, bucket: bucket, l: l}, nil
}

func (s *BoltStore) Put(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("bolt: marshal record: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(rec.Key()), data)
	})
	if err != nil {
		s.l.Error("Error putting item", zap.String("timestamp", rec.Timestamp), zap.Error(err))
		return fmt.Errorf("bolt: put: %w", err)
	}
	return nil
}

func (s *BoltStore) Get(_ context.Context, key string) (Record, bool, error) {
	var rec Record
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		s.l.Error("Error getting item", zap.String("timestamp", key), zap.Error(err))
		return Record{}, false, fmt.Errorf("bolt: get: %w", err)
	}
	return rec, found, nil
}

func (s *BoltStore) Scan(_ context.Context, limit int) ([]Record, error) {
	recs := []Record{}
	if limit <= 0 {
		return recs, nil
	}
	limit = clampLimit(limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(recs) < limit; k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		s.l.Error("Error scanning bucket", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("bolt: scan: %w", err)
	}
	return recs, nil
}

func (s *BoltStore) Ping(_ context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return fmt.Errorf("bolt: bucket %s missing", s.bucket)
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
