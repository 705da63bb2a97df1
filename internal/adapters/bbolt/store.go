// Package bbolt implements the ports.Storage interface using bbolt (embedded B+ tree).
// Pattern analyses live in the "analysis" bucket keyed by AnalysisKey; scan
// reports live in the "reports" bucket keyed by report name. Writes are
// transactional; a crash mid-write cannot corrupt previously committed data.
package bbolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/corey/pmatch/internal/ports"
	bolt "go.etcd.io/bbolt"
)

// Bucket keys
var (
	bucketAnalysis = []byte("analysis")
	bucketReports  = []byte("reports")
)

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// SaveAnalysis persists the derived tables of a pattern.
func (s *Store) SaveAnalysis(key string, a *ports.PatternAnalysis) error {
	if a == nil {
		return fmt.Errorf("nil analysis")
	}
	data, err := encodeAnalysis(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	return s.put(bucketAnalysis, []byte(key), data)
}

// LoadAnalysis retrieves the analysis stored under key.
// Returns nil, nil if the key is unknown.
func (s *Store) LoadAnalysis(key string) (*ports.PatternAnalysis, error) {
	data, err := s.get(bucketAnalysis, []byte(key))
	if err != nil || data == nil {
		return nil, err
	}
	a, err := decodeAnalysis(data)
	if err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", key, err)
	}
	return a, nil
}

// SaveReport persists a scan report under its name.
func (s *Store) SaveReport(r *ports.ScanReport) error {
	if r == nil {
		return fmt.Errorf("nil report")
	}
	if r.Name == "" {
		return fmt.Errorf("report without name")
	}
	data, err := encodeGob(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return s.put(bucketReports, []byte(r.Name), data)
}

// LoadReport retrieves a scan report by name.
// Returns nil, nil if no report exists.
func (s *Store) LoadReport(name string) (*ports.ScanReport, error) {
	data, err := s.get(bucketReports, []byte(name))
	if err != nil || data == nil {
		return nil, err
	}
	var r ports.ScanReport
	if err := decodeGob(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", name, err)
	}
	return &r, nil
}

// ReportNames lists stored report names in key order.
func (s *Store) ReportNames() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReports)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// DeleteReport removes a stored report.
// Idempotent: deleting a nonexistent report is not an error.
func (s *Store) DeleteReport(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReports)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(name))
	})
}

// Reset drops both buckets.
func (s *Store) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAnalysis, bucketReports} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
		}
		return nil
	})
}

func (s *Store) put(bucket, key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

// get copies the value out of the transaction (bbolt slices are only valid within tx).
func (s *Store) get(bucket, key []byte) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, err
}
