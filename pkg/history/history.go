// Package history persists finished deploy runs in a bbolt database.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
)

const bucketName = "runs"

// openTimeout bounds the wait for another process holding the database.
const openTimeout = 2 * time.Second

// Record is one finished deploy run.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Target    string    `json:"target" yaml:"target"`
	State     string    `json:"state" yaml:"state"`
	DryRun    bool      `json:"dry_run" yaml:"dry_run"`
	Started   time.Time `json:"started" yaml:"started"`
	Finished  time.Time `json:"finished" yaml:"finished"`
	Artifacts []string  `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Uploaded  int       `json:"uploaded" yaml:"uploaded"`
	Deleted   int       `json:"deleted" yaml:"deleted"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode string    `json:"error_code,omitempty" yaml:"error_code,omitempty"`
}

// Duration is how long the run took.
func (r Record) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Store wraps the history database.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "failed to create %s", filepath.Dir(path))
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "failed to open history %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to create history bucket")
	}
	log := logging.GetLogger("history")
	log.Debug().Str("path", path).Msg("History opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key sorts records by start time, ties broken by ID.
func key(r Record) []byte {
	return []byte(fmt.Sprintf("%020d-%s", r.Started.UnixNano(), r.ID))
}

// Add stores a record.
func (s *Store) Add(r Record) error {
	if r.ID == "" {
		return errors.New(errors.ErrInvalidInput, "history record needs an ID")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to encode history record")
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(key(r), data)
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to write history record")
	}
	return nil
}

// List returns up to limit records, newest first. An empty target matches
// every target; limit <= 0 means no limit.
func (s *Store) List(target string, limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("record %s: %w", k, err)
			}
			if target != "" && r.Target != target {
				continue
			}
			records = append(records, r)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to read history")
	}
	return records, nil
}
