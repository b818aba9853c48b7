// Package prefs persists the user's execution preferences in a bbolt file.
package prefs

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/execution"
)

// Preference keys
const (
	KeyExplain  = "explain"
	KeyStrategy = "strategy"
)

var bucketPrefs = []byte("preferences")

// Store reads and writes preferences
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the store at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to create preferences directory")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to open preferences %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPrefs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to create preferences bucket")
	}

	return &Store{db: db}, nil
}

// Load returns the stored settings. Missing or unreadable values fall back
// to explain off and the given default strategy.
func (s *Store) Load(defaultStrategy string) (execution.Settings, error) {
	settings := execution.Settings{Strategy: defaultStrategy}
	if !execution.ValidStrategy(settings.Strategy) {
		settings.Strategy = execution.StrategyPrimary
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPrefs)

		if raw := b.Get([]byte(KeyExplain)); raw != nil {
			if on, err := strconv.ParseBool(string(raw)); err == nil {
				settings.Explain = on
			}
		}

		if raw := b.Get([]byte(KeyStrategy)); raw != nil && execution.ValidStrategy(string(raw)) {
			settings.Strategy = string(raw)
		}

		return nil
	})
	if err != nil {
		return settings, errors.Wrap(err, errors.ErrTypeStorage, "failed to read preferences")
	}

	return settings, nil
}

// SaveExplain stores the explain flag
func (s *Store) SaveExplain(on bool) error {
	return s.put(KeyExplain, strconv.FormatBool(on))
}

// SaveStrategy stores the preferred strategy
func (s *Store) SaveStrategy(strategy string) error {
	if !execution.ValidStrategy(strategy) {
		return errors.Newf(errors.ErrTypeValidation, "unknown strategy %q", strategy)
	}

	return s.put(KeyStrategy, strategy)
}

// Save stores both settings
func (s *Store) Save(settings execution.Settings) error {
	if err := s.SaveExplain(settings.Explain); err != nil {
		return err
	}

	return s.SaveStrategy(settings.Strategy)
}

// Reset removes every stored preference
func (s *Store) Reset() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketPrefs); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}

		_, err := tx.CreateBucket(bucketPrefs)

		return err
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to reset preferences")
	}

	return nil
}

// Close closes the underlying file
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key, value string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to save preference %s", key)
	}

	return nil
}
