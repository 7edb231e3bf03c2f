package store

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/couchcryptid/travel-score/internal/domain"
)

// IndexedStore loads the database once into a map and serves lookups from
// memory. The first row for a key wins, exactly as with FileStore: a later
// append for a key that is already indexed is written to disk but never
// becomes visible.
type IndexedStore struct {
	file *FileStore

	mu    sync.RWMutex
	index map[domain.Key]domain.Coordinate
}

// NewIndexedStore reads every row of the file store. Unlike FileStore, which
// only validates rows up to the first match, the whole file must be well formed.
func NewIndexedStore(file *FileStore) (*IndexedStore, error) {
	s := &IndexedStore{
		file:  file,
		index: make(map[domain.Key]domain.Coordinate),
	}

	err := file.Scan(func(rec domain.Record) bool {
		if _, ok := s.index[rec.Key]; !ok {
			s.index[rec.Key] = rec.Coordinate
		}
		return true
	})
	if errors.Is(err, os.ErrNotExist) {
		file.logger.Warn("city database file not found", "path", file.path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index city database: %w", err)
	}

	file.logger.Debug("city database indexed", "path", file.path, "keys", len(s.index))
	return s, nil
}

// Lookup returns the indexed coordinate for key.
func (s *IndexedStore) Lookup(key domain.Key) (domain.Coordinate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.index[key]
	return c, ok, nil
}

// Append writes rec to the backing file and indexes it if the key is new.
func (s *IndexedStore) Append(rec domain.Record) error {
	if err := s.file.Append(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NewKey(rec.City, rec.Country)
	if _, ok := s.index[key]; !ok {
		s.index[key] = rec.Coordinate
	}
	return nil
}

// Len returns the number of distinct keys indexed.
func (s *IndexedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}
