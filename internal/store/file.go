// Package store implements the local city database: an append-only CSV file
// mapping (city, country) to coordinates.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/travel-score/internal/domain"
)

// Positional layout of a database row.
const (
	colCity = iota
	colCountry
	colExtra
	colLat
	colLon
	numCols
)

// MalformedRecordError reports a database row that cannot be parsed.
type MalformedRecordError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s:%d: malformed record: %s", e.Path, e.Line, e.Reason)
}

// FileStore reads and appends rows of a CSV city database. Every lookup scans
// the file from the beginning and the first matching row wins.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store backed by the CSV file at path. The file does
// not need to exist yet.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Lookup returns the coordinate of the first row matching key. A missing
// database file is treated as an empty store.
func (s *FileStore) Lookup(key domain.Key) (domain.Coordinate, bool, error) {
	var (
		found domain.Coordinate
		ok    bool
	)
	err := s.Scan(func(rec domain.Record) bool {
		if rec.Key == key {
			found, ok = rec.Coordinate, true
			return false
		}
		return true
	})
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("city database file not found", "path", s.path)
		return domain.Coordinate{}, false, nil
	}
	if err != nil {
		return domain.Coordinate{}, false, err
	}
	return found, ok, nil
}

// Scan calls fn for each row in file order until fn returns false. Rows are
// validated as they are read; the first malformed row stops the scan with a
// *MalformedRecordError. A missing file yields an error wrapping os.ErrNotExist.
func (s *FileStore) Scan(fn func(domain.Record) bool) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open city database: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return &MalformedRecordError{Path: s.path, Line: parseErr.Line, Reason: parseErr.Err.Error()}
			}
			return fmt.Errorf("read city database: %w", err)
		}

		line, _ := r.FieldPos(0)
		rec, err := parseRecord(fields)
		if err != nil {
			return &MalformedRecordError{Path: s.path, Line: line, Reason: err.Error()}
		}
		if !fn(rec) {
			return nil
		}
	}
}

// Append writes rec as a new row at the end of the database, creating the
// file if needed. Existing rows are never touched, so appending a key that is
// already present leaves the earlier row in effect.
func (s *FileStore) Append(rec domain.Record) error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open city database for append: %w", err)
	}
	defer f.Close()

	if err := terminateLastLine(f); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(formatRecord(rec)); err != nil {
		return fmt.Errorf("append city record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append city record: %w", err)
	}
	return f.Close()
}

// terminateLastLine adds a newline when the file is non-empty and its last
// byte is not one, so the appended row starts on its own line.
func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat city database: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return fmt.Errorf("read city database tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("terminate city database line: %w", err)
	}
	return nil
}

func parseRecord(fields []string) (domain.Record, error) {
	if len(fields) != numCols {
		return domain.Record{}, fmt.Errorf("expected %d fields, got %d", numCols, len(fields))
	}
	lat, err := parseDegrees(fields[colLat])
	if err != nil {
		return domain.Record{}, fmt.Errorf("latitude %q is not a finite number", fields[colLat])
	}
	lon, err := parseDegrees(fields[colLon])
	if err != nil {
		return domain.Record{}, fmt.Errorf("longitude %q is not a finite number", fields[colLon])
	}
	return domain.Record{
		Key:        domain.NewKey(fields[colCity], fields[colCountry]),
		Extra:      fields[colExtra],
		Coordinate: domain.Coordinate{Lat: lat, Lon: lon},
	}, nil
}

func parseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("non-finite value")
	}
	return v, nil
}

func formatRecord(rec domain.Record) []string {
	row := make([]string, numCols)
	row[colCity] = strings.TrimSpace(rec.City)
	row[colCountry] = strings.TrimSpace(rec.Country)
	row[colExtra] = rec.Extra
	row[colLat] = strconv.FormatFloat(rec.Coordinate.Lat, 'f', -1, 64)
	row[colLon] = strconv.FormatFloat(rec.Coordinate.Lon, 'f', -1, 64)
	return row
}
