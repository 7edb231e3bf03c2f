package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDB(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "city_database.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readDB(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFileStore_Lookup_Found(t *testing.T) {
	s := NewFileStore(writeDB(t, "Paris,France,0,48.8566,2.3522\nTokyo,Japan,0,35.6762,139.6503\n"), discardLogger())

	c, ok, err := s.Lookup(domain.NewKey("Tokyo", "Japan"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Coordinate{Lat: 35.6762, Lon: 139.6503}, c)
}

func TestFileStore_Lookup_TrimsStoredFields(t *testing.T) {
	s := NewFileStore(writeDB(t, " Paris , France ,0,48.8566,2.3522\n"), discardLogger())

	_, ok, err := s.Lookup(domain.NewKey("Paris", "France"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_Lookup_CaseSensitive(t *testing.T) {
	s := NewFileStore(writeDB(t, "Paris,France,0,48.8566,2.3522\n"), discardLogger())

	_, ok, err := s.Lookup(domain.NewKey("paris", "france"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Lookup_FirstMatchWins(t *testing.T) {
	s := NewFileStore(writeDB(t, "Paris,France,0,48.8566,2.3522\nParis,France,0,1,2\n"), discardLogger())

	c, ok, err := s.Lookup(domain.NewKey("Paris", "France"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 48.8566, c.Lat)
}

func TestFileStore_Lookup_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing.csv"), discardLogger())

	_, ok, err := s.Lookup(domain.NewKey("Paris", "France"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Lookup_MalformedRows(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{name: "too few fields", content: "Paris,France,48.8566,2.3522\n", reason: "expected 5 fields, got 4"},
		{name: "too many fields", content: "Paris,France,0,48.8566,2.3522,x\n", reason: "expected 5 fields, got 6"},
		{name: "bad latitude", content: "Paris,France,0,north,2.3522\n", reason: "latitude"},
		{name: "bad longitude", content: "Paris,France,0,48.8566,\n", reason: "longitude"},
		{name: "NaN latitude", content: "Paris,France,,NaN,2\n", reason: "latitude \"NaN\" is not a finite number"},
		{name: "infinite longitude", content: "Paris,France,,48.8566,-Inf\n", reason: "longitude \"-Inf\" is not a finite number"},
		{name: "bare quote", content: "Par\"is,France,0,48.8566,2.3522\n", reason: "quote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFileStore(writeDB(t, tt.content), discardLogger())

			_, _, err := s.Lookup(domain.NewKey("Paris", "France"))
			require.Error(t, err)

			var malformed *MalformedRecordError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 1, malformed.Line)
			assert.Contains(t, malformed.Reason, tt.reason)
		})
	}
}

func TestFileStore_Lookup_MalformedRowBeforeMatchIsFatal(t *testing.T) {
	s := NewFileStore(writeDB(t, "Paris,France,0,48.8566,2.3522\nbroken\nTokyo,Japan,0,35.6762,139.6503\n"), discardLogger())

	_, ok, err := s.Lookup(domain.NewKey("Paris", "France"))
	require.NoError(t, err, "rows after the match are not read")
	assert.True(t, ok)

	_, _, err = s.Lookup(domain.NewKey("Tokyo", "Japan"))
	var malformed *MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 2, malformed.Line)
}

func TestFileStore_Append_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "city_database.csv")
	s := NewFileStore(path, discardLogger())

	require.NoError(t, s.Append(domain.Record{
		Key:        domain.NewKey("Lima", "Peru"),
		Coordinate: domain.Coordinate{Lat: -12.0464, Lon: -77.0428},
	}))

	assert.Equal(t, "Lima,Peru,,-12.0464,-77.0428\n", readDB(t, path))

	c, ok, err := s.Lookup(domain.NewKey("Lima", "Peru"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Coordinate{Lat: -12.0464, Lon: -77.0428}, c)
}

func TestFileStore_Append_TerminatesLastLine(t *testing.T) {
	path := writeDB(t, "Paris,France,0,48.8566,2.3522")
	s := NewFileStore(path, discardLogger())

	require.NoError(t, s.Append(domain.Record{Key: domain.NewKey("Lima", "Peru"), Coordinate: domain.Coordinate{Lat: 1, Lon: 2}}))

	assert.Equal(t, "Paris,France,0,48.8566,2.3522\nLima,Peru,,1,2\n", readDB(t, path))
}

func TestFileStore_Append_QuotesCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "city_database.csv")
	s := NewFileStore(path, discardLogger())
	key := domain.NewKey("Washington, D.C.", "United States")

	require.NoError(t, s.Append(domain.Record{Key: key, Coordinate: domain.Coordinate{Lat: 38.9072, Lon: -77.0369}}))

	c, ok, err := s.Lookup(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 38.9072, c.Lat)
}

func TestFileStore_Append_DuplicateKeyIsShadowed(t *testing.T) {
	path := writeDB(t, "Paris,France,0,48.8566,2.3522\n")
	s := NewFileStore(path, discardLogger())
	key := domain.NewKey("Paris", "France")

	require.NoError(t, s.Append(domain.Record{Key: key, Coordinate: domain.Coordinate{Lat: 10, Lon: 20}}))

	assert.Equal(t, "Paris,France,0,48.8566,2.3522\nParis,France,,10,20\n", readDB(t, path))

	c, ok, err := s.Lookup(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Coordinate{Lat: 48.8566, Lon: 2.3522}, c)
}

func TestFileStore_Scan_PreservesExtraField(t *testing.T) {
	s := NewFileStore(writeDB(t, "Paris,France,FR-75,48.8566,2.3522\n"), discardLogger())

	var records []domain.Record
	require.NoError(t, s.Scan(func(rec domain.Record) bool {
		records = append(records, rec)
		return true
	}))

	require.Len(t, records, 1)
	assert.Equal(t, "FR-75", records[0].Extra)
}
