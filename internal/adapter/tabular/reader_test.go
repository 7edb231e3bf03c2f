package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReader_Extract_CSV(t *testing.T) {
	path := writeInput(t, "trips.csv", "Date,City,Country\n2024-05-01, Paris ,France\n\n2024-06-12,Tokyo,Japan\n")

	rows, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)

	want := []domain.InputRow{
		{Line: 2, City: " Paris ", Country: "France"},
		{Line: 4, City: "Tokyo", Country: "Japan"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.NewKey("Paris", "France"), rows[0].Key())
}

func TestReader_Extract_HeaderOnly(t *testing.T) {
	path := writeInput(t, "trips.csv", "City,Country\n")

	rows, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReader_Extract_MissingCountry(t *testing.T) {
	path := writeInput(t, "trips.csv", "City,Nation\nParis,France\n")

	rows, err := NewReader(path).Extract(context.Background())
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "missing Country")
	assert.Nil(t, rows)
}

func TestReader_Extract_MissingBoth(t *testing.T) {
	path := writeInput(t, "trips.csv", "Town,Nation\n")

	_, err := NewReader(path).Extract(context.Background())
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "missing City, Country")
}

func TestReader_Extract_EmptyFile(t *testing.T) {
	path := writeInput(t, "trips.csv", "")

	_, err := NewReader(path).Extract(context.Background())
	require.ErrorIs(t, err, ErrMissingColumns)
}

func TestReader_Extract_ColumnNamesAreCaseSensitive(t *testing.T) {
	path := writeInput(t, "trips.csv", "city,country\nParis,France\n")

	_, err := NewReader(path).Extract(context.Background())
	require.ErrorIs(t, err, ErrMissingColumns)
}

func TestReader_Extract_ByteOrderMark(t *testing.T) {
	path := writeInput(t, "trips.csv", "\ufeffCity,Country\nParis,France\n")

	rows, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Paris", rows[0].City)
}

func TestReader_Extract_ShortRow(t *testing.T) {
	path := writeInput(t, "trips.csv", "City,Country\nParis\n")

	rows, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Country)
}

func TestReader_Extract_BareQuoteInField(t *testing.T) {
	path := writeInput(t, "trips.csv", "City,Country\nO\"Higgins,Chile\nLima,Peru\n")

	rows, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)

	want := []domain.InputRow{
		{Line: 2, City: `O"Higgins`, Country: "Chile"},
		{Line: 3, City: "Lima", Country: "Peru"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_Extract_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.csv")).Extract(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReader_Extract_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Country", "City"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"France", "Paris"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"Peru", "Lima"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := NewReader(path).Extract(context.Background())
	require.NoError(t, err)

	want := []domain.InputRow{
		{Line: 2, City: "Paris", Country: "France"},
		{Line: 4, City: "Lima", Country: "Peru"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_Extract_XLSXMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]any{"City"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := NewReader(path).Extract(context.Background())
	require.ErrorIs(t, err, ErrMissingColumns)
}
