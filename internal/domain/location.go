package domain

import (
	"fmt"
	"strings"
)

// Key identifies a place by city and country.
type Key struct {
	City    string
	Country string
}

// NewKey builds a Key from raw input cells, trimming surrounding whitespace.
func NewKey(city, country string) Key {
	return Key{
		City:    strings.TrimSpace(city),
		Country: strings.TrimSpace(country),
	}
}

// IsComplete reports whether both fields are non-empty after trimming.
func (k Key) IsComplete() bool {
	return k.City != "" && k.Country != ""
}

// Query is the free-text search string sent to geocoding providers.
func (k Key) Query() string {
	return fmt.Sprintf("%s, %s", k.City, k.Country)
}

func (k Key) String() string {
	return k.City + "|" + k.Country
}

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Record is one row of the city database.
type Record struct {
	Key
	Extra      string // opaque third column, preserved as read
	Coordinate Coordinate
}

// Source records where a resolved coordinate came from.
type Source string

const (
	SourceStore    Source = "store"
	SourceResolver Source = "resolver"
)

// Result is one successfully resolved input row.
type Result struct {
	City      string  `json:"City"`
	Country   string  `json:"Country"`
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`

	Source Source `json:"-"`
}

// NewResult pairs a key with its resolved coordinate.
func NewResult(k Key, c Coordinate, src Source) Result {
	return Result{
		City:      k.City,
		Country:   k.Country,
		Latitude:  c.Lat,
		Longitude: c.Lon,
		Source:    src,
	}
}

// InputRow is one data row of the input file, as read. Line is the 1-based
// line (or spreadsheet row) number for diagnostics.
type InputRow struct {
	Line    int
	City    string
	Country string
}

// Key returns the trimmed location key of the row.
func (r InputRow) Key() Key {
	return NewKey(r.City, r.Country)
}
