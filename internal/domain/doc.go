// Package domain models the travel-score coordinate data.
//
// # Location Keys
//
// A place is identified by a (city, country) pair. Both fields are trimmed of
// surrounding whitespace before use and then compared exactly: matching is
// case-sensitive and no Unicode normalization is applied. The same key may
// appear several times in one input file; every occurrence is processed.
//
// # City Database Layout
//
// The local coordinate store is a headerless CSV file with five positional
// fields per row:
//
//	city,country,<opaque>,latitude,longitude
//	Paris,France,0,48.8566,2.3522
//
// The third field has no defined meaning. It is kept verbatim on read (see
// [Record.Extra]) and written empty for new rows so that older database files
// stay readable. Latitude and longitude are decimal degrees; their ranges are
// not validated.
//
// The file is append-only. Rows are never rewritten, so a key that was
// resolved twice has two rows and the first one always wins on lookup.
//
// # Output Artifact
//
// Resolved rows are emitted as a pretty-printed JSON array of [Result]
// objects with the keys City, Country, Latitude and Longitude. Rows that
// could not be resolved are left out.
package domain
