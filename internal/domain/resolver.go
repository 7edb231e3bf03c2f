package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoMatch is returned by a Resolver when the provider has no result for a query.
var ErrNoMatch = errors.New("no match")

// ErrIncompleteKey marks an input row whose City or Country is blank.
var ErrIncompleteKey = errors.New("city and country must both be non-empty")

// Resolver looks up coordinates for places missing from the city database.
type Resolver interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Resolve returns the best match for key, or an error wrapping ErrNoMatch
	// when the provider knows no such place.
	Resolve(ctx context.Context, key Key) (Coordinate, error)
}

// ResolutionError reports a failed lookup for one key.
type ResolutionError struct {
	Key      Key
	Provider string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s, %s via %s: %v", e.Key.City, e.Key.Country, e.Provider, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsNoMatch reports whether err means the provider found nothing, as opposed
// to a transport or service failure.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch)
}
