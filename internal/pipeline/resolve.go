package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/couchcryptid/travel-score/internal/observability"
)

// Store is the local city database consulted before the resolver.
type Store interface {
	// Lookup returns the first stored coordinate for key. found is false when
	// the key is absent; err is reserved for unreadable or corrupt stores.
	Lookup(key domain.Key) (coord domain.Coordinate, found bool, err error)

	// Append adds a new record at the end of the store.
	Append(rec domain.Record) error
}

// Outcome is the terminal state of one row.
type Outcome int

const (
	// OutcomeStoreHit means the coordinate came from the city database.
	OutcomeStoreHit Outcome = iota
	// OutcomeResolved means the resolver answered and the database was updated.
	OutcomeResolved
	// OutcomeSkipped means the row is dropped from the output.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStoreHit:
		return "store_hit"
	case OutcomeResolved:
		return "resolved"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Resolution is the result of running one key through the row state machine.
type Resolution struct {
	Outcome Outcome
	Result  domain.Result // set unless Outcome is OutcomeSkipped
	Reason  error         // why the row was skipped
}

// RowResolver implements RowProcessor: database lookup first, resolver on
// miss, append on resolver success. Nothing is retried.
type RowResolver struct {
	store    Store
	resolver domain.Resolver
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewRowResolver creates a RowResolver over store and resolver.
func NewRowResolver(store Store, resolver domain.Resolver, logger *slog.Logger, metrics *observability.Metrics) *RowResolver {
	return &RowResolver{
		store:    store,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve runs key through the state machine. A non-nil error is fatal for
// the whole run (corrupt database, cancelled context); per-row failures are
// reported as OutcomeSkipped with a Reason. Keys with a blank field are
// skipped before the store is consulted.
func (r *RowResolver) Resolve(ctx context.Context, key domain.Key) (Resolution, error) {
	if !key.IsComplete() {
		return r.skip(key, domain.ErrIncompleteKey), nil
	}

	coord, found, err := r.store.Lookup(key)
	if err != nil {
		return Resolution{}, fmt.Errorf("look up %s, %s: %w", key.City, key.Country, err)
	}
	if found {
		r.metrics.StoreLookups.WithLabelValues("hit").Inc()
		r.logger.Info("found coordinates in database", "city", key.City, "country", key.Country)
		return Resolution{
			Outcome: OutcomeStoreHit,
			Result:  domain.NewResult(key, coord, domain.SourceStore),
		}, nil
	}
	r.metrics.StoreLookups.WithLabelValues("miss").Inc()

	r.logger.Info("fetching coordinates from resolver",
		"city", key.City,
		"country", key.Country,
		"provider", r.resolver.Name(),
	)
	coord, err = r.resolver.Resolve(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return Resolution{}, ctx.Err()
		}
		return r.skip(key, &domain.ResolutionError{Key: key, Provider: r.resolver.Name(), Err: err}), nil
	}

	if err := r.store.Append(domain.Record{Key: key, Coordinate: coord}); err != nil {
		return r.skip(key, fmt.Errorf("update city database: %w", err)), nil
	}
	r.metrics.StoreAppends.Inc()
	r.logger.Info("added coordinates to database",
		"city", key.City,
		"country", key.Country,
		"lat", coord.Lat,
		"lon", coord.Lon,
	)

	return Resolution{
		Outcome: OutcomeResolved,
		Result:  domain.NewResult(key, coord, domain.SourceResolver),
	}, nil
}

func (r *RowResolver) skip(key domain.Key, reason error) Resolution {
	r.logger.Error("skipping row",
		"city", key.City,
		"country", key.Country,
		"error", reason,
	)
	return Resolution{Outcome: OutcomeSkipped, Reason: reason}
}
