// Package resolver assigns legacy catalog numbers to celestial objects by
// consulting a local cross-match store and then two remote services, stopping
// at the first tier that answers.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"starmap-server/internal/sky"
)

const (
	DefaultSearchRadiusArcsec = 5.0

	// ConeSearchRadiusArcsec is used for the remote cone tier whatever radius
	// the caller asked for.
	ConeSearchRadiusArcsec = 5.0

	DefaultBatchConcurrency = 8
)

// Store is the local cross-match table. Errors are treated as a miss.
type Store interface {
	Available() bool
	FindByIdentifier(ctx context.Context, sourceID int64) (int, bool, error)
	FindByPosition(ctx context.Context, pos sky.Position, radiusArcsec float64) (int, bool, error)
}

// Remote performs the network lookups. Implementations report every failure
// as "not found".
type Remote interface {
	QueryIdentifier(ctx context.Context, sourceID int64) (int, bool)
	ConeSearch(ctx context.Context, pos sky.Position, radiusArcsec float64) (int, bool)
}

type Tier string

const (
	TierAlreadySet       Tier = "already_set"
	TierLocalIdentifier  Tier = "local_identifier"
	TierLocalPosition    Tier = "local_position"
	TierRemoteIdentifier Tier = "remote_identifier"
	TierRemoteCone       Tier = "remote_cone"
	TierNone             Tier = "none"
)

// Stats counts resolutions by the tier that produced them.
type Stats struct {
	AlreadySet       int64 `json:"already_set"`
	LocalIdentifier  int64 `json:"local_identifier"`
	LocalPosition    int64 `json:"local_position"`
	RemoteIdentifier int64 `json:"remote_identifier"`
	RemoteCone       int64 `json:"remote_cone"`
	Unresolved       int64 `json:"unresolved"`
}

type Service struct {
	store  Store
	remote Remote
	logger *slog.Logger

	counters [6]atomic.Int64
}

// NewService wires the resolver. A nil store behaves as an unavailable one.
func NewService(store Store, remote Remote, logger *slog.Logger) *Service {
	logger.Debug("Initializing resolver service")

	return &Service{
		store:  store,
		remote: remote,
		logger: logger,
	}
}

// Resolve reports whether obj ends up with a catalog number.
func (s *Service) Resolve(ctx context.Context, obj *sky.CelestialObject, searchRadiusArcsec float64) bool {
	return s.ResolveTier(ctx, obj, searchRadiusArcsec) != TierNone
}

// ResolveTier runs the lookup cascade and returns the tier that answered.
// It panics if obj is nil, its position is invalid, or the radius is not a
// positive finite number.
func (s *Service) ResolveTier(ctx context.Context, obj *sky.CelestialObject, searchRadiusArcsec float64) Tier {
	mustValidate(obj, searchRadiusArcsec)

	tier := s.resolve(ctx, obj, searchRadiusArcsec)
	s.counters[tierIndex(tier)].Add(1)
	return tier
}

func (s *Service) resolve(ctx context.Context, obj *sky.CelestialObject, radius float64) Tier {
	if _, ok := obj.CatalogNumber(); ok {
		return TierAlreadySet
	}

	logger := s.logger.With("component", "resolver", "operation", "resolve",
		"source_id", obj.SourceID, "position", obj.Position.String())

	if s.store != nil && s.store.Available() {
		if obj.HasSourceID() {
			n, ok, err := s.store.FindByIdentifier(ctx, obj.SourceID)
			if err != nil {
				logger.Warn("Local identifier lookup failed", "error", err)
			} else if ok {
				return s.assign(logger, obj, n, TierLocalIdentifier)
			}
		}

		n, ok, err := s.store.FindByPosition(ctx, obj.Position, radius)
		if err != nil {
			logger.Warn("Local position lookup failed", "error", err)
		} else if ok {
			return s.assign(logger, obj, n, TierLocalPosition)
		}
	}

	if s.remote == nil {
		logger.Debug("No catalog number found")
		return TierNone
	}

	if obj.HasSourceID() {
		if n, ok := s.remote.QueryIdentifier(ctx, obj.SourceID); ok {
			return s.assign(logger, obj, n, TierRemoteIdentifier)
		}
	}

	if n, ok := s.remote.ConeSearch(ctx, obj.Position, ConeSearchRadiusArcsec); ok {
		return s.assign(logger, obj, n, TierRemoteCone)
	}

	logger.Debug("No catalog number found")
	return TierNone
}

func (s *Service) assign(logger *slog.Logger, obj *sky.CelestialObject, n int, tier Tier) Tier {
	if !obj.SetCatalogNumber(n) {
		// Resolved concurrently by another caller; its number stands.
		logger.Debug("Catalog number already assigned", "tier", tier)
		return TierAlreadySet
	}
	logger.Debug("Catalog number assigned", "catalog_number", n, "tier", tier)
	return tier
}

func (s *Service) Stats() Stats {
	return Stats{
		AlreadySet:       s.counters[0].Load(),
		LocalIdentifier:  s.counters[1].Load(),
		LocalPosition:    s.counters[2].Load(),
		RemoteIdentifier: s.counters[3].Load(),
		RemoteCone:       s.counters[4].Load(),
		Unresolved:       s.counters[5].Load(),
	}
}

func tierIndex(t Tier) int {
	switch t {
	case TierAlreadySet:
		return 0
	case TierLocalIdentifier:
		return 1
	case TierLocalPosition:
		return 2
	case TierRemoteIdentifier:
		return 3
	case TierRemoteCone:
		return 4
	default:
		return 5
	}
}

func mustValidate(obj *sky.CelestialObject, radius float64) {
	if obj == nil {
		panic("resolver: nil object")
	}
	if err := obj.Position.Validate(); err != nil {
		panic(fmt.Sprintf("resolver: %v", err))
	}
	if err := ValidateRadius(radius); err != nil {
		panic(fmt.Sprintf("resolver: %v", err))
	}
}

// ValidateRadius lets callers reject bad input before it reaches Resolve.
func ValidateRadius(radiusArcsec float64) error {
	if math.IsNaN(radiusArcsec) || math.IsInf(radiusArcsec, 0) || radiusArcsec <= 0 {
		return fmt.Errorf("search radius %v must be a positive finite number of arcseconds", radiusArcsec)
	}
	return nil
}

// BatchResult summarises ResolveBatch. Tiers is parallel to the input slice.
type BatchResult struct {
	Total      int    `json:"total"`
	Resolved   int    `json:"resolved"`
	AlreadySet int    `json:"already_set"`
	Unresolved int    `json:"unresolved"`
	Tiers      []Tier `json:"tiers"`
}

// ResolveBatch resolves independent objects concurrently, at most
// concurrency at a time. Objects not started before ctx is cancelled are
// reported as unresolved. Preconditions are checked for every object before
// any lookup runs.
func (s *Service) ResolveBatch(ctx context.Context, objs []*sky.CelestialObject, searchRadiusArcsec float64, concurrency int) BatchResult {
	for _, obj := range objs {
		mustValidate(obj, searchRadiusArcsec)
	}
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	logger := s.logger.With("component", "resolver", "operation", "resolve_batch")

	tiers := make([]Tier, len(objs))
	for i := range tiers {
		tiers[i] = TierNone
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, obj := range objs {
		if ctx.Err() != nil {
			logger.Warn("Batch cancelled", "started", i, "total", len(objs))
			break
		}
		g.Go(func() error {
			tiers[i] = s.ResolveTier(ctx, obj, searchRadiusArcsec)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Total: len(objs), Tiers: tiers}
	for _, tier := range tiers {
		switch tier {
		case TierAlreadySet:
			result.AlreadySet++
		case TierNone:
			result.Unresolved++
		default:
			result.Resolved++
		}
	}

	logger.Info("Batch resolved",
		"total", result.Total,
		"resolved", result.Resolved,
		"already_set", result.AlreadySet,
		"unresolved", result.Unresolved)

	return result
}
