package crossmatch

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"starmap-server/internal/sky"
)

// DefaultBandHeightDegrees keeps a band to a few hundred SAO-density entries.
const DefaultBandHeightDegrees = 0.1

// MemoryStore holds a cross-match table in memory. Identifier lookups use a
// hash map; position lookups use declination bands whose entries are kept
// sorted by right ascension.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[int64]int
	bands      map[int][]Match
	bandHeight float64
	entries    int
	numbers    map[int]struct{}
	logger     *slog.Logger
}

func NewMemoryStore(bandHeightDegrees float64, logger *slog.Logger) *MemoryStore {
	if bandHeightDegrees <= 0 {
		bandHeightDegrees = DefaultBandHeightDegrees
	}

	return &MemoryStore{
		byID:       make(map[int64]int),
		bands:      make(map[int][]Match),
		bandHeight: bandHeightDegrees,
		numbers:    make(map[int]struct{}),
		logger:     logger,
	}
}

func (s *MemoryStore) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries > 0
}

// Add inserts matches. A source identifier seen twice keeps its first number.
func (s *MemoryStore) Add(matches ...Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[int]struct{})
	for _, m := range matches {
		if m.SourceID >= 0 {
			if _, dup := s.byID[m.SourceID]; dup {
				continue
			}
			s.byID[m.SourceID] = m.Number
		}

		band := s.band(m.Position.Dec)
		s.bands[band] = append(s.bands[band], m)
		touched[band] = struct{}{}

		s.numbers[m.Number] = struct{}{}
		s.entries++
	}

	for band := range touched {
		entries := s.bands[band]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Position.RA < entries[j].Position.RA })
	}
}

func (s *MemoryStore) FindByIdentifier(_ context.Context, sourceID int64) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[sourceID]
	return n, ok, nil
}

func (s *MemoryStore) FindByPosition(_ context.Context, pos sky.Position, radiusArcsec float64) (int, bool, error) {
	w := sky.SearchWindow(pos, radiusArcsec)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []Match
	for band := s.band(w.DecMin); band <= s.band(w.DecMax); band++ {
		candidates = appendInWindow(candidates, s.bands[band], w)
	}

	m, ok := nearest(pos, radiusArcsec, candidates)
	if !ok {
		return 0, false, nil
	}
	return m.Number, true, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Source:          "memory",
		Entries:         s.entries,
		WithIdentifier:  len(s.byID),
		DistinctNumbers: len(s.numbers),
	}, nil
}

func (s *MemoryStore) Statistics(ctx context.Context) string {
	stats, _ := s.Stats(ctx)
	return stats.String()
}

func (s *MemoryStore) band(dec float64) int {
	return int(math.Floor((dec + 90) / s.bandHeight))
}

// appendInWindow appends the entries of an RA-sorted band that fall inside
// the window's RA range.
func appendInWindow(dst, band []Match, w sky.Window) []Match {
	if len(band) == 0 {
		return dst
	}
	if w.AllRA {
		return append(dst, band...)
	}

	lower := func(ra float64) int {
		return sort.Search(len(band), func(i int) bool { return band[i].Position.RA >= ra })
	}
	upper := func(ra float64) int {
		return sort.Search(len(band), func(i int) bool { return band[i].Position.RA > ra })
	}

	if w.Wraps {
		dst = append(dst, band[lower(w.RAMin):]...)
		return append(dst, band[:upper(w.RAMax)]...)
	}
	return append(dst, band[lower(w.RAMin):upper(w.RAMax)]...)
}
