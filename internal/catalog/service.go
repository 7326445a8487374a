package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"starmap-server/internal/shared/tabular"
	"starmap-server/internal/sky"
)

// Fetcher looks up a single catalog entry remotely.
type Fetcher interface {
	QueryNumber(ctx context.Context, number int) (sky.CrossMatchEntry, bool)
}

// Service is the local catalog cache. Bulk-loaded entries are answered from
// memory; misses fall back to the memo and then to a single remote lookup.
type Service struct {
	mu      sync.RWMutex
	entries map[int]sky.CrossMatchEntry

	memo   EntryCache
	remote Fetcher
	logger *slog.Logger
}

// NewService builds an empty cache. memo and remote may be nil.
func NewService(memo EntryCache, remote Fetcher, logger *slog.Logger) *Service {
	logger.Debug("Initializing catalog service")

	return &Service{
		entries: make(map[int]sky.CrossMatchEntry),
		memo:    memo,
		remote:  remote,
		logger:  logger,
	}
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Load reads a catalog file into the cache. Rows for numbers already present
// replace the earlier entry.
func (s *Service) Load(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	n, err := s.LoadReader(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return n, nil
}

// LoadReader parses a CSV catalog with the columns sao,ra,dec,vmag and the
// optional sptype and name. Nothing is stored if any row is malformed.
func (s *Service) LoadReader(ctx context.Context, r io.Reader) (int, error) {
	logger := s.logger.With("component", "catalog_service", "operation", "load")

	entries := make(map[int]sky.CrossMatchEntry)
	_, err := tabular.Read(ctx, r, []string{"sao", "ra", "dec", "vmag"}, func(rec tabular.Record) error {
		entry, err := parseEntry(rec)
		if err != nil {
			return err
		}
		entries[entry.Number] = entry
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	for n, entry := range entries {
		s.entries[n] = entry
	}
	total := len(s.entries)
	s.mu.Unlock()

	logger.Info("Catalog loaded", "entries", len(entries), "total", total)
	return len(entries), nil
}

func parseEntry(rec tabular.Record) (sky.CrossMatchEntry, error) {
	var entry sky.CrossMatchEntry
	var err error

	if entry.Number, err = rec.Int("sao"); err != nil {
		return entry, err
	}
	if entry.Number <= 0 {
		return entry, fmt.Errorf("line %d: catalog number must be positive", rec.Line)
	}
	if entry.Position.RA, err = rec.Float("ra"); err != nil {
		return entry, err
	}
	if entry.Position.Dec, err = rec.Float("dec"); err != nil {
		return entry, err
	}
	if err := entry.Position.Validate(); err != nil {
		return entry, fmt.Errorf("line %d: %w", rec.Line, err)
	}
	if entry.Magnitude, err = rec.Float("vmag"); err != nil {
		return entry, err
	}
	entry.SpectralType = rec.Get("sptype")
	entry.Name = rec.Get("name")
	return entry, nil
}

// FindByNumber returns the full entry for a catalog number.
func (s *Service) FindByNumber(ctx context.Context, number int) (sky.CrossMatchEntry, bool) {
	logger := s.logger.With("component", "catalog_service", "operation", "find_by_number", "catalog_number", number)

	s.mu.RLock()
	entry, ok := s.entries[number]
	s.mu.RUnlock()
	if ok {
		return entry, true
	}

	if s.memo != nil {
		entry, ok, err := s.memo.Get(ctx, number)
		if err != nil {
			logger.Warn("Entry cache lookup failed", "error", err)
		} else if ok {
			logger.Debug("Entry cache hit")
			return entry, true
		}
	}

	if s.remote == nil {
		return sky.CrossMatchEntry{}, false
	}

	entry, ok = s.remote.QueryNumber(ctx, number)
	if !ok {
		logger.Debug("Catalog entry not found remotely")
		return sky.CrossMatchEntry{}, false
	}

	if s.memo != nil {
		if err := s.memo.Put(ctx, entry); err != nil {
			logger.Warn("Failed to cache remote entry", "error", err)
		}
	}
	return entry, true
}
