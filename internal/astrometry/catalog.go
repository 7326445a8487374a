// Package astrometry serves the primary astrometric catalog from a local
// directory. A Catalog is an explicit handle: open it, share it, close it.
package astrometry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"starmap-server/internal/shared/logger"
)

const (
	StarsFile = "stars.csv"

	DefaultMaxCachedQueries = 256

	// chunkHeightDegrees is the declination height of one index chunk.
	chunkHeightDegrees = 1.0
)

type Config struct {
	Directory        string
	MaxCachedQueries int
	LogLevel         string
}

// Catalog is an open astrometric catalog. All methods are safe for
// concurrent use and on a nil or closed Catalog, which reports itself
// unavailable and answers every query with nothing.
type Catalog struct {
	mu     sync.RWMutex
	closed bool

	stars  []star
	byID   map[int64]int
	byName map[string]int
	// chunks maps a declination chunk to star indices sorted by RA.
	chunks map[int][]int

	cones  *lru.Cache[coneKey, []int]
	logger *slog.Logger
}

// Open loads <Directory>/stars.csv. The returned Catalog must be closed.
func Open(ctx context.Context, cfg Config, base *slog.Logger) (*Catalog, error) {
	log := slog.New(newLevelHandler(logger.ParseLevel(cfg.LogLevel), base.Handler())).
		With("component", "astrometry")

	if cfg.MaxCachedQueries <= 0 {
		cfg.MaxCachedQueries = DefaultMaxCachedQueries
	}

	path := filepath.Join(cfg.Directory, StarsFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open astrometric catalog: %w", err)
	}
	defer f.Close()

	stars, err := readStars(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cones, err := lru.New[coneKey, []int](cfg.MaxCachedQueries)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	c := &Catalog{
		stars:  stars,
		byID:   make(map[int64]int, len(stars)),
		byName: make(map[string]int),
		chunks: make(map[int][]int),
		cones:  cones,
		logger: log,
	}
	c.index()

	log.Info("Astrometric catalog opened",
		"directory", cfg.Directory,
		"stars", len(stars),
		"chunks", len(c.chunks))

	return c, nil
}

func (c *Catalog) index() {
	for i, s := range c.stars {
		if _, dup := c.byID[s.sourceID]; !dup {
			c.byID[s.sourceID] = i
		}
		if s.designation != "" {
			key := normalizeName(s.designation)
			if _, dup := c.byName[key]; !dup {
				c.byName[key] = i
			}
		}

		chunk := chunkOf(s.dec)
		c.chunks[chunk] = append(c.chunks[chunk], i)
	}

	for _, idx := range c.chunks {
		sort.Slice(idx, func(a, b int) bool { return c.stars[idx[a]].ra < c.stars[idx[b]].ra })
	}
}

func chunkOf(dec float64) int {
	chunk := int((dec + 90) / chunkHeightDegrees)
	// dec = +90 belongs to the top chunk.
	if top := int(180/chunkHeightDegrees) - 1; chunk > top {
		chunk = top
	}
	return chunk
}

func (c *Catalog) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stars)
}

// Close releases the catalog. Calling it more than once is harmless.
func (c *Catalog) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.stars = nil
	c.byID = nil
	c.byName = nil
	c.chunks = nil
	c.cones.Purge()

	c.logger.Info("Astrometric catalog closed")
	return nil
}

// levelHandler drops records below a floor before the wrapped handler sees
// them.
type levelHandler struct {
	level slog.Leveler
	inner slog.Handler
}

func newLevelHandler(level slog.Leveler, inner slog.Handler) *levelHandler {
	return &levelHandler{level: level, inner: inner}
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.inner.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newLevelHandler(h.level, h.inner.WithAttrs(attrs))
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return newLevelHandler(h.level, h.inner.WithGroup(name))
}
