package astrometry

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"starmap-server/internal/sky"
)

type coneKey struct {
	ra, dec, radius, maxMag float64
}

// QueryCone returns the stars within the cone no fainter than MaxMagnitude,
// brightest first, at most MaxResults of them.
func (c *Catalog) QueryCone(ctx context.Context, params QueryParameters) ([]*sky.CelestialObject, error) {
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Available() {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, nil
	}

	key := coneKey{params.Center.RA, params.Center.Dec, params.RadiusDegrees, params.MaxMagnitude}
	matched, hit := c.cones.Get(key)
	if !hit {
		matched = c.cone(params)
		c.cones.Add(key, matched)
	}

	c.logger.Debug("Cone query",
		"operation", "query_cone",
		"center", params.Center.String(),
		"radius_deg", params.RadiusDegrees,
		"max_mag", params.MaxMagnitude,
		"matched", len(matched),
		"cached", hit)

	if len(matched) > params.MaxResults {
		matched = matched[:params.MaxResults]
	}

	objs := make([]*sky.CelestialObject, len(matched))
	for i, idx := range matched {
		objs[i] = c.stars[idx].object()
	}
	return objs, nil
}

func (c *Catalog) cone(params QueryParameters) []int {
	radiusArcsec := params.RadiusDegrees * sky.ArcsecPerDegree
	w := sky.SearchWindow(params.Center, radiusArcsec)

	var matched []int
	for chunk := chunkOf(w.DecMin); chunk <= chunkOf(w.DecMax); chunk++ {
		for _, idx := range raRange(c.chunks[chunk], c.stars, w) {
			s := c.stars[idx]
			if s.gmag > params.MaxMagnitude {
				continue
			}
			if !sky.WithinRadius(params.Center, s.position(), radiusArcsec) {
				continue
			}
			matched = append(matched, idx)
		}
	}

	sort.SliceStable(matched, func(a, b int) bool {
		return c.stars[matched[a]].gmag < c.stars[matched[b]].gmag
	})
	return matched
}

// raRange returns the part of an RA-sorted chunk inside the window.
func raRange(idx []int, stars []star, w sky.Window) []int {
	if len(idx) == 0 || w.AllRA {
		return idx
	}

	lower := func(ra float64) int {
		return sort.Search(len(idx), func(i int) bool { return stars[idx[i]].ra >= ra })
	}
	upper := func(ra float64) int {
		return sort.Search(len(idx), func(i int) bool { return stars[idx[i]].ra > ra })
	}

	if w.Wraps {
		head := idx[lower(w.RAMin):]
		tail := idx[:upper(w.RAMax)]
		out := make([]int, 0, len(head)+len(tail))
		return append(append(out, head...), tail...)
	}
	return idx[lower(w.RAMin):upper(w.RAMax)]
}

// QueryByID returns the star with the given source identifier.
func (c *Catalog) QueryByID(_ context.Context, sourceID int64) (*sky.CelestialObject, bool) {
	if !c.Available() {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false
	}

	idx, ok := c.byID[sourceID]
	if !ok {
		return nil, false
	}
	return c.stars[idx].object(), true
}

// QueryByName matches a designation ignoring case and whitespace. A name of
// the form "Gaia DR3 <source_id>" is also looked up by identifier.
func (c *Catalog) QueryByName(ctx context.Context, name string) (*sky.CelestialObject, bool) {
	key := normalizeName(name)
	if key == "" || !c.Available() {
		return nil, false
	}

	c.mu.RLock()
	idx, ok := c.byName[key]
	if ok && !c.closed {
		obj := c.stars[idx].object()
		c.mu.RUnlock()
		return obj, true
	}
	c.mu.RUnlock()

	if id, ok := sourceIDFromName(key); ok {
		obj, found := c.QueryByID(ctx, id)
		if found && obj.Name == "" {
			obj.Name = strings.TrimSpace(name)
		}
		return obj, found
	}
	return nil, false
}

func sourceIDFromName(key string) (int64, bool) {
	prefix := normalizeName(designationPrefix)
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
