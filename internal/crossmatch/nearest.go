package crossmatch

import (
	"math"

	"starmap-server/internal/sky"
)

// nearest returns the candidate closest to center that lies within the
// radius.
func nearest(center sky.Position, radiusArcsec float64, candidates []Match) (Match, bool) {
	best := -1
	bestSep := math.Inf(1)
	for i, c := range candidates {
		sep := sky.AngularSeparationArcsec(center, c.Position)
		if sep <= radiusArcsec && sep < bestSep {
			best, bestSep = i, sep
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return candidates[best], true
}
