package astrometry

import (
	"fmt"
	"math"
	"strings"

	"starmap-server/internal/sky"
)

const (
	DefaultRadiusDegrees = 1.0
	DefaultMaxMagnitude  = 15.0
	DefaultMaxResults    = 10000

	designationPrefix = "Gaia DR3 "
)

// QueryParameters describes a cone query. A non-positive radius or result
// limit selects the default; MaxMagnitude is always taken as given, so start
// from NewQueryParameters.
type QueryParameters struct {
	Center        sky.Position
	RadiusDegrees float64
	MaxMagnitude  float64
	MaxResults    int
}

func NewQueryParameters(center sky.Position) QueryParameters {
	return QueryParameters{
		Center:        center,
		RadiusDegrees: DefaultRadiusDegrees,
		MaxMagnitude:  DefaultMaxMagnitude,
		MaxResults:    DefaultMaxResults,
	}
}

func (p QueryParameters) withDefaults() QueryParameters {
	if p.RadiusDegrees <= 0 {
		p.RadiusDegrees = DefaultRadiusDegrees
	}
	if p.MaxResults <= 0 {
		p.MaxResults = DefaultMaxResults
	}
	return p
}

func (p QueryParameters) validate() error {
	if err := p.Center.Validate(); err != nil {
		return err
	}
	if math.IsNaN(p.RadiusDegrees) || p.RadiusDegrees > 180 {
		return fmt.Errorf("radius %v exceeds 180 degrees", p.RadiusDegrees)
	}
	if math.IsNaN(p.MaxMagnitude) {
		return fmt.Errorf("max magnitude must be a number")
	}
	return nil
}

type star struct {
	sourceID    int64
	ra, dec     float64
	gmag        float64
	parallax    float64
	pmra, pmdec float64
	bpRp        *float64
	designation string
}

func (s star) position() sky.Position {
	return sky.Position{RA: s.ra, Dec: s.dec}
}

// object returns a fresh object the caller owns.
func (s star) object() *sky.CelestialObject {
	obj := sky.NewObject(s.sourceID, s.position(), s.gmag)
	if s.parallax > 0 {
		obj.Parallax = s.parallax
	}
	obj.ProperMotionRA = s.pmra
	obj.ProperMotionDE = s.pmdec
	if s.bpRp != nil {
		v := *s.bpRp
		obj.ColorIndex = &v
	}
	obj.Name = s.designation
	return obj
}

// normalizeName folds case and drops whitespace so "gaia dr3 123" and
// "Gaia DR3 123" collide.
func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '_' {
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
}
