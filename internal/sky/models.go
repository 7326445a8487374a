package sky

import (
	"fmt"
	"math"
	"sync"
)

// NoSourceID marks an object the primary catalog did not assign an identifier to.
const NoSourceID int64 = -1

// Position is an equatorial J2000 coordinate in degrees.
type Position struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

func (p Position) Validate() error {
	if math.IsNaN(p.RA) || math.IsInf(p.RA, 0) || math.IsNaN(p.Dec) || math.IsInf(p.Dec, 0) {
		return fmt.Errorf("position (%v, %v) is not finite", p.RA, p.Dec)
	}
	if p.RA < 0 || p.RA >= 360 {
		return fmt.Errorf("right ascension %v outside [0, 360)", p.RA)
	}
	if p.Dec < -90 || p.Dec > 90 {
		return fmt.Errorf("declination %v outside [-90, 90]", p.Dec)
	}
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("%.6f %+.6f", p.RA, p.Dec)
}

// CrossMatchEntry is one row of the legacy catalog.
type CrossMatchEntry struct {
	Number       int      `json:"sao_number"`
	Position     Position `json:"position"`
	Magnitude    float64  `json:"magnitude"`
	SpectralType string   `json:"spectral_type,omitempty"`
	Name         string   `json:"name,omitempty"`
}

// CelestialObject is a star produced by the primary astrometric catalog.
//
// The catalog number is the only field the resolver touches. It is guarded so
// that one object may be shared between goroutines, and once set it is never
// overwritten or cleared.
type CelestialObject struct {
	SourceID     int64    `json:"source_id"`
	Position     Position `json:"position"`
	Magnitude    float64  `json:"magnitude"`
	SpectralType string   `json:"spectral_type,omitempty"`
	Name         string   `json:"name,omitempty"`

	Parallax       float64  `json:"parallax,omitempty"`
	ProperMotionRA float64  `json:"pmra,omitempty"`
	ProperMotionDE float64  `json:"pmdec,omitempty"`
	ColorIndex     *float64 `json:"bp_rp,omitempty"`

	mu            sync.RWMutex
	catalogNumber *int
}

func NewObject(sourceID int64, pos Position, magnitude float64) *CelestialObject {
	return &CelestialObject{
		SourceID:  sourceID,
		Position:  pos,
		Magnitude: magnitude,
	}
}

func (o *CelestialObject) HasSourceID() bool {
	return o.SourceID >= 0
}

func (o *CelestialObject) CatalogNumber() (int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.catalogNumber == nil {
		return 0, false
	}
	return *o.catalogNumber, true
}

// SetCatalogNumber records n unless a number is already present. It reports
// whether n was stored.
func (o *CelestialObject) SetCatalogNumber(n int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.catalogNumber != nil {
		return false
	}
	o.catalogNumber = &n
	return true
}
