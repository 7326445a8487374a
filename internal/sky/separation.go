package sky

import "math"

const (
	ArcsecPerDegree = 3600.0
	degToRad        = math.Pi / 180
)

func ArcsecToDegrees(arcsec float64) float64 {
	return arcsec / ArcsecPerDegree
}

func DegreesToArcsec(deg float64) float64 {
	return deg * ArcsecPerDegree
}

// AngularSeparationArcsec returns the great-circle distance between a and b.
// The haversine form stays accurate for the arcsecond-scale separations used
// in cross-matching, where the spherical law of cosines loses precision.
func AngularSeparationArcsec(a, b Position) float64 {
	dec1 := a.Dec * degToRad
	dec2 := b.Dec * degToRad
	dDec := dec2 - dec1
	dRA := (b.RA - a.RA) * degToRad

	sinDDec := math.Sin(dDec / 2)
	sinDRA := math.Sin(dRA / 2)
	h := sinDDec*sinDDec + math.Cos(dec1)*math.Cos(dec2)*sinDRA*sinDRA
	if h > 1 {
		h = 1
	}

	return DegreesToArcsec(2 * math.Asin(math.Sqrt(h)) / degToRad)
}

func WithinRadius(a, b Position, radiusArcsec float64) bool {
	return AngularSeparationArcsec(a, b) <= radiusArcsec
}
