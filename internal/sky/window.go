package sky

import "math"

// Window is a declination/right-ascension box containing every position
// within a radius of a center. When Wraps is set the RA range crosses 0h and
// covers [RAMin, 360) and [0, RAMax].
type Window struct {
	DecMin, DecMax float64
	RAMin, RAMax   float64
	AllRA          bool
	Wraps          bool
}

func SearchWindow(center Position, radiusArcsec float64) Window {
	r := ArcsecToDegrees(radiusArcsec)

	w := Window{
		DecMin: math.Max(center.Dec-r, -90),
		DecMax: math.Min(center.Dec+r, 90),
	}

	maxAbsDec := math.Max(math.Abs(w.DecMin), math.Abs(w.DecMax))
	if maxAbsDec >= 90 {
		w.AllRA = true
		return w
	}

	halfWidth := r / math.Cos(maxAbsDec*math.Pi/180)
	if halfWidth >= 180 {
		w.AllRA = true
		return w
	}

	w.RAMin = center.RA - halfWidth
	w.RAMax = center.RA + halfWidth
	switch {
	case w.RAMin < 0:
		w.RAMin += 360
		w.Wraps = true
	case w.RAMax >= 360:
		w.RAMax -= 360
		w.Wraps = true
	}
	return w
}

func (w Window) ContainsRA(ra float64) bool {
	if w.AllRA {
		return true
	}
	if w.Wraps {
		return ra >= w.RAMin || ra <= w.RAMax
	}
	return ra >= w.RAMin && ra <= w.RAMax
}

func (w Window) Contains(p Position) bool {
	return p.Dec >= w.DecMin && p.Dec <= w.DecMax && w.ContainsRA(p.RA)
}
