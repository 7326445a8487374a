package astrometry

import (
	"context"
	"fmt"
	"io"
	"math"

	"starmap-server/internal/shared/tabular"
)

var starColumns = []string{"source_id", "ra", "dec", "gmag"}

func readStars(ctx context.Context, r io.Reader) ([]star, error) {
	var stars []star

	_, err := tabular.Read(ctx, r, starColumns, func(rec tabular.Record) error {
		s, err := parseStar(rec)
		if err != nil {
			return err
		}
		stars = append(stars, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stars, nil
}

func parseStar(rec tabular.Record) (star, error) {
	var s star
	var err error

	if s.sourceID, err = rec.Int64("source_id"); err != nil {
		return s, err
	}
	if s.sourceID < 0 {
		return s, fmt.Errorf("line %d: negative source_id", rec.Line)
	}
	if s.ra, err = rec.Float("ra"); err != nil {
		return s, err
	}
	if s.dec, err = rec.Float("dec"); err != nil {
		return s, err
	}
	if err := s.position().Validate(); err != nil {
		return s, fmt.Errorf("line %d: %w", rec.Line, err)
	}
	if s.gmag, err = rec.Float("gmag"); err != nil {
		return s, err
	}
	if s.parallax, err = rec.OptionalFloat("parallax", 0); err != nil {
		return s, err
	}
	if s.pmra, err = rec.OptionalFloat("pmra", 0); err != nil {
		return s, err
	}
	if s.pmdec, err = rec.OptionalFloat("pmdec", 0); err != nil {
		return s, err
	}

	bpRp, err := rec.OptionalFloat("bp_rp", math.NaN())
	if err != nil {
		return s, err
	}
	if !math.IsNaN(bpRp) {
		s.bpRp = &bpRp
	}

	s.designation = rec.Get("designation")
	return s, nil
}
