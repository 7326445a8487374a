package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"starmap-server/internal/shared/tabular"
	"starmap-server/internal/sky"
)

var objectColumns = []string{"ra", "dec"}

// readObjects parses a CSV of stars. ra and dec are required; source_id,
// magnitude, spectral_type, name and sao are optional.
func readObjects(ctx context.Context, r io.Reader) ([]*sky.CelestialObject, error) {
	var objs []*sky.CelestialObject

	_, err := tabular.Read(ctx, r, objectColumns, func(rec tabular.Record) error {
		obj, err := parseObject(rec)
		if err != nil {
			return err
		}
		objs = append(objs, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objs, nil
}

func parseObject(rec tabular.Record) (*sky.CelestialObject, error) {
	ra, err := rec.Float("ra")
	if err != nil {
		return nil, err
	}
	dec, err := rec.Float("dec")
	if err != nil {
		return nil, err
	}
	pos := sky.Position{RA: ra, Dec: dec}
	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("line %d: %w", rec.Line, err)
	}

	sourceID := sky.NoSourceID
	if rec.Get("source_id") != "" {
		if sourceID, err = rec.Int64("source_id"); err != nil {
			return nil, err
		}
		if sourceID < 0 {
			sourceID = sky.NoSourceID
		}
	}

	magnitude, err := rec.OptionalFloat("magnitude", 0)
	if err != nil {
		return nil, err
	}

	obj := sky.NewObject(sourceID, pos, magnitude)
	obj.SpectralType = rec.Get("spectral_type")
	obj.Name = rec.Get("name")

	if rec.Get("sao") != "" {
		n, err := rec.Int("sao")
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("line %d: sao must be positive", rec.Line)
		}
		obj.SetCatalogNumber(n)
	}
	return obj, nil
}

func readObjectsFile(ctx context.Context, path string) ([]*sky.CelestialObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open objects file: %w", err)
	}
	defer f.Close()

	objs, err := readObjects(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return objs, nil
}
