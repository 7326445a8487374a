package crossmatch

import (
	"context"
	"fmt"
	"io"
	"os"

	"starmap-server/internal/shared/tabular"
	"starmap-server/internal/sky"
)

// ReadMatches parses a cross-match export with the columns
// source_id,sao,ra,dec and an optional separation. An empty source_id makes
// the row position-only.
func ReadMatches(ctx context.Context, r io.Reader) ([]Match, error) {
	var matches []Match

	_, err := tabular.Read(ctx, r, []string{"source_id", "sao", "ra", "dec"}, func(rec tabular.Record) error {
		m := Match{SourceID: sky.NoSourceID}

		if rec.Get("source_id") != "" {
			id, err := rec.Int64("source_id")
			if err != nil {
				return err
			}
			m.SourceID = id
		}

		number, err := rec.Int("sao")
		if err != nil {
			return err
		}
		m.Number = number

		if m.Position.RA, err = rec.Float("ra"); err != nil {
			return err
		}
		if m.Position.Dec, err = rec.Float("dec"); err != nil {
			return err
		}
		if err := m.Position.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", rec.Line, err)
		}

		if m.SeparationArcsec, err = rec.OptionalFloat("separation", 0); err != nil {
			return err
		}

		matches = append(matches, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cross-match table: %w", err)
	}

	return matches, nil
}

// LoadFile reads a cross-match export into the store and returns the number
// of rows read.
func (s *MemoryStore) LoadFile(ctx context.Context, path string) (int, error) {
	logger := s.logger.With("component", "crossmatch_memory", "operation", "load_file", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open cross-match file: %w", err)
	}
	defer f.Close()

	matches, err := ReadMatches(ctx, f)
	if err != nil {
		return 0, err
	}

	s.Add(matches...)
	logger.Info("Cross-match table loaded", "rows", len(matches))
	return len(matches), nil
}
