package crossmatch

import (
	"fmt"

	"starmap-server/internal/sky"
)

// Match links a primary-catalog source to a legacy catalog number. SourceID
// is sky.NoSourceID for rows that can only be matched by position.
type Match struct {
	SourceID         int64        `json:"source_id"`
	Number           int          `json:"sao_number"`
	Position         sky.Position `json:"position"`
	SeparationArcsec float64      `json:"separation_arcsec"`
}

type Stats struct {
	Source          string `json:"source"`
	Entries         int    `json:"entries"`
	WithIdentifier  int    `json:"with_identifier"`
	DistinctNumbers int    `json:"distinct_numbers"`
}

func (s Stats) String() string {
	return fmt.Sprintf("%s cross-match: %d entries, %d with source identifier, %d distinct catalog numbers",
		s.Source, s.Entries, s.WithIdentifier, s.DistinctNumbers)
}
