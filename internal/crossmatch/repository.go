package crossmatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"starmap-server/internal/shared/database"
	"starmap-server/internal/sky"
)

const DefaultImportBatchSize = 5000

// Repository is the Postgres-backed cross-match store, table gaia_sao_xmatch.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing cross-match repository")
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Available() bool {
	return r != nil && r.db != nil
}

func (r *Repository) FindByIdentifier(ctx context.Context, sourceID int64) (int, bool, error) {
	logger := r.logger.With("component", "crossmatch_repository", "operation", "find_by_identifier", "source_id", sourceID)

	var number int
	err := r.db.QueryRowContext(ctx,
		`SELECT sao_number FROM gaia_sao_xmatch WHERE source_id = $1`, sourceID,
	).Scan(&number)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("No cross-match for source")
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query cross-match by identifier: %w", err)
	}

	return number, true, nil
}

func (r *Repository) FindByPosition(ctx context.Context, pos sky.Position, radiusArcsec float64) (int, bool, error) {
	logger := r.logger.With("component", "crossmatch_repository", "operation", "find_by_position",
		"ra", pos.RA, "dec", pos.Dec, "radius_arcsec", radiusArcsec)

	w := sky.SearchWindow(pos, radiusArcsec)

	query := `SELECT source_id, sao_number, ra, dec FROM gaia_sao_xmatch WHERE dec BETWEEN $1 AND $2`
	args := []interface{}{w.DecMin, w.DecMax}
	switch {
	case w.AllRA:
	case w.Wraps:
		query += ` AND (ra >= $3 OR ra <= $4)`
		args = append(args, w.RAMin, w.RAMax)
	default:
		query += ` AND ra BETWEEN $3 AND $4`
		args = append(args, w.RAMin, w.RAMax)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query cross-match by position: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var candidates []Match
	for rows.Next() {
		var m Match
		var sourceID sql.NullInt64
		if err := rows.Scan(&sourceID, &m.Number, &m.Position.RA, &m.Position.Dec); err != nil {
			return 0, false, fmt.Errorf("failed to scan cross-match row: %w", err)
		}
		m.SourceID = sky.NoSourceID
		if sourceID.Valid {
			m.SourceID = sourceID.Int64
		}
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return 0, false, fmt.Errorf("error iterating cross-match rows: %w", err)
	}

	m, ok := nearest(pos, radiusArcsec, candidates)
	if !ok {
		logger.Debug("No cross-match within radius", "candidates", len(candidates))
		return 0, false, nil
	}
	return m.Number, true, nil
}

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Source: "postgres"}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(source_id), COUNT(DISTINCT sao_number)
		FROM gaia_sao_xmatch`,
	).Scan(&stats.Entries, &stats.WithIdentifier, &stats.DistinctNumbers)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cross-match statistics: %w", err)
	}

	return stats, nil
}

func (r *Repository) Statistics(ctx context.Context) string {
	if !r.Available() {
		return "Local database not initialized"
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		return fmt.Sprintf("Cross-match statistics unavailable: %v", err)
	}
	return stats.String()
}

type batchRow struct {
	SourceID   *int64  `json:"source_id"`
	Number     int     `json:"sao_number"`
	RA         float64 `json:"ra"`
	Dec        float64 `json:"dec"`
	Separation float64 `json:"separation"`
}

// InsertBatch stores matches in a single statement. As in MemoryStore.Add the
// first row for a source identifier wins, both within matches and against rows
// already stored. Position-only rows are keyed by (sao_number, ra, dec).
func (r *Repository) InsertBatch(ctx context.Context, matches []Match) (int64, error) {
	matches = firstOccurrences(matches)
	if len(matches) == 0 {
		return 0, nil
	}

	affected, err := insertBatch(ctx, r.db, matches)
	if err != nil {
		return 0, err
	}

	r.logger.Info("Cross-match batch stored",
		"component", "crossmatch_repository",
		"operation", "insert_batch",
		"count", len(matches),
		"rows_affected", affected)
	return affected, nil
}

// Import stores matches in chunks of batchSize inside one transaction, with
// the same first-row-wins rule as InsertBatch. Nothing is stored unless every
// chunk succeeds.
func (r *Repository) Import(ctx context.Context, matches []Match, batchSize int) (int64, error) {
	matches = firstOccurrences(matches)
	if len(matches) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}

	logger := r.logger.With(
		"component", "crossmatch_repository",
		"operation", "import",
		"count", len(matches),
		"batch_size", batchSize,
	)

	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("Failed to roll back import", "error", rbErr)
		}
	}()

	var total int64
	for start := 0; start < len(matches); start += batchSize {
		end := min(start+batchSize, len(matches))
		affected, err := insertBatch(ctx, tx, matches[start:end])
		if err != nil {
			return 0, fmt.Errorf("rows %d-%d: %w", start+1, end, err)
		}
		total += affected
		logger.Debug("Import chunk stored", "from", start+1, "to", end)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	logger.Info("Cross-match import committed", "rows_affected", total)
	return total, nil
}

type positionKey struct {
	number  int
	ra, dec float64
}

// firstOccurrences drops every match whose source identifier, or for
// position-only rows whose number and position, appeared earlier.
func firstOccurrences(matches []Match) []Match {
	seenID := make(map[int64]struct{})
	seenPos := make(map[positionKey]struct{})

	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.SourceID >= 0 {
			if _, dup := seenID[m.SourceID]; dup {
				continue
			}
			seenID[m.SourceID] = struct{}{}
		} else {
			key := positionKey{m.Number, m.Position.RA, m.Position.Dec}
			if _, dup := seenPos[key]; dup {
				continue
			}
			seenPos[key] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}

func insertBatch(ctx context.Context, exec database.Executor, matches []Match) (int64, error) {
	rows := make([]batchRow, len(matches))
	for i, m := range matches {
		rows[i] = batchRow{Number: m.Number, RA: m.Position.RA, Dec: m.Position.Dec, Separation: m.SeparationArcsec}
		if m.SourceID >= 0 {
			id := m.SourceID
			rows[i].SourceID = &id
		}
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal cross-match rows: %w", err)
	}

	// Conflicts on source_id or on the position-only unique index keep the
	// stored row.
	query := `
		INSERT INTO gaia_sao_xmatch (source_id, sao_number, ra, dec, separation_arcsec)
		SELECT
			(data->>'source_id')::bigint,
			(data->>'sao_number')::integer,
			(data->>'ra')::double precision,
			(data->>'dec')::double precision,
			(data->>'separation')::double precision
		FROM json_array_elements($1::json) AS data
		ON CONFLICT DO NOTHING`

	result, err := exec.ExecContext(ctx, query, string(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to insert cross-match batch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}
