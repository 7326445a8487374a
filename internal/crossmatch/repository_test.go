package crossmatch

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap-server/internal/shared/database"
	"starmap-server/internal/sky"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepository(database.Wrap(sqlDB), discardLogger()), mock
}

func TestRepositoryFindByIdentifier(t *testing.T) {
	repo, mock := newMockRepository(t)
	query := regexp.QuoteMeta(`SELECT sao_number FROM gaia_sao_xmatch WHERE source_id = $1`)

	mock.ExpectQuery(query).WithArgs(int64(123456789012345)).
		WillReturnRows(sqlmock.NewRows([]string{"sao_number"}).AddRow(113271))
	mock.ExpectQuery(query).WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(query).WithArgs(int64(2)).
		WillReturnError(errors.New("connection reset"))

	n, ok, err := repo.FindByIdentifier(context.Background(), 123456789012345)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 113271, n)

	_, ok, err = repo.FindByIdentifier(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.FindByIdentifier(context.Background(), 2)
	assert.Error(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindByPositionFiltersExactly(t *testing.T) {
	repo, mock := newMockRepository(t)
	center := sky.Position{RA: 85, Dec: -1}

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT source_id, sao_number, ra, dec FROM gaia_sao_xmatch WHERE dec BETWEEN $1 AND $2 AND ra BETWEEN $3 AND $4`)).
		WillReturnRows(sqlmock.NewRows([]string{"source_id", "sao_number", "ra", "dec"}).
			// bounding box corner, outside the circle
			AddRow(nil, 1, 85+arcsec(4.5), -1+arcsec(4.5)).
			AddRow(int64(99), 113271, 85, -1+arcsec(2)))

	n, ok, err := repo.FindByPosition(context.Background(), center, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 113271, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindByPositionWrapsRA(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`AND (ra >= $3 OR ra <= $4)`)).
		WillReturnRows(sqlmock.NewRows([]string{"source_id", "sao_number", "ra", "dec"}))

	_, ok, err := repo.FindByPosition(context.Background(), sky.Position{RA: 0, Dec: 0}, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryStatistics(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(source_id\), COUNT\(DISTINCT sao_number\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "with_id", "distinct"}).AddRow(10, 8, 7))

	assert.Equal(t,
		"postgres cross-match: 10 entries, 8 with source identifier, 7 distinct catalog numbers",
		repo.Statistics(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUnavailable(t *testing.T) {
	var repo *Repository
	assert.False(t, repo.Available())
	assert.Equal(t, "Local database not initialized", repo.Statistics(context.Background()))
}

func TestRepositoryInsertBatch(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO gaia_sao_xmatch`)).
		WithArgs(`[{"source_id":5,"sao_number":113271,"ra":85,"dec":-1,"separation":0.1},` +
			`{"source_id":null,"sao_number":118820,"ra":83,"dec":-0.3,"separation":0}]`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.InsertBatch(context.Background(), []Match{
		{SourceID: 5, Number: 113271, Position: sky.Position{RA: 85, Dec: -1}, SeparationArcsec: 0.1},
		{SourceID: sky.NoSourceID, Number: 118820, Position: sky.Position{RA: 83, Dec: -0.3}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())

	affected, err = repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestRepositoryImportCommitsChunks(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO gaia_sao_xmatch`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO gaia_sao_xmatch`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.Import(context.Background(), []Match{
		{SourceID: 1, Number: 10, Position: sky.Position{RA: 1, Dec: 1}},
		{SourceID: 2, Number: 20, Position: sky.Position{RA: 2, Dec: 2}},
		{SourceID: 3, Number: 30, Position: sky.Position{RA: 3, Dec: 3}},
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryImportRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO gaia_sao_xmatch`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO gaia_sao_xmatch`)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Import(context.Background(), []Match{
		{SourceID: 1, Number: 10, Position: sky.Position{RA: 1, Dec: 1}},
		{SourceID: 2, Number: 20, Position: sky.Position{RA: 2, Dec: 2}},
	}, 1)
	assert.ErrorContains(t, err, "rows 2-2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertBatchKeepsFirstRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT DO NOTHING`)).
		WithArgs(`[{"source_id":1,"sao_number":10,"ra":1,"dec":1,"separation":0},` +
			`{"source_id":null,"sao_number":30,"ra":3,"dec":3,"separation":0}]`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.InsertBatch(context.Background(), []Match{
		{SourceID: 1, Number: 10, Position: sky.Position{RA: 1, Dec: 1}},
		{SourceID: 1, Number: 20, Position: sky.Position{RA: 2, Dec: 2}},
		{SourceID: sky.NoSourceID, Number: 30, Position: sky.Position{RA: 3, Dec: 3}},
		{SourceID: sky.NoSourceID, Number: 30, Position: sky.Position{RA: 3, Dec: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryImportDropsDuplicatesAcrossChunks(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO gaia_sao_xmatch`)).
		WithArgs(`[{"source_id":1,"sao_number":10,"ra":1,"dec":1,"separation":0}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO gaia_sao_xmatch`)).
		WithArgs(`[{"source_id":2,"sao_number":30,"ra":3,"dec":3,"separation":0}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.Import(context.Background(), []Match{
		{SourceID: 1, Number: 10, Position: sky.Position{RA: 1, Dec: 1}},
		{SourceID: 1, Number: 20, Position: sky.Position{RA: 2, Dec: 2}},
		{SourceID: 2, Number: 30, Position: sky.Position{RA: 3, Dec: 3}},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateHandlingMatchesMemoryStore(t *testing.T) {
	matches := []Match{
		{SourceID: 7, Number: 100, Position: sky.Position{RA: 10, Dec: 10}},
		{SourceID: 7, Number: 200, Position: sky.Position{RA: 10, Dec: 10}},
	}

	kept := firstOccurrences(matches)
	require.Len(t, kept, 1)

	store := NewMemoryStore(0, discardLogger())
	store.Add(matches...)
	n, ok, err := store.FindByIdentifier(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, kept[0].Number, n)
}
