package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap-server/internal/shared/redis"
	"starmap-server/internal/sky"
)

const catalogCSV = `# SAO extract
sao,ra,dec,vmag,sptype,name
113271,83.858258,-5.909901,2.77,O9III,Hatysa
118820,83.001667,-0.299095,2.23,O9.5II,Mintaka
`

type fakeFetcher struct {
	entries map[int]sky.CrossMatchEntry
	calls   int
}

func (f *fakeFetcher) QueryNumber(_ context.Context, number int) (sky.CrossMatchEntry, bool) {
	f.calls++
	entry, ok := f.entries[number]
	return entry, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadReaderAndFindByNumber(t *testing.T) {
	ctx := context.Background()
	remote := &fakeFetcher{}
	svc := NewService(nil, remote, discardLogger())

	n, err := svc.LoadReader(ctx, strings.NewReader(catalogCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, svc.Len())

	entry, ok := svc.FindByNumber(ctx, 118820)
	require.True(t, ok)
	assert.Equal(t, "Mintaka", entry.Name)
	assert.Equal(t, "O9.5II", entry.SpectralType)
	assert.InDelta(t, 2.23, entry.Magnitude, 1e-9)
	assert.Zero(t, remote.calls)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sao.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalogCSV), 0o600))

	svc := NewService(nil, nil, discardLogger())
	n, err := svc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoadReaderIsAllOrNothing(t *testing.T) {
	svc := NewService(nil, nil, discardLogger())

	_, err := svc.LoadReader(context.Background(), strings.NewReader("sao,ra,dec,vmag\n1,10,10,5\n2,10,95,5\n"))
	assert.ErrorContains(t, err, "line 3")
	assert.Zero(t, svc.Len())

	_, err = svc.LoadReader(context.Background(), strings.NewReader("sao,ra,dec,vmag\n0,10,10,5\n"))
	assert.Error(t, err)
}

func TestLoadReaderRejectsNonFiniteNumbers(t *testing.T) {
	svc := NewService(nil, nil, discardLogger())

	for _, row := range []string{
		"113271,85.0,-1.0,NaN",
		"113271,85.0,-1.0,Inf",
		"113271,NaN,-1.0,2.0",
	} {
		_, err := svc.LoadReader(context.Background(), strings.NewReader("sao,ra,dec,vmag\n"+row+"\n"))
		assert.ErrorContains(t, err, "line 2", row)
	}
	assert.Zero(t, svc.Len())

	_, ok := svc.FindByNumber(context.Background(), 113271)
	assert.False(t, ok)
}

func TestFindByNumberFallsBackToRemoteAndMemoises(t *testing.T) {
	ctx := context.Background()
	remote := &fakeFetcher{entries: map[int]sky.CrossMatchEntry{
		132314: {Number: 132314, Position: sky.Position{RA: 88.79, Dec: 7.41}, Magnitude: 0.5},
	}}
	svc := NewService(NewLRUCache(8, time.Minute), remote, discardLogger())

	entry, ok := svc.FindByNumber(ctx, 132314)
	require.True(t, ok)
	assert.Equal(t, 132314, entry.Number)
	assert.Equal(t, 1, remote.calls)

	_, ok = svc.FindByNumber(ctx, 132314)
	require.True(t, ok)
	assert.Equal(t, 1, remote.calls, "second lookup is served by the memo")

	_, ok = svc.FindByNumber(ctx, 1)
	assert.False(t, ok)
	assert.Equal(t, 2, remote.calls)
}

func TestFindByNumberWithoutRemote(t *testing.T) {
	svc := NewService(nil, nil, discardLogger())
	_, ok := svc.FindByNumber(context.Background(), 5)
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := &redis.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisCache(client, time.Hour)

	_, ok, err := cache.Get(ctx, 113271)
	require.NoError(t, err)
	assert.False(t, ok)

	want := sky.CrossMatchEntry{Number: 113271, Position: sky.Position{RA: 83.86, Dec: -5.91}, Magnitude: 2.77, Name: "Hatysa"}
	require.NoError(t, cache.Put(ctx, want))
	assert.True(t, mr.Exists("starmap:sao:113271"))
	assert.Equal(t, time.Hour, mr.TTL("starmap:sao:113271"))

	got, ok, err := cache.Get(ctx, 113271)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, mr.Set("starmap:sao:1", "not json"))
	_, _, err = cache.Get(ctx, 1)
	assert.Error(t, err)
}

func TestFindByNumberToleratesMemoFailure(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := &redis.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	remote := &fakeFetcher{entries: map[int]sky.CrossMatchEntry{7: {Number: 7}}}
	svc := NewService(NewRedisCache(client, time.Minute), remote, discardLogger())

	entry, ok := svc.FindByNumber(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, 7, entry.Number)
}
