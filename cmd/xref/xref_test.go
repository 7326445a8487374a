package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap-server/internal/auth"
	"starmap-server/internal/sky"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setupEnv(t *testing.T) {
	t.Helper()
	xmatch := writeFile(t, "xmatch.csv", "source_id,sao,ra,dec\n123456789012345,113271,85.0,-1.0\n,118820,83.0,-0.3\n")

	t.Setenv("DB_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("XMATCH_SOURCE", "file")
	t.Setenv("XMATCH_PATH", xmatch)
	t.Setenv("CATALOG_PATH", "")
	t.Setenv("ASTROMETRY_DIR", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReadObjects(t *testing.T) {
	input := strings.Join([]string{
		"source_id,ra,dec,magnitude,name,sao",
		"42,10.5,-20.25,6.1,alpha,",
		",11,12,,,308",
		"-5,1,2,,,",
	}, "\n")

	objs, err := readObjects(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, objs, 3)

	assert.Equal(t, int64(42), objs[0].SourceID)
	assert.Equal(t, sky.Position{RA: 10.5, Dec: -20.25}, objs[0].Position)
	assert.Equal(t, "alpha", objs[0].Name)
	_, ok := objs[0].CatalogNumber()
	assert.False(t, ok)

	assert.False(t, objs[1].HasSourceID())
	n, ok := objs[1].CatalogNumber()
	require.True(t, ok)
	assert.Equal(t, 308, n)

	assert.False(t, objs[2].HasSourceID())
}

func TestReadObjectsRejectsBadRows(t *testing.T) {
	_, err := readObjects(context.Background(), strings.NewReader("ra,dec\n10,95\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = readObjects(context.Background(), strings.NewReader("ra\n10\n"))
	assert.ErrorContains(t, err, `"dec"`)

	_, err = readObjects(context.Background(), strings.NewReader("ra,dec,sao\n10,5,0\n"))
	assert.ErrorContains(t, err, "sao must be positive")
}

func TestResolveCommandOffline(t *testing.T) {
	setupEnv(t)
	objects := writeFile(t, "objects.csv", strings.Join([]string{
		"source_id,ra,dec,name",
		"123456789012345,85.0,-1.0,by-id",
		",83.0,-0.3,by-position",
		",200.0,40.0,nowhere",
	}, "\n"))

	out, err := run(t, "resolve", objects, "--offline")
	require.NoError(t, err)

	assert.Contains(t, out, "113271")
	assert.Contains(t, out, "local_identifier")
	assert.Contains(t, out, "118820")
	assert.Contains(t, out, "local_position")
	assert.Contains(t, out, "2/3")
}

func TestResolveCommandCSVOutput(t *testing.T) {
	setupEnv(t)
	objects := writeFile(t, "objects.csv", "source_id,ra,dec\n123456789012345,85.0,-1.0\n")

	out, err := run(t, "resolve", objects, "--offline", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "113271,local_identifier")
	assert.NotContains(t, out, "remote_cone")
}

func TestResolveCommandRejectsBadInput(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "resolve", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	objects := writeFile(t, "objects.csv", "ra,dec\n1,2\n")
	_, err = run(t, "resolve", objects, "--radius", "-1")
	assert.Error(t, err)
}

func TestUnknownFormatFailsBeforeAnyWork(t *testing.T) {
	setupEnv(t)
	t.Setenv("XMATCH_PATH", filepath.Join(t.TempDir(), "missing.csv"))
	missing := filepath.Join(t.TempDir(), "objects.csv")

	_, err := run(t, "resolve", missing, "-o", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "stats", "-o", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "load-catalog", missing, "-o", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestLoadCatalogCommand(t *testing.T) {
	setupEnv(t)
	catalogFile := writeFile(t, "sao.csv", strings.Join([]string{
		"sao,ra,dec,vmag,sptype,name",
		"113271,85.19,-1.94,1.7,O9,Alnitak",
		"308,37.95,89.26,2.0,F7,Polaris",
	}, "\n"))

	out, err := run(t, "load-catalog", catalogFile, "308")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 entries (2 cached)")
	assert.Contains(t, out, "Polaris")
	assert.NotContains(t, out, "Alnitak")

	_, err = run(t, "load-catalog", catalogFile, "abc")
	assert.ErrorContains(t, err, "invalid catalog number")
}

func TestStatsCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "stats", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "2,1,2")
}

func TestTokenCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "--subject", "ops")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(testSecret, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "ops", claims.Subject)
}

func TestTokenCommandWithoutSecret(t *testing.T) {
	setupEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, "token")
	assert.Error(t, err)
}
