package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmcsv/cleaning"
	"github.com/omniscale/osmcsv/writer"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(fname, []byte(content), 0644))
	return fname
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestParseConvertDefaults(t *testing.T) {
	opts, err := ParseConvert([]string{"--input", "toronto.osm", "--validate"})
	require.NoError(t, err)
	assert.Equal(t, "toronto.osm", opts.Input)
	assert.True(t, opts.Validate)
	assert.Equal(t, "csv", opts.Base.OutDir)
	assert.Equal(t, writer.DefaultNames, opts.Base.Names)
	assert.Equal(t, cleaning.DefaultStreetCacheSize, opts.StreetCacheSize)
	assert.False(t, opts.Base.Quiet)
}

func TestParseConvertConfigFile(t *testing.T) {
	fname := writeConfig(t, `
outdir: /tmp/out
validation_schema: schema.yml
street_cache_size: 10
files:
  nodes: n.csv
  ways_tags: wt.csv
`)
	opts, err := ParseConvert([]string{"-i", "in.osm", "--config", fname})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", opts.Base.OutDir)
	assert.Equal(t, "schema.yml", opts.ValidationSchema)
	assert.Equal(t, 10, opts.StreetCacheSize)
	assert.Equal(t, "n.csv", opts.Base.Names.Nodes)
	assert.Equal(t, "wt.csv", opts.Base.Names.WayTags)
	assert.Equal(t, "ways.csv", opts.Base.Names.Ways)

	// command line wins
	opts, err = ParseConvert([]string{"-i", "in.osm", "--config", fname, "-o", "local", "--street-cache", "0"})
	require.NoError(t, err)
	assert.Equal(t, "local", opts.Base.OutDir)
	assert.Equal(t, 0, opts.StreetCacheSize)
}

func TestParseConvertErrors(t *testing.T) {
	_, err := ParseConvert([]string{"--validate"})
	require.Error(t, err)
	errs, ok := err.(Errors)
	require.True(t, ok)
	assert.Len(t, errs, 1)
	assert.Contains(t, err.Error(), "missing input")

	_, err = ParseConvert([]string{"-i", "in.osm", "extra"})
	assert.Contains(t, err.Error(), "unexpected arguments: extra")

	_, err = ParseConvert([]string{"--unknown"})
	assert.Error(t, err)

	_, err = ParseConvert([]string{"-i", "in.osm", "--config", writeConfig(t, "unknown: 1\n")})
	assert.Error(t, err)

	_, err = ParseConvert([]string{"-i", "in.osm", "--config", filepath.Join(t.TempDir(), "missing.yml")})
	assert.Error(t, err)
}

func TestParseLoad(t *testing.T) {
	t.Setenv(ConnectionEnv, "postgres://env/osm")

	opts, err := ParseLoad([]string{"--connection", "postgres://cmd/osm", "--schema", "osm", "--truncate"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://cmd/osm", opts.Connection)
	assert.Equal(t, "osm", opts.Schema)
	assert.True(t, opts.Truncate)

	fname := writeConfig(t, "connection: postgres://file/osm\nschema: import\n")
	opts, err = ParseLoad([]string{"--config", fname})
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/osm", opts.Connection)
	assert.Equal(t, "import", opts.Schema)

	opts, err = ParseLoad(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/osm", opts.Connection)
	assert.Equal(t, "", opts.Schema)
}

func TestParseLoadDotEnv(t *testing.T) {
	t.Setenv(ConnectionEnv, "")
	os.Unsetenv(ConnectionEnv)

	dir := t.TempDir()
	chdir(t, dir)

	_, err := ParseLoad(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing connection")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(ConnectionEnv+"=postgres://dotenv/osm\n"), 0644))
	opts, err := ParseLoad(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://dotenv/osm", opts.Connection)
}
