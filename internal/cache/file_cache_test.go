package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tile struct {
	Names  []string    `json:"names"`
	Values [][]float64 `json:"values"`
}

func TestFileCacheRoundTrip(t *testing.T) {
	fc := NewFileCache[tile](t.TempDir())
	key := fc.GenerateKey("tile", 3, "2014-01-01", "2016-12-31")

	_, ok := fc.Get(key)
	assert.False(t, ok)

	want := tile{Names: []string{"etopo"}, Values: [][]float64{{-2.5}, {4}}}
	require.NoError(t, fc.Set(key, want))

	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFileCacheKeys(t *testing.T) {
	fc := NewFileCache[tile](t.TempDir())
	assert.Equal(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 1))
	assert.NotEqual(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 2))
	assert.NotEqual(t, fc.GenerateKey("a_1"), fc.GenerateKey("a", "1", ""))
	assert.Len(t, fc.GenerateKey("x"), 40)
}

func TestFileCacheRejectsTamperedEntry(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache[tile](dir)
	key := fc.GenerateKey("tile", 1)
	require.NoError(t, fc.Set(key, tile{Names: []string{"a"}}))

	path := filepath.Join(dir, key+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := []byte(string(data[:len(data)-2]) + "x}")
	require.NoError(t, os.WriteFile(path, tampered, 0o644))
	_, ok := fc.Get(key)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`{"data":{"names":["b"]},"checksum":"0"}`), 0o644))
	_, ok = fc.Get(key)
	assert.False(t, ok)
}

func TestNewFileCacheRelativeDir(t *testing.T) {
	t.Setenv("ROOT_PATH", "/srv/tidal")
	fc := NewFileCache[tile]("composites")
	assert.Equal(t, "/srv/tidal/data/composites", fc.Dir())
}
