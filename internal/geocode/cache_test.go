package geocode

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/riverwatch/waterpoint/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadCache_MissingFile(t *testing.T) {
	c := LoadCache(filepath.Join(t.TempDir(), "nope.json"), discardLogger())
	assert.Equal(t, 0, c.Len())
}

func TestLoadCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not-json{{{"), 0o644))

	c := LoadCache(path, discardLogger())
	assert.Equal(t, 0, c.Len())
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := LoadCache(path, discardLogger())
	c.Put("河南省花园口", domain.Coordinate{Lat: 34.91, Lon: 113.65})
	c.Put("北京市朝阳区", domain.Coordinate{Lat: 39.92, Lon: 116.44})
	require.NoError(t, c.Save())

	back := LoadCache(path, discardLogger())
	require.Equal(t, 2, back.Len())

	coord, ok := back.Get("河南省花园口")
	require.True(t, ok)
	assert.Equal(t, domain.Coordinate{Lat: 34.91, Lon: 113.65}, coord)

	_, ok = back.Get("未知地址")
	assert.False(t, ok)
}

func TestCache_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := LoadCache(path, discardLogger())
	c.Put("stale", domain.Coordinate{Lat: 1, Lon: 1})
	require.NoError(t, c.Save())

	// A fresh cache without the entry replaces the whole file.
	fresh := LoadCache(filepath.Join(t.TempDir(), "other.json"), discardLogger())
	fresh.path = path
	fresh.Put("current", domain.Coordinate{Lat: 2, Lon: 2})
	require.NoError(t, fresh.Save())

	back := LoadCache(path, discardLogger())
	assert.Equal(t, 1, back.Len())
	_, ok := back.Get("stale")
	assert.False(t, ok)
}

func TestCache_SaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "cache.json")

	c := LoadCache(path, discardLogger())
	c.Put("a", domain.Coordinate{Lat: 1, Lon: 2})
	require.NoError(t, c.Save())

	back := LoadCache(path, discardLogger())
	assert.Equal(t, 1, back.Len())
}

func TestCache_Snapshot(t *testing.T) {
	c := LoadCache(filepath.Join(t.TempDir(), "c.json"), discardLogger())
	c.Put("a", domain.Coordinate{Lat: 1, Lon: 2})

	snap := c.Snapshot()
	snap["b"] = domain.Coordinate{}

	assert.Equal(t, 1, c.Len(), "mutating the snapshot must not touch the cache")
}
