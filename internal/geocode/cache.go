package geocode

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// Cache is the durable address → coordinate mapping. The whole cache lives in
// memory; Save overwrites the persisted file with the full current mapping,
// so callers merge in memory and flush at batch boundaries. Entries never
// expire; a cached address stays valid until the file is rebuilt.
type Cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]domain.Coordinate
}

// LoadCache reads the persisted cache at path. A missing file is the normal
// first-run case and yields an empty cache; an unreadable or corrupt file is
// logged and likewise treated as empty rather than failing startup.
func LoadCache(path string, logger *slog.Logger) *Cache {
	c := &Cache{path: path, entries: map[string]domain.Coordinate{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("geocode cache unreadable, starting empty", "path", path, "error", err)
		}
		return c
	}

	var raw map[string][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("geocode cache corrupt, starting empty", "path", path, "error", err)
		return c
	}

	for addr, pair := range raw {
		c.entries[addr] = domain.Coordinate{Lat: pair[0], Lon: pair[1]}
	}
	return c
}

// Get returns the cached coordinate for the exact address.
func (c *Cache) Get(address string) (domain.Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coord, ok := c.entries[address]
	return coord, ok
}

// Put stores or replaces the coordinate for address in memory. Call Save to
// persist.
func (c *Cache) Put(address string, coord domain.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[address] = coord
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the current mapping.
func (c *Cache) Snapshot() map[string]domain.Coordinate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.Coordinate, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Save overwrites the persisted file with the full in-memory mapping. The
// write goes to a temp file first and is renamed into place, so a crash
// mid-save never corrupts the previous cache.
func (c *Cache) Save() error {
	c.mu.RLock()
	raw := make(map[string][2]float64, len(c.entries))
	for addr, coord := range c.entries {
		raw[addr] = [2]float64{coord.Lat, coord.Lon}
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("save geocode cache: marshal: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save geocode cache: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("save geocode cache: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save geocode cache: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save geocode cache: close temp: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save geocode cache: rename: %w", err)
	}
	return nil
}
