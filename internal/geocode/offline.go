package geocode

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// OfflineTable looks up addresses in an operator-supplied CSV file with rows
// of (address, lat, lon). The file is read fresh on every lookup so the
// operator can replace it without restarting the process.
type OfflineTable struct {
	path string
}

// NewOfflineTable creates an offline backend reading from path.
func NewOfflineTable(path string) *OfflineTable {
	return &OfflineTable{path: path}
}

func (o *OfflineTable) Name() string { return "offline" }

// Lookup resolves the address against the table: exact match first, then the
// first row (in file order) where either the query contains the row's address
// as a substring or vice versa. With several plausible rows the earliest one
// wins, so the result is order-dependent: first-match, not best-match.
func (o *OfflineTable) Lookup(_ context.Context, address string) (domain.Coordinate, bool, error) {
	entries, err := o.read()
	if err != nil {
		return domain.Coordinate{}, false, err
	}

	for _, e := range entries {
		if e.address == address {
			return e.coord, true, nil
		}
	}
	for _, e := range entries {
		if strings.Contains(address, e.address) || strings.Contains(e.address, address) {
			return e.coord, true, nil
		}
	}
	return domain.Coordinate{}, false, nil
}

type tableEntry struct {
	address string
	coord   domain.Coordinate
}

// read loads the table, preserving file row order. A missing file means an
// empty table. Header rows, short rows, and rows with unparseable numbers
// are skipped rather than failing the whole lookup.
func (o *OfflineTable) read() ([]tableEntry, error) {
	f, err := os.Open(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open offline table %s: %w", o.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var entries []tableEntry
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Tolerate trailing garbage: keep what parsed so far.
			break
		}
		if len(row) < 3 {
			continue
		}
		addr := strings.TrimSpace(row[0])
		if addr == "" {
			continue
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		coord := domain.Coordinate{Lat: lat, Lon: lon}
		if !coord.Valid() {
			continue
		}
		entries = append(entries, tableEntry{address: addr, coord: coord})
	}
	return entries, nil
}
