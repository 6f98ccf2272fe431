package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// XLSXSource reads collector spreadsheet exports matching a glob pattern
// under a directory. Each file's first sheet is read; row 0 is the header
// and every later row becomes one RawRow with fields in column order.
type XLSXSource struct {
	dir  string
	glob string
}

// NewXLSXSource creates a source over dir's files matching glob, e.g.
// "water_info_*.xlsx".
func NewXLSXSource(dir, glob string) *XLSXSource {
	return &XLSXSource{dir: dir, glob: glob}
}

func (s *XLSXSource) Name() string { return "xlsx" }

// Rows reads every matching file. Files are processed in name order so a
// rerun over the same directory stages rows in the same order.
func (s *XLSXSource) Rows(ctx context.Context) ([]RawRow, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, s.glob))
	if err != nil {
		return nil, fmt.Errorf("ingest: bad glob %q: %w", s.glob, err)
	}
	sort.Strings(paths)

	var rows []RawRow
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ingest: xlsx read interrupted: %w", err)
		}
		fileRows, err := readFile(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func readFile(path string) ([]RawRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	if len(f.Sheets) == 0 {
		return nil, nil
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, nil
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		header[i] = strings.TrimSpace(cell.String())
	}

	var rows []RawRow
	for _, row := range sheet.Rows[1:] {
		fields := make(domain.Payload, 0, len(header))
		empty := true
		for i, name := range header {
			if name == "" {
				continue
			}
			var value string
			if i < len(row.Cells) {
				value = strings.TrimSpace(row.Cells[i].String())
			}
			if value != "" {
				empty = false
			}
			fields = append(fields, domain.Field{Name: name, Value: value})
		}
		if empty {
			continue
		}
		rows = append(rows, RawRow{Fields: fields, Source: "xlsx"})
	}
	return rows, nil
}
