package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeXLSX(t *testing.T, dir, name string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("数据")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	require.NoError(t, f.Save(filepath.Join(dir, name)))
}

func TestXLSXSource_ReadsRowsInColumnOrder(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, dir, "water_info_20260830.xlsx", [][]string{
		{"省份", "断面名称", "pH"},
		{"河南省", "花园口", "7.63"},
		{"北京市", "古北口", "7.11"},
	})

	source := NewXLSXSource(dir, "water_info_*.xlsx")
	rows, err := source.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "xlsx", first.Source)
	require.Len(t, first.Fields, 3)
	assert.Equal(t, "省份", first.Fields[0].Name)
	assert.Equal(t, "断面名称", first.Fields[1].Name)
	assert.Equal(t, "pH", first.Fields[2].Name)
	assert.Equal(t, "花园口", first.Fields.String("断面名称"))
	assert.Equal(t, "7.63", first.Fields.String("pH"))
}

func TestXLSXSource_MultipleFilesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, dir, "water_info_02.xlsx", [][]string{
		{"省份", "断面名称"},
		{"上海市", "黄浦江"},
	})
	writeXLSX(t, dir, "water_info_01.xlsx", [][]string{
		{"省份", "断面名称"},
		{"河南省", "花园口"},
	})

	source := NewXLSXSource(dir, "water_info_*.xlsx")
	rows, err := source.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "花园口", rows[0].Fields.String("断面名称"))
	assert.Equal(t, "黄浦江", rows[1].Fields.String("断面名称"))
}

func TestXLSXSource_SkipsEmptyRowsAndShortRows(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, dir, "water_info_x.xlsx", [][]string{
		{"省份", "断面名称", "pH"},
		{"", "", ""},
		{"河南省"},
	})

	source := NewXLSXSource(dir, "water_info_*.xlsx")
	rows, err := source.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1, "blank rows are dropped, short rows are padded")

	row := rows[0]
	require.Len(t, row.Fields, 3)
	assert.Equal(t, "河南省", row.Fields.String("省份"))
	assert.Equal(t, "", row.Fields.String("断面名称"))
}

func TestXLSXSource_NoMatchingFiles(t *testing.T) {
	source := NewXLSXSource(t.TempDir(), "water_info_*.xlsx")
	rows, err := source.Rows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestXLSXSource_IgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, dir, "unrelated.xlsx", [][]string{
		{"省份", "断面名称"},
		{"河南省", "花园口"},
	})

	source := NewXLSXSource(dir, "water_info_*.xlsx")
	rows, err := source.Rows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
