// Command gensample writes a small sample collector export and a matching
// offline geocode table, so the full update-query cycle can be exercised
// without network access or a real collector run.
//
// Usage:
//
//	go run ./cmd/gensample -out output
//
// Then:
//
//	GEOCODE_SCHEME=offline waterpoint update
//	GEOCODE_SCHEME=offline waterpoint query --place 郑州
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tealeg/xlsx/v2"
)

type sampleSite struct {
	province string
	site     string
	lat, lon float64
	ph       string
	oxygen   string
}

var sites = []sampleSite{
	{province: "河南省", site: "花园口", lat: 34.9130, lon: 113.6540, ph: "7.63", oxygen: "8.21"},
	{province: "河南省", site: "小浪底", lat: 34.9217, lon: 112.3611, ph: "7.80", oxygen: "8.90"},
	{province: "北京市", site: "古北口", lat: 40.6900, lon: 117.1600, ph: "7.11", oxygen: "9.04"},
	{province: "上海市", site: "黄浦江", lat: 31.2304, lon: 121.4737, ph: "7.02", oxygen: "6.80"},
	{province: "湖北省", site: "宜昌南津关", lat: 30.7617, lon: 111.2692, ph: "7.95", oxygen: "8.55"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "output", "directory for the generated files")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	xlsxPath := filepath.Join(*outDir, "water_info_sample.xlsx")
	if err := writeExport(xlsxPath); err != nil {
		return err
	}
	fmt.Println("wrote", xlsxPath)

	tablePath := filepath.Join(*outDir, "geo_cache.csv")
	if err := writeOfflineTable(tablePath); err != nil {
		return err
	}
	fmt.Println("wrote", tablePath)
	return nil
}

// writeExport writes the sample rows in the collector's export layout: one
// header row, one row per monitoring section.
func writeExport(path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("水质数据")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, name := range []string{"省份", "断面名称", "pH", "溶解氧"} {
		header.AddCell().SetString(name)
	}

	for _, s := range sites {
		row := sheet.AddRow()
		row.AddCell().SetString(s.province)
		row.AddCell().SetString(s.site)
		row.AddCell().SetString(s.ph)
		row.AddCell().SetString(s.oxygen)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// writeOfflineTable writes the (address, lat, lon) rows the offline geocoding
// scheme reads. Addresses match what the updater derives from the export.
func writeOfflineTable(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, s := range sites {
		row := []string{
			s.province + s.site,
			fmt.Sprintf("%.4f", s.lat),
			fmt.Sprintf("%.4f", s.lon),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
