package export

import (
	"encoding/csv"
	"os"
	"strings"
	"testing"

	"github.com/tabfetch/tabfetch/models"
	"github.com/tealeg/xlsx/v2"
)

func sampleDataset() *Dataset {
	return &Dataset{
		SiteID:  "quotes",
		Columns: []string{"date", "close", "note"},
		Records: []models.Record{
			{"date": "2024-01-01", "close": 1000.5, "note": nil},
			{"date": "2024-01-02", "close": 1010.0, "note": "split"},
		},
		Report: &models.ValidationReport{
			Rows:         2,
			QualityScore: 97.5,
			Warnings:     []string{"1 duplicate rows"},
		},
	}
}

func TestWrite_CSV(t *testing.T) {
	e, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	path, err := e.Write(sampleDataset(), FormatCSV)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasSuffix(path, ".csv") || !strings.Contains(path, "quotes_") {
		t.Errorf("path = %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0][1] != "close" || rows[1][1] != "1000.5" {
		t.Errorf("content = %v", rows)
	}
	// nil cell writes as empty.
	if rows[1][2] != "" {
		t.Errorf("nil cell = %q", rows[1][2])
	}
}

func TestWrite_XLSX(t *testing.T) {
	e, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	path, err := e.Write(sampleDataset(), FormatXLSX)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	file, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	if len(file.Sheets) != 2 {
		t.Fatalf("sheets = %d, want data + validation", len(file.Sheets))
	}

	data := file.Sheets[0]
	if got := data.Rows[0].Cells[0].String(); got != "date" {
		t.Errorf("header cell = %q", got)
	}
	if got := data.Rows[1].Cells[0].String(); got != "2024-01-01" {
		t.Errorf("data cell = %q", got)
	}
	if len(data.Rows) != 3 {
		t.Errorf("data rows = %d", len(data.Rows))
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	e, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Write(sampleDataset(), "parquet"); err == nil {
		t.Error("unsupported format not rejected")
	}
}

func TestNew_CreatesDir(t *testing.T) {
	dir := t.TempDir() + "/nested/exports"
	if _, err := New(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("export dir not created: %v", err)
	}
}
