// Package export writes normalized datasets to disk. The spreadsheet
// form carries a second sheet with the validation summary so the
// quality annotations travel with the data.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tabfetch/tabfetch/models"
	"github.com/tealeg/xlsx/v2"
)

// Supported output formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Dataset is one export payload: normalized records plus the column
// order and the advisory validation report.
type Dataset struct {
	SiteID  string
	Columns []string
	Records []models.Record
	Report  *models.ValidationReport
}

// Exporter writes datasets under a base directory.
type Exporter struct {
	dir string
}

// New builds an Exporter rooted at dir, creating it if needed.
func New(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create dir: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Write persists the dataset in the requested format and returns the
// file path.
func (e *Exporter) Write(ds *Dataset, format string) (string, error) {
	name := fmt.Sprintf("%s_%s.%s", ds.SiteID, time.Now().Format("20060102_150405"), format)
	path := filepath.Join(e.dir, name)

	switch format {
	case FormatXLSX:
		return path, e.writeXLSX(ds, path)
	case FormatCSV:
		return path, e.writeCSV(ds, path)
	default:
		return "", fmt.Errorf("export: unsupported format %q", format)
	}
}

func (e *Exporter) writeXLSX(ds *Dataset, path string) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Data")
	if err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, col := range ds.Columns {
		header.AddCell().SetString(col)
	}
	for _, rec := range ds.Records {
		row := sheet.AddRow()
		for _, col := range ds.Columns {
			cell := row.AddCell()
			switch v := rec[col].(type) {
			case nil:
				cell.SetString("")
			case float64:
				cell.SetFloat(v)
			case string:
				cell.SetString(v)
			default:
				cell.SetString(fmt.Sprintf("%v", v))
			}
		}
	}

	if ds.Report != nil {
		if err := addReportSheet(file, ds.Report); err != nil {
			return err
		}
	}

	if err := file.Save(path); err != nil {
		return fmt.Errorf("export: save workbook: %w", err)
	}
	return nil
}

func addReportSheet(file *xlsx.File, report *models.ValidationReport) error {
	sheet, err := file.AddSheet("Validation")
	if err != nil {
		return fmt.Errorf("export: add validation sheet: %w", err)
	}
	addPair := func(k, v string) {
		row := sheet.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetString(v)
	}
	addPair("rows", strconv.Itoa(report.Rows))
	addPair("quality_score", strconv.FormatFloat(report.QualityScore, 'f', 1, 64))
	addPair("anomalies", strconv.Itoa(len(report.Anomalies)))
	for _, a := range report.Anomalies {
		addPair(fmt.Sprintf("anomaly row %d %s", a.Row, a.Column), a.Reason)
	}
	for _, w := range report.Warnings {
		addPair("warning", w)
	}
	return nil
}

func (e *Exporter) writeCSV(ds *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.Columns); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	row := make([]string, len(ds.Columns))
	for _, rec := range ds.Records {
		for i, col := range ds.Columns {
			switch v := rec[col].(type) {
			case nil:
				row[i] = ""
			case float64:
				row[i] = strconv.FormatFloat(v, 'f', -1, 64)
			case string:
				row[i] = v
			default:
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
