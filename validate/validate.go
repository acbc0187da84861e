// Package validate runs statistical plausibility checks on normalized
// records. The report is advisory: anomalies and warnings annotate the
// dataset and feed the quality score, but never block the export.
package validate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tabfetch/tabfetch/models"
	"github.com/tabfetch/tabfetch/normalize"
)

// madThreshold flags values more than this many scaled median absolute
// deviations from the column median.
const madThreshold = 5.0

// madScale makes the MAD consistent with the standard deviation for
// normally distributed data.
const madScale = 1.4826

// Run validates normalized records against the raw table they came
// from. The raw table supplies the pre-normalization cell text used for
// currency-consistency checks.
func Run(records []models.Record, raw *models.Table, declaredTypes map[string]string) *models.ValidationReport {
	report := &models.ValidationReport{
		Rows:   len(records),
		Fields: make(map[string]models.FieldStats),
	}
	if len(records) == 0 {
		report.Warnings = append(report.Warnings, "dataset is empty")
		return report
	}

	columns := columnsOf(records, raw)
	types := make(map[string]string, len(columns))
	for _, col := range columns {
		types[col] = normalize.InferType(col, declaredTypes)
	}

	for _, col := range columns {
		report.Fields[col] = fieldStats(records, col)
	}

	checkNumericOutliers(report, records, columns, types)
	checkOHLC(report, records, columns)
	checkVolume(report, records, columns, types)
	checkPercentBounds(report, records, columns, types)
	checkCurrencyConsistency(report, raw, columns, types)
	checkDuplicateRows(report, records, columns)

	report.QualityScore = qualityScore(report)
	return report
}

// columnsOf returns the column list in table order, extended with any
// record-only keys (sorted) so the report covers every field.
func columnsOf(records []models.Record, raw *models.Table) []string {
	var columns []string
	seen := make(map[string]struct{})
	if raw != nil {
		for _, c := range raw.Columns {
			columns = append(columns, c)
			seen[c] = struct{}{}
		}
	}
	var extra []string
	for k := range records[0] {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func fieldStats(records []models.Record, col string) models.FieldStats {
	var present, numeric int
	min, max := math.Inf(1), math.Inf(-1)
	for _, rec := range records {
		v, ok := rec[col]
		if !ok || v == nil {
			continue
		}
		present++
		if f, isNum := v.(float64); isNum {
			numeric++
			if f < min {
				min = f
			}
			if f > max {
				max = f
			}
		}
	}
	stats := models.FieldStats{
		Coverage: 100 * float64(present) / float64(len(records)),
		Numeric:  numeric > 0 && numeric == present,
	}
	if stats.Numeric {
		stats.Min, stats.Max = min, max
	}
	return stats
}

// checkNumericOutliers flags cells far outside the column's typical
// range using the median absolute deviation, which a single wild value
// cannot drag the way a standard deviation can.
func checkNumericOutliers(report *models.ValidationReport, records []models.Record, columns []string, types map[string]string) {
	for _, col := range columns {
		t := types[col]
		if t != normalize.TypePrice && t != normalize.TypeNumber {
			continue
		}
		values := make([]float64, 0, len(records))
		rows := make([]int, 0, len(records))
		for i, rec := range records {
			if f, ok := rec[col].(float64); ok {
				values = append(values, f)
				rows = append(rows, i)
			}
		}
		if len(values) < 4 {
			continue
		}
		med := median(values)
		deviations := make([]float64, len(values))
		for i, v := range values {
			deviations[i] = math.Abs(v - med)
		}
		mad := median(deviations) * madScale
		if mad == 0 {
			continue
		}
		for i, v := range values {
			if math.Abs(v-med)/mad > madThreshold {
				report.Anomalies = append(report.Anomalies, models.Anomaly{
					Row: rows[i], Column: col,
					Reason: fmt.Sprintf("value %g is far from the column median %g", v, med),
				})
			}
		}
	}
}

// checkOHLC enforces the structural invariant of candle data: low is
// the row minimum and high the row maximum.
func checkOHLC(report *models.ValidationReport, records []models.Record, columns []string) {
	find := func(name string) (string, bool) {
		for _, col := range columns {
			if strings.EqualFold(col, name) || strings.Contains(strings.ToLower(col), name) {
				return col, true
			}
		}
		return "", false
	}
	openCol, hasOpen := find("open")
	highCol, hasHigh := find("high")
	lowCol, hasLow := find("low")
	closeCol, hasClose := find("close")
	if !hasHigh || !hasLow {
		return
	}

	for i, rec := range records {
		high, okH := rec[highCol].(float64)
		low, okL := rec[lowCol].(float64)
		if !okH || !okL {
			continue
		}
		if low > high {
			report.Anomalies = append(report.Anomalies, models.Anomaly{
				Row: i, Column: lowCol,
				Reason: fmt.Sprintf("low %g exceeds high %g", low, high),
			})
			continue
		}
		if hasOpen {
			if open, ok := rec[openCol].(float64); ok && (open < low || open > high) {
				report.Anomalies = append(report.Anomalies, models.Anomaly{
					Row: i, Column: openCol,
					Reason: fmt.Sprintf("open %g outside low-high range [%g, %g]", open, low, high),
				})
			}
		}
		if hasClose {
			if cl, ok := rec[closeCol].(float64); ok && (cl < low || cl > high) {
				report.Anomalies = append(report.Anomalies, models.Anomaly{
					Row: i, Column: closeCol,
					Reason: fmt.Sprintf("close %g outside low-high range [%g, %g]", cl, low, high),
				})
			}
		}
	}
}

// checkVolume flags non-positive values in volume columns. Traded
// volume is strictly positive; zero marks a gap in the data.
func checkVolume(report *models.ValidationReport, records []models.Record, columns []string, types map[string]string) {
	for _, col := range columns {
		if types[col] != normalize.TypeNumber || !strings.Contains(strings.ToLower(col), "volume") {
			continue
		}
		for i, rec := range records {
			if f, ok := rec[col].(float64); ok && f <= 0 {
				report.Anomalies = append(report.Anomalies, models.Anomaly{
					Row: i, Column: col,
					Reason: fmt.Sprintf("non-positive volume %g", f),
				})
			}
		}
	}
}

func checkPercentBounds(report *models.ValidationReport, records []models.Record, columns []string, types map[string]string) {
	const bound = 1000
	for _, col := range columns {
		if types[col] != normalize.TypePercentage {
			continue
		}
		for i, rec := range records {
			if f, ok := rec[col].(float64); ok && math.Abs(f) > bound {
				report.Anomalies = append(report.Anomalies, models.Anomaly{
					Row: i, Column: col,
					Reason: fmt.Sprintf("percentage %g%% is implausible", f),
				})
			}
		}
	}
}

// checkCurrencyConsistency warns when price cells mix currency symbols.
// Detection runs on the raw text since normalization strips symbols.
func checkCurrencyConsistency(report *models.ValidationReport, raw *models.Table, columns []string, types map[string]string) {
	if raw == nil {
		return
	}
	for _, col := range columns {
		if types[col] != normalize.TypePrice {
			continue
		}
		counts := make(map[string]int)
		for _, cell := range raw.Column(col) {
			if code := normalize.DetectCurrency(cell); code != "" {
				counts[code]++
			}
		}
		if len(counts) > 1 {
			codes := make([]string, 0, len(counts))
			for code := range counts {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("column %q mixes currencies: %s", col, strings.Join(codes, ", ")))
		}
	}
}

func checkDuplicateRows(report *models.ValidationReport, records []models.Record, columns []string) {
	seen := make(map[string]int, len(records))
	dups := 0
	for i, rec := range records {
		var b strings.Builder
		for _, col := range columns {
			fmt.Fprintf(&b, "%v\x1f", rec[col])
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
		} else {
			seen[key] = i
		}
	}
	if dups > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d duplicate rows", dups))
	}
}

// qualityScore blends mean field coverage, the anomaly rate and the
// warning count into one 0-100 figure. Weights favor coverage; a
// handful of warnings costs a few points, never the whole score.
func qualityScore(report *models.ValidationReport) float64 {
	if report.Rows == 0 {
		return 0
	}

	var coverageSum float64
	for _, stats := range report.Fields {
		coverageSum += stats.Coverage
	}
	coverage := 100.0
	if len(report.Fields) > 0 {
		coverage = coverageSum / float64(len(report.Fields))
	}

	cells := report.Rows * maxInt(len(report.Fields), 1)
	anomalyRate := float64(len(report.Anomalies)) / float64(cells)
	cleanliness := 100 * (1 - math.Min(anomalyRate*10, 1))

	consistency := 100 - 5*float64(len(report.Warnings))
	if consistency < 0 {
		consistency = 0
	}

	score := 0.5*coverage + 0.35*cleanliness + 0.15*consistency
	return math.Round(score*10) / 10
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
