// Package report renders validation outcomes as XLSX workbooks.
package report

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/termsheet-validator/internal/history"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
)

// Row is one line of a report.
type Row struct {
	ID        string
	Filename  string
	Timestamp string
	Status    string
	RiskScore float64
	Issues    []string // "SEVERITY: description"
	Method    string
	Fallback  bool
	Error     string
}

// FromHistory converts history records to rows.
func FromHistory(records []history.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		issues := make([]string, 0, len(r.Issues))
		for _, is := range r.Issues {
			issues = append(issues, is.Severity+": "+is.Description)
		}
		rows = append(rows, Row{
			ID:        r.ID,
			Filename:  r.Filename,
			Timestamp: r.Timestamp,
			Status:    r.Status,
			RiskScore: r.RiskScore,
			Issues:    issues,
		})
	}
	return rows
}

// FromResult converts a pipeline result to a row.
func FromResult(filename string, res pipeline.ValidationResult) Row {
	issues := make([]string, 0, len(res.Issues))
	for _, is := range res.Issues {
		issues = append(issues, string(is.Severity)+": "+is.Description)
	}
	row := Row{
		Filename:  filename,
		Timestamp: res.Timestamp.UTC().Format(time.RFC3339),
		Status:    res.Status.Upper(),
		RiskScore: res.RiskScore,
		Issues:    issues,
		Fallback:  res.FellBack(),
	}
	if res.Extraction != nil {
		row.Method = res.Extraction.Method
	}
	return row
}

// FromError is a row for a file that could not be validated at all.
func FromError(filename string, err error) Row {
	return Row{Filename: filename, Status: "ERROR", Error: err.Error()}
}

var headers = []string{
	"ID", "File", "Timestamp", "Status", "Risk Score", "Issue Count", "Issues", "Method", "Fallback", "Error",
}

// XLSX writes rows to a single-sheet workbook and returns its bytes.
func XLSX(sheet string, rows []Row, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = "Validations"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.ID)
		write(2, r.Filename)
		write(3, r.Timestamp)
		write(4, r.Status)
		write(5, r.RiskScore)
		write(6, len(r.Issues))
		write(7, truncate(strings.Join(r.Issues, "\n"), 2000))
		write(8, r.Method)
		write(9, r.Fallback)
		write(10, r.Error)
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // id
	_ = f.SetColWidth(sheet, "B", "B", 32) // file
	_ = f.SetColWidth(sheet, "C", "C", 22)
	_ = f.SetColWidth(sheet, "D", "F", 12)
	_ = f.SetColWidth(sheet, "G", "G", 80) // issues
	_ = f.SetColWidth(sheet, "H", "J", 16)
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	logger.Info("report.xlsx.ok", "sheet", sheet, "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
