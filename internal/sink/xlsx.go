package sink

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
)

// ReportColumns is the header row of the XLSX report.
var ReportColumns = []string{
	"Verticals", "SubCategory", "Year", "Month", "IssueDate", "Title", "PDF_URL", "File Name", "Path",
}

// XLSXReport accumulates one row per record across runs and saves the
// workbook on Close.
type XLSXReport struct {
	path string

	mu   sync.Mutex
	rows [][]string
}

// NewXLSXReport creates a report that is written to path on Close.
func NewXLSXReport(path string) *XLSXReport {
	return &XLSXReport{path: path}
}

func (x *XLSXReport) Write(_ context.Context, result *model.RunResult) error {
	if err := checkResult(result); err != nil {
		return err
	}
	arts := make(map[int]model.Artifact, len(result.Artifacts))
	for _, a := range result.Artifacts {
		arts[a.RecordIndex] = a
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, r := range result.Records {
		row := []string{result.Target.Category, result.Target.Subfolder, "", "", "", r.Title, r.PDFURL, "", ""}
		if !r.IssueDate.IsZero() {
			row[2] = strconv.Itoa(r.IssueDate.Year())
			row[3] = r.IssueDate.Month().String()
			row[4] = r.IssueDate.Format("02-01-2006")
		}
		if a, ok := arts[i]; ok {
			if row[6] == "" {
				row[6] = a.PDFURL
			}
			if a.Downloaded() {
				row[7] = a.FileName
				row[8] = a.Path
			}
		}
		x.rows = append(x.rows, row)
	}
	return nil
}

// Rows returns the number of record rows collected so far.
func (x *XLSXReport) Rows() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.rows)
}

// Close saves the workbook. An empty report still gets its header row.
func (x *XLSXReport) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Circulars")
	if err != nil {
		return eris.Wrap(err, "sink: add sheet")
	}
	appendRow(sheet, ReportColumns)
	for _, row := range x.rows {
		appendRow(sheet, row)
	}

	if dir := filepath.Dir(x.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "sink: create report dir")
		}
	}
	if err := f.Save(x.path); err != nil {
		return eris.Wrapf(err, "sink: save %s", x.path)
	}
	zap.L().Info("sink: wrote xlsx report",
		zap.String("path", x.path),
		zap.Int("rows", len(x.rows)),
	)
	return nil
}

func appendRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
