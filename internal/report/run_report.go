package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"energy-tracker/internal/series/application"
	series "energy-tracker/internal/series/domain"
)

// KindLine is one series row of a run report.
type KindLine struct {
	Series     string
	Relation   string
	Staged     int
	Normalized int
	Fillers    int
	Loaded     int
	Result     string
}

// Lines summarizes a run per series in load order.
func Lines(result application.RunResult) []KindLine {
	lines := make([]KindLine, 0, len(series.LoadOrder))
	for _, kind := range series.LoadOrder {
		line := KindLine{
			Series:     kind.String(),
			Relation:   kind.Relation(),
			Staged:     result.Staged[kind],
			Normalized: result.Normalized[kind],
			Fillers:    result.Reconcile.Fillers(kind),
			Loaded:     result.Load.Loaded(kind),
			Result:     "skipped",
		}
		if err, ok := result.NormalizeErrors[kind]; ok && err != nil {
			line.Result = "normalize error"
		}
		for _, rel := range result.Load.Relations {
			if rel.Kind != kind || rel.Skipped {
				continue
			}
			if rel.Err != nil {
				line.Result = "load error"
			} else {
				line.Result = "loaded"
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func errorLines(result application.RunResult) []string {
	var out []string
	for _, kind := range series.AllKinds {
		if err, ok := result.NormalizeErrors[kind]; ok && err != nil {
			out = append(out, fmt.Sprintf("%s: %v", kind, err))
		}
	}
	for _, rel := range result.Load.Failed() {
		out = append(out, rel.Err.Error())
	}
	return out
}

// BuildRunPDF renders a one-page PDF summary of a run.
func BuildRunPDF(result application.RunResult) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Pipeline Run")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", result.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", result.Status()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", result.StartedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Duration: %s", result.Duration()))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	for _, h := range []struct {
		title string
		width float64
	}{{"Series", 30}, {"Relation", 30}, {"Staged", 25}, {"Normalized", 25}, {"Fillers", 20}, {"Loaded", 25}, {"Result", 30}} {
		pdf.CellFormat(h.width, 6, h.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range Lines(result) {
		pdf.CellFormat(30, 6, line.Series, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, line.Relation, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", line.Staged), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", line.Normalized), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", line.Fillers), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", line.Loaded), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, line.Result, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	if errs := errorLines(result); len(errs) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Errors")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		for _, e := range errs {
			pdf.MultiCell(0, 5, e, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunXLSX renders a workbook with a summary sheet and a filler sheet.
func BuildRunXLSX(result application.RunResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	fillersSheet := "fillers"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(fillersSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Energy Pipeline Run")
	_ = f.SetCellValue(summarySheet, "A3", "Run")
	_ = f.SetCellValue(summarySheet, "B3", result.RunID)
	_ = f.SetCellValue(summarySheet, "A4", "Status")
	_ = f.SetCellValue(summarySheet, "B4", result.Status())
	_ = f.SetCellValue(summarySheet, "A5", "Started")
	_ = f.SetCellValue(summarySheet, "B5", result.StartedAt.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "Duration (s)")
	_ = f.SetCellValue(summarySheet, "B6", result.Duration().Seconds())

	headers := []string{"Series", "Relation", "Staged", "Normalized", "Fillers", "Loaded", "Result"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 8)
		_ = f.SetCellValue(summarySheet, cell, h)
	}
	for i, line := range Lines(result) {
		row := i + 9
		values := []any{line.Series, line.Relation, line.Staged, line.Normalized, line.Fillers, line.Loaded, line.Result}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
	}
	for i, e := range errorLines(result) {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", 14+i), e)
	}

	_ = f.SetCellValue(fillersSheet, "A1", "Series")
	_ = f.SetCellValue(fillersSheet, "B1", "Key")
	_ = f.SetCellValue(fillersSheet, "C1", "Period")
	row := 2
	for _, key := range result.Reconcile.DemandFillers {
		_ = f.SetCellValue(fillersSheet, fmt.Sprintf("A%d", row), series.KindDemand.String())
		_ = f.SetCellValue(fillersSheet, fmt.Sprintf("B%d", row), key)
		row++
	}
	for _, key := range result.Reconcile.PriceFillers {
		_ = f.SetCellValue(fillersSheet, fmt.Sprintf("A%d", row), series.KindPrice.String())
		_ = f.SetCellValue(fillersSheet, fmt.Sprintf("B%d", row), key.Date)
		_ = f.SetCellValue(fillersSheet, fmt.Sprintf("C%d", row), key.Period)
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRunReport writes run-<id>.xlsx and run-<id>.pdf into dir and returns
// their paths.
func WriteRunReport(dir string, result application.RunResult) ([]string, error) {
	if dir == "" {
		return nil, errors.New("report: empty directory")
	}
	if result.RunID == "" {
		return nil, errors.New("report: empty run id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	xlsx, err := BuildRunXLSX(result)
	if err != nil {
		return nil, fmt.Errorf("report: xlsx: %w", err)
	}
	pdf, err := BuildRunPDF(result)
	if err != nil {
		return nil, fmt.Errorf("report: pdf: %w", err)
	}
	base := filepath.Join(dir, "run-"+result.RunID)
	paths := []string{base + ".xlsx", base + ".pdf"}
	for i, data := range [][]byte{xlsx, pdf} {
		if err := os.WriteFile(paths[i], data, 0o644); err != nil {
			return nil, err
		}
	}
	return paths, nil
}
