// Package report renders kernel runs and their pivot traces as XLSX
// workbooks, PDF documents or CSV tables.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"netsimplex/pkg/metrics"
)

// Имена листов книги
const (
	SheetSummary = "Summary"
	SheetPivots  = "Pivots"
)

// Pivot строка трассы
type Pivot struct {
	Index    int
	Entering int32
	Leaving  int32
	Delta    int32
	Bound    bool
	Cost     int64
}

// Run данные прогона для отчёта
type Run struct {
	RunID           string
	Mode            string
	Nodes           int
	Arcs            int
	Seed            uint32
	Iterations      int
	RefreshInterval int
	CarryState      bool

	InitialCost      int64
	FinalCost        int64
	Pivots           int
	DegeneratePivots int
	BoundPivots      int
	Checksum         uint32
	Status           string
	Termination      string
	Cycles           uint64
	ArtificialFlow   int64
	Infeasible       bool

	Trace []Pivot
	// TraceTruncated трасса обрезана до MaxTracePivots записей
	TraceTruncated bool
	GeneratedAt    time.Time
}

// ExcelExporter генератор XLSX отчётов по трассе
type ExcelExporter struct{}

// NewExcelExporter создаёт генератор
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

func (e *ExcelExporter) Format() string { return FormatXLSX }

func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export строит книгу с листами Summary и Pivots
func (e *ExcelExporter) Export(ctx context.Context, run *Run) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer(metrics.Get().ExportDuration, FormatXLSX)
	defer timer.ObserveDuration()

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	// Первый лист переименовываем, чтобы Summary открывался по умолчанию
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	if err := e.writeSummary(f, run, headerStyle); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	if err := e.writePivots(f, run, headerStyle); err != nil {
		return nil, fmt.Errorf("write pivots: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *ExcelExporter) writeSummary(f *excelize.File, run *Run, headerStyle int) error {
	sheet := SheetSummary
	row := 1

	set := func(col string, value any) {
		_ = f.SetCellValue(sheet, cellAddr(col, row), value) //nolint:errcheck // адрес всегда корректен
	}

	set("A", "Network Simplex Run")
	if err := f.MergeCell(sheet, cellAddr("A", row), cellAddr("B", row)); err != nil {
		return err
	}
	row += 2

	section := func(title string, rows [][2]any) error {
		set("A", title)
		if err := f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("B", row), headerStyle); err != nil {
			return err
		}
		row++
		for _, kv := range rows {
			set("A", kv[0])
			set("B", kv[1])
			row++
		}
		row++
		return nil
	}

	generated := run.generatedAt()

	if err := section("Parameters", [][2]any{
		{"Run ID", run.RunID},
		{"Mode", run.Mode},
		{"Nodes", run.Nodes},
		{"Arcs", run.Arcs},
		{"Seed", fmt.Sprintf("0x%08X", run.Seed)},
		{"Pivot Budget", run.Iterations},
		{"Refresh Interval", run.RefreshInterval},
		{"Carry State", run.CarryState},
	}); err != nil {
		return err
	}

	if err := section("Results", [][2]any{
		{"Termination", run.Termination},
		{"Status", run.Status},
		{"Pivots", run.Pivots},
		{"Degenerate Pivots", run.DegeneratePivots},
		{"Bound Pivots", run.BoundPivots},
		{"Initial Cost", run.InitialCost},
		{"Final Cost", run.FinalCost},
		{"Improvement", run.InitialCost - run.FinalCost},
		{"Checksum", fmt.Sprintf("0x%08x", run.Checksum)},
		{"Cycles (ns)", run.Cycles},
		{"Artificial Flow", run.ArtificialFlow},
		{"Infeasible", run.Infeasible},
		{"Trace Truncated", run.TraceTruncated},
	}); err != nil {
		return err
	}

	set("A", "Generated At")
	set("B", generated.Format(time.RFC3339))

	return f.SetColWidth(sheet, "A", "B", 22)
}

func (e *ExcelExporter) writePivots(f *excelize.File, run *Run, headerStyle int) error {
	sheet := SheetPivots
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Pivot", "Entering", "Leaving", "Delta", "Bound", "Cost", "Cost Change"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1) //nolint:errcheck // координаты в пределах листа
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", headerStyle); err != nil {
		return err
	}

	changes := costChanges(run)
	for i, p := range run.Trace {
		values := []any{p.Index, p.Entering, p.Leaving, p.Delta, p.Bound, p.Cost, changes[i]}
		if err := f.SetSheetRow(sheet, cellAddr("A", i+2), &values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if len(run.Trace) > 1 {
		last := len(run.Trace) + 1
		if err := f.AddChart(sheet, "I2", &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{{
				Name:       "Cost",
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, last),
				Values:     fmt.Sprintf("%s!$F$2:$F$%d", sheet, last),
			}},
			Title:  []excelize.RichTextRun{{Text: "Objective per pivot"}},
			Legend: excelize.ChartLegend{Position: "none"},
		}); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "G", 14)
}

// cellAddr формирует адрес ячейки
func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
