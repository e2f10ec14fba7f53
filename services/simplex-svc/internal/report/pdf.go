package report

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"netsimplex/pkg/metrics"
)

// MaxPDFPivots строк трассы в PDF; полная трасса есть в XLSX и CSV
const MaxPDFPivots = 100

// PDFExporter генератор PDF отчётов по трассе
type PDFExporter struct{}

// NewPDFExporter создаёт генератор
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) Format() string      { return FormatPDF }
func (e *PDFExporter) ContentType() string { return "application/pdf" }

var (
	primaryColor   = &props.Color{Red: 68, Green: 114, Blue: 196} // #4472c4, как заголовки XLSX
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241}
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141}

	titleStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	sectionStyle = props.Text{
		Size:  14,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   4,
	}

	keyStyle   = props.Text{Size: 10, Style: fontstyle.Bold}
	valueStyle = props.Text{Size: 10}
	smallStyle = props.Text{Size: 8, Color: darkGrayColor}

	metricValueStyle = props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
	}

	tableHeaderStyle = &props.Cell{BackgroundColor: primaryColor}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{Size: 9, Align: align.Center}
)

// Export строит документ: параметры, итоги и таблица пивотов
func (e *PDFExporter) Export(ctx context.Context, run *Run) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer(metrics.Get().ExportDuration, FormatPDF)
	defer timer.ObserveDuration()

	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	e.addHeader(m, run)
	e.addParameters(m, run)
	e.addResults(m, run)
	e.addPivots(m, run)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func (e *PDFExporter) addHeader(m core.Maroto, run *Run) {
	m.AddRow(14, text.NewCol(12, "Network Simplex Run", titleStyle))
	m.AddRow(4, line.NewCol(12))

	id := run.RunID
	if id == "" {
		id = "not stored"
	}
	m.AddRow(6,
		text.NewCol(6, "Run: "+id, smallStyle),
		text.NewCol(6, "Generated: "+run.generatedAt().Format("2006-01-02 15:04:05"),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	m.AddRow(6)
}

func (e *PDFExporter) addSection(m core.Maroto, title string) {
	m.AddRow(10, text.NewCol(12, title, sectionStyle))
	m.AddRow(2, line.NewCol(12, props.Line{Color: primaryColor}))
	m.AddRow(4)
}

func (e *PDFExporter) addParameters(m core.Maroto, run *Run) {
	e.addSection(m, "Parameters")
	for _, kv := range [][2]string{
		{"Mode", run.Mode},
		{"Nodes", strconv.Itoa(run.Nodes)},
		{"Arcs", strconv.Itoa(run.Arcs)},
		{"Seed", fmt.Sprintf("0x%08X", run.Seed)},
		{"Pivot Budget", strconv.Itoa(run.Iterations)},
		{"Refresh Interval", strconv.Itoa(run.RefreshInterval)},
		{"Carry State", strconv.FormatBool(run.CarryState)},
	} {
		m.AddRow(6,
			text.NewCol(6, kv[0], keyStyle),
			text.NewCol(6, kv[1], valueStyle),
		)
	}
}

func (e *PDFExporter) addResults(m core.Maroto, run *Run) {
	e.addSection(m, "Results")

	status := metricValueStyle
	if run.Status != "OK" {
		status.Color = dangerColor
	}
	m.AddRow(20,
		col.New(3).Add(
			text.New(strconv.FormatInt(run.FinalCost, 10), metricValueStyle),
			text.New("Final Cost", metricLabelStyle),
		),
		col.New(3).Add(
			text.New(strconv.Itoa(run.Pivots), metricValueStyle),
			text.New("Pivots", metricLabelStyle),
		),
		col.New(3).Add(
			text.New(fmt.Sprintf("0x%08x", run.Checksum), metricValueStyle),
			text.New("Checksum", metricLabelStyle),
		),
		col.New(3).Add(
			text.New(run.Status, status),
			text.New("Status", metricLabelStyle),
		),
	)

	for _, kv := range [][2]string{
		{"Termination", run.Termination},
		{"Degenerate Pivots", strconv.Itoa(run.DegeneratePivots)},
		{"Bound Pivots", strconv.Itoa(run.BoundPivots)},
		{"Initial Cost", strconv.FormatInt(run.InitialCost, 10)},
		{"Improvement", strconv.FormatInt(run.InitialCost-run.FinalCost, 10)},
		{"Cycles (ns)", strconv.FormatUint(run.Cycles, 10)},
		{"Artificial Flow", strconv.FormatInt(run.ArtificialFlow, 10)},
		{"Infeasible", strconv.FormatBool(run.Infeasible)},
	} {
		m.AddRow(6,
			text.NewCol(6, kv[0], keyStyle),
			text.NewCol(6, kv[1], valueStyle),
		)
	}
}

func (e *PDFExporter) addPivots(m core.Maroto, run *Run) {
	if len(run.Trace) == 0 {
		return
	}
	e.addSection(m, "Pivots")

	header := func(s string) core.Col {
		return text.NewCol(2, s, tableHeaderTextStyle).WithStyle(tableHeaderStyle)
	}
	cell := func(s string) core.Col {
		return text.NewCol(2, s, tableCellTextStyle).WithStyle(tableCellStyle)
	}

	m.AddRow(8,
		header("Pivot"), header("Entering"), header("Leaving"),
		header("Delta"), header("Cost"), header("Cost Change"),
	)

	changes := costChanges(run)
	for i, p := range run.Trace {
		if i == MaxPDFPivots {
			m.AddRow(6, text.NewCol(12,
				fmt.Sprintf("... and %d more pivots", len(run.Trace)-MaxPDFPivots), smallStyle))
			break
		}
		delta := strconv.Itoa(int(p.Delta))
		if p.Bound {
			delta += " (bound)"
		}
		m.AddRow(6,
			cell(strconv.Itoa(p.Index)),
			cell(strconv.Itoa(int(p.Entering))),
			cell(strconv.Itoa(int(p.Leaving))),
			cell(delta),
			cell(strconv.FormatInt(p.Cost, 10)),
			cell(strconv.FormatInt(changes[i], 10)),
		)
	}
}
