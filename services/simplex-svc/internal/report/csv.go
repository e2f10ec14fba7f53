package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"netsimplex/pkg/metrics"
)

// CSVExporter трасса пивотов одной таблицей; итоги прогона в комментарии
// перед заголовком
type CSVExporter struct{}

// NewCSVExporter создаёт генератор
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Format() string      { return FormatCSV }
func (e *CSVExporter) ContentType() string { return "text/csv" }

// csvWriter запоминает первую ошибку записи
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record []string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() error {
	if cw.err != nil {
		return cw.err
	}
	cw.w.Flush()
	return cw.w.Error()
}

func (e *CSVExporter) Export(ctx context.Context, run *Run) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer(metrics.Get().ExportDuration, FormatCSV)
	defer timer.ObserveDuration()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# mode=%s nodes=%d arcs=%d seed=0x%08X pivots=%d final_cost=%d checksum=0x%08x status=%s infeasible=%t truncated=%t\n",
		run.Mode, run.Nodes, run.Arcs, run.Seed, run.Pivots, run.FinalCost, run.Checksum, run.Status,
		run.Infeasible, run.TraceTruncated)

	cw := &csvWriter{w: csv.NewWriter(&buf)}
	cw.Write([]string{"pivot", "entering", "leaving", "delta", "bound", "cost", "cost_change"})

	changes := costChanges(run)
	for i, p := range run.Trace {
		cw.Write([]string{
			strconv.Itoa(p.Index),
			strconv.Itoa(int(p.Entering)),
			strconv.Itoa(int(p.Leaving)),
			strconv.Itoa(int(p.Delta)),
			strconv.FormatBool(p.Bound),
			strconv.FormatInt(p.Cost, 10),
			strconv.FormatInt(changes[i], 10),
		})
	}

	if err := cw.Flush(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
