package report

import (
	"context"
	"fmt"
	"time"
)

// Форматы экспорта
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
	FormatCSV  = "csv"
)

// Exporter рендерит прогон в документ одного формата
type Exporter interface {
	Export(ctx context.Context, run *Run) ([]byte, error)
	Format() string
	ContentType() string
}

// New возвращает экспортёр формата; пустое имя означает XLSX
func New(format string) (Exporter, error) {
	switch format {
	case "", FormatXLSX:
		return NewExcelExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	case FormatCSV:
		return NewCSVExporter(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Filename имя файла для прогона в формате e
func Filename(e Exporter, run *Run) string {
	return fmt.Sprintf("trace_%s_%s.%s", run.Mode, run.generatedAt().Format("20060102_150405"), e.Format())
}

func (r *Run) generatedAt() time.Time {
	if r.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return r.GeneratedAt
}

// costChanges изменение стоимости на каждом пивоте относительно предыдущего
func costChanges(run *Run) []int64 {
	out := make([]int64, len(run.Trace))
	prev := run.InitialCost
	for i, p := range run.Trace {
		out[i] = p.Cost - prev
		prev = p.Cost
	}
	return out
}
