package bench

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"runtime"
)

// Format формат вывода результатов
type Format int

const (
	FormatHuman Format = iota
	FormatCSV
	FormatMachine
)

// ParseFormat разбирает имя формата из конфигурации
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "human":
		return FormatHuman, nil
	case "csv":
		return FormatCSV, nil
	case "machine":
		return FormatMachine, nil
	default:
		return FormatHuman, fmt.Errorf("unknown output format %q", s)
	}
}

const rule = "--------------------------------------------------------------------------------"

// Printer печатает заголовок, строки ядер и итоговую сводку
type Printer struct {
	w      io.Writer
	format Format
	arch   string
	plat   string
}

// NewPrinter создаёт печать в w
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format, arch: ArchName(), plat: runtime.GOOS}
}

// ArchName имя архитектуры в обозначениях отчёта
func ArchName() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86-64"
	case "riscv64":
		return "riscv64"
	default:
		return runtime.GOARCH
	}
}

// FormatChecksum 0x%08x
func FormatChecksum(c uint32) string {
	return fmt.Sprintf("0x%08x", c)
}

func passFail(s Status) string {
	if s == StatusOK {
		return "PASS"
	}
	return "FAIL"
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

// Header печатается один раз перед всеми ядрами
func (p *Printer) Header() {
	switch p.format {
	case FormatHuman:
		p.printf("================================================================================\n")
		p.printf("Network Simplex Micro-Benchmark Results\n")
		p.printf("Architecture: %s\n", p.arch)
		p.printf("Platform: %s\n", p.plat)
		p.printf("================================================================================\n\n")
		p.printf("%-20s %12s %12s %12s %10s %s\n",
			"Kernel", "Min Cycles", "Avg Cycles", "Max Cycles", "Checksum", "Status")
		p.printf("%s\n", rule)
	case FormatCSV:
		p.printf("kernel,min_cycles,avg_cycles,max_cycles,checksum,status\n")
	}
}

// Group заголовок группы ядер одного источника
func (p *Printer) Group(source string) {
	switch p.format {
	case FormatHuman:
		p.printf("\n[%s]\n", source)
	case FormatCSV:
		p.printf("# %s\n", source)
	}
}

// Stats строка результатов одного ядра
func (p *Printer) Stats(s Stats) {
	status := passFail(s.Status)

	switch p.format {
	case FormatHuman:
		p.printf("%-20s %12d %12d %12d %s %s\n",
			s.Kernel, s.CyclesMin, s.CyclesAvg, s.CyclesMax, FormatChecksum(s.Checksum), status)
	case FormatCSV:
		p.printf("%s,%d,%d,%d,%s,%s\n",
			s.Kernel, s.CyclesMin, s.CyclesAvg, s.CyclesMax, FormatChecksum(s.Checksum), status)
	default:
		source := s.Source
		if source == "" {
			source = "unknown"
		}
		p.printf("[BENCH_START]\n")
		p.printf("kernel=%s\n", s.Kernel)
		p.printf("arch=%s\n", p.arch)
		p.printf("source=%s\n", source)
		p.printf("[RESULT]\n")
		p.printf("cycles_min=%d\n", s.CyclesMin)
		p.printf("cycles_avg=%d\n", s.CyclesAvg)
		p.printf("cycles_max=%d\n", s.CyclesMax)
		p.printf("checksum=%s\n", FormatChecksum(s.Checksum))
		p.printf("expected=%s\n", FormatChecksum(s.Expected))
		p.printf("runs_total=%d\n", s.RunsTotal)
		p.printf("runs_pass=%d\n", s.RunsPass)
		p.printf("runs_fail=%d\n", s.RunsFail)
		p.printf("status=%s\n", status)
		p.printf("[BENCH_END]\n\n")
	}
}

// Summary итог по всем ядрам
type Summary struct {
	Total         int
	Passed        int
	Failed        int
	TotalCycles   uint64
	GeomeanCycles uint64
	ScorePerGHz   uint64
}

// Summarize считает сводку по средним циклам ядер
func Summarize(all []Stats) Summary {
	var s Summary
	s.Total = len(all)
	for _, st := range all {
		if st.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
		s.TotalCycles += st.CyclesAvg
	}
	s.GeomeanCycles = Geomean(all)
	if s.GeomeanCycles > 0 {
		s.ScorePerGHz = 1_000_000_000 / s.GeomeanCycles
	}
	return s
}

// Footer сводка после всех ядер
func (p *Printer) Footer(all []Stats) {
	if len(all) == 0 {
		if p.format == FormatHuman {
			p.printf("%s\n\n", rule)
		}
		return
	}

	s := Summarize(all)
	switch p.format {
	case FormatHuman:
		p.printf("%s\n\n", rule)
		p.printf("Summary:\n")
		p.printf("  Kernels:        %d total, %d passed, %d failed\n", s.Total, s.Passed, s.Failed)
		p.printf("  Total Cycles:   %d\n", s.TotalCycles)
		p.printf("  Geomean Cycles: %d\n", s.GeomeanCycles)
		p.printf("  Score/GHz:      %d (higher is better)\n\n", s.ScorePerGHz)
	case FormatCSV:
		p.printf("\n# Summary\n")
		p.printf("kernels_total,%d\n", s.Total)
		p.printf("kernels_passed,%d\n", s.Passed)
		p.printf("kernels_failed,%d\n", s.Failed)
		p.printf("total_cycles,%d\n", s.TotalCycles)
		p.printf("geomean_cycles,%d\n", s.GeomeanCycles)
		p.printf("score_per_ghz,%d\n", s.ScorePerGHz)
	default:
		p.printf("[SUMMARY]\n")
		p.printf("kernels_total=%d\n", s.Total)
		p.printf("kernels_passed=%d\n", s.Passed)
		p.printf("kernels_failed=%d\n", s.Failed)
		p.printf("total_cycles=%d\n", s.TotalCycles)
		p.printf("geomean_cycles=%d\n", s.GeomeanCycles)
		p.printf("score_per_ghz=%d\n", s.ScorePerGHz)
		p.printf("[END]\n")
	}
}

// Geomean геометрическое среднее средних циклов в фиксированной точке
// (20 дробных бит логарифма), без плавающей арифметики.
func Geomean(all []Stats) uint64 {
	switch len(all) {
	case 0:
		return 0
	case 1:
		return all[0].CyclesAvg
	}

	const fracBits = 20
	var logSum uint64
	for _, st := range all {
		v := st.CyclesAvg
		if v == 0 {
			v = 1
		}
		msb := 63 - bits.LeadingZeros64(v)
		log2 := uint64(msb) << fracBits
		if msb > 0 && msb < 44 {
			base := uint64(1) << msb
			log2 += ((v - base) << fracBits) / base
		}
		logSum += log2
	}

	logAvg := logSum / uint64(len(all))
	intPart := int(logAvg >> fracBits)
	frac := logAvg & (1<<fracBits - 1)
	if intPart >= 63 {
		return math.MaxUint64
	}

	result := uint64(1) << intPart
	result += (result * frac) >> fracBits
	return result
}
