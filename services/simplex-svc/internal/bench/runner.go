package bench

import (
	"math"
	"time"

	"netsimplex/pkg/logger"
)

// Config параметры прогона
type Config struct {
	WarmupRuns  int
	MeasureRuns int
	Verify      bool
	Verbose     bool

	// ExpectedChecksum переопределяет значение из дескриптора, если не 0
	ExpectedChecksum uint32

	// Timeout прогон длиннее этого времени считается ERR_TIMEOUT; 0 отключает
	Timeout time.Duration

	// OnResult вызывается после каждого измеренного прогона
	OnResult func(run int, res Result)
}

// DefaultConfig конфигурация по умолчанию
func DefaultConfig() Config {
	return Config{
		WarmupRuns:  2,
		MeasureRuns: 5,
		Verify:      true,
	}
}

// Stats агрегированные результаты измеренных прогонов
type Stats struct {
	Kernel   string
	Source   string
	Expected uint32

	CyclesMin   uint64
	CyclesMax   uint64
	CyclesAvg   uint64
	CyclesTotal uint64
	Checksum    uint32

	RunsTotal int
	RunsPass  int
	RunsFail  int
	Status    Status
}

// Passed true если ни один прогон не завершился ошибкой
func (s Stats) Passed() bool { return s.Status == StatusOK }

// Run прогоняет одно ядро: Init, разогрев, измерения, Cleanup.
//
// Неуспешные прогоны не входят в статистику циклов; при отсутствии успешных
// прогонов CyclesMin остаётся равным math.MaxUint64. Несовпадение контрольной
// суммы переводит прогон из успешных в неуспешные.
func Run(d Descriptor, cfg Config) Stats {
	stats := Stats{
		Kernel:    d.Name,
		Source:    d.Source,
		Expected:  d.ExpectedChecksum,
		CyclesMin: math.MaxUint64,
		Status:    StatusOK,
	}
	if cfg.ExpectedChecksum != 0 {
		stats.Expected = cfg.ExpectedChecksum
	}

	log := logger.Log.With("kernel", d.Name)
	k := d.New()

	if err := k.Init(); err != nil {
		log.Error("kernel init failed", "error", err)
		stats.Status = StatusInternal
		stats.RunsFail = cfg.MeasureRuns
		stats.RunsTotal = cfg.MeasureRuns
		return stats
	}
	defer k.Cleanup()

	for i := 0; i < cfg.WarmupRuns; i++ {
		_ = k.Run()
	}

	for i := 0; i < cfg.MeasureRuns; i++ {
		res := k.Run()
		if res.Status == StatusOK && cfg.Timeout > 0 && res.Cycles > uint64(cfg.Timeout.Nanoseconds()) {
			res.Status = StatusTimeout
		}
		if cfg.OnResult != nil {
			cfg.OnResult(i, res)
		}
		stats.RunsTotal++

		if res.Status != StatusOK {
			stats.RunsFail++
			stats.Status = res.Status
			if cfg.Verbose {
				log.Warn("run failed", "run", i, "status", res.Status.String())
			}
			continue
		}

		stats.RunsPass++
		stats.CyclesTotal += res.Cycles
		stats.Checksum = res.Checksum
		stats.CyclesMin = min(stats.CyclesMin, res.Cycles)
		stats.CyclesMax = max(stats.CyclesMax, res.Cycles)

		if cfg.Verify && stats.Expected != 0 && res.Checksum != stats.Expected {
			stats.RunsFail++
			stats.RunsPass--
			stats.Status = StatusChecksum
			if cfg.Verbose {
				log.Warn("checksum mismatch",
					"got", FormatChecksum(res.Checksum),
					"expected", FormatChecksum(stats.Expected))
			}
		}
	}

	if stats.RunsPass > 0 {
		stats.CyclesAvg = stats.CyclesTotal / uint64(stats.RunsPass)
	}
	return stats
}

// RunAll прогоняет все ядра реестра и печатает результаты через printer.
func RunAll(reg *Registry, cfg Config, p *Printer) []Stats {
	all := make([]Stats, 0, reg.Len())
	current := ""

	p.Header()
	for _, d := range reg.All() {
		if d.Source != "" && d.Source != current {
			p.Group(d.Source)
			current = d.Source
		}
		stats := Run(d, cfg)
		p.Stats(stats)
		all = append(all, stats)
	}
	p.Footer(all)

	return all
}
