package simplexapi

import (
	"fmt"

	"github.com/google/uuid"

	"netsimplex/pkg/apperror"
)

// Пределы запросов
const (
	MaxNodes = 4096
	// MaxIterations бюджет пивотов одного прогона
	MaxIterations = 100_000
	// MaxTracePivots длина трассы в ответе и в экспорте; дальше трасса обрезается
	MaxTracePivots = 10_000
	MaxRuns        = 100
	MaxTags        = 16
	MaxListLimit   = 100
)

// RunRequest параметры прогона. Пустые поля берутся из конфигурации сервиса.
type RunRequest struct {
	Nodes           int     `json:"nodes,omitempty"`
	Arcs            int     `json:"arcs,omitempty"`
	Seed            *uint32 `json:"seed,omitempty"`
	Iterations      *int    `json:"iterations,omitempty"`
	RefreshInterval *int    `json:"refresh_interval,omitempty"`
	Mode            string  `json:"mode,omitempty"`

	// Runs сколько раз подряд запустить ядро; ответ описывает последний прогон
	Runs            int  `json:"runs,omitempty"`
	CarryState      bool `json:"carry_state,omitempty"`
	PrimePotentials bool `json:"prime_potentials,omitempty"`
	Trace           bool `json:"trace,omitempty"`
	SkipCache       bool `json:"skip_cache,omitempty"`

	// ExportFormat формат ExportTrace: xlsx (по умолчанию), pdf, csv
	ExportFormat string `json:"export_format,omitempty"`

	Tags []string `json:"tags,omitempty"`
}

// Validate проверяет границы параметров
func (r *RunRequest) Validate() error {
	switch {
	case r.Nodes < 0 || r.Nodes == 1:
		return apperror.NewWithField(apperror.CodeInvalidNetwork, "network needs at least 2 nodes", "nodes")
	case r.Nodes > MaxNodes:
		return apperror.NewWithField(apperror.CodeNetworkTooLarge,
			fmt.Sprintf("at most %d nodes are supported", MaxNodes), "nodes")
	case r.Arcs < 0:
		return apperror.NewWithField(apperror.CodeInvalidNetwork, "arcs must not be negative", "arcs")
	case r.Iterations != nil && *r.Iterations < 0:
		return apperror.NewWithField(apperror.CodeInvalidIterations, "iterations must not be negative", "iterations")
	case r.Iterations != nil && *r.Iterations > MaxIterations:
		return apperror.NewWithField(apperror.CodeInvalidIterations,
			fmt.Sprintf("at most %d iterations per run", MaxIterations), "iterations")
	case r.RefreshInterval != nil && *r.RefreshInterval < 0:
		return apperror.NewWithField(apperror.CodeInvalidIterations, "refresh interval must not be negative", "refresh_interval")
	case r.Runs < 0 || r.Runs > MaxRuns:
		return apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("runs must be within 0..%d", MaxRuns), "runs")
	case len(r.Tags) > MaxTags:
		return apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("at most %d tags", MaxTags), "tags")
	}
	switch r.ExportFormat {
	case "", "xlsx", "pdf", "csv":
	default:
		return apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown export format %q", r.ExportFormat), "export_format")
	}
	return validateMode(r.Mode)
}

// PivotRecord одна запись трассы
type PivotRecord struct {
	Index    int   `json:"index"`
	Entering int32 `json:"entering"`
	Leaving  int32 `json:"leaving"`
	Delta    int32 `json:"delta"`
	Bound    bool  `json:"bound,omitempty"`
	Cost     int64 `json:"cost"`
}

// RunResponse результат прогона
type RunResponse struct {
	RunID           string `json:"run_id"`
	Mode            string `json:"mode"`
	Nodes           int    `json:"nodes"`
	Arcs            int    `json:"arcs"`
	Seed            uint32 `json:"seed"`
	Iterations      int    `json:"iterations"`
	RefreshInterval int    `json:"refresh_interval"`
	CarryState      bool   `json:"carry_state,omitempty"`

	Pivots           int    `json:"pivots"`
	DegeneratePivots int    `json:"degenerate_pivots"`
	BoundPivots      int    `json:"bound_pivots"`
	Refreshes        int    `json:"refreshes"`
	FinalCost        int64  `json:"final_cost"`
	Checksum         uint32 `json:"checksum"`
	ExpectedChecksum uint32 `json:"expected_checksum,omitempty"`
	Status           string `json:"status"`
	Termination      string `json:"termination"`
	Cycles           uint64 `json:"cycles"`
	Cached           bool   `json:"cached"`

	// ArtificialFlow поток на искусственных дугах (textbook)
	ArtificialFlow int64 `json:"artificial_flow,omitempty"`
	// Infeasible сошлось, но спрос не покрыт реальными дугами
	Infeasible bool `json:"infeasible,omitempty"`

	PivotsTrace    []PivotRecord `json:"pivots_trace,omitempty"`
	TraceTruncated bool          `json:"trace_truncated,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	CreatedAt      string        `json:"created_at,omitempty"`
}

// GetRunRequest запрос прогона по идентификатору
type GetRunRequest struct {
	RunID string
}

// Validate проверяет формат идентификатора
func (r *GetRunRequest) Validate() error {
	if r.RunID == "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "run_id is required", "run_id")
	}
	if _, err := uuid.Parse(r.RunID); err != nil {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "run_id must be a UUID", "run_id")
	}
	return nil
}

// ListRunsRequest фильтры и страница списка
type ListRunsRequest struct {
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
	Mode   string   `json:"mode,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Validate проверяет пагинацию и режим
func (r *ListRunsRequest) Validate() error {
	if r.Limit < 0 || r.Limit > MaxListLimit {
		return apperror.NewWithField(apperror.CodeInvalidPagination,
			fmt.Sprintf("limit must be within 0..%d", MaxListLimit), "limit")
	}
	if r.Offset < 0 {
		return apperror.NewWithField(apperror.CodeInvalidPagination, "offset must not be negative", "offset")
	}
	return validateMode(r.Mode)
}

// ListRunsResponse страница прогонов без трасс
type ListRunsResponse struct {
	Runs  []RunResponse `json:"runs"`
	Total int64         `json:"total"`
}

// VerifyResponse результат проверки инвариантов на каждом пивоте
type VerifyResponse struct {
	Valid     bool     `json:"valid"`
	Mode      string   `json:"mode"`
	Pivots    int      `json:"pivots"`
	Checked   int      `json:"checked"`
	FinalCost int64    `json:"final_cost"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
}

func validateMode(mode string) error {
	switch mode {
	case "", "reference", "textbook":
		return nil
	default:
		return apperror.NewWithField(apperror.CodeInvalidMode,
			fmt.Sprintf("unknown mode %q", mode), "mode")
	}
}
