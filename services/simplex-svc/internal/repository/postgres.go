package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq"

	"netsimplex/pkg/database"
	"netsimplex/pkg/telemetry"
)

// BackendPostgres имя PostgreSQL хранилища
const BackendPostgres = "postgres"

// PostgresRunRepository PostgreSQL реализация
type PostgresRunRepository struct {
	db database.DB
}

// NewPostgresRunRepository создаёт новый репозиторий
func NewPostgresRunRepository(db database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) Backend() string { return BackendPostgres }

func (r *PostgresRunRepository) Save(ctx context.Context, run *Run) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Save",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendPostgres, "insert")...))
	defer span.End()

	prepare(run)

	query := `
		INSERT INTO kernel_runs (
			id, mode, nodes, arcs, seed, iterations, refresh_interval, carry_state,
			pivots, degenerate_pivots, bound_pivots, final_cost, checksum,
			status, termination, cycles, cached, artificial_flow, infeasible,
			trace, tags, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22
		)`

	_, err := r.db.Exec(ctx, query,
		run.ID, run.Mode, run.Nodes, run.Arcs, int64(run.Seed),
		run.Iterations, run.RefreshInterval, run.CarryState,
		run.Pivots, run.DegeneratePivots, run.BoundPivots,
		run.FinalCost, int64(run.Checksum),
		run.Status, run.Termination, int64(run.Cycles), run.Cached,
		run.ArtificialFlow, run.Infeasible,
		nullJSON(run.Trace), pq.Array(run.Tags), run.CreatedAt,
	)
	if err != nil {
		telemetry.SetError(ctx, err)
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (r *PostgresRunRepository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Get",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendPostgres, "select")...))
	defer span.End()

	query := `
		SELECT ` + runColumns + `, trace
		FROM kernel_runs
		WHERE id = $1`

	var trace []byte
	run, err := scanRun(r.db.QueryRow(ctx, query, id), &trace)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		telemetry.SetError(ctx, err)
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Trace = trace

	return run, nil
}

func (r *PostgresRunRepository) List(ctx context.Context, opts *ListOptions) ([]*Run, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.List",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendPostgres, "select")...))
	defer span.End()

	opts = opts.normalize()
	where, args := buildWhereClause(opts.Filter)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM kernel_runs WHERE %s`, where)
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM kernel_runs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, runColumns, where, len(args)+1, len(args)+2)
	pageArgs := append(append([]any{}, args...), opts.Limit, opts.Offset)

	// total и страница читаются из одного снимка
	page, err := database.InTx(ctx, r.db, database.ReadSnapshot, func(tx pgx.Tx) (runPage, error) {
		var p runPage
		if err := tx.QueryRow(ctx, countQuery, args...).Scan(&p.total); err != nil {
			return p, fmt.Errorf("failed to count runs: %w", err)
		}

		rows, err := tx.Query(ctx, selectQuery, pageArgs...)
		if err != nil {
			return p, fmt.Errorf("failed to list runs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			run, err := scanRun(rows, nil)
			if err != nil {
				return p, fmt.Errorf("failed to scan run: %w", err)
			}
			p.runs = append(p.runs, run)
		}
		if err := rows.Err(); err != nil {
			return p, fmt.Errorf("rows iteration error: %w", err)
		}
		return p, nil
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, 0, err
	}

	return page.runs, page.total, nil
}

type runPage struct {
	runs  []*Run
	total int64
}

func (r *PostgresRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Delete",
		telemetry.WithAttributes(telemetry.StoreAttributes(BackendPostgres, "delete")...))
	defer span.End()

	result, err := r.db.Exec(ctx, `DELETE FROM kernel_runs WHERE id = $1`, id)
	if err != nil {
		telemetry.SetError(ctx, err)
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

const runColumns = `id, mode, nodes, arcs, seed, iterations, refresh_interval, carry_state,
			pivots, degenerate_pivots, bound_pivots, final_cost, checksum,
			status, termination, cycles, cached, artificial_flow, infeasible,
			tags, created_at`

// scanRun читает runColumns; trace != nil добавляет колонку trace
func scanRun(row pgx.Row, trace *[]byte) (*Run, error) {
	run := &Run{}
	var (
		seed, checksum, cycles int64
		tags                   pgtype.Array[string]
	)

	dest := []any{
		&run.ID, &run.Mode, &run.Nodes, &run.Arcs, &seed,
		&run.Iterations, &run.RefreshInterval, &run.CarryState,
		&run.Pivots, &run.DegeneratePivots, &run.BoundPivots,
		&run.FinalCost, &checksum,
		&run.Status, &run.Termination, &cycles, &run.Cached,
		&run.ArtificialFlow, &run.Infeasible,
		&tags, &run.CreatedAt,
	}
	if trace != nil {
		dest = append(dest, trace)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	run.Seed = uint32(seed)
	run.Checksum = uint32(checksum)
	run.Cycles = uint64(cycles)
	run.Tags = tags.Elements
	if run.Tags == nil {
		run.Tags = []string{}
	}
	return run, nil
}

func buildWhereClause(filter *ListFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any
	argNum := 1

	if filter != nil {
		if filter.Mode != "" {
			conditions = append(conditions, fmt.Sprintf("mode = $%d", argNum))
			args = append(args, filter.Mode)
			argNum++
		}

		if len(filter.Tags) > 0 {
			conditions = append(conditions, fmt.Sprintf("tags && $%d", argNum))
			args = append(args, pq.Array(filter.Tags))
		}
	}

	return strings.Join(conditions, " AND "), args
}

// nullJSON пустая трасса хранится как NULL
func nullJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return data
}
