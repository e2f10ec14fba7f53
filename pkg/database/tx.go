package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReadSnapshot читает все запросы транзакции из одного снимка без права записи.
// COUNT и страница истории прогонов в нём согласованы при параллельных Save.
var ReadSnapshot = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// InTx выполняет fn в транзакции с опциями opts и возвращает её результат.
// При ошибке fn результат отбрасывается. Откат идёт под ctx без отмены,
// чтобы истёкший дедлайн запроса не оставлял транзакцию на соединении пула.
func InTx[T any](ctx context.Context, db DB, opts pgx.TxOptions, fn func(tx pgx.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return zero, fmt.Errorf("failed to begin %s transaction: %w", txKind(opts), err)
	}
	rollback := func() error { return tx.Rollback(context.WithoutCancel(ctx)) }

	defer func() {
		if p := recover(); p != nil {
			_ = rollback() //nolint:errcheck // best effort on panic
			panic(p)
		}
	}()

	result, err := fn(tx)
	if err != nil {
		if rbErr := rollback(); rbErr != nil {
			return zero, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("failed to commit %s transaction: %w", txKind(opts), err)
	}

	return result, nil
}

func txKind(opts pgx.TxOptions) string {
	if opts.AccessMode == pgx.ReadOnly {
		return "read-only"
	}
	return "read-write"
}
