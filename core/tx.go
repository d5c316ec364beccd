package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tx is an open transaction handed to the Transaction callback. Queries
// built from it run on the transaction's connection.
type Tx struct {
	db    *DB
	sqlTx *sql.Tx
}

func (tx *Tx) Model(value any) *Query {
	return tx.db.newQuery(tx).Model(value)
}

func (tx *Tx) Table(name string) *Query {
	return tx.db.newQuery(tx).Table(name)
}

// Exec runs a raw statement inside the transaction. Placeholders are
// rebound like DB.Exec.
func (tx *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = Rebind(tx.db.dialect, query)
	start := time.Now()
	res, err := tx.sqlTx.ExecContext(ctx, query, args...)
	tx.db.logSQL(query, time.Since(start), args...)
	return res, tx.db.translate(err)
}

func (tx *Tx) commit() error {
	start := time.Now()
	err := tx.sqlTx.Commit()
	tx.db.logSQL("COMMIT", time.Since(start))
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (tx *Tx) rollback() {
	_ = tx.sqlTx.Rollback()
	tx.db.logSQL("ROLLBACK", 0)
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return tx.sqlTx.QueryContext(ctx, query, args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.sqlTx.QueryRowContext(ctx, query, args...)
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.sqlTx.ExecContext(ctx, query, args...)
}
