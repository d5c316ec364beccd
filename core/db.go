package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mundobebe/backoffice/dialect"
	"github.com/mundobebe/backoffice/logger"
	"github.com/mundobebe/backoffice/model"
	"github.com/mundobebe/backoffice/pool"
)

// Options defines the configuration for the DB connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          logger.Logger
}

// DB manages the connection pool and creates queries.
type DB struct {
	pool        pool.Pool
	dialect     dialect.Dialect
	logger      logger.Logger
	middlewares []QueryMiddleware
}

// Open initializes a new DB instance with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %s", driver)
	}

	l := logger.NewStdLogger()
	var cfg pool.Config
	if opts != nil {
		cfg = pool.Config{
			MaxOpenConns:    opts.MaxOpenConns,
			MaxIdleConns:    opts.MaxIdleConns,
			ConnMaxLifetime: opts.ConnMaxLifetime,
		}
		if opts.Logger != nil {
			l = opts.Logger
		}
	}

	p, err := pool.Open(driver, dsn, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &DB{
		pool:    p,
		dialect: d,
		logger:  l,
	}, nil
}

// Stats reports the connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.pool.Stats()
}

// Close shuts down middlewares and closes the database connection.
func (db *DB) Close() error {
	for _, mw := range db.middlewares {
		if err := mw.Shutdown(); err != nil {
			db.logger.Warn("shutdown %s: %v", mw.Name(), err)
		}
	}
	return db.pool.Close()
}

// Use registers query middlewares. They run in registration order, the
// first one outermost.
func (db *DB) Use(mws ...QueryMiddleware) error {
	for _, mw := range mws {
		if err := mw.Init(db); err != nil {
			return fmt.Errorf("init middleware %s: %w", mw.Name(), err)
		}
		db.middlewares = append(db.middlewares, mw)
	}
	return nil
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	db.logger = l
}

// Logger returns the DB logger.
func (db *DB) Logger() logger.Logger {
	return db.logger
}

// Dialect returns the dialect the DB was opened with.
func (db *DB) Dialect() dialect.Dialect {
	return db.dialect
}

func (db *DB) newQuery(exec Executor) *Query {
	return NewQuery(db, exec, NewBuilder(db.dialect))
}

// Model starts a new query builder for the given model instance.
func (db *DB) Model(value any) *Query {
	return db.newQuery(db.pool).Model(value)
}

// Table starts a new query builder for the given table name.
func (db *DB) Table(name string) *Query {
	return db.newQuery(db.pool).Table(name)
}

func (db *DB) logSQL(sql string, duration time.Duration, args ...any) {
	if db.logger != nil {
		db.logger.SQL(sql, duration, args...)
	}
}

// Exec executes a raw SQL statement without returning any rows. "?"
// placeholders are rebound for the dialect.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (sql.Result, error) {
	sql = Rebind(db.dialect, sql)
	start := time.Now()
	res, err := db.pool.ExecContext(ctx, sql, args...)
	db.logSQL(sql, time.Since(start), args...)
	return res, db.translate(err)
}

// Transaction executes fn within a database transaction. The transaction is
// rolled back when fn returns an error or panics.
func (db *DB) Transaction(ctx context.Context, fn func(tx *Tx) error) (err error) {
	start := time.Now()
	sqlTx, err := db.pool.BeginTx(ctx, nil)
	db.logSQL("BEGIN", time.Since(start))
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tx := &Tx{db: db, sqlTx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
			return
		}
		err = tx.commit()
	}()

	return fn(tx)
}

// AutoMigrate creates the table for each model if it doesn't exist.
func (db *DB) AutoMigrate(ctx context.Context, values ...any) error {
	for _, value := range values {
		m, err := model.GetModel(value)
		if err != nil {
			return err
		}

		sqlStr, args := db.dialect.HasTableSQL(m.TableName)
		sqlStr = Rebind(db.dialect, sqlStr)
		var count int
		if err := db.pool.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
			return fmt.Errorf("check table %s: %w", m.TableName, err)
		}
		if count > 0 {
			continue
		}

		createSQL, createArgs := db.dialect.CreateTableSQL(m)
		start := time.Now()
		_, err = db.pool.ExecContext(ctx, createSQL, createArgs...)
		db.logSQL(createSQL, time.Since(start), createArgs...)
		if err != nil {
			return fmt.Errorf("create table %s: %w", m.TableName, err)
		}
	}
	return nil
}

// translate maps driver constraint errors onto the package sentinels.
func (db *DB) translate(err error) error {
	if err == nil {
		return nil
	}
	if db.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return err
}
