package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options configures the connection pool and lock behaviour.
type Options struct {
	User, Pass, Host, Port, Name string
	MaxOpenConns                 int
	// LockWaitTimeout is applied as innodb_lock_wait_timeout on every
	// connection; a row lock not granted in time fails with MySQL error
	// 1205.  Rounded up to whole seconds.
	LockWaitTimeout time.Duration
}

// DSN builds the driver connection string for opts.
func DSN(opts Options) string {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Pass
	cfg.Net = "tcp"
	cfg.Addr = opts.Host + ":" + opts.Port
	cfg.DBName = opts.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if opts.LockWaitTimeout > 0 {
		secs := int((opts.LockWaitTimeout + time.Second - 1) / time.Second)
		cfg.Params["innodb_lock_wait_timeout"] = fmt.Sprint(secs)
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(opts Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(opts))
	if err != nil {
		return nil, err
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Second)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
