package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(Options{
		User: "app", Pass: "s3cret", Host: "db", Port: "3306", Name: "ticketboss",
		LockWaitTimeout: 2500 * time.Millisecond,
	})

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "app", cfg.User)
	require.Equal(t, "s3cret", cfg.Passwd)
	require.Equal(t, "db:3306", cfg.Addr)
	require.Equal(t, "ticketboss", cfg.DBName)
	require.True(t, cfg.ParseTime)
	require.Equal(t, time.UTC, cfg.Loc)
	require.Equal(t, "3", cfg.Params["innodb_lock_wait_timeout"])
}

func TestDSNWithoutLockWaitTimeout(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN(Options{User: "app", Host: "localhost", Port: "3306", Name: "x"}))
	require.NoError(t, err)
	_, ok := cfg.Params["innodb_lock_wait_timeout"]
	require.False(t, ok)
}
