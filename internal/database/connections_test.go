package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
)

func sqliteConfig() config.Database {
	return config.Database{
		Driver:       "sqlite",
		WriterDSN:    "file:connections_test?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	assert.Equal(t, "file:x.db?_foreign_keys=1", sqliteDSN("file:x.db"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=1", sqliteDSN("file:x?mode=memory"))
	assert.Equal(t, "file:x?_fk=0", sqliteDSN("file:x?_fk=0"))
}

func TestOpenSharesPoolWithoutReplica(t *testing.T) {
	conns, err := Open(sqliteConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conns.Close() })

	assert.Same(t, conns.Writer, conns.Reader)
	require.NoError(t, conns.Ping(context.Background()))

	var fk int
	require.NoError(t, conns.Writer.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.Database{Driver: "oracle", WriterDSN: "x"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Open(config.Database{Driver: "sqlite"}, zap.NewNop())
	assert.ErrorContains(t, err, "empty DSN")
}

func TestNewPingsOnStart(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	_, err := New(lc, config.Config{Database: sqliteConfig()}, zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart().RequireStop()
}

func TestSlowQueryHookLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := sqliteConfig()
	cfg.WriterDSN = "file:slow_query_test?mode=memory&cache=shared"
	cfg.SlowQuery = time.Nanosecond

	conns, err := Open(cfg, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conns.Close() })

	_, err = conns.Writer.NewRaw("SELECT 1").Exec(context.Background())
	require.NoError(t, err)
	_, _ = conns.Writer.NewRaw("SELECT * FROM missing_table").Exec(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("slow query").Len())
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
}
