package logger

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zapcore"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
)

func TestBuildHonoursLevel(t *testing.T) {
	logger, err := Build(config.Observability{LogLevel: "warn", LogEncoding: "json", ServiceName: "restaurant-api"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestBuildFallsBackToInfo(t *testing.T) {
	logger, err := Build(config.Observability{LogLevel: "chatty", LogEncoding: "console"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewRegistersSyncHook(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	logger, err := New(lc, config.Config{Observability: config.Observability{LogLevel: "debug", LogEncoding: "json"}})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	lc.RequireStart().RequireStop()
}

func TestIgnoreSyncError(t *testing.T) {
	assert.NoError(t, ignoreSyncError(nil))
	assert.NoError(t, ignoreSyncError(fmt.Errorf("sync /dev/stderr: %w", syscall.EINVAL)))
	assert.Error(t, ignoreSyncError(fmt.Errorf("disk gone")))
}
