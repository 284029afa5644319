package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", true)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Debug("debug message", zap.String("k", "v"))
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
}

func TestNewLoggerUnknownLevelFallsBack(t *testing.T) {
	logger, err := NewLogger("extremely-loud", false)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("discarded")
	logger.Error("discarded too")
}
