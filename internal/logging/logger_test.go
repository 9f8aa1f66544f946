package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDevelopment(t *testing.T) {
	logger, err := New(true, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("dev logger works")
}

func TestNewProductionWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := New(false, path)
	require.NoError(t, err)
	logger.Info("file sink works")
	require.NoError(t, logger.Sync())
}
