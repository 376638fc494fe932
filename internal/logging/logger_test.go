package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
)

func TestNew_ConsoleTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(cfgpkg.LoggingConfig{Level: "info", Format: "console", TimeLayout: "2006-01-02 15:04:05"}, &buf)
	require.NoError(t, err)

	logger.Info("Set brightness to 128", zap.Int("output", 1))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	line := buf.String()
	assert.Contains(t, line, "Set brightness to 128")
	assert.NotContains(t, line, "hidden")
	// 2006-01-02 15:04:05 形式的时间前缀
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\t`, line)
}

func TestNew_JSONLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(cfgpkg.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("frame", zap.String("hex", "55aa"))
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"hex":"55aa"`)
}

func TestNew_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(cfgpkg.LoggingConfig{Level: "verbose"}, &buf)
	require.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), `"verbose"`)
}

func TestNew_EmptyLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(cfgpkg.LoggingConfig{}, &buf)
	require.NoError(t, err)

	logger.Debug("debug line")
	logger.Info("info line")
	require.NoError(t, logger.Sync())

	assert.False(t, strings.Contains(buf.String(), "debug line"))
	assert.True(t, strings.Contains(buf.String(), "info line"))
}

func TestNew_FileRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.log")
	var buf bytes.Buffer
	logger, err := New(cfgpkg.LoggingConfig{
		Level:  "info",
		Format: "json",
		File:   cfgpkg.LumberjackConfig{Filename: path, MaxSizeMB: 1},
	}, &buf)
	require.NoError(t, err)

	logger.Info("written to both")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to both")
	assert.Contains(t, buf.String(), "written to both")
}
