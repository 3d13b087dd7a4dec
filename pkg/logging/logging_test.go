/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logging_test.go
Description: Tests for the logger configuration, the custom formatter and log file
management.
*/

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerConfigValidate(t *testing.T) {
	cfg := DefaultLoggerConfig()
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Format = "xml"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Level = "loud"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.OutputDir = t.TempDir()
	bad.MaxFiles = 0
	assert.Error(t, bad.Validate())
}

func TestLogFileName(t *testing.T) {
	when := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	name, err := LogFileName("", when)
	require.NoError(t, err)
	assert.Equal(t, "irscope_2024-03-09_14-05-07.log", name)

	name, err = LogFileName("%Y%m%d", when)
	require.NoError(t, err)
	assert.Equal(t, "irscope_20240309.log", name)
}

func TestCustomFormatter(t *testing.T) {
	f := &CustomFormatter{}
	entry := &logrus.Entry{
		Level:   logrus.WarnLevel,
		Message: "no width given",
		Data: logrus.Fields{
			"component": "analyze",
			"strategy":  "Pwm",
			"run":       "0123456789abcdef",
			"params":    map[string]int64{"F": 56, "D": 12},
		},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "WARNING [ANALYZE] no width given params={D=12,F=56} run=01234567 strategy=Pwm\n", string(out))

	f.Colors = true
	out, err = f.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\033[33mWARNING\033[0m")
}

func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	l, err := NewLogger(&LoggerConfig{
		Level:     LogLevelDebug,
		Format:    LogFormatCustom,
		OutputDir: dir,
		MaxFiles:  5,
		Console:   &console,
	})
	require.NoError(t, err)
	require.NotEmpty(t, l.FilePath())

	l.LogDecode("session-id", "NEC1", map[string]int64{"D": 12, "S": 34, "F": 56}, 0, 68)
	l.LogWarning("analyze", "no width given for parameter A, using 32 bits")
	path := l.FilePath()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DECODE] Signal decoded")
	assert.Contains(t, string(data), "params={D=12,F=56,S=34}")
	assert.Contains(t, string(data), "no width given for parameter A")
	assert.Equal(t, string(data), console.String())
}

func TestLoggerConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Colors = false
	cfg.Timestamp = false
	cfg.Format = LogFormatJSON
	cfg.Console = &console
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.Empty(t, l.FilePath())

	l.LogAnalysis("run-id", 0, "Pwm", 15, "{38.4k,564,msb}<1,-1|1,-3>(16,-8,A:32,1,^108m)")
	require.NoError(t, l.Close())
	assert.Contains(t, console.String(), `"strategy":"Pwm"`)
	assert.Contains(t, console.String(), `"weight":15`)
}

func TestCleanupAndCompress(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		name, err := LogFileName("", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("line\n"), 0644))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	lm := NewLogManager(dir, 2, true)
	newest, err := LogFileName("", base.Add(3*time.Minute))
	require.NoError(t, err)
	require.NoError(t, lm.compressFile(filepath.Join(dir, newest)))
	require.NoError(t, lm.CleanupOldLogs())

	stats, err := lm.GetLogStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 1, stats.CompressedFiles)
	assert.Equal(t, 1, stats.UncompressedFiles)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), "irscope_"))
	}
}
