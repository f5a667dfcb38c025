package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelAndFormat(t *testing.T) {
	l, err := New(Config{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
	assert.Equal(t, os.Stderr, l.Out)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestNew_FileOutputRotates(t *testing.T) {
	// GIVEN: file output into a temp directory
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	// WHEN: writing a line
	l, err := New(Config{Level: "info", Output: "file", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	l.Info("hello")

	// THEN: the file exists with the message
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Output: "file"})
	assert.Error(t, err)

	_, err = New(Config{Output: "syslog"})
	assert.Error(t, err)
}

func TestGet_DefaultsAndInit(t *testing.T) {
	assert.NotNil(t, Get())

	l, err := Init(Config{Level: "warn"})
	require.NoError(t, err)
	assert.Same(t, l, Get())
	assert.Equal(t, logrus.WarnLevel, Get().GetLevel())
}

func TestWithFields_UsesInstalledLogger(t *testing.T) {
	// GIVEN: A JSON logger installed as the process logger
	l, err := Init(Config{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	var buf bytes.Buffer
	l.SetOutput(&buf)

	// WHEN: Logging through the package helper
	WithFields(logrus.Fields{"port": 8080}).Info("server starting")

	// THEN: The entry lands on that logger with its fields
	assert.Contains(t, buf.String(), `"port":8080`)
	assert.Contains(t, buf.String(), `"msg":"server starting"`)
}
