package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	// Reinitialize logger with test output
	logger = nil
	InitLogger(level, format)

	fn()

	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:  "info log",
			level: "info",
			logFn: func() {
				Info("starting downloads")
			},
			contains: []string{"starting downloads"},
		},
		{
			name:  "debug log with debug level",
			level: "debug",
			logFn: func() {
				Debug("probing size")
			},
			contains: []string{"probing size", "level=DEBUG"},
		},
		{
			name:  "debug log with info level",
			level: "info",
			logFn: func() {
				Debug("probing size")
			},
			excludes: []string{"probing size"},
		},
		{
			name:  "warn log with fields",
			level: "warn",
			logFn: func() {
				Warn("duplicate map", Fields{"map": "dm_lockdown", "roots": 2})
			},
			contains: []string{"duplicate map", "level=WARN", "map=dm_lockdown", "roots=2"},
		},
		{
			name:  "success log",
			level: "info",
			logFn: func() {
				Success("sync finished")
			},
			contains: []string{"sync finished", "status=success"},
		},
		{
			name:  "formatted info log",
			level: "info",
			logFn: func() {
				Infof("found %d maps", 42)
			},
			contains: []string{"found 42 maps"},
		},
		{
			name:  "formatted debug with fields",
			level: "debug",
			logFn: func() {
				DebugfWithFields(Fields{"root": "main"}, "listing page %d", 1)
			},
			contains: []string{"listing page 1", "root=main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.level, FormatText, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, output, want, "log output should contain expected message")
			}
			for _, notWant := range tt.excludes {
				assert.NotContains(t, output, notWant, "log output should not contain excluded message")
			}
		})
	}
}

func TestGetLogger_InitializesIfNil(t *testing.T) {
	logger = nil
	assert.NotPanics(t, func() {
		lg := GetLogger()
		assert.NotNil(t, lg)
		lg.Info("test message")
	})
}

func TestSetOutputFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	logger = nil
	InitLogger("debug", FormatText)
	Info("first message")
	assert.Contains(t, buf.String(), "first message")
	assert.Contains(t, buf.String(), "INFO")

	buf.Reset()
	SetOutputFormat(FormatJSON)
	Info("second message")
	assert.Contains(t, buf.String(), `"msg":"second message"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}
