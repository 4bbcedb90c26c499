package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		logDebug  bool
		checkFunc func(t *testing.T, output string)
	}{
		{
			name:   "text logger at info level",
			config: Config{Level: "info", Format: "text", Output: "stdout"},
			checkFunc: func(t *testing.T, output string) {
				if !strings.Contains(output, "level=INFO") || !strings.Contains(output, `msg="test message"`) {
					t.Errorf("expected text log output with info level and message, got: %s", output)
				}
			},
		},
		{
			name:     "json logger at debug level",
			config:   Config{Level: "debug", Format: "json", Output: "stdout"},
			logDebug: true,
			checkFunc: func(t *testing.T, output string) {
				var entry map[string]interface{}
				if err := json.Unmarshal([]byte(output), &entry); err != nil {
					t.Fatalf("failed to unmarshal JSON log: %v, output: %s", err, output)
				}
				if entry["level"] != "DEBUG" || entry["msg"] != "test message" {
					t.Errorf("expected JSON log output with debug level and message, got: %v", entry)
				}
			},
		},
		{
			name:     "debug suppressed at info level",
			config:   Config{Level: "info", Format: "text", Output: "stdout"},
			logDebug: true,
			checkFunc: func(t *testing.T, output string) {
				if output != "" {
					t.Errorf("expected no output for debug record at info level, got: %s", output)
				}
			},
		},
		{
			name:   "unparseable level falls back to info",
			config: Config{Level: "shouty", Format: "text", Output: "stdout"},
			checkFunc: func(t *testing.T, output string) {
				if !strings.Contains(output, "level=INFO") {
					t.Errorf("expected info-level output, got: %s", output)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.config, &buf)

			if tt.logDebug {
				logger.Debug("test message")
			} else {
				logger.Info("test message")
			}

			tt.checkFunc(t, buf.String())
		})
	}
}
