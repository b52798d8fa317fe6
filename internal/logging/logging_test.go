package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != InfoLevel {
		t.Errorf("expected Level to be InfoLevel, got %v", cfg.Level)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected Output to be os.Stderr")
	}
	if cfg.Pretty {
		t.Errorf("expected Pretty to be false")
	}
	if cfg.TimeFormat != time.RFC3339 {
		t.Errorf("expected TimeFormat to be RFC3339, got %s", cfg.TimeFormat)
	}
	if cfg.LogToFile {
		t.Errorf("expected LogToFile to be false")
	}
	if cfg.LogDir != "/tmp" {
		t.Errorf("expected LogDir to be /tmp, got %s", cfg.LogDir)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"  debug  ", DebugLevel},
		{"INFO", InfoLevel},
		{"info", InfoLevel},
		{"WARN", WarnLevel},
		{"WARNING", WarnLevel},
		{"ERROR", ErrorLevel},
		{"error", ErrorLevel},
		{"FATAL", FatalLevel},
		{"fatal", FatalLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInitWritesMessagesAtOrAboveConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, Output: &buf})

	Debug().Msg("debug message")
	Info().Msg("info message")
	Warn().Msg("warn message")
	Error().Msg("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("expected messages below Warn to be filtered, got %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("expected Warn and Error messages to appear, got %s", output)
	}
}

func TestInitPrettyOutputStillCarriesMessage(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf, Pretty: true})

	Info().Msg("pretty test")

	if output := buf.String(); !strings.Contains(output, "pretty test") {
		t.Errorf("expected output to contain 'pretty test', got %s", output)
	}
}

func TestInitWithNilOutputDefaultsToStderrWithoutPanic(t *testing.T) {
	Init(Config{Level: InfoLevel, Output: nil})
}

func TestInitWithEmptyTimeFormatDefaultsToRFC3339(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf, TimeFormat: ""})

	Info().Msg("time format test")

	if output := buf.String(); !strings.Contains(output, "time format test") {
		t.Errorf("expected output to contain message, got %s", output)
	}
}

func TestLogToFileWritesTimestampedFileUnderLogDir(t *testing.T) {
	tempDir := t.TempDir()
	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: true, LogDir: tempDir})
	defer Close()

	Info().Msg("file log test")

	logPath := GetLogFilePath()
	if logPath == "" {
		t.Fatal("expected log file path to be set")
	}
	if !strings.HasPrefix(logPath, tempDir) {
		t.Errorf("log file path %s should be in %s", logPath, tempDir)
	}
	fileName := filepath.Base(logPath)
	if !strings.HasPrefix(fileName, "mcp-lsp-") || !strings.HasSuffix(fileName, ".log") {
		t.Errorf("unexpected log file name: %s", fileName)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "file log test") {
		t.Errorf("log file should contain 'file log test', got: %s", string(content))
	}
}

func TestLogToFileDefaultsLogDirToTmp(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf, LogToFile: true, LogDir: ""})
	defer Close()

	if logPath := GetLogFilePath(); logPath != "" && !strings.HasPrefix(logPath, "/tmp") {
		t.Errorf("expected log path to start with /tmp, got %s", logPath)
	}
}

func TestCloseClearsLogFilePath(t *testing.T) {
	tempDir := t.TempDir()
	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: true, LogDir: tempDir})

	if GetLogFilePath() == "" {
		t.Fatal("expected log file path before close")
	}

	Close()

	if GetLogFilePath() != "" {
		t.Error("expected empty log file path after close")
	}
}

func TestGetLogFilePathWhenNotLoggingToFile(t *testing.T) {
	Close()
	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: false})

	if GetLogFilePath() != "" {
		t.Error("expected empty log file path when not logging to file")
	}
}

func TestReinitOpensNewLogFileAndKeepsPrevious(t *testing.T) {
	tempDir := t.TempDir()

	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: true, LogDir: tempDir})
	firstLogPath := GetLogFilePath()

	time.Sleep(time.Second)

	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: true, LogDir: tempDir})
	defer Close()
	secondLogPath := GetLogFilePath()

	if firstLogPath == secondLogPath {
		t.Error("expected different log paths on reinit")
	}
	if _, err := os.Stat(firstLogPath); os.IsNotExist(err) {
		t.Errorf("first log file should still exist: %s", firstLogPath)
	}
	if _, err := os.Stat(secondLogPath); os.IsNotExist(err) {
		t.Errorf("second log file should exist: %s", secondLogPath)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	With().Str("component", "test").Logger().Info().Msg("with context")

	output := buf.String()
	if !strings.Contains(output, `"component":"test"`) {
		t.Errorf("expected output to contain component field, got %s", output)
	}
}

func TestWithLanguageAttachesLanguageIDField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	WithLanguage("python").Warn().Msg("file open failed")

	output := buf.String()
	if !strings.Contains(output, `"language_id":"python"`) {
		t.Errorf("expected output to contain language_id field, got %s", output)
	}
	if !strings.Contains(output, "file open failed") {
		t.Errorf("expected output to contain message, got %s", output)
	}
}

func TestWithLanguageIsIndependentPerCall(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	WithLanguage("go").Info().Msg("go event")
	WithLanguage("rust").Info().Msg("rust event")

	output := buf.String()
	if !strings.Contains(output, `"language_id":"go"`) || !strings.Contains(output, `"language_id":"rust"`) {
		t.Errorf("expected both language_id values present, got %s", output)
	}
}

func TestLogWithFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	Info().
		Str("key", "value").
		Int("count", 42).
		Bool("enabled", true).
		Msg("message with fields")

	output := buf.String()
	for _, want := range []string{`"key":"value"`, `"count":42`, `"enabled":true`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got %s", want, output)
		}
	}
}

func TestErrorLevelIncludesErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	Error().Err(os.ErrNotExist).Msg("error test")

	output := buf.String()
	if !strings.Contains(output, "error test") {
		t.Errorf("expected error message in output, got %s", output)
	}
	if !strings.Contains(output, "file does not exist") {
		t.Errorf("expected error details in output, got %s", output)
	}
}
