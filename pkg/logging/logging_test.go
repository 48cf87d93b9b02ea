package logging

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	ctrl "sigs.k8s.io/controller-runtime"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"ERROR", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, test := range tests {
		got, err := ParseLevel(test.in)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", test.in, err, test.wantErr)
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", test.in, got, test.want)
		}
	}
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	if defaultLogger == nil {
		t.Error("Expected defaultLogger to be set after InitForCLI")
	}

	Info("test-subsystem", "test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Expected log message to appear in CLI output")
	}

	if !strings.Contains(output, "test-subsystem") {
		t.Error("Expected subsystem to appear in CLI output")
	}
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at INFO level")
	}

	if !strings.Contains(output, "info message") {
		t.Error("Info message should appear at INFO level")
	}
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("runner", errors.New("exec: not found"), "failed to start %s", "kubectl")

	output := buf.String()
	if !strings.Contains(output, "failed to start kubectl") {
		t.Errorf("Expected formatted message in output, got %q", output)
	}
	if !strings.Contains(output, "exec: not found") {
		t.Errorf("Expected error attribute in output, got %q", output)
	}
}

func TestHooksReceiveEntries(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	var got []LogEntry
	remove := AddHook(func(e LogEntry) { got = append(got, e) })

	Info("steps", "step %s passed", "install")
	Debug("steps", "filtered")
	remove()
	Info("steps", "after removal")

	if len(got) != 1 {
		t.Fatalf("Expected 1 hooked entry, got %d", len(got))
	}
	if got[0].Subsystem != "steps" || got[0].Message != "step install passed" {
		t.Errorf("Unexpected entry: %+v", got[0])
	}
}

func TestRemoveHookKeepsOthers(t *testing.T) {
	InitForCLI(LevelInfo, io.Discard)

	var first, second int
	removeFirst := AddHook(func(LogEntry) { first++ })
	removeSecond := AddHook(func(LogEntry) { second++ })
	defer removeSecond()

	Info("steps", "both")
	removeFirst()
	removeFirst()
	Info("steps", "second only")

	if first != 1 || second != 2 {
		t.Errorf("Expected first=1 second=2, got first=%d second=%d", first, second)
	}
}

// Run with -race: hooks are added and removed while other goroutines log.
func TestHooksConcurrentAddRemove(t *testing.T) {
	InitForCLI(LevelInfo, io.Discard)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		afterRemoval := fmt.Sprintf("after removal %d", i)
		var lateCalls atomic.Int32
		remove := AddHook(func(e LogEntry) {
			if e.Message == afterRemoval {
				lateCalls.Add(1)
			}
		})
		go func() {
			defer wg.Done()
			Info("runner", "scenario %d", i)
		}()
		go func() {
			defer wg.Done()
			remove()
			Info("runner", "%s", afterRemoval)
			if n := lateCalls.Load(); n > 0 {
				t.Errorf("Removed hook saw %q", afterRemoval)
			}
		}()
	}
	wg.Wait()
}

func TestControllerRuntimeLoggerInitialization(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	logger := ctrl.Log
	if logger.GetSink() == nil {
		t.Error("Expected controller-runtime logger sink to be initialized")
	}

	// Must not panic or warn about an unset logger.
	logger.Info("test message from controller-runtime logger", "key", "value")
}
