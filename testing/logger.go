package testing

import (
	"testing"

	"github.com/arloliu/atomenv/types"
)

// NewTestLogger returns a logger that writes through t.Logf.
//
// Fatal fails the test instead of exiting the process.
func NewTestLogger(t testing.TB) types.Logger {
	return &testLogger{t: t}
}

type testLogger struct {
	t testing.TB
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.log("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.log("INFO", msg, keysAndValues) }
func (l *testLogger) Warn(msg string, keysAndValues ...any)  { l.log("WARN", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.log("ERROR", msg, keysAndValues) }

func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Helper()
	l.t.Fatalf("FATAL: %s %v", msg, keysAndValues)
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.t.Helper()
	l.t.Logf("%s: %s %v", level, msg, keysAndValues)
}

// WarnRecorder is a logger that keeps every Warn message for assertions.
//
// All other levels are discarded.
type WarnRecorder struct {
	Warnings []string
}

var _ types.Logger = (*WarnRecorder)(nil)

func (r *WarnRecorder) Debug(string, ...any) {}
func (r *WarnRecorder) Info(string, ...any)  {}
func (r *WarnRecorder) Error(string, ...any) {}
func (r *WarnRecorder) Fatal(string, ...any) {}

// Warn records msg.
func (r *WarnRecorder) Warn(msg string, _ ...any) {
	r.Warnings = append(r.Warnings, msg)
}
