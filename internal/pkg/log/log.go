package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

type ctxKey struct{}

var (
	debugEnabled atomic.Bool
	out          io.Writer = os.Stdout

	infoBadge  = color.New(color.FgWhite, color.BgGreen).SprintFunc()
	warnBadge  = color.New(color.FgWhite, color.BgYellow).SprintFunc()
	errorBadge = color.New(color.FgRed).SprintFunc()
	debugBadge = color.New(color.FgCyan).SprintFunc()
)

// SetDebug toggles Debug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetOutput redirects all log output. A nil writer restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// WithRequestID adds request ID to context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID retrieves request ID from context
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

func formatLog(level string, requestID string, format string, a ...interface{}) string {
	msg := fmt.Sprintf(format, a...)
	if requestID != "" {
		return fmt.Sprintf("[%s] [req_id=%s] %s", level, requestID, msg)
	}
	return fmt.Sprintf("[%s] %s", level, msg)
}

func emit(badge string, line string) {
	fmt.Fprintf(out, "%s %s\n", badge, line)
}

// Debug logs only when debug output is enabled
func Debug(format string, a ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	emit(debugBadge("[DEBUG]"), fmt.Sprintf(format, a...))
}

// Info log information
func Info(format string, a ...interface{}) {
	emit(infoBadge("[INFO] "), fmt.Sprintf(format, a...))
}

// InfoWithContext logs information with context (includes request ID if available)
func InfoWithContext(ctx context.Context, format string, a ...interface{}) {
	emit(infoBadge("[INFO] "), formatLog("INFO", RequestID(ctx), format, a...))
}

// Warn log warning
func Warn(format string, a ...interface{}) {
	emit(warnBadge("[WARN] "), fmt.Sprintf(format, a...))
}

// WarnWithContext logs warning with context (includes request ID if available)
func WarnWithContext(ctx context.Context, format string, a ...interface{}) {
	emit(warnBadge("[WARN] "), formatLog("WARN", RequestID(ctx), format, a...))
}

// Error log error
func Error(format string, a ...interface{}) {
	emit(errorBadge("[Error]"), fmt.Sprintf(format, a...))
}

// ErrorWithContext logs error with context (includes request ID if available)
func ErrorWithContext(ctx context.Context, format string, a ...interface{}) {
	emit(errorBadge("[Error]"), formatLog("ERROR", RequestID(ctx), format, a...))
}

// DebugStruct dumps values when debug output is enabled.
func DebugStruct(a ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	emit(debugBadge("[DEBUG]"), spew.Sdump(a...))
}
