// Package logging provides the categorized zap logger shared by every
// subsystem. Before Initialize is called every category resolves to a
// no-op logger, so library code can log unconditionally.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem. Each category logs through a named child
// of the root logger.
type Category string

const (
	CategoryCLI     Category = "cli"
	CategoryScan    Category = "scan"
	CategoryParse   Category = "parse"
	CategoryResolve Category = "resolve"
	CategoryRules   Category = "rules"
	CategoryReport  Category = "report"
	CategoryWatch   Category = "watch"
	CategoryHistory Category = "history"
)

// Options controls how the root logger is built.
type Options struct {
	// Debug lowers the console level from warn to debug.
	Debug bool
	// Writer overrides the console sink, used by tests. Defaults to stderr.
	Writer zapcore.WriteSyncer
}

var (
	mu   sync.RWMutex
	root = zap.NewNop()
	file *os.File
)

// Initialize builds the root logger. The console sink stays quiet at
// warn level unless debug is requested; human-facing output never goes
// through the logger.
func Initialize(opts Options) error {
	level := zapcore.WarnLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	sink := opts.Writer
	if sink == nil {
		sink = zapcore.Lock(os.Stderr)
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, level)

	mu.Lock()
	root = zap.New(core)
	mu.Unlock()
	return nil
}

// AddFileSink tees a JSON debug log into dir, one file per day. Used
// when the config enables debug logging for a workspace.
func AddFileSink(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("%s_fsdlint.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(f),
		zapcore.DebugLevel,
	)

	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = f
	root = root.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))
	mu.Unlock()
	return nil
}

// L returns the logger for a category.
func L(cat Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(cat))
}

// Sync flushes buffered log entries. Call once at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// SetForTesting swaps in a caller-supplied logger and returns a restore
// function.
func SetForTesting(l *zap.Logger) func() {
	mu.Lock()
	prev := root
	root = l
	mu.Unlock()
	return func() {
		mu.Lock()
		root = prev
		mu.Unlock()
	}
}

// Timer measures an operation and logs its duration at debug level.
type Timer struct {
	cat   Category
	op    string
	start time.Time
}

// StartTimer begins timing an operation.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{cat: cat, op: op, start: time.Now()}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	L(t.cat).Debug(t.op, zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning instead when the operation exceeded
// the threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		L(t.cat).Warn(t.op+" was slow", zap.Duration("elapsed", elapsed), zap.Duration("threshold", threshold))
	} else {
		L(t.cat).Debug(t.op, zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
