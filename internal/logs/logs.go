package logs

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

// EnvVar selects the development logger when set to "test".
const EnvVar = "SERIALMON_ENV"

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

func init() {
	logger = mustBuild(IsTest())
}

// IsTest reports whether EnvVar selects the test environment.
func IsTest() bool {
	return os.Getenv(EnvVar) == "test"
}

func mustBuild(debug bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	option := zap.AddCaller()
	if debug {
		l, err = zap.NewDevelopment(option)
	} else {
		l, err = zap.NewProduction(option)
	}
	if err != nil {
		panic(err)
	}
	return l
}

// SetDebug swaps the process logger for a development one that prints
// debug records.
func SetDebug() {
	l := mustBuild(true)
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Named returns the process logger tagged with a component field.
func Named(component string) *zap.Logger {
	return current().With(zap.String("component", component))
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs at debug level on the process logger.
func Debug(msg string, fields ...zap.Field) {
	current().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs at info level on the process logger.
func Info(msg string, fields ...zap.Field) {
	current().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs at warn level on the process logger.
func Warn(msg string, fields ...zap.Field) {
	current().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs at error level on the process logger.
func Error(msg string, fields ...zap.Field) {
	current().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Fatal logs and exits the process.
func Fatal(msg string, fields ...zap.Field) {
	current().WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
}

// Sync flushes buffered records. Errors from syncing a terminal are
// expected and dropped.
func Sync() {
	_ = current().Sync()
}
