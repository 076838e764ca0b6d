package logger

import "gitlab.com/newsinsight.net/internal/adapter/logging"

// Logger is the process-wide logger used before the application graph is wired
var Logger = logging.NewZapLogger()

// Configure replaces the process-wide logger with one at the given level
func Configure(level string) {
	Logger = logging.NewZapLoggerWithLevel(level)
}

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}
