package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogrusLogger struct {
	*logrus.Entry
}

// Logger is the process-wide logger, replaced by InitLogger once the CLI has
// parsed the log flags. The default writes to the console at info level.
var Logger = NewConsoleLogger(false, logrus.InfoLevel)

func (l *LogrusLogger) With(fields map[string]interface{}) *LogrusLogger {
	entry := l.WithFields(fields)
	return &LogrusLogger{entry}
}

func InitLogger(logPath string, logLevel string) error {
	level, err := getLogLevel(logLevel)
	if err != nil {
		return err
	}

	if logPath != "" {
		Logger = NewFileLogger(logPath, true, level)
	} else {
		Logger = NewConsoleLogger(false, level)
	}

	return nil
}

func NewConsoleLogger(formatJSON bool, level logrus.Level) *LogrusLogger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(newFormatter(formatJSON))

	entry := logrus.NewEntry(logger)
	return &LogrusLogger{entry}
}

func NewFileLogger(path string, formatJSON bool, level logrus.Level) *LogrusLogger {
	logger := logrus.New()
	logger.SetLevel(level)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644); err != nil {
			logger.Errorf("Failed to open log file: %s", err)
		} else {
			file.Close()
		}
	}

	logger.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     3,
	})
	logger.SetFormatter(newFormatter(formatJSON))

	entry := logrus.NewEntry(logger)
	return &LogrusLogger{entry}
}

func newFormatter(formatJSON bool) logrus.Formatter {
	if formatJSON {
		return &logrus.JSONFormatter{}
	}

	formatter := &prefixed.TextFormatter{
		ForceColors:     true,
		ForceFormatting: true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.00",
	}
	formatter.SetColorScheme(&prefixed.ColorScheme{
		TimestampStyle:  "cyan",
		PrefixStyle:     "blue",
		DebugLevelStyle: "magenta",
	})
	return formatter
}

func getLogLevel(level string) (logrus.Level, error) {
	switch level {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.DebugLevel, fmt.Errorf("invalid log level: level=%s", level)
	}
}
