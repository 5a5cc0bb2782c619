package logging

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender will create human readable lines from log events and write them to the desired
// output sync. E.g: stdout or a file.
type ConsoleAppender struct {
	io.Writer
	encoder zapcore.Encoder
}

func newEncoderConfig(colored bool) zapcore.EncoderConfig {
	encodeLevel := zapcore.CapitalLevelEncoder
	if colored {
		encodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      encodeLevel,
		EncodeTime:       zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: "\t",
	}
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() ConsoleAppender {
	return NewWriterAppender(os.Stdout, true)
}

// NewWriterAppender creates a new appender that outputs human readable lines to the given writer.
func NewWriterAppender(writer io.Writer, colored bool) ConsoleAppender {
	return ConsoleAppender{writer, zapcore.NewConsoleEncoder(newEncoderConfig(colored))}
}

// FileConfig configures a rotating log file.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// NewFileAppender creates an appender that writes uncolored lines to a rotating log file.
func NewFileAppender(cfg FileConfig) ConsoleAppender {
	return NewWriterAppender(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, false)
}

// Write outputs the log entry to the underlying stream.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	_, err = appender.Writer.Write(buf.Bytes())
	return err
}

// Sync flushes the underlying writer when it supports it. Closers, such as rotating log files,
// are closed and reopened on the next write.
func (appender ConsoleAppender) Sync() error {
	switch w := appender.Writer.(type) {
	case *os.File:
		if w == os.Stdout || w == os.Stderr {
			return nil
		}
		return w.Sync()
	case io.Closer:
		return w.Close()
	}
	return nil
}
