// Package cli provides the command-line interface for coxswain.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/logging"
)

// logFileWriter holds the log file writer for cleanup during shutdown.
var logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup

// zerologGlobalMu protects concurrent writes to the zerolog global logger.
var zerologGlobalMu sync.Mutex //nolint:gochecknoglobals // Protects zerolog global

// InitLogger creates and configures a zerolog.Logger based on verbosity
// flags: verbose selects debug level, quiet selects warn level, the default
// is info. A TTY without NO_COLOR gets the console writer; everything else
// gets JSON on stderr. The logger also writes to ~/.coxswain/logs with
// rotation; if the log file cannot be created, console-only output is used.
func InitLogger(verbose, quiet bool) zerolog.Logger {
	console := selectOutput()

	writer := console
	if fileWriter, err := createLogFileWriter(); err == nil {
		logFileWriter = fileWriter
		writer = zerolog.MultiLevelWriter(console, fileWriter)
	}

	logger := zerolog.New(writer).Level(selectLevel(verbose, quiet)).With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// InitLoggerWithWriter creates a logger with a custom writer. Intended for
// tests.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).Level(selectLevel(verbose, quiet)).With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// setGlobalLogger points the zerolog global logger at the CLI logger so code
// using the log package shares formatting and level.
func setGlobalLogger(cliLogger zerolog.Logger) {
	zerologGlobalMu.Lock()
	defer zerologGlobalMu.Unlock()
	log.Logger = cliLogger
}

// CloseLogFile closes the global log file writer if it was opened. Called
// during application shutdown.
func CloseLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// redactingWriteCloser wraps the rotating file writer with credential
// redaction while preserving Close.
type redactingWriteCloser struct {
	redact *logging.RedactingWriter
	closer io.Closer
}

func (rwc *redactingWriteCloser) Write(p []byte) (int, error) {
	return rwc.redact.Write(p)
}

func (rwc *redactingWriteCloser) Close() error {
	return rwc.closer.Close()
}

// createLogFileWriter creates the rotating global log file writer. All disk
// output passes through credential redaction.
func createLogFileWriter() (io.WriteCloser, error) {
	home, err := config.GlobalConfigDir()
	if err != nil {
		return nil, err
	}

	logDir := filepath.Join(home, constants.LogsDir)
	if err = os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.CLILogFileName),
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompress,
	}

	return &redactingWriteCloser{
		redact: logging.NewRedactingWriter(lj),
		closer: lj,
	}, nil
}

// LogFilePath returns the path of the global CLI log file.
func LogFilePath() (string, error) {
	home, err := config.GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.LogsDir, constants.CLILogFileName), nil
}
