// Package build provides the coordinator's logging backend: a
// decred/slog-based subsystem logger registry backed by a rotating log
// file, adapted from degeri-dcrlnd's build.RotatingLogWriter /
// NewSubLogger pattern (log.go, build/log_filelog.go) to this project's
// subsystems.
package build

import (
	"fmt"
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// RotatingLogWriter manages a rotating log file plus the set of subsystem
// loggers backed by it, mirroring degeri-dcrlnd's build.RotatingLogWriter.
type RotatingLogWriter struct {
	rotator    *rotator.Rotator
	subsystems map[string]slog.Logger
	backend    *slog.Backend
}

// NewRotatingLogWriter builds a writer with no log file yet configured;
// call InitLogRotator before logging anything of consequence.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{subsystems: make(map[string]slog.Logger)}
}

// InitLogRotator opens logFile for rotating writes (10 MiB per file,
// maxRolls backups kept) and wires the slog backend to it plus stdout.
func (w *RotatingLogWriter) InitLogRotator(logFile string, maxRolls int) error {
	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return fmt.Errorf("build: init log rotator: %w", err)
	}
	w.rotator = r
	w.backend = slog.NewBackend(&rotatorWriter{w: r, also: os.Stdout})
	return nil
}

// rotatorWriter fans writes out to both the rotator and a secondary
// io.Writer (stdout), mirroring the teacher's dual stdout+file sink.
type rotatorWriter struct {
	w    *rotator.Rotator
	also *os.File
}

func (rw *rotatorWriter) Write(p []byte) (int, error) {
	rw.also.Write(p)
	return rw.w.Write(p)
}

// SubLogger returns the logger for subsystem, creating it (at slog.LevelInfo)
// if this is the first request for that name.
func (w *RotatingLogWriter) SubLogger(subsystem string) slog.Logger {
	if l, ok := w.subsystems[subsystem]; ok {
		return l
	}
	var l slog.Logger
	if w.backend != nil {
		l = w.backend.Logger(subsystem)
	} else {
		l = slog.Disabled
	}
	l.SetLevel(slog.LevelInfo)
	w.subsystems[subsystem] = l
	return l
}

// SetLogLevels applies levelStr (a decred/slog level name) to every
// registered subsystem logger.
func (w *RotatingLogWriter) SetLogLevels(levelStr string) error {
	level, ok := slog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("build: unknown log level %q", levelStr)
	}
	for _, l := range w.subsystems {
		l.SetLevel(level)
	}
	return nil
}

// Close releases the underlying log file.
func (w *RotatingLogWriter) Close() error {
	if w.rotator == nil {
		return nil
	}
	return w.rotator.Close()
}
