// Copyright 2024 The tlscan Authors
// This file is part of the tlscan library.
//
// The tlscan library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tlscan library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tlscan library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides a small structured logger, threaded explicitly
// through constructors rather than kept as package-level singletons.
// Each worker process owns exactly one Logger; its file sink is a
// scoped resource the caller opens and closes, instead of the
// reopen-per-call-site pattern the Python original used.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a minimal key-value structured logger. It is safe for
// concurrent use by the goroutines of a single worker process.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	name   string
	static []interface{}
}

// New creates a Logger named name, writing records at or above level
// to out.
func New(name string, out io.Writer, level Level) *Logger {
	return &Logger{name: name, out: out, level: level}
}

// With returns a child logger that prepends the given key-value pairs
// to every record it emits, without mutating the receiver.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	child := &Logger{name: l.name, out: l.out, level: l.level}
	child.static = append(append([]interface{}{}, l.static...), keyvals...)
	return child
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.log(LevelDebug, msg, keyvals) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.log(LevelInfo, msg, keyvals) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.log(LevelWarn, msg, keyvals) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.log(LevelError, msg, keyvals) }

func (l *Logger) log(lvl Level, msg string, keyvals []interface{}) {
	if lvl < l.level {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(lvl.String())
	b.WriteByte(' ')
	if l.name != "" {
		b.WriteByte('[')
		b.WriteString(l.name)
		b.WriteString("] ")
	}
	b.WriteString(msg)
	all := append(append([]interface{}{}, l.static...), keyvals...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

// consoleWriter returns a colorable stdout writer when attached to a
// terminal, and a plain os.Stdout otherwise (mirrors the teacher's
// mattn/go-colorable + mattn/go-isatty console handler).
func consoleWriter() io.Writer {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return colorable.NewColorableStdout()
	}
	return os.Stdout
}

// FileSink is a rotating per-host log file, a scoped resource the
// caller must Close when the worker exits.
type FileSink struct {
	lj *lumberjack.Logger
}

// NewFileSink opens (creating if needed) a rotating log file at path.
func NewFileSink(path string) *FileSink {
	return &FileSink{lj: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    25, // megabytes, before rotation
		MaxBackups: 5,
		Compress:   true,
	}}
}

func (f *FileSink) Write(p []byte) (int, error) { return f.lj.Write(p) }
func (f *FileSink) Close() error                { return f.lj.Close() }

// NewWorkerLogger builds the Logger for one worker process: console
// output plus, if logDir is non-empty, a rotating file sink named
// after host. The returned io.Closer releases the file sink; callers
// must close it when the worker's inspection loop returns.
func NewWorkerLogger(name, host, logDir string, level Level) (*Logger, io.Closer, error) {
	if logDir == "" {
		return New(name, consoleWriter(), level).With("host", host), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}
	sink := NewFileSink(fmt.Sprintf("%s/inspector_%s.log", logDir, sanitize(host)))
	out := io.MultiWriter(consoleWriter(), sink)
	return New(name, out, level).With("host", host), sink, nil
}

func sanitize(host string) string {
	r := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return r.Replace(host)
}
