// Package logging provides the verbose diagnostic logger used by the CLI
// and the verification service.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Logger writes diagnostics to stderr. Debug output is only written in
// verbose mode; warnings are always written.
type Logger struct {
	verbose bool
	out     io.Writer
	mu      sync.Mutex
}

// New creates a logger writing to stderr.
func New(verbose bool) *Logger {
	return NewWithWriter(verbose, os.Stderr)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(verbose bool, w io.Writer) *Logger {
	return &Logger{verbose: verbose, out: w}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWithWriter(false, io.Discard)
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	return l != nil && l.verbose
}

// Debugf logs a formatted message in verbose mode.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.IsVerbose() {
		return
	}
	l.write(color.New(color.Faint), "[debug] ", format, args...)
}

// Warnf logs a formatted warning.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.write(color.New(color.FgYellow), "warning: ", format, args...)
}

func (l *Logger) write(c *color.Color, prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	c.Fprintln(l.out, prefix+msg)
}
