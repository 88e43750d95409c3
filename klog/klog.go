// Package klog builds the log/slog handlers the stages and tools log
// through. On the machine the sink is the serial line: no colour, no clock,
// CR-LF line ends. Host tools log to stderr with colour when it is a
// terminal.
package klog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Options configures NewHandler.
type Options struct {
	Level slog.Leveler
	// Color emits ANSI colour codes.
	Color bool
	// TimeFormat is the timestamp layout. Empty drops timestamps.
	TimeFormat string
}

// NewHandler returns a tint handler writing to w.
func NewHandler(w io.Writer, opts *Options) slog.Handler {
	if opts == nil {
		opts = &Options{}
	}
	noTime := opts.TimeFormat == ""
	return tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: opts.TimeFormat,
		NoColor:    !opts.Color,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if noTime && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
}

// Serial returns the handler for a serial line: plain text, no
// timestamps, CR-LF line ends.
func Serial(w io.Writer, level slog.Leveler) slog.Handler {
	return NewHandler(CRLF(w), &Options{Level: level})
}

// Stderr returns the handler host tools use.
func Stderr(level slog.Leveler) slog.Handler {
	return NewHandler(colorable.NewColorable(os.Stderr), &Options{
		Level:      level,
		Color:      isatty.IsTerminal(os.Stderr.Fd()),
		TimeFormat: "15:04:05.000",
	})
}

// ParseLevel maps debug, info, warn and error to their levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("klog: %w", err)
	}
	return l, nil
}

type crlf struct {
	w io.Writer
}

// CRLF rewrites bare LF as CR-LF on the way to w.
func CRLF(w io.Writer) io.Writer {
	return crlf{w: w}
}

func (c crlf) Write(p []byte) (int, error) {
	if bytes.IndexByte(p, '\n') < 0 {
		return c.w.Write(p)
	}
	out := make([]byte, 0, len(p)+bytes.Count(p, []byte{'\n'}))
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

type tee []slog.Handler

// Tee sends each record to every handler that accepts its level.
func Tee(handlers ...slog.Handler) slog.Handler {
	return tee(handlers)
}

func (t tee) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
