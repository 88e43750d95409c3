package klog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialHandler(t *testing.T) {
	var line bytes.Buffer
	log := slog.New(Serial(&line, slog.LevelInfo))

	log.Debug("hidden")
	log.Info("console cleared", "rows", 25)
	log.Warn("e820", "usable", "127MiB")

	out := line.String()
	t.Logf("serial output: %q", out)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "console cleared rows=25\r\n")
	assert.Contains(t, out, "usable=127MiB\r\n")
	assert.NotContains(t, out, "\x1b[", "no colour on the line")
	assert.Equal(t, 2, strings.Count(out, "\r\n"))
}

func TestCRLF(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"a\nb\n", "a\r\nb\r\n"},
		{"kept\r\n", "kept\r\n"},
		{"\n", "\r\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		n, err := CRLF(&buf).Write([]byte(tt.in))
		require.NoError(t, err)
		assert.Equal(t, len(tt.in), n)
		assert.Equal(t, tt.want, buf.String())
	}
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	h := Tee(
		NewHandler(&a, &Options{Level: slog.LevelDebug}),
		NewHandler(&b, &Options{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("stage", "boot").WithGroup("uart")

	log.Debug("probe", "port", "0x3f8")
	log.Error("loopback failed", "got", "0xff")

	t.Logf("a=%q b=%q", a.String(), b.String())
	assert.Contains(t, a.String(), "probe stage=boot uart.port=0x3f8")
	assert.Contains(t, a.String(), "loopback failed")
	assert.NotContains(t, b.String(), "probe")
	assert.Contains(t, b.String(), "loopback failed stage=boot uart.got=0xff")
	assert.False(t, h.Enabled(t.Context(), slog.LevelDebug-4))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}
