// Package config handles boot.toml, the hosted boot configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/johndah4x0r/magnetite-os/klog"
	"github.com/johndah4x0r/magnetite-os/serial"
	"github.com/johndah4x0r/magnetite-os/vga"
)

var ErrInvalid = errors.New("config: invalid value")

// Config is a parsed boot.toml.
type Config struct {
	Serial  Serial  `toml:"serial" yaml:"serial"`
	Console Console `toml:"console" yaml:"console"`
	Memory  Memory  `toml:"memory" yaml:"memory"`
	Log     Log     `toml:"log" yaml:"log"`
}

// Serial selects the debug UART.
type Serial struct {
	Port          int  `toml:"port" yaml:"port"`
	Baud          int  `toml:"baud" yaml:"baud"`
	LoopbackCheck bool `toml:"loopback_check" yaml:"loopback_check"`
}

// Console shapes the text console.
type Console struct {
	Cols     int    `toml:"cols" yaml:"cols"`
	Rows     int    `toml:"rows" yaml:"rows"`
	Attr     uint16 `toml:"attr" yaml:"attr"`
	Truncate bool   `toml:"truncate" yaml:"truncate"`
}

// Memory sizes the simulated machine memory.
type Memory struct {
	ArenaSize int `toml:"arena_size" yaml:"arena_size"`
	// RelocateShift is how far into the destination mapping the image
	// lands when it is moved.
	RelocateShift int `toml:"relocate_shift" yaml:"relocate_shift"`
}

type Log struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns the stock machine: COM1 at full speed, an 80x25
// light-grey console and a 1 MiB arena.
func Default() Config {
	return Config{
		Serial: Serial{
			Port:          0,
			Baud:          serial.BaudRate,
			LoopbackCheck: true,
		},
		Console: Console{
			Cols:     vga.DefaultCols,
			Rows:     vga.DefaultRows,
			Attr:     vga.DefaultAttr,
			Truncate: true,
		},
		Memory: Memory{
			ArenaSize:     1 << 20,
			RelocateShift: 0x1000,
		},
		Log: Log{Level: "info"},
	}
}

// Load parses the file at path over Default. Keys the file leaves out keep
// their defaults; unknown keys are an error. Files named .yaml or .yml are
// read as YAML, anything else as TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	parse := Parse
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		parse = ParseYAML
	}
	c, err := parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse is Load for a document already in memory.
func Parse(doc string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(doc, &c)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(names, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseYAML is Parse for the YAML form of the same document.
func ParseYAML(doc string) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(strings.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ranges the drivers would otherwise reject at boot.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Serial.Port < 0 || c.Serial.Port >= len(serial.Ports) {
		bad("serial.port %d, want 0 to %d", c.Serial.Port, len(serial.Ports)-1)
	}
	if c.Serial.Baud <= 0 || serial.BaudRate%c.Serial.Baud != 0 {
		bad("serial.baud %d does not divide %d", c.Serial.Baud, serial.BaudRate)
	}
	if c.Console.Cols <= 0 || c.Console.Cols > 255 || c.Console.Rows <= 0 || c.Console.Rows > 255 {
		bad("console %dx%d", c.Console.Cols, c.Console.Rows)
	}
	if c.Console.Attr&0x00ff != 0 {
		bad("console.attr %#04x sets character bits", c.Console.Attr)
	}
	if c.Memory.ArenaSize < 64<<10 {
		bad("memory.arena_size %d is below 64 KiB", c.Memory.ArenaSize)
	}
	if c.Memory.RelocateShift < 0 || c.Memory.RelocateShift%8 != 0 {
		bad("memory.relocate_shift %d must be a non-negative multiple of 8", c.Memory.RelocateShift)
	}
	if _, err := klog.ParseLevel(c.Log.Level); err != nil {
		bad("log.level %q", c.Log.Level)
	}
	return errors.Join(errs...)
}

// LogLevel returns the configured level. Validate has already vetted it.
func (c *Config) LogLevel() slog.Level {
	l, _ := klog.ParseLevel(c.Log.Level)
	return l
}
