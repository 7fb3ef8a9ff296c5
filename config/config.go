// Package config loads terminal configuration: palette overrides, the
// font fallback chain, cell padding, scrollback capacity, and the
// default shell. Values come from a JSON file merged with environment
// variable overrides, following the teacher's JSON-plus-env pattern
// for host-configurable settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ptyterm/ptyterm"
)

// Config holds everything the session and rendering layers need that
// isn't derived from the PTY stream itself.
type Config struct {
	Shell          string   `json:"shell"`
	ShellArgs      []string `json:"shellArgs"`
	Rows           int      `json:"rows"`
	Cols           int      `json:"cols"`
	Scrollback     int      `json:"scrollback"`
	FontFamily     string   `json:"fontFamily"`
	FallbackFonts  []string `json:"fallbackFonts"`
	FontSize       float32  `json:"fontSize"`
	CellPaddingX   float32  `json:"cellPaddingX"`
	CellPaddingY   float32  `json:"cellPaddingY"`
	PaletteHex     [16]string `json:"paletteHex"` // override for the 16 ANSI base colors; empty entries keep the default

	// TermType and ColorDepth describe the capability string reported
	// to the child process via $TERM, mirroring the capability
	// reporting the host side needs regardless of how the PTY was
	// spawned.
	TermType   string `json:"termType"`
	ColorDepth int    `json:"colorDepth"`
}

// Default returns a zero-config fallback: 80x24, 10000-row
// scrollback, a 14pt monospace font with no declared fallbacks, and
// xterm-256color capability reporting.
func Default() Config {
	return Config{
		Shell:      "",
		Rows:       24,
		Cols:       80,
		Scrollback: ptyterm.DefaultMaxScrollback,
		FontFamily: "monospace",
		FontSize:   14,
		CellPaddingX: 0,
		CellPaddingY: 0,
		TermType:   "xterm-256color",
		ColorDepth: 24,
	}
}

// Load reads a JSON config file at path, falling back to Default for
// any field the file omits (the zero Config produced by json.Unmarshal
// leaves unset fields at their Go zero value, so Load starts from
// Default and decodes on top of it).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets a host override individual settings without
// editing the config file, e.g. for container deployments.
func (c *Config) applyEnvOverrides() {
	if shell := os.Getenv("PTYTERM_SHELL"); shell != "" {
		c.Shell = shell
	}
	if sb := os.Getenv("PTYTERM_SCROLLBACK"); sb != "" {
		if n, err := strconv.Atoi(sb); err == nil {
			c.Scrollback = n
		}
	}
	if font := os.Getenv("PTYTERM_FONT"); font != "" {
		c.FontFamily = font
	}
}

// PaletteOverrides applies any non-empty PaletteHex entries onto base,
// returning the resulting palette. Malformed hex strings are skipped.
func (c Config) PaletteOverrides(base ptyterm.Palette) ptyterm.Palette {
	out := base
	for i, hex := range c.PaletteHex {
		if hex == "" {
			continue
		}
		rgb, ok := parseHex(hex)
		if !ok {
			continue
		}
		out.Entries[i] = rgb
	}
	return out
}

func parseHex(s string) (ptyterm.Rgb, bool) {
	if len(s) != 7 || s[0] != '#' {
		return ptyterm.Rgb{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return ptyterm.Rgb{}, false
	}
	return ptyterm.Rgb{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, true
}
