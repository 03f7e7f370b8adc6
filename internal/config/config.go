package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/loglens/internal/colorize"
	"github.com/five82/loglens/internal/columnize"
)

// Ingest tunes tailing and batching.
type Ingest struct {
	BatchSize      int
	FlushInterval  time.Duration
	SkipEmptyLines bool
	MaxRecords     int
	Backlog        int
	PollInterval   time.Duration
	FromStart      bool
}

// Pattern is a named line pattern, kept uncompiled until Columnizer.
type Pattern struct {
	Name string
	Expr string
}

// Config is the loglens configuration: how to split lines into columns and
// how to color them.
type Config struct {
	Path         string
	Ingest       Ingest
	Columns      []columnize.FieldDefinition
	Patterns     []Pattern
	DefaultStyle colorize.Style
	Rules        []colorize.RuleSpec
}

const (
	defaultConfigPath    = "~/.config/loglens/config.toml"
	defaultBatchSize     = 200
	defaultFlushInterval = 100 * time.Millisecond
	defaultMaxRecords    = 10000
	defaultBacklog       = 500
	defaultPollInterval  = 250 * time.Millisecond
)

// Default returns the built-in configuration. It understands lines such as
//
//	2025-10-08 21:01:05 INFO [encoder] Item #42 (Movie Name) – encoding started
func Default() Config {
	return Config{
		Ingest: Ingest{
			BatchSize:     defaultBatchSize,
			FlushInterval: defaultFlushInterval,
			MaxRecords:    defaultMaxRecords,
			Backlog:       defaultBacklog,
			PollInterval:  defaultPollInterval,
		},
		Columns: []columnize.FieldDefinition{
			{Name: "ts", Header: "Time", Visible: true, Width: 19},
			{Name: "level", Header: "Level", Visible: true, Width: 5},
			{Name: "component", Header: "Component", Visible: true, Width: 12},
			{Name: "msg", Header: "Message", Groups: []string{"msg", "detail"}, Separator: " ", Visible: true},
		},
		Patterns: []Pattern{
			{
				Name: "standard",
				Expr: `(?P<ts>\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?) +(?P<level>[A-Z]+) +(?:\[(?P<component>[^\]]+)\] +)?(?P<msg>.*)`,
			},
			{
				Name: "detail",
				Expr: `- (?P<detail>.*)`,
			},
		},
		Rules: []colorize.RuleSpec{
			{Name: "error", Field: "level", Pattern: `^(ERROR|FATAL|CRIT)`, Style: colorize.Style{Foreground: "#FF6B6B", Bold: true}},
			{Name: "warn", Field: "level", Pattern: `^WARN`, Style: colorize.Style{Foreground: "#FFD700"}},
			{Name: "debug", Field: "level", Pattern: `^(DEBUG|TRACE)`, Style: colorize.Style{Foreground: "#87CEEB", Faint: true}},
			{Name: "panic", Pattern: `^(panic:|goroutine \d+ \[)`, Style: colorize.Style{Foreground: "#FF6B6B"}},
		},
	}
}

type rawConfig struct {
	Ingest struct {
		BatchSize      int    `toml:"batch_size"`
		FlushInterval  string `toml:"flush_interval"`
		SkipEmptyLines bool   `toml:"skip_empty_lines"`
		MaxRecords     *int   `toml:"max_records"`
		Backlog        *int   `toml:"backlog"`
		PollInterval   string `toml:"poll_interval"`
		FromStart      bool   `toml:"from_start"`
	} `toml:"ingest"`
	Columns []struct {
		Name      string   `toml:"name"`
		Header    string   `toml:"header"`
		Groups    []string `toml:"groups"`
		Separator string   `toml:"separator"`
		Visible   *bool    `toml:"visible"`
		Width     int      `toml:"width"`
	} `toml:"columns"`
	Patterns []struct {
		Name string `toml:"name"`
		Expr string `toml:"expr"`
	} `toml:"patterns"`
	DefaultStyle rawStyle `toml:"default_style"`
	Rules        []rawRule `toml:"rules"`
}

type rawRule struct {
	Name      string `toml:"name"`
	Field     string `toml:"field"`
	Pattern   string `toml:"pattern"`
	Enabled   *bool  `toml:"enabled"`
	Fg        string `toml:"fg"`
	Bg        string `toml:"bg"`
	Bold      bool   `toml:"bold"`
	Italic    bool   `toml:"italic"`
	Underline bool   `toml:"underline"`
	Faint     bool   `toml:"faint"`
}

func (r rawRule) style() colorize.Style {
	return rawStyle{Fg: r.Fg, Bg: r.Bg, Bold: r.Bold, Italic: r.Italic, Underline: r.Underline, Faint: r.Faint}.style()
}

type rawStyle struct {
	Fg        string `toml:"fg"`
	Bg        string `toml:"bg"`
	Bold      bool   `toml:"bold"`
	Italic    bool   `toml:"italic"`
	Underline bool   `toml:"underline"`
	Faint     bool   `toml:"faint"`
}

func (s rawStyle) style() colorize.Style {
	return colorize.Style{
		Foreground: strings.TrimSpace(s.Fg),
		Background: strings.TrimSpace(s.Bg),
		Bold:       s.Bold,
		Italic:     s.Italic,
		Underline:  s.Underline,
		Faint:      s.Faint,
	}
}

// Load locates and parses the loglens config, falling back to defaults when
// missing. Sections absent from the file keep their defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.merge(raw); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(raw rawConfig) error {
	in := raw.Ingest
	if in.BatchSize > 0 {
		c.Ingest.BatchSize = in.BatchSize
	}
	if d, err := parseDuration("ingest.flush_interval", in.FlushInterval); err != nil {
		return err
	} else if d > 0 {
		c.Ingest.FlushInterval = d
	}
	if d, err := parseDuration("ingest.poll_interval", in.PollInterval); err != nil {
		return err
	} else if d > 0 {
		c.Ingest.PollInterval = d
	}
	c.Ingest.SkipEmptyLines = in.SkipEmptyLines
	c.Ingest.FromStart = in.FromStart
	if in.MaxRecords != nil {
		c.Ingest.MaxRecords = max(0, *in.MaxRecords)
	}
	if in.Backlog != nil {
		c.Ingest.Backlog = max(0, *in.Backlog)
	}

	if len(raw.Columns) > 0 {
		c.Columns = c.Columns[:0]
		for _, col := range raw.Columns {
			visible := true
			if col.Visible != nil {
				visible = *col.Visible
			}
			c.Columns = append(c.Columns, columnize.FieldDefinition{
				Name:      strings.TrimSpace(col.Name),
				Header:    strings.TrimSpace(col.Header),
				Groups:    col.Groups,
				Separator: col.Separator,
				Visible:   visible,
				Width:     col.Width,
			})
		}
	}

	if len(raw.Patterns) > 0 {
		c.Patterns = c.Patterns[:0]
		for i, p := range raw.Patterns {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				name = fmt.Sprintf("pattern-%d", i+1)
			}
			c.Patterns = append(c.Patterns, Pattern{Name: name, Expr: p.Expr})
		}
	}

	c.DefaultStyle = raw.DefaultStyle.style()

	if raw.Rules != nil {
		c.Rules = c.Rules[:0]
		for _, r := range raw.Rules {
			if r.Enabled != nil && !*r.Enabled {
				continue
			}
			c.Rules = append(c.Rules, colorize.RuleSpec{
				Name:    strings.TrimSpace(r.Name),
				Field:   strings.TrimSpace(r.Field),
				Pattern: r.Pattern,
				Style:   r.style(),
			})
		}
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	return d, nil
}

// Validate compiles every pattern and rule so bad expressions are reported
// at load time rather than while tailing.
func (c Config) Validate() error {
	if _, err := c.Columnizer(); err != nil {
		return err
	}
	if _, err := c.Colorizer(); err != nil {
		return err
	}
	return nil
}

// CompiledPatterns compiles the configured patterns in order.
func (c Config) CompiledPatterns() ([]*columnize.Pattern, error) {
	out := make([]*columnize.Pattern, 0, len(c.Patterns))
	for _, p := range c.Patterns {
		cp, err := columnize.CompilePattern(p.Name, p.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		out = append(out, cp)
	}
	return out, nil
}

// Columnizer builds a columnizer from the configured columns and patterns.
func (c Config) Columnizer() (*columnize.Columnizer, error) {
	patterns, err := c.CompiledPatterns()
	if err != nil {
		return nil, err
	}
	col, err := columnize.New(c.Columns, patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return col, nil
}

// Colorizer builds a colorizer from the configured rules.
func (c Config) Colorizer() (*colorize.Colorizer, error) {
	col, err := colorize.New(c.Rules, c.DefaultStyle)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return col, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
