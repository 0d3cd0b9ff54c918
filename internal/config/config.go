// Package config loads the wtas configuration file.
//
// A file is decoded strictly from YAML (unknown keys are errors), then
// unified with an embedded CUE schema that supplies defaults and range
// constraints. Keys left out of the file take the schema default.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/wtas/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is the config file looked up when none is named.
const DefaultFile = "wtas.yaml"

// Config is the resolved configuration.
type Config struct {
	ScriptsDir  string
	Listen      string
	Database    string
	WarmupTicks uint32
	InboxSize   int
	OutboxSize  int
	// TickRate is the headless host's simulation rate in Hz.
	TickRate int

	Trace ir.TraceDrawOptions
}

// TickInterval is the wall time of one headless simulation step.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Error describes a configuration value that failed validation.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsError reports whether err is a configuration Error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// file mirrors the YAML layout. Pointers distinguish absent keys, which
// are left for the schema to default.
type file struct {
	ScriptsDir  *string    `yaml:"scripts_dir"`
	Listen      *string    `yaml:"listen"`
	Database    *string    `yaml:"database"`
	WarmupTicks *int64     `yaml:"warmup_ticks"`
	InboxSize   *int64     `yaml:"inbox_size"`
	OutboxSize  *int64     `yaml:"outbox_size"`
	TickRate    *int64     `yaml:"tick_rate"`
	Trace       *traceFile `yaml:"trace"`
}

type traceFile struct {
	SphereRadius                     *float64 `yaml:"sphere_radius"`
	ZOffset                          *float64 `yaml:"z_offset"`
	ClickIndicatorDistanceMultiplier *float64 `yaml:"click_indicator_distance_multiplier"`
	ClickIndicatorRadius             *float64 `yaml:"click_indicator_radius"`
	Interval                         *string  `yaml:"interval"`
}

// values returns only the keys present in the file.
func (f file) values() map[string]any {
	m := map[string]any{}
	set(m, "scripts_dir", f.ScriptsDir)
	set(m, "listen", f.Listen)
	set(m, "database", f.Database)
	set(m, "warmup_ticks", f.WarmupTicks)
	set(m, "inbox_size", f.InboxSize)
	set(m, "outbox_size", f.OutboxSize)
	set(m, "tick_rate", f.TickRate)
	if f.Trace != nil {
		t := map[string]any{}
		set(t, "sphere_radius", f.Trace.SphereRadius)
		set(t, "z_offset", f.Trace.ZOffset)
		set(t, "click_indicator_distance_multiplier", f.Trace.ClickIndicatorDistanceMultiplier)
		set(t, "click_indicator_radius", f.Trace.ClickIndicatorRadius)
		set(t, "interval", f.Trace.Interval)
		m["trace"] = t
	}
	return m
}

func set[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}

// resolved is the schema output, before conversion to Config.
type resolved struct {
	ScriptsDir  string `json:"scripts_dir"`
	Listen      string `json:"listen"`
	Database    string `json:"database"`
	WarmupTicks uint32 `json:"warmup_ticks"`
	InboxSize   int    `json:"inbox_size"`
	OutboxSize  int    `json:"outbox_size"`
	TickRate    int    `json:"tick_rate"`
	Trace       struct {
		SphereRadius                     float32 `json:"sphere_radius"`
		ZOffset                          float32 `json:"z_offset"`
		ClickIndicatorDistanceMultiplier float32 `json:"click_indicator_distance_multiplier"`
		ClickIndicatorRadius             float32 `json:"click_indicator_radius"`
		Interval                         string  `json:"interval"`
	} `json:"trace"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg, err := resolve(file{})
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and resolves the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes and resolves a YAML config document.
func Parse(r io.Reader) (Config, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &Error{Message: err.Error()}
	}
	return resolve(f)
}

func resolve(f file) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(f.values()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var r resolved
	if err := v.Decode(&r); err != nil {
		return Config{}, formatCUEError(err)
	}

	interval, err := ir.ParseInterval(r.Trace.Interval)
	if err != nil {
		return Config{}, &Error{Field: "trace.interval", Message: err.Error()}
	}

	return Config{
		ScriptsDir:  r.ScriptsDir,
		Listen:      r.Listen,
		Database:    r.Database,
		WarmupTicks: r.WarmupTicks,
		InboxSize:   r.InboxSize,
		OutboxSize:  r.OutboxSize,
		TickRate:    r.TickRate,
		Trace: ir.TraceDrawOptions{
			SphereRadius:                     r.Trace.SphereRadius,
			ZOffset:                          r.Trace.ZOffset,
			ClickIndicatorDistanceMultiplier: r.Trace.ClickIndicatorDistanceMultiplier,
			ClickIndicatorRadius:             r.Trace.ClickIndicatorRadius,
			Interval:                         interval,
		},
	}, nil
}

// formatCUEError reduces a CUE error to the first failing field.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	path := first.Path()
	if len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	if len(path) == 0 {
		return &Error{Message: first.Error()}
	}
	format, args := first.Msg()
	return &Error{Field: strings.Join(path, "."), Message: fmt.Sprintf(format, args...)}
}
