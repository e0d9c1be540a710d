package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/timewinder-dev/cbot/vm"
)

// Spec describes one run of a script.
type Spec struct {
	Script     ScriptSpec     `toml:"script"`
	Engine     EngineSpec     `toml:"engine"`
	Checkpoint CheckpointSpec `toml:"checkpoint"`
	Expect     ExpectSpec     `toml:"expect"`
}

type ScriptSpec struct {
	File  string `toml:"file,omitempty"`
	Entry string `toml:"entry,omitempty"`
	Args  []any  `toml:"args,omitempty"`
}

type EngineSpec struct {
	Budget   int `toml:"budget,omitempty"`
	MaxTicks int `toml:"max_ticks,omitempty"`
	MaxDepth int `toml:"max_depth,omitempty"`
}

// CheckpointSpec turns on snapshots every Every ticks. With Resume set, the
// run continues from each stored snapshot in a freshly compiled program.
type CheckpointSpec struct {
	Every     int  `toml:"every,omitempty"`
	CacheSize int  `toml:"cache_size,omitempty"`
	Resume    bool `toml:"resume,omitempty"`
}

// ExpectSpec is checked by Verify. Error is an error constant name such as
// "CBotErrZeroDiv" or an integer code.
type ExpectSpec struct {
	Error  any     `toml:"error,omitempty"`
	Value  any     `toml:"value,omitempty"`
	Output *string `toml:"output,omitempty"`
}

const (
	DefaultEntry    = "main"
	DefaultBudget   = 100
	DefaultMaxTicks = 100000
)

func parseSpec(f io.Reader) (*Spec, error) {
	var out Spec
	_, err := toml.NewDecoder(f).Decode(&out)
	return &out, err
}

// LoadSpecFromFile reads a spec. The script path is relative to the spec
// file and defaults to the spec's own name with a .cbot extension.
func LoadSpecFromFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := parseSpec(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s.Script.File == "" {
		base := filepath.Base(path)
		s.Script.File = strings.TrimSuffix(base, filepath.Ext(base)) + ".cbot"
	}
	s.Script.File = filepath.Clean(filepath.Join(filepath.Dir(path), s.Script.File))
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ScriptSpecFor is the spec used to run a bare script with defaults.
func ScriptSpecFor(file string) *Spec {
	s := &Spec{Script: ScriptSpec{File: file}}
	s.SetDefaults()
	return s
}

func (s *Spec) SetDefaults() {
	if s.Script.Entry == "" {
		s.Script.Entry = DefaultEntry
	}
	if s.Engine.Budget == 0 {
		s.Engine.Budget = DefaultBudget
	}
	if s.Engine.MaxTicks == 0 {
		s.Engine.MaxTicks = DefaultMaxTicks
	}
}

// Validate reports every problem with the spec at once.
func (s *Spec) Validate() error {
	var result *multierror.Error
	if s.Script.File == "" {
		result = multierror.Append(result, fmt.Errorf("script.file is empty"))
	}
	if s.Engine.Budget < 0 {
		result = multierror.Append(result, fmt.Errorf("engine.budget must not be negative"))
	}
	if s.Engine.MaxTicks < 0 {
		result = multierror.Append(result, fmt.Errorf("engine.max_ticks must not be negative"))
	}
	if s.Engine.MaxDepth < 0 {
		result = multierror.Append(result, fmt.Errorf("engine.max_depth must not be negative"))
	}
	if s.Checkpoint.Every < 0 {
		result = multierror.Append(result, fmt.Errorf("checkpoint.every must not be negative"))
	}
	if s.Checkpoint.CacheSize < 0 {
		result = multierror.Append(result, fmt.Errorf("checkpoint.cache_size must not be negative"))
	}
	if s.Checkpoint.Resume && s.Checkpoint.Every == 0 {
		result = multierror.Append(result, fmt.Errorf("checkpoint.resume needs checkpoint.every"))
	}
	for i, a := range s.Script.Args {
		if _, err := valueOf(a); err != nil {
			result = multierror.Append(result, fmt.Errorf("script.args[%d]: %w", i, err))
		}
	}
	if s.Expect.Error != nil {
		if _, err := errorCode(s.Expect.Error); err != nil {
			result = multierror.Append(result, fmt.Errorf("expect.error: %w", err))
		}
	}
	if s.Expect.Value != nil {
		if _, err := valueOf(s.Expect.Value); err != nil {
			result = multierror.Append(result, fmt.Errorf("expect.value: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// valueOf converts a decoded TOML value to a script value.
func valueOf(v any) (vm.Value, error) {
	switch x := v.(type) {
	case int64:
		return vm.IntValue(x), nil
	case int:
		return vm.IntValue(x), nil
	case float64:
		return vm.FloatValue(x), nil
	case bool:
		return vm.BoolValue(x), nil
	case string:
		return vm.StrValue(x), nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
}

func errorCode(v any) (vm.ErrorCode, error) {
	switch x := v.(type) {
	case string:
		code, ok := vm.ErrorConstants[x]
		if !ok {
			return vm.NoError, fmt.Errorf("unknown error constant %q", x)
		}
		return code, nil
	case int64:
		return vm.ErrorCode(x), nil
	case int:
		return vm.ErrorCode(x), nil
	}
	return vm.NoError, fmt.Errorf("unsupported error %v (%T)", v, v)
}
