package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Scenario defines one junction run.
// Channels and patterns are created in declaration order, so channel ids and
// pattern indexes are stable across runs.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the junction id,
	// which keeps traces deterministic.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Description explains what this scenario demonstrates. Optional.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Channels []ChannelDecl `yaml:"channels" json:"channels" validate:"required,min=1,dive"`
	Patterns []PatternDecl `yaml:"patterns" json:"patterns" validate:"required,min=1,dive"`
	Steps    []Step        `yaml:"steps" json:"steps" validate:"required,min=1,dive"`

	// Expect is checked after every step has run and the junction is idle.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// ChannelDecl declares an int64 channel.
type ChannelDecl struct {
	Name string      `yaml:"name" json:"name" validate:"required"`
	Kind ChannelKind `yaml:"kind" json:"kind" validate:"required,oneof=send recv bidir"`
}

// ChannelKind is the capability of a declared channel.
type ChannelKind string

const (
	KindSend  ChannelKind = "send"
	KindRecv  ChannelKind = "recv"
	KindBidir ChannelKind = "bidir"
)

// PatternDecl declares a join pattern over declared channels.
type PatternDecl struct {
	Name     string   `yaml:"name" json:"name" validate:"required"`
	When     []string `yaml:"when" json:"when" validate:"required,min=1,dive,required"`
	Reaction string   `yaml:"reaction" json:"reaction" validate:"required"`
}

// Step is one channel operation.
type Step struct {
	// ID names an async step so a later await can refer to it.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`

	Op      StepOp `yaml:"op" json:"op" validate:"required,oneof=send recv send_recv await"`
	Channel string `yaml:"channel,omitempty" json:"channel,omitempty"`

	// Ref is the id of the async step an await waits for.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	Value *int64 `yaml:"value,omitempty" json:"value,omitempty"`
	Async bool   `yaml:"async,omitempty" json:"async,omitempty"`

	// Expect is the expected reply value.
	Expect *int64 `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Error is the expected fault code (e.g. NO_REPLY).
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// StepOp names a step operation.
type StepOp string

const (
	OpSend     StepOp = "send"
	OpRecv     StepOp = "recv"
	OpSendRecv StepOp = "send_recv"
	OpAwait    StepOp = "await"
)

// Expect holds end-of-run expectations.
type Expect struct {
	// Firings is the total number of firings.
	Firings *int `yaml:"firings,omitempty" json:"firings,omitempty" validate:"omitempty,min=0"`

	// Patterns maps pattern name to its number of firings.
	Patterns map[string]int `yaml:"patterns,omitempty" json:"patterns,omitempty" validate:"omitempty,dive,min=0"`

	// Pending maps channel name to the number of messages left queued.
	Pending map[string]int `yaml:"pending,omitempty" json:"pending,omitempty" validate:"omitempty,dive,min=0"`
}

// LoadError is a scenario file that could not be read or decoded.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadScenario reads, decodes and validates a scenario file.
// The format is chosen by extension: .yaml and .yml are YAML, .cue is CUE.
//
// YAML is decoded strictly: unknown fields (typos like "step:" for "steps:")
// are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc *Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		sc, err = decodeYAML(path, data)
	case ".cue":
		sc, err = decodeCUE(path, data)
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported scenario format %q", ext)}
	}
	if err != nil {
		return nil, err
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return sc, nil
}

func decodeYAML(path string, data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return &sc, nil
}

func decodeCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(path, "building CUE value", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(path, "scenario is not concrete", err)
	}

	var sc Scenario
	if err := value.Decode(&sc); err != nil {
		return nil, cueLoadError(path, "decoding scenario", err)
	}
	return &sc, nil
}

func cueLoadError(path, what string, err error) *LoadError {
	le := &LoadError{Path: path, Message: fmt.Sprintf("%s: %v", what, err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// normalize applies NFC to every name so that visually identical names
// written with different code point sequences refer to the same thing.
func (s *Scenario) normalize() {
	s.Name = norm.NFC.String(s.Name)
	for i := range s.Channels {
		s.Channels[i].Name = norm.NFC.String(s.Channels[i].Name)
	}
	for i := range s.Patterns {
		p := &s.Patterns[i]
		p.Name = norm.NFC.String(p.Name)
		for k := range p.When {
			p.When[k] = norm.NFC.String(p.When[k])
		}
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		st.ID = norm.NFC.String(st.ID)
		st.Channel = norm.NFC.String(st.Channel)
		st.Ref = norm.NFC.String(st.Ref)
	}
	if s.Expect != nil {
		s.Expect.Patterns = normalizeKeys(s.Expect.Patterns)
		s.Expect.Pending = normalizeKeys(s.Expect.Pending)
	}
}

func normalizeKeys(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[norm.NFC.String(k)] += v
	}
	return out
}
