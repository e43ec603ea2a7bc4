package trigger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Definition is one trigger record as written in the configuration file.
//
// `function` and `serverlog_ids` are the key names used by older triggers.toml
// files and are accepted as aliases of `action` and `scope`.
type Definition struct {
	Name         string    `toml:"name" yaml:"name"`
	Pattern      string    `toml:"pattern" yaml:"pattern"`
	Action       string    `toml:"action" yaml:"action"`
	Function     string    `toml:"function" yaml:"function"`
	Scope        *[]uint32 `toml:"scope" yaml:"scope"`
	ServerlogIDs *[]uint32 `toml:"serverlog_ids" yaml:"serverlog_ids"`
}

type definitionFile struct {
	Trigger []Definition `toml:"trigger" yaml:"trigger"`
}

// Format is the syntax of a trigger file
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the file format from the extension (TOML by default)
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// CompileError describes a definition dropped during compilation
type CompileError struct {
	Index int
	Name  string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("trigger #%d %q: %v", e.Index, e.Name, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ErrMissingAction is returned for definitions without an action identifier
var ErrMissingAction = errors.New("missing action")

// Registry is the immutable list of compiled triggers
type Registry struct {
	triggers []Trigger
}

// Triggers returns a copy of the compiled triggers, in file order
func (r *Registry) Triggers() []Trigger {
	out := make([]Trigger, len(r.triggers))
	copy(out, r.triggers)
	return out
}

// Len returns the number of compiled triggers
func (r *Registry) Len() int {
	return len(r.triggers)
}

// Parse decodes a trigger file
func Parse(data []byte, format Format) ([]Definition, error) {
	var f definitionFile

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("failed to parse toml: %w", err)
		}
	}

	return f.Trigger, nil
}

// Compile compiles every definition independently. Definitions that fail are
// dropped and reported; they never prevent the others from loading.
func Compile(defs []Definition) (*Registry, []error) {
	reg := &Registry{triggers: make([]Trigger, 0, len(defs))}
	var errs []error

	for i, def := range defs {
		t, err := compileOne(def)
		if err != nil {
			errs = append(errs, &CompileError{Index: i, Name: def.Name, Err: err})
			continue
		}
		reg.triggers = append(reg.triggers, t)
	}

	return reg, errs
}

func compileOne(def Definition) (Trigger, error) {
	action := def.Action
	if action == "" {
		action = def.Function
	}
	if strings.TrimSpace(action) == "" {
		return Trigger{}, ErrMissingAction
	}

	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return Trigger{}, fmt.Errorf("invalid regex %q: %w", def.Pattern, err)
	}

	t := Trigger{
		Name:    def.Name,
		Pattern: re,
		Action:  action,
	}

	scope := def.Scope
	if scope == nil {
		scope = def.ServerlogIDs
	}
	if scope != nil {
		t.scoped = true
		t.scope = make(map[domain.SourceID]struct{}, len(*scope))
		for _, id := range *scope {
			t.scope[domain.SourceID(id)] = struct{}{}
		}
	}

	return t, nil
}

// Load reads and compiles the trigger file at path.
// A missing or unparsable file yields an empty registry: no trigger fires, but
// the process keeps running.
func Load(path string) *Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", path).
			Msg("No triggers loaded (missing trigger file)")
		return &Registry{}
	}

	defs, err := Parse(data, FormatFromPath(path))
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", path).
			Msg("No triggers loaded (invalid trigger file)")
		return &Registry{}
	}

	reg, errs := Compile(defs)
	for _, e := range errs {
		var ce *CompileError
		if errors.As(e, &ce) {
			log.Warn().
				Err(ce.Err).
				Str("trigger", ce.Name).
				Int("index", ce.Index).
				Msg("Invalid trigger, skipping")
		}
	}

	log.Info().
		Str("path", path).
		Int("loaded", reg.Len()).
		Int("skipped", len(errs)).
		Msg("Triggers loaded")

	return reg
}
