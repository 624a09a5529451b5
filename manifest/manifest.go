// Package manifest handles rvgen.toml generator configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/interp"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "rvgen.toml"

// Manifest represents an rvgen.toml configuration.
type Manifest struct {
	Target      Target      `toml:"target"`
	Interpreter Interpreter `toml:"interpreter"`
	Cache       Cache       `toml:"cache"`

	// Runtime entry addresses by name; unnamed entries keep their default.
	Runtime map[string]uint64 `toml:"runtime"`
	// Layout offsets by field name; unnamed fields keep their default.
	Method map[string]int64 `toml:"method"`
	Thread map[string]int64 `toml:"thread"`

	// Dir is the directory containing the rvgen.toml file (set at load time).
	Dir string `toml:"-"`
}

// Target describes where generated code goes.
type Target struct {
	// Base is the address the interpreter is generated for. Zero means
	// host executable memory.
	Base     uint64   `toml:"base"`
	Capacity int      `toml:"capacity"`
	Features []string `toml:"features"`
}

// Interpreter configures the generated entries.
type Interpreter struct {
	UseCompiler     bool   `toml:"use-compiler"`
	InvocationLimit uint32 `toml:"invocation-limit"`
	Profile         bool   `toml:"profile"`
	ProfileLimit    uint32 `toml:"profile-limit"`
	MathIntrinsics  bool   `toml:"math-intrinsics"`
	DispatchTable   uint64 `toml:"dispatch-table"`
}

// Cache configures the persistent image cache.
type Cache struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// Default returns the manifest used when no rvgen.toml exists.
func Default() *Manifest {
	cfg := interp.DefaultConfig()
	return &Manifest{
		Target: Target{
			Base:     0x4000_0000,
			Capacity: 1 << 20,
			Features: []string{"d"},
		},
		Interpreter: Interpreter{
			UseCompiler:     cfg.UseCompiler,
			InvocationLimit: cfg.InvocationLimit,
			Profile:         cfg.ProfileInterpreter,
			ProfileLimit:    cfg.ProfileLimit,
			MathIntrinsics:  cfg.MathIntrinsics,
			DispatchTable:   cfg.Dispatch.Base,
		},
		Cache: Cache{Path: filepath.Join(".rvgen", "images.db")},
	}
}

// Load parses the rvgen.toml file in the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text over the defaults. name is used in errors.
func Parse(data []byte, name string) (*Manifest, error) {
	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}
	if _, err := m.Features(); err != nil {
		return nil, fmt.Errorf("%s: target.features: %w", name, err)
	}
	if m.Target.Capacity <= 0 {
		return nil, fmt.Errorf("%s: target.capacity must be positive", name)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find an rvgen.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Features returns the target extension set.
func (m *Manifest) Features() (asm.Features, error) {
	return asm.ParseFeatures(m.Target.Features)
}

// Config converts the manifest into a generator configuration.
func (m *Manifest) Config() (interp.Config, error) {
	cfg := interp.DefaultConfig()
	cfg.UseCompiler = m.Interpreter.UseCompiler
	cfg.InvocationLimit = m.Interpreter.InvocationLimit
	cfg.ProfileInterpreter = m.Interpreter.Profile
	cfg.ProfileLimit = m.Interpreter.ProfileLimit
	cfg.MathIntrinsics = m.Interpreter.MathIntrinsics
	cfg.Dispatch.Base = m.Interpreter.DispatchTable

	for _, name := range sortedKeys(m.Runtime) {
		if err := cfg.Runtime.Set(name, m.Runtime[name]); err != nil {
			return cfg, fmt.Errorf("runtime: %w", err)
		}
	}
	for _, name := range sortedKeys(m.Method) {
		if err := cfg.Method.Set(name, m.Method[name]); err != nil {
			return cfg, fmt.Errorf("method: %w", err)
		}
	}
	for _, name := range sortedKeys(m.Thread) {
		if err := cfg.Thread.Set(name, m.Thread[name]); err != nil {
			return cfg, fmt.Errorf("thread: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CachePath returns the absolute path of the image cache, or "" when the
// cache is disabled.
func (m *Manifest) CachePath() string {
	if m.Cache.Disabled || m.Cache.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
