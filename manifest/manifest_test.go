package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/interp"
)

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with an rvgen.toml
	dir := t.TempDir()
	tomlContent := `
[target]
base = 0x50000000
capacity = 65536
features = ["d", "zba", "zbb"]

[interpreter]
use-compiler = false
profile = true
profile-limit = 500
dispatch-table = 0x7d0000000000

[runtime]
monitorenter = 0x7f0000001000
sin = 0

[method]
max-stack = 14

[thread]
polling-word = 72

[cache]
path = "cache/images.db"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Target.Base != 0x5000_0000 || m.Target.Capacity != 65536 {
		t.Errorf("target = %+v", m.Target)
	}
	f, err := m.Features()
	if err != nil {
		t.Fatal(err)
	}
	if want := asm.Features(0).With(asm.FeatureD).With(asm.FeatureZba).With(asm.FeatureZbb); f != want {
		t.Errorf("features = %s, want %s", f, want)
	}

	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg.UseCompiler || !cfg.ProfileInterpreter || cfg.ProfileLimit != 500 {
		t.Errorf("interpreter flags = %+v", cfg)
	}
	if !cfg.MathIntrinsics {
		t.Error("math-intrinsics default lost")
	}
	if cfg.Dispatch.Base != 0x7d00_0000_0000 {
		t.Errorf("dispatch table = %#x", cfg.Dispatch.Base)
	}
	if cfg.Runtime.MonitorEnter != 0x7f00_0000_1000 || cfg.Runtime.Sin != 0 {
		t.Errorf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Runtime.MonitorExit != interp.DefaultConfig().Runtime.MonitorExit {
		t.Error("unnamed runtime entry lost its default")
	}
	if cfg.Method.MaxStack != 14 || cfg.Thread.PollingWord != 72 {
		t.Errorf("layout overrides: max-stack %d, polling-word %d", cfg.Method.MaxStack, cfg.Thread.PollingWord)
	}
	if got := m.CachePath(); got != filepath.Join(m.Dir, "cache", "images.db") {
		t.Errorf("cache path = %q", got)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[target]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	def := interp.DefaultConfig()
	if cfg.UseCompiler != def.UseCompiler || cfg.InvocationLimit != def.InvocationLimit || cfg.Runtime != def.Runtime {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if m.Target.Base != Default().Target.Base {
		t.Errorf("base = %#x", m.Target.Base)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, text, want string
	}{
		{"syntax", "[target\n", "parse error"},
		{"unknown key", "[target]\nbsae = 1\n", "target.bsae"},
		{"unknown section", "[targets]\nbase = 1\n", "targets"},
		{"bad feature", "[target]\nfeatures = [\"q\"]\n", "target.features"},
		{"zero capacity", "[target]\ncapacity = 0\n", "capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.text), "rvgen.toml")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name, text, want string
	}{
		{"unknown runtime entry", "[runtime]\nmonitor-enter = 16\n", "monitor-enter"},
		{"unknown method field", "[method]\nstack = 8\n", "stack"},
		{"misaligned thread field", "[thread]\npending-exception = 12\n", "pending-exception"},
		{"required entry removed", "[runtime]\nmonitorexit = 0\n", "monitorexit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.text), "rvgen.toml")
			if err != nil {
				t.Fatal(err)
			}
			if _, err := m.Config(); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[cache]\ndisabled = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("manifest not found")
	}
	abs, _ := filepath.Abs(root)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
	if m.CachePath() != "" {
		t.Errorf("disabled cache has path %q", m.CachePath())
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// A manifest could exist above the temp dir on odd systems; only check
	// that a found one is well formed.
	if m != nil && m.Dir == "" {
		t.Error("manifest without a directory")
	}
}
