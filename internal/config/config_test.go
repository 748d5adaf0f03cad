package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/ecscore/internal/core/ecs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecsdump.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[ecs]
entity_grow = 64
hierarchy_block = 32

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := ecs.Tunables{
		EntityGrow:     64,
		ComponentGrow:  ecs.DefaultComponentGrow,
		RangeGrow:      ecs.DefaultRangeGrow,
		HierarchyBlock: 32,
	}
	if got := cfg.ECS.Tunables(); got != want {
		t.Errorf("Tunables() = %+v, want %+v", got, want)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"block not power of two", "[ecs]\nhierarchy_block = 12\n"},
		{"unknown log format", "[logging]\nformat = \"xml\"\n"},
		{"malformed toml", "[ecs\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if got := cfg.ECS.Tunables(); got != ecs.DefaultTunables() {
		t.Errorf("Tunables() = %+v, want defaults", got)
	}
}
