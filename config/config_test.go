package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/semequip/vocabulary/eqhub"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mapping.SourcePrefix != eqhub.IDPrefix {
		t.Errorf("expected default source prefix %s, got %s", eqhub.IDPrefix, cfg.Mapping.SourcePrefix)
	}
	if cfg.Shape.RewriteFrom != "https://posccaesar.org" || cfg.Shape.RewriteTo != "https://draft.posccaesar.org" {
		t.Errorf("unexpected default rewrite %q -> %q", cfg.Shape.RewriteFrom, cfg.Shape.RewriteTo)
	}
	if cfg.Equipment.BaseIRI != "https://example.org/equipment/" {
		t.Errorf("expected default base IRI https://example.org/equipment/, got %s", cfg.Equipment.BaseIRI)
	}
	if cfg.Output.Format != "turtle" {
		t.Errorf("expected default format turtle, got %s", cfg.Output.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing class table",
			modify:  func(c *Config) { c.Mapping.ClassTable = "" },
			wantErr: true,
		},
		{
			name:    "missing property table",
			modify:  func(c *Config) { c.Mapping.PropertyTable = "" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Shape.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "missing base IRI",
			modify:  func(c *Config) { c.Equipment.BaseIRI = "" },
			wantErr: true,
		},
		{
			name:    "unknown format",
			modify:  func(c *Config) { c.Output.Format = "rdfxml" },
			wantErr: true,
		},
		{
			name:    "format alias",
			modify:  func(c *Config) { c.Output.Format = "nt" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
mapping:
  class_table: "tables/classes.ttl"
  property_table: "/abs/properties.ttl"
  watch: true
  debounce: 2s
shape:
  rewrite_from: "https://a.example"
  rewrite_to: "https://b.example"
  timeout: 10s
  require_https: true
equipment:
  base_iri: "urn:equipment:"
output:
  format: ntriples
  dir: graphs
nats:
  url: "nats://test:4222"
  publish_graph: true
  record_runs: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if want := filepath.Join(tmpDir, "tables", "classes.ttl"); cfg.Mapping.ClassTable != want {
		t.Errorf("expected class table %s, got %s", want, cfg.Mapping.ClassTable)
	}
	if cfg.Mapping.PropertyTable != "/abs/properties.ttl" {
		t.Errorf("absolute property table should be kept, got %s", cfg.Mapping.PropertyTable)
	}
	if !cfg.Mapping.Watch || cfg.Mapping.Debounce != 2*time.Second {
		t.Errorf("unexpected watch settings: %+v", cfg.Mapping)
	}
	if cfg.Shape.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Shape.Timeout)
	}
	if rw := cfg.Rewrite(); rw.From != "https://a.example" || rw.To != "https://b.example" {
		t.Errorf("unexpected rewrite %+v", rw)
	}
	if fc := cfg.FetchConfig(); !fc.Policy.RequireHTTPS || fc.Policy.BlockPrivate {
		t.Errorf("unexpected policy %+v", fc.Policy)
	}
	if cfg.Equipment.BaseIRI != "urn:equipment:" {
		t.Errorf("expected base IRI urn:equipment:, got %s", cfg.Equipment.BaseIRI)
	}
	if cfg.Output.Format != "ntriples" {
		t.Errorf("expected format ntriples, got %s", cfg.Output.Format)
	}
	if want := filepath.Join(tmpDir, "graphs"); cfg.Output.Dir != want {
		t.Errorf("expected output dir %s, got %s", want, cfg.Output.Dir)
	}
	if cfg.NATS.URL != "nats://test:4222" || !cfg.NATS.PublishGraph || !cfg.NATS.RecordRuns {
		t.Errorf("unexpected NATS config %+v", cfg.NATS)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("mapping: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Mapping: MappingConfig{
			ClassTable: "/override/classes.ttl",
		},
		Output: OutputConfig{
			Format: "jsonld",
		},
	}

	base.Merge(override)

	if base.Mapping.ClassTable != "/override/classes.ttl" {
		t.Errorf("expected class table /override/classes.ttl, got %s", base.Mapping.ClassTable)
	}
	// Property table should remain from base since override didn't set it
	if base.Mapping.PropertyTable != DefaultConfig().Mapping.PropertyTable {
		t.Errorf("expected property table to remain default, got %s", base.Mapping.PropertyTable)
	}
	if base.Output.Format != "jsonld" {
		t.Errorf("expected format jsonld, got %s", base.Output.Format)
	}

	base.Merge(nil)
}

func TestConfigMergeDisableRewrite(t *testing.T) {
	disabled, enabled := true, false

	cfg := DefaultConfig()
	cfg.Merge(&Config{Shape: ShapeConfig{DisableRewrite: &disabled}})
	if rw := cfg.Rewrite(); rw.From != "" || rw.To != "" {
		t.Errorf("rewrite should be disabled, got %+v", rw)
	}
	if rw := cfg.Rewrite(); rw.Apply("https://posccaesar.org/x") != "https://posccaesar.org/x" {
		t.Error("disabled rewrite must not change shape text")
	}

	// A later layer without the key keeps it disabled.
	cfg.Merge(&Config{Output: OutputConfig{Format: "ntriples"}})
	if cfg.Rewrite().From != "" {
		t.Error("unrelated layer re-enabled the rewrite")
	}

	cfg.Merge(&Config{Shape: ShapeConfig{DisableRewrite: &enabled}})
	if rw := cfg.Rewrite(); rw.From != eqhub.PublishedBase || rw.To != eqhub.DraftBase {
		t.Errorf("rewrite should be restored, got %+v", rw)
	}
}

func TestLoadDisableRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semequip.yaml")
	if err := os.WriteFile(path, []byte("shape:\n  disable_rewrite: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Merge(loaded)
	if cfg.Rewrite().From != "" {
		t.Errorf("disable_rewrite from file not applied: %+v", cfg.Rewrite())
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Equipment.BaseIRI = "urn:saved:"
	cfg.Shape.Timeout = 45 * time.Second

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Equipment.BaseIRI != "urn:saved:" {
		t.Errorf("expected base IRI urn:saved:, got %s", loaded.Equipment.BaseIRI)
	}
	if loaded.Shape.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", loaded.Shape.Timeout)
	}
}

func TestLoaderLayering(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	workDir := filepath.Join(project, "nested", "dir")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		t.Fatal(err)
	}

	userCfg := &Config{Output: OutputConfig{Format: "jsonld"}, Equipment: EquipmentConfig{BaseIRI: "urn:user:"}}
	if err := userCfg.SaveToFile(filepath.Join(home, UserConfigDir, UserConfigFile)); err != nil {
		t.Fatal(err)
	}
	projectYAML := "equipment:\n  base_iri: \"urn:project:\"\nmapping:\n  class_table: Mapping/classes.ttl\n"
	if err := os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte(projectYAML), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil)
	l.home = home
	l.workDir = workDir
	l.getenv = func(string) string { return "" }

	cfg, err := l.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != "jsonld" {
		t.Errorf("user format should apply, got %s", cfg.Output.Format)
	}
	if cfg.Equipment.BaseIRI != "urn:project:" {
		t.Errorf("project base IRI should win, got %s", cfg.Equipment.BaseIRI)
	}
	if want := filepath.Join(project, "Mapping", "classes.ttl"); cfg.Mapping.ClassTable != want {
		t.Errorf("expected class table %s, got %s", want, cfg.Mapping.ClassTable)
	}

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	if err := os.WriteFile(explicit, []byte("output:\n  format: ntriples\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = l.Load(explicit)
	if err != nil {
		t.Fatalf("Load(explicit) error = %v", err)
	}
	if cfg.Output.Format != "ntriples" {
		t.Errorf("explicit file should win, got %s", cfg.Output.Format)
	}

	if _, err := l.Load(filepath.Join(project, "missing.yaml")); err == nil {
		t.Error("missing explicit config should fail")
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SEMEQUIP_FORMAT":        "ntriples",
		"SEMEQUIP_NATS_URL":      "nats://nats:4222",
		"SEMEQUIP_SHAPE_TIMEOUT": "5s",
	}
	l := NewLoader(nil)
	l.home = t.TempDir()
	l.workDir = t.TempDir()
	l.getenv = func(k string) string { return env[k] }

	cfg, err := l.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != "ntriples" {
		t.Errorf("expected format from env, got %s", cfg.Output.Format)
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("expected NATS URL from env, got %s", cfg.NATS.URL)
	}
	if cfg.Shape.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Shape.Timeout)
	}
	if cfg.Equipment.BaseIRI != eqhub.EquipmentNamespace {
		t.Errorf("unset variables must keep defaults, got %s", cfg.Equipment.BaseIRI)
	}

	env["SEMEQUIP_SHAPE_TIMEOUT"] = "soon"
	if _, err := l.Load(""); err == nil {
		t.Error("invalid SEMEQUIP_SHAPE_TIMEOUT should fail")
	}

	env = map[string]string{"SEMEQUIP_FORMAT": "rdfxml"}
	if _, err := l.Load(""); err == nil {
		t.Error("invalid format from env should fail validation")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	l := NewLoader(nil)
	l.home = t.TempDir()

	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(l.home, UserConfigDir, UserConfigFile)); err != nil {
		t.Errorf("user config not created: %v", err)
	}
}
