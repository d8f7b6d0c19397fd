package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseJSONFileOverridesFields(t *testing.T) {
	path := writeTempFile(t, "config.json", `{"listen":"0.0.0.0:7777","key":"secret","closewait":17,"pprof":true}`)

	cfg := Config{Listen: ":1", Key: "default", CloseWait: 30}
	if err := ParseJSONFile(&cfg, path); err != nil {
		t.Fatalf("ParseJSONFile: %v", err)
	}

	if cfg.Listen != "0.0.0.0:7777" || cfg.Key != "secret" || cfg.CloseWait != 17 || !cfg.Pprof {
		t.Fatalf("unexpected config after override: %+v", cfg)
	}
}

func TestParseJSONFileMissing(t *testing.T) {
	var cfg Config
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := ParseJSONFile(&cfg, missing); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadEnvFileParsesKeyValue(t *testing.T) {
	path := writeTempFile(t, ".env", "RSOCKD_KEY=hunter2\nRSOCKD_LISTEN=0.0.0.0:9000\n")

	env, err := LoadEnvFile(path)
	if err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}

	var key string
	ApplyEnvKey(&key, env, "RSOCKD_KEY")
	if key != "hunter2" {
		t.Fatalf("ApplyEnvKey did not find RSOCKD_KEY, got %q", key)
	}
}

func TestApplyEnvKeyLeavesDestinationWhenAbsent(t *testing.T) {
	env := []string{"OTHER=1"}
	key := "unchanged"
	ApplyEnvKey(&key, env, "RSOCKD_KEY")
	if key != "unchanged" {
		t.Fatalf("ApplyEnvKey modified destination when key absent: %q", key)
	}
}

func TestResolveTargetTimeoutDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ResolveTargetTimeout()
	if cfg.TargetTimeout != 10*time.Second {
		t.Fatalf("TargetTimeout = %v, want 10s default", cfg.TargetTimeout)
	}
}

func TestResolveTargetTimeoutUsesSeconds(t *testing.T) {
	cfg := Config{TargetTimeoutSeconds: 5}
	cfg.ResolveTargetTimeout()
	if cfg.TargetTimeout != 5*time.Second {
		t.Fatalf("TargetTimeout = %v, want 5s", cfg.TargetTimeout)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
