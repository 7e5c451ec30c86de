package loka

import (
	"os"
	"strings"
	"testing"
)

func TestLoadEnvConfigDefaults(t *testing.T) {
	// t.Setenv registers restoration, Unsetenv makes the variable truly absent
	for _, name := range []string{"LOKA_LOOP_CAP", "LOKA_NOTIFY_COMMANDS", "LOKA_ADDR", "LOKA_DEBUG"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LoopCap != 10000 {
		t.Fatalf("LoopCap = %d", cfg.LoopCap)
	}
	if cfg.NotifyCommands || cfg.Debug {
		t.Fatalf("flags = %+v", cfg)
	}
	if cfg.Addr != ":3000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
}

func TestLoadEnvConfigReadsVariables(t *testing.T) {
	t.Setenv("LOKA_LOOP_CAP", "250")
	t.Setenv("LOKA_NOTIFY_COMMANDS", "true")
	t.Setenv("LOKA_ADDR", ":8080")
	t.Setenv("LOKA_DEBUG", "true")

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LoopCap != 250 || !cfg.NotifyCommands || cfg.Addr != ":8080" || !cfg.Debug {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadEnvConfigRejectsBadLoopCap(t *testing.T) {
	t.Setenv("LOKA_LOOP_CAP", "not-a-number")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("expected parse error")
	}

	t.Setenv("LOKA_LOOP_CAP", "-5")
	_, err := LoadEnvConfig()
	if err == nil || !strings.Contains(err.Error(), "must be positive") {
		t.Fatalf("err = %v", err)
	}
}

func TestRuntimeConfigMapsEnvFields(t *testing.T) {
	cfg := EnvConfig{LoopCap: 42, NotifyCommands: true}.RuntimeConfig()
	if cfg.LoopCap != 42 || !cfg.NotifyCommands {
		t.Fatalf("cfg = %+v", cfg)
	}
}
