package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_UsesEnvDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.ProfileNameFormat != defaultProfileFormat {
		t.Errorf("ProfileNameFormat = %q, want default", cfg.ProfileNameFormat)
	}
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	content := "profile_name_format: \"%s.yaml\"\ndebug: true\nqueue_workers: 16\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProfileNameFormat != "%s.yaml" {
		t.Errorf("ProfileNameFormat = %q", cfg.ProfileNameFormat)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.QueueWorkers != 16 {
		t.Errorf("QueueWorkers = %d, want 16", cfg.QueueWorkers)
	}
}

func TestConfig_ProfileFilename(t *testing.T) {
	cfg := &Config{ProfileNameFormat: "%s.profile.yaml"}
	if got := cfg.ProfileFilename("gromacs"); got != "gromacs.profile.yaml" {
		t.Errorf("ProfileFilename = %q", got)
	}
}

func TestConfig_StorePath(t *testing.T) {
	cfg := &Config{DataDir: "/data/root"}
	want := filepath.Join("/data/root", "jobweave.db")
	if got := cfg.StorePath(); got != want {
		t.Errorf("StorePath = %q, want %q", got, want)
	}
}
