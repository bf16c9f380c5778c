package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Proto3Address == "" || cfg.GroupCapacity == 0 {
		t.Fatalf("Default() left required fields unset: %+v", cfg)
	}
	if cfg.SSHEnabled {
		t.Fatalf("Default() should not enable ssh: %+v", cfg)
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tilestore.hcl")
	body := `proto3_address = "0.0.0.0:5432"
group_capacity = 64
ssh_enabled = true
ssh_host_key_files = ["host.key"]
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if cfg.Proto3Address != "0.0.0.0:5432" {
		t.Errorf("Proto3Address = %q", cfg.Proto3Address)
	}
	if cfg.GroupCapacity != 64 {
		t.Errorf("GroupCapacity = %d", cfg.GroupCapacity)
	}
	if !cfg.SSHEnabled {
		t.Errorf("SSHEnabled = false, want true")
	}
	if len(cfg.SSHHostKeyFiles) != 1 || cfg.SSHHostKeyFiles[0] != "host.key" {
		t.Errorf("SSHHostKeyFiles = %v", cfg.SSHHostKeyFiles)
	}
	// SSHAddress was not set in the file, so it keeps the Default value.
	if cfg.SSHAddress != Default().SSHAddress {
		t.Errorf("SSHAddress = %q, want default %q", cfg.SSHAddress, Default().SSHAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.hcl")); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
}
