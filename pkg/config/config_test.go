package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMissingPathReturnsZeroValue(t *testing.T) {
	f, err := LoadFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != (File{}) {
		t.Fatalf("expected zero File, got %+v", f)
	}
}

func TestLoadFileNonexistentPathReturnsZeroValue(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != (File{}) {
		t.Fatalf("expected zero File, got %+v", f)
	}
}

func TestLoadFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frftp.yml")
	content := "mtu: 9000\nretries: 12\nwindow: 64\nzero_copy: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.MTU != 9000 || f.Retries != 12 || f.Window != 64 || !f.ZeroCopy {
		t.Fatalf("parsed File = %+v", f)
	}
}

func TestMergeFlagsOverrideFile(t *testing.T) {
	f := File{MTU: 9000, Retries: 12, Window: 64}
	flags := Flags{MTU: 1500, Retries: 0}
	cfg := Merge(f, flags)
	if cfg.MTU != 1500 {
		t.Errorf("MTU = %d, want flag value 1500", cfg.MTU)
	}
	if cfg.Retries != 12 {
		t.Errorf("Retries = %d, want file value 12 (flag was unset)", cfg.Retries)
	}
	if cfg.Win != 64 {
		t.Errorf("Win = %d, want file value 64", cfg.Win)
	}
}

func TestMergeFallsBackToDefaults(t *testing.T) {
	cfg := Merge(File{}, Flags{})
	if cfg.MTU != 1500 {
		t.Errorf("MTU = %d, want default 1500", cfg.MTU)
	}
	if cfg.RTO != 300*time.Millisecond {
		t.Errorf("RTO = %v, want default 300ms", cfg.RTO)
	}
}
