package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/basic-arm/codegen/settings"
)

func TestDefault(t *testing.T) {
	s := settings.Default()

	if s.FPTarget != settings.TargetFPA {
		t.Errorf("expected default FPTarget=FPA, got %v", s.FPTarget)
	}
	if s.StartAddress != 0x8000 {
		t.Errorf("expected StartAddress=0x8000, got %#x", s.StartAddress)
	}
	if s.MaxIntRegs != 11 {
		t.Errorf("expected MaxIntRegs=11, got %d", s.MaxIntRegs)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := settings.Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.StartAddress != settings.Default().StartAddress {
		t.Errorf("expected defaults when file missing, got %+v", s)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	contents := "fp_target = 1\nstart_address = 32768\nheap_size_hint = 4096\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s, err := settings.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.FPTarget != settings.TargetVFP {
		t.Errorf("expected FPTarget=VFP, got %v", s.FPTarget)
	}
	if s.HeapSizeHint != 4096 {
		t.Errorf("expected HeapSizeHint=4096, got %d", s.HeapSizeHint)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if _, err := settings.Load(path); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}
