package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("EXTPIN_TEST_A=from-file\nEXTPIN_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("EXTPIN_TEST_A", "")
	os.Unsetenv("EXTPIN_TEST_A")
	t.Setenv("EXTPIN_TEST_B", "from-env")

	if err := LoadEnvFile(path, true); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("EXTPIN_TEST_A"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("EXTPIN_TEST_B"); got != "from-env" {
		t.Fatalf("existing env must win, got %q", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".env")
	if err := LoadEnvFile(missing, false); err != nil {
		t.Fatalf("optional missing file should be ignored: %v", err)
	}
	if err := LoadEnvFile(missing, true); err == nil {
		t.Fatalf("required missing file should fail")
	}
	if err := LoadEnvFile("", true); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}
