package identity_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/voxtutor/voxtutor/internal/identity"
)

var idPattern = regexp.MustCompile(`^user_[0-9a-f]{9}_\d+$`)

func TestGenerate_Format(t *testing.T) {
	t.Parallel()
	id := identity.Generate()
	if !idPattern.MatchString(id) {
		t.Errorf("generated ID %q does not match expected format", id)
	}
}

func TestGenerate_Unique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for range 100 {
		id := identity.Generate()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestLoad_CreatesAndPersists(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "identity")

	first, err := identity.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !idPattern.MatchString(first) {
		t.Errorf("loaded ID %q does not match expected format", first)
	}

	// A second load must return the same ID, not a new one.
	second, err := identity.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("identity not stable across loads: %q vs %q", first, second)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat identity file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("identity file mode: got %o, want 600", perm)
	}
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "identity")
	if err := os.WriteFile(path, []byte("  user_abc123def_1700000000000\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	id, err := identity.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "user_abc123def_1700000000000" {
		t.Errorf("got %q, want trimmed stored ID", id)
	}
}

func TestLoad_RegeneratesEmptyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "identity")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	id, err := identity.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(id) == "" {
		t.Fatal("expected a regenerated ID for an empty file")
	}
	if !idPattern.MatchString(id) {
		t.Errorf("regenerated ID %q does not match expected format", id)
	}
}
