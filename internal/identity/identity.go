// Package identity manages the persistent anonymous user ID that scopes all
// backend state (uploaded notes, conversation context) to this installation.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPath returns the default identity file location under the OS user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("identity: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "voxtutor", "identity"), nil
}

// Load returns the user ID stored at path, generating and persisting a new
// one on first use. The ID is stable across restarts; deleting the file
// resets the installation to a fresh identity.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
		// Empty file: treat as absent and regenerate.
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("identity: read %q: %w", path, err)
	}

	id := Generate()
	if err := persist(path, id); err != nil {
		return "", err
	}
	return id, nil
}

// Generate returns a fresh user ID of the form "user_<random>_<unix-ms>".
func Generate() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("user_%s_%d", random, time.Now().UnixMilli())
}

// persist writes the ID to path, creating parent directories as needed.
// The file is user-readable only since the ID is effectively a credential.
func persist(path, id string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("identity: create dir for %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("identity: write %q: %w", path, err)
	}
	return nil
}
