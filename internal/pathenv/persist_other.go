//go:build !windows

package pathenv

import (
	"fmt"
	"os"
)

// DefaultPersister returns the persistent store for the current platform.
func DefaultPersister() (Persister, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("detect user home: %w", err)
	}
	return DetectShellRC(home), nil
}
