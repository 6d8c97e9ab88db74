package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// acquireInstallLock serialises mutating operations on one tool across devkit
// processes. Without a data directory it is a no-op.
func (e *Engine) acquireInstallLock(ctx context.Context, tool string) (func(), error) {
	if e.Policy.DataDir == "" {
		return func() {}, nil
	}
	dir := filepath.Join(e.Policy.DataDir, "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare lock dir: %w", err)
	}

	lockPath := filepath.Join(dir, fmt.Sprintf("%s.lock", tool))
	staleAfter := 2 * e.commandTimeout()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
