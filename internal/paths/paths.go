package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"devkit/internal/config"
	"devkit/internal/pathenv"
)

// HomeEnv overrides the data directory when set.
const HomeEnv = "DEVKIT_HOME"

// Layout captures canonical locations for devkit's per-user state.
type Layout struct {
	DataDir      string
	ConfigFile   string
	LogsDir      string
	DownloadsDir string
	HistoryFile  string
}

// Resolve determines the data directory from the optional override, the
// DEVKIT_HOME environment variable, or the platform default.
func Resolve(override string) (Layout, error) {
	dir := strings.TrimSpace(override)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(HomeEnv))
	}
	if dir == "" {
		var err error
		dir, err = defaultDataDir()
		if err != nil {
			return Layout{}, err
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return newLayout(abs), nil
}

func newLayout(root string) Layout {
	return Layout{
		DataDir:      root,
		ConfigFile:   filepath.Join(root, "config.yaml"),
		LogsDir:      filepath.Join(root, "logs"),
		DownloadsDir: filepath.Join(root, "downloads"),
		HistoryFile:  filepath.Join(root, pathenv.HistoryFileName),
	}
}

func defaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "devkit"), nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("detect user home: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "devkit"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "devkit"), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return filepath.Join(home, ".local", "share", "devkit"), nil
}

// ApplyConfig lets settings relocate the logs directory. Relative values are
// taken from the data directory.
func (l Layout) ApplyConfig(cfg config.Config) Layout {
	if logs := strings.TrimSpace(cfg.LogDir); logs != "" {
		l.LogsDir = resolveDataPath(l.DataDir, logs)
	}
	return l
}

func resolveDataPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// Ensure creates the data, logs and downloads directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.DataDir, l.LogsDir, l.DownloadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}


// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
