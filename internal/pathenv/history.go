package pathenv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// HistoryFileName is the file under the data directory that records which
// directories devkit added to PATH for each tool.
const HistoryFileName = "path-history.json"

type historyFile struct {
	Entries map[string][]string `json:"entries"`
}

// History persists the directories added per tool so uninstall can strip
// exactly what devkit added.
type History struct {
	mu   sync.Mutex
	path string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

// Path returns the backing file.
func (h *History) Path() string {
	return h.path
}

// Record adds dirs to the tool's entry, skipping ones already recorded.
func (h *History) Record(tool string, dirs ...string) error {
	if len(dirs) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := h.load()
	if err != nil {
		return err
	}
	f.Entries[tool], _ = appendMissing(f.Entries[tool], dirs)
	return h.save(f)
}

// Dirs returns the directories recorded for tool.
func (h *History) Dirs(tool string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := h.load()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), f.Entries[tool]...), nil
}

// Forget drops the tool's entry.
func (h *History) Forget(tool string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := h.load()
	if err != nil {
		return err
	}
	if _, ok := f.Entries[tool]; !ok {
		return nil
	}
	delete(f.Entries, tool)
	return h.save(f)
}

func (h *History) load() (historyFile, error) {
	contents, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return historyFile{Entries: map[string][]string{}}, nil
		}
		return historyFile{}, fmt.Errorf("read path history: %w", err)
	}

	var f historyFile
	if err := json.Unmarshal(contents, &f); err != nil {
		return historyFile{}, fmt.Errorf("unmarshal path history: %w", err)
	}
	if f.Entries == nil {
		f.Entries = map[string][]string{}
	}
	return f, nil
}

func (h *History) save(f historyFile) error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("prepare path history directory: %w", err)
	}

	buf, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal path history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(h.path), "path-history-*.json")
	if err != nil {
		return fmt.Errorf("create temp path history: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write path history temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close path history temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		return fmt.Errorf("replace path history: %w", err)
	}
	return nil
}
