//go:build windows

package pathenv

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const (
	hwndBroadcast   = 0xffff
	wmSettingChange = 0x001A
	smtoAbortIfHung = 0x0002
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procSendMessageTimeout = user32.NewProc("SendMessageTimeoutW")
)

// RegistryPersister edits the user-scope Path value under HKCU\Environment.
type RegistryPersister struct{}

var _ Persister = RegistryPersister{}

// DefaultPersister returns the persistent store for the current platform.
func DefaultPersister() (Persister, error) {
	return RegistryPersister{}, nil
}

func (RegistryPersister) Add(dirs []string) error {
	return updateUserPath(func(entries []string) []string {
		next, _ := appendMissing(entries, dirs)
		return next
	})
}

func (RegistryPersister) Remove(dirs []string) error {
	return updateUserPath(func(entries []string) []string {
		next, _ := removeAll(entries, dirs)
		return next
	})
}

func updateUserPath(fn func([]string) []string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, `Environment`, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open HKCU\\Environment: %w", err)
	}
	defer key.Close()

	current, _, err := key.GetStringValue("Path")
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("read user Path: %w", err)
	}

	entries := splitRegistry(current)
	next := fn(entries)
	if equalKeys(entries, next) {
		return nil
	}
	if err := key.SetExpandStringValue("Path", strings.Join(next, ";")); err != nil {
		return fmt.Errorf("write user Path: %w", err)
	}
	broadcastEnvironmentChange()
	return nil
}

func splitRegistry(value string) []string {
	var out []string
	for _, entry := range strings.Split(value, ";") {
		if strings.TrimSpace(entry) != "" {
			out = append(out, entry)
		}
	}
	return out
}

// broadcastEnvironmentChange tells running shells and Explorer to reload the
// environment block.
func broadcastEnvironmentChange() {
	env, err := windows.UTF16PtrFromString("Environment")
	if err != nil {
		return
	}
	var result uintptr
	_, _, _ = procSendMessageTimeout.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(env)),
		smtoAbortIfHung,
		5000,
		uintptr(unsafe.Pointer(&result)),
	)
}
