//go:build windows

package envstore

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const (
	hwndBroadcast   = 0xffff
	wmSettingChange = 0x001a
	smtoAbortIfHung = 0x0002
	broadcastWaitMS = 5000
)

// userStore persists variables under HKCU\Environment, the same hive
// the system Settings dialog edits.
type userStore struct{}

// OpenUser returns the current user's persistent environment store.
func OpenUser() Store {
	return userStore{}
}

func (userStore) openKey(access uint32) (registry.Key, error) {
	return registry.OpenKey(registry.CURRENT_USER, "Environment", access)
}

func (s userStore) Get(name string) (string, bool, error) {
	key, err := s.openKey(registry.QUERY_VALUE)
	if err != nil {
		return "", false, fmt.Errorf("open HKCU\\Environment: %w", err)
	}
	defer key.Close()

	value, _, err := key.GetStringValue(name)
	if err == registry.ErrNotExist {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return value, true, nil
}

func (s userStore) Set(name, value string) error {
	key, err := s.openKey(registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open HKCU\\Environment: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(name, value); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s userStore) Delete(name string) error {
	key, err := s.openKey(registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open HKCU\\Environment: %w", err)
	}
	defer key.Close()

	err = key.DeleteValue(name)
	if err == registry.ErrNotExist {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Broadcast posts WM_SETTINGCHANGE("Environment") to all top-level
// windows. SMTO_ABORTIFHUNG keeps one wedged window from stalling the
// whole activation.
func (userStore) Broadcast() error {
	user32 := windows.NewLazySystemDLL("user32.dll")
	sendMessageTimeout := user32.NewProc("SendMessageTimeoutW")

	param, err := windows.UTF16PtrFromString("Environment")
	if err != nil {
		return fmt.Errorf("encode broadcast parameter: %w", err)
	}

	var result uintptr
	ret, _, callErr := sendMessageTimeout.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(param)),
		smtoAbortIfHung,
		broadcastWaitMS,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return fmt.Errorf("broadcast environment change: %w", callErr)
	}
	return nil
}
