//go:build windows

package winregistry

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"github.com/C-Sto/gowinreg/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

var (
	modadvapi32         = windows.NewLazySystemDLL("advapi32.dll")
	procRegSetValueExW  = modadvapi32.NewProc("RegSetValueExW")
	procRegDeleteKeyExW = modadvapi32.NewProc("RegDeleteKeyExW")
)

var liveRoots = map[string]registry.Key{
	"HKLM": registry.LOCAL_MACHINE,
	"HKCU": registry.CURRENT_USER,
	"HKCR": registry.CLASSES_ROOT,
	"HKU":  registry.USERS,
	"HKCC": registry.CURRENT_CONFIG,
}

// LiveStore talks to the registry of the local machine, or of Host when set.
// Arch selects the 32-bit ("x86") or 64-bit ("x64") view; empty uses the default view.
type LiveStore struct {
	Host string
	Arch string
}

func (l LiveStore) view() uint32 {
	switch l.Arch {
	case "x86":
		return registry.WOW64_32KEY
	case "x64":
		return registry.WOW64_64KEY
	}
	return 0
}

// root returns the hive handle and the sub path. done must be called afterwards.
func (l LiveStore) root(path string) (root registry.Key, sub string, done func(), err error) {
	hive, parts, err := SplitPath(path)
	if err != nil {
		return 0, "", nil, err
	}
	root = liveRoots[hive]
	done = func() {}
	if l.Host != "" {
		root, err = registry.OpenRemoteKey(l.Host, root)
		if err != nil {
			return 0, "", nil, fmt.Errorf("winregistry: connecting to %s: %w", l.Host, err)
		}
		remote := root
		done = func() { remote.Close() }
	}
	return root, strings.Join(parts, `\`), done, nil
}

func (l LiveStore) open(path string, access uint32) (registry.Key, error) {
	root, sub, done, err := l.root(path)
	if err != nil {
		return 0, err
	}
	defer done()
	k, err := registry.OpenKey(root, sub, access|l.view())
	return k, mapErr(err)
}

func mapErr(err error) error {
	if errors.Is(err, registry.ErrNotExist) {
		return ErrNotExist
	}
	return err
}

func (l LiveStore) EnumKeys(path string) ([]string, error) {
	k, err := l.open(path, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	return k.ReadSubKeyNames(-1)
}

func readValue(k registry.Key, name string) (Value, error) {
	n, typ, err := k.GetValue(name, nil)
	if err != nil && !errors.Is(err, registry.ErrShortBuffer) {
		return Value{}, mapErr(err)
	}
	buf := make([]byte, n)
	if n > 0 {
		n, typ, err = k.GetValue(name, buf)
		if err != nil {
			return Value{}, mapErr(err)
		}
	}
	return Value{Name: name, Type: typ, Data: buf[:n]}, nil
}

func (l LiveStore) EnumValues(path string) ([]Value, error) {
	k, err := l.open(path, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	names, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}
	r := make([]Value, 0, len(names))
	for _, n := range names {
		v, err := readValue(k, n)
		if err != nil {
			return nil, err
		}
		r = append(r, v)
	}
	return r, nil
}

func (l LiveStore) GetValue(path, name string) (Value, error) {
	k, err := l.open(path, registry.QUERY_VALUE)
	if err != nil {
		return Value{}, err
	}
	defer k.Close()
	return readValue(k, name)
}

func (l LiveStore) create(path string) (registry.Key, error) {
	root, sub, done, err := l.root(path)
	if err != nil {
		return 0, err
	}
	defer done()
	k, _, err := registry.CreateKey(root, sub, registry.ALL_ACCESS|l.view())
	return k, err
}

func (l LiveStore) SetValue(path string, v Value) error {
	k, err := l.create(path)
	if err != nil {
		return err
	}
	defer k.Close()
	name, err := syscall.UTF16PtrFromString(v.Name)
	if err != nil {
		return err
	}
	var data uintptr
	if len(v.Data) > 0 {
		data = uintptr(unsafe.Pointer(&v.Data[0]))
	}
	r, _, _ := procRegSetValueExW.Call(uintptr(k), uintptr(unsafe.Pointer(name)), 0, uintptr(v.Type), data, uintptr(len(v.Data)))
	if r != 0 {
		return syscall.Errno(r)
	}
	logger.Logger.Debug("live store set value", zap.String("path", path), zap.String("name", v.Name))
	return nil
}

func (l LiveStore) DeleteValue(path, name string) error {
	k, err := l.open(path, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return mapErr(k.DeleteValue(name))
}

func (l LiveStore) CreateKey(path string) error {
	k, err := l.create(path)
	if err != nil {
		return err
	}
	return k.Close()
}

func (l LiveStore) deleteTree(parent registry.Key, name string) error {
	k, err := registry.OpenKey(parent, name, registry.ENUMERATE_SUB_KEYS|l.view())
	if err != nil {
		return mapErr(err)
	}
	subs, err := k.ReadSubKeyNames(-1)
	if err == nil {
		for _, s := range subs {
			if err = l.deleteTree(k, s); err != nil {
				break
			}
		}
	}
	k.Close()
	if err != nil {
		return err
	}
	p, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	r, _, _ := procRegDeleteKeyExW.Call(uintptr(parent), uintptr(unsafe.Pointer(p)), uintptr(l.view()), 0)
	if r != 0 {
		return mapErr(syscall.Errno(r))
	}
	return nil
}

func (l LiveStore) DeleteKey(path string) error {
	hive, parts, err := SplitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return ErrBadPath
	}
	parent, err := l.open(JoinPath(hive, strings.Join(parts[:len(parts)-1], `\`)), registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return err
	}
	defer parent.Close()
	return l.deleteTree(parent, parts[len(parts)-1])
}

func (l LiveStore) KeyExists(path string) (bool, error) {
	k, err := l.open(path, registry.QUERY_VALUE)
	if err == ErrNotExist {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, k.Close()
}
