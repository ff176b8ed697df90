package winregistry

import (
	"errors"
	"strings"
)

var (
	// ErrNotExist is returned when a key or value is missing.
	ErrNotExist = errors.New("winregistry: the system was unable to find the specified registry key or value")
	// ErrReadOnly is returned by stores that cannot be written to.
	ErrReadOnly = errors.New("winregistry: store is read only")
	// ErrUnsupported is returned by every call of the fallback store on hosts without a registry.
	ErrUnsupported = errors.New("winregistry: registry access is not supported on this platform")
	// ErrBadHive is returned when an offline hive file is malformed.
	ErrBadHive = errors.New("winregistry: malformed hive")
	// ErrBadPath is returned for paths that do not start with a known hive.
	ErrBadPath = errors.New("winregistry: invalid registry path")
)

// Store is a backing registry. Paths take the form HIVE\sub\key where HIVE is one of
// the short hive names (HKLM, HKCU, HKCR, HKU, HKCC). An empty value name addresses
// the key's default value.
type Store interface {
	EnumKeys(path string) ([]string, error)
	EnumValues(path string) ([]Value, error)
	GetValue(path, name string) (Value, error)
	// SetValue creates the key (and any missing parents) when needed.
	SetValue(path string, v Value) error
	DeleteValue(path, name string) error
	// CreateKey creates the key and any missing parents. Existing keys are left alone.
	CreateKey(path string) error
	// DeleteKey removes the key and its whole subtree.
	DeleteKey(path string) error
	KeyExists(path string) (bool, error)
}

var hiveAliases = map[string]string{
	"HKLM":                "HKLM",
	"HKEY_LOCAL_MACHINE":  "HKLM",
	"HKCU":                "HKCU",
	"HKEY_CURRENT_USER":   "HKCU",
	"HKCR":                "HKCR",
	"HKEY_CLASSES_ROOT":   "HKCR",
	"HKU":                 "HKU",
	"HKEY_USERS":          "HKU",
	"HKCC":                "HKCC",
	"HKEY_CURRENT_CONFIG": "HKCC",
}

// Hives lists the short hive names in the order reg.exe documents them.
var Hives = []string{"HKLM", "HKCU", "HKCR", "HKU", "HKCC"}

// CanonicalHive maps a short or long hive name to its short form.
func CanonicalHive(name string) (string, bool) {
	h, ok := hiveAliases[strings.ToUpper(name)]
	return h, ok
}

// SplitPath splits HIVE\a\b into the canonical hive and the components below it.
func SplitPath(path string) (hive string, parts []string, err error) {
	path = strings.Trim(path, `\`)
	if path == "" {
		return "", nil, ErrBadPath
	}
	segs := strings.Split(path, `\`)
	hive, ok := CanonicalHive(segs[0])
	if !ok {
		return "", nil, ErrBadPath
	}
	for _, s := range segs[1:] {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return hive, parts, nil
}

// JoinPath builds a store path from a hive and a key such as \Software\Foo.
func JoinPath(hive, key string) string {
	key = strings.Trim(key, `\`)
	if key == "" {
		return hive
	}
	return hive + `\` + key
}
