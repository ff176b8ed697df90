// Package systemreader exposes the CurrentControlSet link of an offline SYSTEM hive.
// Windows creates the link at boot, so it is missing from hive files; the reader
// resolves it through Select\Current the way the kernel does.
package systemreader

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/C-Sto/gowinreg/pkg/logger"
	"github.com/C-Sto/gowinreg/pkg/winregistry"
	"go.uber.org/zap"
)

const currentControlSet = "CurrentControlSet"

// SystemReader is a Store that maps <mount>\CurrentControlSet to the control set
// selected by <mount>\Select\Current. Every other path goes to the wrapped store as is.
type SystemReader struct {
	winregistry.Store

	hive    string
	mount   []string
	current string
}

// New reads Select\Current below mount, the path the SYSTEM hive is mounted at.
func New(store winregistry.Store, mount string) (*SystemReader, error) {
	hive, parts, err := winregistry.SplitPath(mount)
	if err != nil {
		return nil, err
	}
	v, err := store.GetValue(winregistry.JoinPath(hive, strings.Join(parts, `\`)+`\Select`), "Current")
	if err != nil {
		return nil, fmt.Errorf("systemreader: reading Select\\Current: %w", err)
	}
	if v.Type != winregistry.REG_DWORD || len(v.Data) < 4 {
		return nil, fmt.Errorf("systemreader: Select\\Current is %s, want REG_DWORD", winregistry.TypeName(v.Type))
	}
	r := &SystemReader{
		Store:   store,
		hive:    hive,
		mount:   parts,
		current: fmt.Sprintf("ControlSet%03d", binary.LittleEndian.Uint32(v.Data)),
	}
	logger.Logger.Debug("resolved current control set", zap.String("mount", mount), zap.String("controlSet", r.current))
	return r, nil
}

// CurrentControlSet returns the name of the selected control set, e.g. ControlSet001.
func (r *SystemReader) CurrentControlSet() string {
	return r.current
}

// below reports whether parts start with the mount point.
func (r *SystemReader) below(hive string, parts []string) bool {
	if hive != r.hive || len(parts) < len(r.mount) {
		return false
	}
	for i, m := range r.mount {
		if !strings.EqualFold(parts[i], m) {
			return false
		}
	}
	return true
}

func (r *SystemReader) resolve(path string) string {
	hive, parts, err := winregistry.SplitPath(path)
	if err != nil || !r.below(hive, parts) || len(parts) == len(r.mount) {
		return path
	}
	n := len(r.mount)
	if !strings.EqualFold(parts[n], currentControlSet) {
		return path
	}
	parts[n] = r.current
	return winregistry.JoinPath(hive, strings.Join(parts, `\`))
}

// EnumKeys lists CurrentControlSet next to the real keys at the mount point.
func (r *SystemReader) EnumKeys(path string) ([]string, error) {
	keys, err := r.Store.EnumKeys(r.resolve(path))
	if err != nil {
		return nil, err
	}
	if hive, parts, err := winregistry.SplitPath(path); err == nil && r.below(hive, parts) && len(parts) == len(r.mount) {
		keys = append(keys, currentControlSet)
	}
	return keys, nil
}

func (r *SystemReader) EnumValues(path string) ([]winregistry.Value, error) {
	return r.Store.EnumValues(r.resolve(path))
}

func (r *SystemReader) GetValue(path, name string) (winregistry.Value, error) {
	return r.Store.GetValue(r.resolve(path), name)
}

func (r *SystemReader) SetValue(path string, v winregistry.Value) error {
	return r.Store.SetValue(r.resolve(path), v)
}

func (r *SystemReader) DeleteValue(path, name string) error {
	return r.Store.DeleteValue(r.resolve(path), name)
}

func (r *SystemReader) CreateKey(path string) error {
	return r.Store.CreateKey(r.resolve(path))
}

func (r *SystemReader) DeleteKey(path string) error {
	return r.Store.DeleteKey(r.resolve(path))
}

func (r *SystemReader) KeyExists(path string) (bool, error) {
	return r.Store.KeyExists(r.resolve(path))
}
