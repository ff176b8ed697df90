package winregistry

import (
	"strings"
	"sync"

	"github.com/C-Sto/gowinreg/pkg/logger"
	"go.uber.org/zap"
)

type memKey struct {
	name    string
	subkeys []*memKey
	values  []Value
}

func (k *memKey) subkey(name string) (int, *memKey) {
	for i, s := range k.subkeys {
		if strings.EqualFold(s.name, name) {
			return i, s
		}
	}
	return -1, nil
}

func (k *memKey) value(name string) (int, *Value) {
	for i := range k.values {
		if strings.EqualFold(k.values[i].Name, name) {
			return i, &k.values[i]
		}
	}
	return -1, nil
}

// MemoryStore is an in-memory registry. Names compare case-insensitively and
// enumeration follows insertion order. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	roots map[string]*memKey
}

// NewMemoryStore returns a store holding the five empty hives.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{roots: make(map[string]*memKey, len(Hives))}
	for _, h := range Hives {
		m.roots[h] = &memKey{name: h}
	}
	return m
}

func (m *MemoryStore) find(path string) (*memKey, error) {
	hive, parts, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	k := m.roots[hive]
	for _, p := range parts {
		if _, k = k.subkey(p); k == nil {
			return nil, ErrNotExist
		}
	}
	return k, nil
}

func (m *MemoryStore) create(path string) (*memKey, error) {
	hive, parts, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	k := m.roots[hive]
	for _, p := range parts {
		_, next := k.subkey(p)
		if next == nil {
			next = &memKey{name: p}
			k.subkeys = append(k.subkeys, next)
		}
		k = next
	}
	return k, nil
}

func (m *MemoryStore) EnumKeys(path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, err := m.find(path)
	if err != nil {
		return nil, err
	}
	r := make([]string, 0, len(k.subkeys))
	for _, s := range k.subkeys {
		r = append(r, s.name)
	}
	return r, nil
}

func (m *MemoryStore) EnumValues(path string) ([]Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, err := m.find(path)
	if err != nil {
		return nil, err
	}
	r := make([]Value, 0, len(k.values))
	for _, v := range k.values {
		r = append(r, copyValue(v))
	}
	return r, nil
}

func (m *MemoryStore) GetValue(path, name string) (Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, err := m.find(path)
	if err != nil {
		return Value{}, err
	}
	_, v := k.value(name)
	if v == nil {
		return Value{}, ErrNotExist
	}
	return copyValue(*v), nil
}

func (m *MemoryStore) SetValue(path string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := m.create(path)
	if err != nil {
		return err
	}
	v = copyValue(v)
	if _, old := k.value(v.Name); old != nil {
		// keep the original spelling of the name, like the registry does
		v.Name = old.Name
		*old = v
	} else {
		k.values = append(k.values, v)
	}
	logger.Logger.Debug("memory store set value", zap.String("path", path), zap.String("name", v.Name), zap.String("type", TypeName(v.Type)))
	return nil
}

func (m *MemoryStore) DeleteValue(path, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := m.find(path)
	if err != nil {
		return err
	}
	i, _ := k.value(name)
	if i < 0 {
		return ErrNotExist
	}
	k.values = append(k.values[:i], k.values[i+1:]...)
	return nil
}

func (m *MemoryStore) CreateKey(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.create(path)
	return err
}

func (m *MemoryStore) DeleteKey(path string) error {
	hive, parts, err := SplitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return ErrBadPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	parent := m.roots[hive]
	for _, p := range parts[:len(parts)-1] {
		if _, parent = parent.subkey(p); parent == nil {
			return ErrNotExist
		}
	}
	i, _ := parent.subkey(parts[len(parts)-1])
	if i < 0 {
		return ErrNotExist
	}
	parent.subkeys = append(parent.subkeys[:i], parent.subkeys[i+1:]...)
	logger.Logger.Debug("memory store deleted key", zap.String("path", path))
	return nil
}

func (m *MemoryStore) KeyExists(path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.find(path)
	if err == ErrNotExist {
		return false, nil
	}
	return err == nil, err
}

func copyValue(v Value) Value {
	if v.Data != nil {
		v.Data = append([]byte(nil), v.Data...)
	}
	return v
}
