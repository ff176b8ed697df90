// Package winreg is a callback based Windows registry client. Every operation runs on
// its own goroutine and reports through a trailing (result, err) callback that is
// called exactly once.
package winreg

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/C-Sto/gowinreg/pkg/logger"
	"github.com/C-Sto/gowinreg/pkg/winregistry"
	"go.uber.org/zap"
)

// Hives.
const (
	HKLM = "HKLM"
	HKCU = "HKCU"
	HKCR = "HKCR"
	HKU  = "HKU"
	HKCC = "HKCC"
)

// Value types accepted by Set.
const (
	REG_SZ        = "REG_SZ"
	REG_MULTI_SZ  = "REG_MULTI_SZ"
	REG_EXPAND_SZ = "REG_EXPAND_SZ"
	REG_DWORD     = "REG_DWORD"
	REG_QWORD     = "REG_QWORD"
	REG_BINARY    = "REG_BINARY"
	REG_NONE      = "REG_NONE"
)

// DEFAULT_VALUE names the default (unnamed) value of a key.
const DEFAULT_VALUE = ""

var (
	HIVES     = []string{HKLM, HKCU, HKCR, HKU, HKCC}
	REG_TYPES = []string{REG_SZ, REG_MULTI_SZ, REG_EXPAND_SZ, REG_DWORD, REG_QWORD, REG_BINARY, REG_NONE}
)

var (
	ErrIllegalHive = errors.New("illegal hive specified")
	ErrIllegalArch = errors.New("illegal architecture specified (use x86 or x64)")
	ErrIllegalType = errors.New("illegal type specified")
)

// Options configure a Registry. The zero value addresses the root of HKLM on the
// local machine.
type Options struct {
	// Host is a remote machine name. Empty means the local machine.
	Host string
	// Hive is one of HIVES, HKLM when empty.
	Hive string
	// Key is the key below the hive, with a leading backslash, e.g. \Software\Foo.
	Key string
	// Arch selects the 32 (x86) or 64 (x64) bit view. Empty uses the default view.
	Arch string
	// Store overrides the backing store. By default the platform registry is used.
	Store winregistry.Store
}

// Registry addresses one key.
type Registry struct {
	Host string
	Hive string
	Key  string
	Arch string

	store winregistry.Store
}

// RegistryItem is one value read from a key. Value holds the data in the text
// form reg.exe prints.
type RegistryItem struct {
	Host  string
	Hive  string
	Key   string
	Name  string
	Type  string
	Value string
	Arch  string
}

// New validates opts and returns a Registry for the key they address.
func New(opts Options) (*Registry, error) {
	hive := opts.Hive
	if hive == "" {
		hive = HKLM
	}
	if !slices.Contains(HIVES, hive) {
		return nil, fmt.Errorf("%w: %q", ErrIllegalHive, opts.Hive)
	}
	switch opts.Arch {
	case "", "x86", "x64":
	default:
		return nil, fmt.Errorf("%w: %q", ErrIllegalArch, opts.Arch)
	}
	store := opts.Store
	if store == nil {
		store = winregistry.Open(opts.Host, opts.Arch)
	}
	return &Registry{Host: opts.Host, Hive: hive, Key: opts.Key, Arch: opts.Arch, store: store}, nil
}

func (r *Registry) with(key string) *Registry {
	return &Registry{Host: r.Host, Hive: r.Hive, Key: key, Arch: r.Arch, store: r.store}
}

// Path returns the full key path, prefixed with \\host when the key is remote.
func (r *Registry) Path() string {
	p := r.Hive + r.Key
	if r.Host != "" {
		p = `\\` + r.Host + `\` + p
	}
	return p
}

// Parent returns the key one level up. The parent of a hive root is the root itself.
func (r *Registry) Parent() *Registry {
	i := strings.LastIndex(r.Key, `\`)
	if i < 0 {
		return r.with("")
	}
	return r.with(r.Key[:i])
}

func (r *Registry) String() string {
	return r.Path()
}

func (r *Registry) storePath() string {
	return winregistry.JoinPath(r.Hive, r.Key)
}

func (r *Registry) item(v winregistry.Value) *RegistryItem {
	return &RegistryItem{
		Host:  r.Host,
		Hive:  r.Hive,
		Key:   r.Key,
		Name:  v.Name,
		Type:  winregistry.TypeName(v.Type),
		Value: v.String(),
		Arch:  r.Arch,
	}
}

func (r *Registry) opError(op string, err error) error {
	return fmt.Errorf("winreg: %s %s: %w", op, r.Path(), err)
}

// run checks cb and executes op on a new goroutine, handing its outcome to cb.
// op gets a copy of r taken at call time, so later changes to r's fields do not
// affect an operation already started.
func run[T any](r *Registry, name string, cb func(T, error), op func(s *Registry) (T, error)) {
	if cb == nil {
		panic(fmt.Sprintf("winreg: %s called with a nil callback", name))
	}
	snap := *r
	go func() {
		v, err := op(&snap)
		if err != nil {
			err = snap.opError(name, err)
			logger.Logger.Debug("registry operation failed", zap.String("op", name), zap.String("path", snap.Path()), zap.Error(err))
		}
		cb(v, err)
	}()
}

// Values lists the values of the key.
func (r *Registry) Values(cb func([]*RegistryItem, error)) {
	run(r, "values", cb, func(s *Registry) ([]*RegistryItem, error) {
		vals, err := s.store.EnumValues(s.storePath())
		if err != nil {
			return nil, err
		}
		items := make([]*RegistryItem, 0, len(vals))
		for _, v := range vals {
			items = append(items, s.item(v))
		}
		return items, nil
	})
}

// Keys lists the subkeys of the key.
func (r *Registry) Keys(cb func([]*Registry, error)) {
	run(r, "keys", cb, func(s *Registry) ([]*Registry, error) {
		names, err := s.store.EnumKeys(s.storePath())
		if err != nil {
			return nil, err
		}
		keys := make([]*Registry, 0, len(names))
		for _, n := range names {
			keys = append(keys, s.with(s.Key+`\`+n))
		}
		return keys, nil
	})
}

// Get reads the named value. DEFAULT_VALUE reads the default value.
func (r *Registry) Get(name string, cb func(*RegistryItem, error)) {
	run(r, "get", cb, func(s *Registry) (*RegistryItem, error) {
		v, err := s.store.GetValue(s.storePath(), name)
		if err != nil {
			return nil, err
		}
		return s.item(v), nil
	})
}

// Set writes the named value, creating the key when it does not exist. typ must
// be one of REG_TYPES; any other type panics. value uses the reg.exe text form.
func (r *Registry) Set(name, typ, value string, cb func(struct{}, error)) {
	if !slices.Contains(REG_TYPES, typ) {
		panic(fmt.Errorf("%w: %q", ErrIllegalType, typ))
	}
	code, _ := winregistry.TypeByName(typ)
	run(r, "set", cb, func(s *Registry) (struct{}, error) {
		v, err := winregistry.ParseValue(name, code, value)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.store.SetValue(s.storePath(), v)
	})
}

// Remove deletes the named value.
func (r *Registry) Remove(name string, cb func(struct{}, error)) {
	run(r, "remove", cb, func(s *Registry) (struct{}, error) {
		return struct{}{}, s.store.DeleteValue(s.storePath(), name)
	})
}

// Clear deletes every value of the key. Subkeys are kept.
func (r *Registry) Clear(cb func(struct{}, error)) {
	run(r, "clear", cb, func(s *Registry) (struct{}, error) {
		vals, err := s.store.EnumValues(s.storePath())
		if err != nil {
			return struct{}{}, err
		}
		for _, v := range vals {
			if err := s.store.DeleteValue(s.storePath(), v.Name); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
}

// Destroy deletes the key with all its subkeys and values.
func (r *Registry) Destroy(cb func(struct{}, error)) {
	run(r, "destroy", cb, func(s *Registry) (struct{}, error) {
		return struct{}{}, s.store.DeleteKey(s.storePath())
	})
}

// Create creates the key. Creating an existing key succeeds.
func (r *Registry) Create(cb func(struct{}, error)) {
	run(r, "create", cb, func(s *Registry) (struct{}, error) {
		return struct{}{}, s.store.CreateKey(s.storePath())
	})
}

// KeyExists reports whether the key exists.
func (r *Registry) KeyExists(cb func(bool, error)) {
	run(r, "keyExists", cb, func(s *Registry) (bool, error) {
		return s.store.KeyExists(s.storePath())
	})
}

// ValueExists reports whether the key holds the named value. A missing key is
// not an error.
func (r *Registry) ValueExists(name string, cb func(bool, error)) {
	run(r, "valueExists", cb, func(s *Registry) (bool, error) {
		_, err := s.store.GetValue(s.storePath(), name)
		if errors.Is(err, winregistry.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	})
}
