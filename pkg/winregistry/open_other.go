//go:build !windows

package winregistry

// Open returns a store that fails every call with ErrUnsupported: there is no
// registry to talk to on this platform. Use a MemoryStore or HiveStore instead.
func Open(host, arch string) Store {
	return unsupportedStore{}
}

type unsupportedStore struct{}

func (unsupportedStore) EnumKeys(string) ([]string, error) { return nil, ErrUnsupported }

func (unsupportedStore) EnumValues(string) ([]Value, error) { return nil, ErrUnsupported }

func (unsupportedStore) GetValue(string, string) (Value, error) { return Value{}, ErrUnsupported }

func (unsupportedStore) SetValue(string, Value) error { return ErrUnsupported }

func (unsupportedStore) DeleteValue(string, string) error { return ErrUnsupported }

func (unsupportedStore) CreateKey(string) error { return ErrUnsupported }

func (unsupportedStore) DeleteKey(string) error { return ErrUnsupported }

func (unsupportedStore) KeyExists(string) (bool, error) { return false, ErrUnsupported }
