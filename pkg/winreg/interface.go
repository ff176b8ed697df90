package winreg

// Interface is the callback method set of Registry.
type Interface interface {
	Path() string
	Parent() *Registry
	String() string

	Values(cb func([]*RegistryItem, error))
	Keys(cb func([]*Registry, error))
	Get(name string, cb func(*RegistryItem, error))
	Set(name, typ, value string, cb func(struct{}, error))
	Remove(name string, cb func(struct{}, error))
	Clear(cb func(struct{}, error))
	Destroy(cb func(struct{}, error))
	Create(cb func(struct{}, error))
	KeyExists(cb func(bool, error))
	ValueExists(name string, cb func(bool, error))
}

var _ Interface = (*Registry)(nil)
