// Package asyncreg is the promise returning form of winreg. Registry has every
// member of winreg.Registry: callback operations return a promise instead of
// taking a callback, everything else is the embedded winreg member itself.
package asyncreg

import (
	"github.com/C-Sto/gowinreg/pkg/promise"
	"github.com/C-Sto/gowinreg/pkg/winreg"
	eventloop "github.com/joeycumines/go-eventloop"
)

const (
	HKLM = winreg.HKLM
	HKCU = winreg.HKCU
	HKCR = winreg.HKCR
	HKU  = winreg.HKU
	HKCC = winreg.HKCC

	REG_SZ        = winreg.REG_SZ
	REG_MULTI_SZ  = winreg.REG_MULTI_SZ
	REG_EXPAND_SZ = winreg.REG_EXPAND_SZ
	REG_DWORD     = winreg.REG_DWORD
	REG_QWORD     = winreg.REG_QWORD
	REG_BINARY    = winreg.REG_BINARY
	REG_NONE      = winreg.REG_NONE

	DEFAULT_VALUE = winreg.DEFAULT_VALUE
)

var (
	HIVES     = winreg.HIVES
	REG_TYPES = winreg.REG_TYPES
)

type (
	Options      = winreg.Options
	RegistryItem = winreg.RegistryItem
)

// Registry wraps a winreg.Registry. Promises are created on the Deferrer's loop;
// rejections carry the error winreg reported, unchanged.
type Registry struct {
	*winreg.Registry

	d *promise.Deferrer
}

// New is winreg.New followed by Wrap.
func New(d *promise.Deferrer, opts Options) (*Registry, error) {
	r, err := winreg.New(opts)
	if err != nil {
		return nil, err
	}
	return Wrap(d, r), nil
}

// Wrap returns the promise form of r. r stays usable and shares its state with the
// result.
func Wrap(d *promise.Deferrer, r *winreg.Registry) *Registry {
	return &Registry{Registry: r, d: d}
}

// Values fulfills with []*RegistryItem.
func (r *Registry) Values() *eventloop.ChainedPromise {
	return promise.Adapt0(r.d, r.Registry.Values)()
}

// Keys fulfills with []*winreg.Registry.
func (r *Registry) Keys() *eventloop.ChainedPromise {
	return promise.Adapt0(r.d, r.Registry.Keys)()
}

// Get fulfills with *RegistryItem.
func (r *Registry) Get(name string) *eventloop.ChainedPromise {
	return promise.Adapt1(r.d, r.Registry.Get)(name)
}

// Set fulfills with struct{}. An illegal typ panics.
func (r *Registry) Set(name, typ, value string) *eventloop.ChainedPromise {
	return promise.Adapt3(r.d, r.Registry.Set)(name, typ, value)
}

// Remove fulfills with struct{}.
func (r *Registry) Remove(name string) *eventloop.ChainedPromise {
	return promise.Adapt1(r.d, r.Registry.Remove)(name)
}

// Clear fulfills with struct{}.
func (r *Registry) Clear() *eventloop.ChainedPromise {
	return promise.Adapt0(r.d, r.Registry.Clear)()
}

// Destroy fulfills with struct{}.
func (r *Registry) Destroy() *eventloop.ChainedPromise {
	return promise.Adapt0(r.d, r.Registry.Destroy)()
}

// Create fulfills with struct{}.
func (r *Registry) Create() *eventloop.ChainedPromise {
	return promise.Adapt0(r.d, r.Registry.Create)()
}

// KeyExists fulfills with bool.
func (r *Registry) KeyExists() *eventloop.ChainedPromise {
	return promise.Adapt0(r.d, r.Registry.KeyExists)()
}

// ValueExists fulfills with bool.
func (r *Registry) ValueExists(name string) *eventloop.ChainedPromise {
	return promise.Adapt1(r.d, r.Registry.ValueExists)(name)
}
