package asyncreg

import (
	"github.com/C-Sto/gowinreg/pkg/winreg"
	eventloop "github.com/joeycumines/go-eventloop"
)

// Interface is winreg.Interface with each trailing callback removed and a promise
// returned in its place.
type Interface interface {
	Path() string
	Parent() *winreg.Registry
	String() string

	Values() *eventloop.ChainedPromise
	Keys() *eventloop.ChainedPromise
	Get(name string) *eventloop.ChainedPromise
	Set(name, typ, value string) *eventloop.ChainedPromise
	Remove(name string) *eventloop.ChainedPromise
	Clear() *eventloop.ChainedPromise
	Destroy() *eventloop.ChainedPromise
	Create() *eventloop.ChainedPromise
	KeyExists() *eventloop.ChainedPromise
	ValueExists(name string) *eventloop.ChainedPromise
}

var _ Interface = (*Registry)(nil)
