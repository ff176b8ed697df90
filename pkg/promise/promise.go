// Package promise turns functions that report completion through a trailing
// (result, err) callback into functions returning an event loop promise.
package promise

import (
	"sync/atomic"

	"github.com/C-Sto/gowinreg/pkg/logger"
	eventloop "github.com/joeycumines/go-eventloop"
	"go.uber.org/zap"
)

// Callback is the completion callback shape understood by the adapters. err is nil
// on success.
type Callback[T any] = func(result T, err error)

// Deferrer creates promises on one event loop. Continuations attached to those
// promises run on the loop goroutine.
type Deferrer struct {
	loop *eventloop.Loop
	js   *eventloop.JS
}

// New returns a Deferrer for loop. The loop must be running (or about to be) for
// continuations to execute. Once the loop has stopped, promises still settle but
// can only be observed with Await.
func New(loop *eventloop.Loop) (*Deferrer, error) {
	js, err := eventloop.NewJS(loop)
	if err != nil {
		return nil, err
	}
	return &Deferrer{loop: loop, js: js}, nil
}

// Loop returns the event loop promises settle on.
func (d *Deferrer) Loop() *eventloop.Loop {
	return d.loop
}

// settler builds the callback handed to the wrapped function. Only the first
// invocation settles the promise. Settlement is submitted to the loop; when the
// loop no longer accepts tasks the promise is settled directly instead. Such a
// promise reports its state through State, ToChannel and Await, but Then, Catch
// and Finally continuations never run, since they need the loop.
func settler[T any](d *Deferrer, resolve eventloop.ResolveFunc, reject eventloop.RejectFunc) Callback[T] {
	var called atomic.Bool
	return func(result T, err error) {
		if !called.CompareAndSwap(false, true) {
			logger.Logger.Warn("completion callback invoked more than once, ignoring", zap.Error(err))
			return
		}
		settle := func() {
			if err != nil {
				reject(err)
				return
			}
			resolve(result)
		}
		if serr := d.loop.Submit(func() { settle() }); serr != nil {
			// loop is gone, nobody else will run it
			logger.Logger.Debug("settling promise off loop", zap.Error(serr))
			settle()
		}
	}
}

func call[T any](d *Deferrer, f func(cb Callback[T])) *eventloop.ChainedPromise {
	p, resolve, reject := d.js.NewChainedPromise()
	f(settler[T](d, resolve, reject))
	return p
}

// Adapt0 adapts a function taking only a completion callback.
func Adapt0[T any](d *Deferrer, f func(func(T, error))) func() *eventloop.ChainedPromise {
	return func() *eventloop.ChainedPromise {
		return call[T](d, f)
	}
}

// Adapt1 adapts a function taking one argument and a completion callback.
func Adapt1[A, T any](d *Deferrer, f func(A, func(T, error))) func(A) *eventloop.ChainedPromise {
	return func(a A) *eventloop.ChainedPromise {
		return call[T](d, func(cb Callback[T]) { f(a, cb) })
	}
}

// Adapt2 adapts a function taking two arguments and a completion callback.
func Adapt2[A, B, T any](d *Deferrer, f func(A, B, func(T, error))) func(A, B) *eventloop.ChainedPromise {
	return func(a A, b B) *eventloop.ChainedPromise {
		return call[T](d, func(cb Callback[T]) { f(a, b, cb) })
	}
}

// Adapt3 adapts a function taking three arguments and a completion callback.
func Adapt3[A, B, C, T any](d *Deferrer, f func(A, B, C, func(T, error))) func(A, B, C) *eventloop.ChainedPromise {
	return func(a A, b B, c C) *eventloop.ChainedPromise {
		return call[T](d, func(cb Callback[T]) { f(a, b, c, cb) })
	}
}

// Adapt4 adapts a function taking four arguments and a completion callback.
func Adapt4[A, B, C, D, T any](d *Deferrer, f func(A, B, C, D, func(T, error))) func(A, B, C, D) *eventloop.ChainedPromise {
	return func(a A, b B, c C, e D) *eventloop.ChainedPromise {
		return call[T](d, func(cb Callback[T]) { f(a, b, c, e, cb) })
	}
}
