package asyncreg

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/C-Sto/gowinreg/pkg/promise"
	"github.com/C-Sto/gowinreg/pkg/winreg"
	"github.com/C-Sto/gowinreg/pkg/winregistry"
	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeferrer(t *testing.T) *promise.Deferrer {
	t.Helper()
	loop, err := eventloop.New()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	d, err := promise.New(loop)
	require.NoError(t, err)
	return d
}

func await[T any](t *testing.T, p *eventloop.ChainedPromise) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return promise.Await[T](ctx, p)
}

func newTestRegistry(t *testing.T, key string) (*Registry, *winregistry.MemoryStore) {
	t.Helper()
	store := winregistry.NewMemoryStore()
	r, err := New(newDeferrer(t), Options{Hive: HKCU, Key: key, Store: store})
	require.NoError(t, err)
	return r, store
}

func methodNames(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, t.Method(i).Name)
	}
	sort.Strings(names)
	return names
}

func TestMethodNames(t *testing.T) {
	want := methodNames(reflect.TypeOf(&winreg.Registry{}))
	assert.Equal(t, want, methodNames(reflect.TypeOf(&Registry{})))
	assert.Equal(t, want, methodNames(reflect.TypeOf((*winreg.Interface)(nil)).Elem()))
	assert.Equal(t, want, methodNames(reflect.TypeOf((*Interface)(nil)).Elem()))
}

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	promiseType = reflect.TypeOf(&eventloop.ChainedPromise{})
)

// callbackResult returns the result type of fn's trailing (result, err) callback.
func callbackResult(fn reflect.Type) (reflect.Type, bool) {
	if fn.NumIn() == 0 {
		return nil, false
	}
	cb := fn.In(fn.NumIn() - 1)
	if cb.Kind() != reflect.Func || cb.NumIn() != 2 || cb.NumOut() != 0 || cb.In(1) != errorType {
		return nil, false
	}
	return cb.In(0), true
}

func TestProjection(t *testing.T) {
	from := reflect.TypeOf((*winreg.Interface)(nil)).Elem()
	to := reflect.TypeOf((*Interface)(nil)).Elem()
	leading := map[int]int{}

	for i := 0; i < from.NumMethod(); i++ {
		m := from.Method(i)
		got, ok := to.MethodByName(m.Name)
		require.True(t, ok, m.Name)

		if _, isCallback := callbackResult(m.Type); !isCallback {
			assert.Equal(t, m.Type, got.Type, m.Name)
			continue
		}
		n := m.Type.NumIn() - 1
		leading[n]++
		require.Equal(t, n, got.Type.NumIn(), m.Name)
		for j := 0; j < n; j++ {
			assert.Equal(t, m.Type.In(j), got.Type.In(j), "%s arg %d", m.Name, j)
		}
		require.Equal(t, 1, got.Type.NumOut(), m.Name)
		assert.Equal(t, promiseType, got.Type.Out(0), m.Name)
	}

	assert.Equal(t, map[int]int{0: 6, 1: 3, 3: 1}, leading)
}

func TestConstants(t *testing.T) {
	assert.Equal(t, []string{"HKLM", "HKCU", "HKCR", "HKU", "HKCC"}, HIVES)
	assert.Same(t, &winreg.HIVES[0], &HIVES[0])
	assert.Same(t, &winreg.REG_TYPES[0], &REG_TYPES[0])
	assert.Len(t, REG_TYPES, 7)
	assert.Equal(t, "", DEFAULT_VALUE)
	assert.Equal(t, winreg.REG_QWORD, REG_QWORD)
}

func TestPassThroughMembers(t *testing.T) {
	inner, err := winreg.New(winreg.Options{Host: "box", Hive: HKCU, Key: `\Software\Foo`, Arch: "x86", Store: winregistry.NewMemoryStore()})
	require.NoError(t, err)
	r := Wrap(newDeferrer(t), inner)

	assert.Same(t, inner, r.Registry)
	assert.Equal(t, inner.Host, r.Host)
	assert.Equal(t, inner.Hive, r.Hive)
	assert.Equal(t, inner.Key, r.Key)
	assert.Equal(t, inner.Arch, r.Arch)
	assert.Equal(t, inner.Path(), r.Path())
	assert.Equal(t, inner.String(), r.String())
	assert.Equal(t, inner.Parent(), r.Parent())

	inner.Key = `\Software\Bar`
	assert.Equal(t, `\\box\HKCU\Software\Bar`, r.Path())
}

func TestKeyExists(t *testing.T) {
	r, store := newTestRegistry(t, `\Software\Foo`)

	exists, err := await[bool](t, r.KeyExists())
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateKey(`HKCU\Software\Foo`))
	exists, err = await[bool](t, r.KeyExists())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetNotFound(t *testing.T) {
	r, _ := newTestRegistry(t, `\Software\Foo`)

	var want error
	done := make(chan struct{})
	r.Registry.Get("missing", func(_ *winreg.RegistryItem, err error) {
		want = err
		close(done)
	})
	<-done

	p := r.Get("missing")
	_, err := await[*RegistryItem](t, p)
	assert.ErrorIs(t, err, winregistry.ErrNotExist)
	assert.EqualError(t, err, want.Error())
	assert.Equal(t, eventloop.Rejected, p.State())
}

func TestReceiverState(t *testing.T) {
	r, store := newTestRegistry(t, `\Software\Foo`)
	require.NoError(t, store.CreateKey(`HKCU\Software\Bar`))

	r.Key = `\Software\Bar`
	exists, err := await[bool](t, r.KeyExists())
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = await[struct{}](t, r.Set("v", REG_SZ, "bar"))
	require.NoError(t, err)
	item, err := await[*RegistryItem](t, r.Get("v"))
	require.NoError(t, err)
	assert.Equal(t, `\Software\Bar`, item.Key)
	assert.Equal(t, "bar", item.Value)
}

func TestOperations(t *testing.T) {
	r, store := newTestRegistry(t, `\Software\Foo`)

	_, err := await[struct{}](t, r.Create())
	require.NoError(t, err)
	_, err = await[struct{}](t, r.Set("n", REG_DWORD, "42"))
	require.NoError(t, err)
	_, err = await[struct{}](t, r.Set("s", REG_SZ, "text"))
	require.NoError(t, err)

	text, err := await[string](t, r.Get("n").Then(func(v any) any {
		return v.(*RegistryItem).Value
	}, nil))
	require.NoError(t, err)
	assert.Equal(t, "0x2a", text)

	items, err := await[[]*RegistryItem](t, r.Values())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	ok, err := await[bool](t, r.ValueExists("s"))
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = await[struct{}](t, r.Remove("s"))
	require.NoError(t, err)
	ok, err = await[bool](t, r.ValueExists("s"))
	require.NoError(t, err)
	assert.False(t, ok)

	child, err := New(newDeferrer(t), Options{Hive: HKCU, Key: `\Software\Foo\Child`, Store: store})
	require.NoError(t, err)
	_, err = await[struct{}](t, child.Create())
	require.NoError(t, err)
	keys, err := await[[]*winreg.Registry](t, r.Keys())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, child.Path(), keys[0].Path())

	_, err = await[struct{}](t, r.Clear())
	require.NoError(t, err)
	items, err = await[[]*RegistryItem](t, r.Values())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = await[struct{}](t, r.Destroy())
	require.NoError(t, err)
	ok, err = await[bool](t, child.KeyExists())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetIllegalType(t *testing.T) {
	r, _ := newTestRegistry(t, `\Software\Foo`)
	assert.PanicsWithError(t, `illegal type specified: "REG_FOO"`, func() {
		r.Set("x", "REG_FOO", "1")
	})
}
