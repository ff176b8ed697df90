package winregistry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustValue(t *testing.T, name string, typ uint32, text string) Value {
	t.Helper()
	v, err := ParseValue(name, typ, text)
	require.NoError(t, err)
	return v
}

func TestMemoryStoreKeys(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.CreateKey(`HKCU\Software\Acme\Widget`))
	require.NoError(t, m.CreateKey(`HKCU\Software\Acme\Gadget`))
	require.NoError(t, m.CreateKey(`HKCU\software\ACME\widget`))

	keys, err := m.EnumKeys(`HKCU\Software\Acme`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget", "Gadget"}, keys)

	ok, err := m.KeyExists(`HKCU\SOFTWARE\acme`)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.KeyExists(`HKCU\Software\Missing`)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.EnumKeys(`HKCU\Software\Missing`)
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, m.DeleteKey(`HKCU\Software\Acme`))
	ok, err = m.KeyExists(`HKCU\Software\Acme\Widget`)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, m.DeleteKey(`HKCU\Software\Acme`), ErrNotExist)
	assert.ErrorIs(t, m.DeleteKey(`HKCU`), ErrBadPath)
	_, err = m.KeyExists(`NOPE\x`)
	assert.ErrorIs(t, err, ErrBadPath)
}

func TestMemoryStoreValues(t *testing.T) {
	m := NewMemoryStore()
	path := `HKLM\Software\Acme`
	require.NoError(t, m.SetValue(path, mustValue(t, "Version", REG_SZ, "1.0")))
	require.NoError(t, m.SetValue(path, mustValue(t, "Count", REG_DWORD, "7")))
	require.NoError(t, m.SetValue(path, mustValue(t, "", REG_SZ, "default")))

	v, err := m.GetValue(path, "version")
	require.NoError(t, err)
	assert.Equal(t, "Version", v.Name)
	assert.Equal(t, "1.0", v.String())

	require.NoError(t, m.SetValue(path, mustValue(t, "VERSION", REG_SZ, "2.0")))
	vals, err := m.EnumValues(path)
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, "Version", vals[0].Name)
	assert.Equal(t, "2.0", vals[0].String())
	assert.Equal(t, "0x7", vals[1].String())
	assert.Equal(t, "", vals[2].Name)

	// returned data is a copy
	vals[0].Data[0] = 'X'
	v, err = m.GetValue(path, "Version")
	require.NoError(t, err)
	assert.Equal(t, "2.0", v.String())

	require.NoError(t, m.DeleteValue(path, "Count"))
	_, err = m.GetValue(path, "Count")
	assert.ErrorIs(t, err, ErrNotExist)
	assert.ErrorIs(t, m.DeleteValue(path, "Count"), ErrNotExist)
	assert.ErrorIs(t, m.DeleteValue(`HKLM\Nope`, "Count"), ErrNotExist)
}

func TestMemoryStoreConcurrent(t *testing.T) {
	m := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := Value{Name: "n", Type: REG_DWORD, Data: []byte{byte(i), 0, 0, 0}}
			assert.NoError(t, m.SetValue(`HKU\S-1-5-18\Test`, v))
			_, err := m.EnumValues(`HKU\S-1-5-18\Test`)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	vals, err := m.EnumValues(`HKU\S-1-5-18\Test`)
	require.NoError(t, err)
	assert.Len(t, vals, 1)
}
