//go:build windows

package winregistry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveStore(t *testing.T) {
	s := Open("", "")
	base := `HKCU\Software\gowinreg-test-` + uuid.NewString()
	t.Cleanup(func() { _ = s.DeleteKey(base) })

	ok, err := s.KeyExists(base)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CreateKey(base+`\Child\Grandchild`))
	require.NoError(t, s.SetValue(base, mustValue(t, "Str", REG_SZ, "hello")))
	require.NoError(t, s.SetValue(base, mustValue(t, "Num", REG_DWORD, "0x2a")))
	require.NoError(t, s.SetValue(base, mustValue(t, "", REG_MULTI_SZ, `a\0b`)))

	keys, err := s.EnumKeys(base)
	require.NoError(t, err)
	assert.Equal(t, []string{"Child"}, keys)

	v, err := s.GetValue(base, "num")
	require.NoError(t, err)
	assert.Equal(t, "0x2a", v.String())

	v, err = s.GetValue(base, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v.Strings())

	vals, err := s.EnumValues(base)
	require.NoError(t, err)
	assert.Len(t, vals, 3)

	require.NoError(t, s.DeleteValue(base, "Str"))
	_, err = s.GetValue(base, "Str")
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, s.DeleteKey(base))
	ok, err = s.KeyExists(base)
	require.NoError(t, err)
	assert.False(t, ok)
}
