package winregistry

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Value types as stored on disk and returned by the Windows API.
const (
	REG_NONE              = 0x00
	REG_SZ                = 0x01
	REG_EXPAND_SZ         = 0x02
	REG_BINARY            = 0x03
	REG_DWORD             = 0x04
	REG_DWORD_BIG_ENDIAN  = 0x05
	REG_LINK              = 0x06
	REG_MULTI_SZ          = 0x07
	REG_RESOURCE_LIST     = 0x08
	REG_FULL_RESOURCE     = 0x09
	REG_RESOURCE_REQ_LIST = 0x0a
	REG_QWORD             = 0x0b
)

var typeNames = map[uint32]string{
	REG_NONE:              "REG_NONE",
	REG_SZ:                "REG_SZ",
	REG_EXPAND_SZ:         "REG_EXPAND_SZ",
	REG_BINARY:            "REG_BINARY",
	REG_DWORD:             "REG_DWORD",
	REG_DWORD_BIG_ENDIAN:  "REG_DWORD_BIG_ENDIAN",
	REG_LINK:              "REG_LINK",
	REG_MULTI_SZ:          "REG_MULTI_SZ",
	REG_RESOURCE_LIST:     "REG_RESOURCE_LIST",
	REG_FULL_RESOURCE:     "REG_FULL_RESOURCE_DESCRIPTOR",
	REG_RESOURCE_REQ_LIST: "REG_RESOURCE_REQUIREMENTS_LIST",
	REG_QWORD:             "REG_QWORD",
}

// TypeName returns the reg.exe name of a value type.
func TypeName(t uint32) string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("REG_0x%x", t)
}

// TypeByName is the inverse of TypeName for the named types.
func TypeByName(name string) (uint32, bool) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

// Value is a named, typed datum under a key. Data holds the raw bytes exactly as the
// Windows API would return them.
type Value struct {
	Name string
	Type uint32
	Data []byte
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func decodeUTF16(b []byte) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	s, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(s)
}

func encodeUTF16(s string) []byte {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil
	}
	return b
}

// String renders the data the way reg.exe QUERY prints it.
func (v Value) String() string {
	switch v.Type {
	case REG_SZ, REG_EXPAND_SZ, REG_LINK:
		return strings.TrimRight(decodeUTF16(v.Data), "\x00")
	case REG_MULTI_SZ:
		return strings.Join(v.Strings(), `\0`)
	case REG_DWORD:
		if len(v.Data) < 4 {
			break
		}
		return fmt.Sprintf("0x%x", binary.LittleEndian.Uint32(v.Data))
	case REG_DWORD_BIG_ENDIAN:
		if len(v.Data) < 4 {
			break
		}
		return fmt.Sprintf("0x%x", binary.BigEndian.Uint32(v.Data))
	case REG_QWORD:
		if len(v.Data) < 8 {
			break
		}
		return fmt.Sprintf("0x%x", binary.LittleEndian.Uint64(v.Data))
	}
	return strings.ToUpper(hex.EncodeToString(v.Data))
}

// Strings splits REG_MULTI_SZ data into its elements. Each element ends in a NUL
// and the list ends in one more; only those terminators are dropped, so empty
// elements survive.
func (v Value) Strings() []string {
	s := strings.TrimSuffix(decodeUTF16(v.Data), "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\x00"), "\x00")
}

// ParseValue builds a Value from its reg.exe text form, as accepted by reg ADD /d.
// REG_MULTI_SZ elements are separated by a literal \0.
func ParseValue(name string, typ uint32, text string) (Value, error) {
	v := Value{Name: name, Type: typ}
	switch typ {
	case REG_SZ, REG_EXPAND_SZ:
		v.Data = encodeUTF16(text + "\x00")
	case REG_MULTI_SZ:
		var sb strings.Builder
		if text != "" {
			for _, s := range strings.Split(text, `\0`) {
				sb.WriteString(s)
				sb.WriteByte(0)
			}
		}
		sb.WriteByte(0)
		v.Data = encodeUTF16(sb.String())
	case REG_DWORD, REG_DWORD_BIG_ENDIAN:
		n, err := strconv.ParseUint(text, 0, 32)
		if err != nil {
			return v, fmt.Errorf("winregistry: invalid %s data %q: %w", TypeName(typ), text, err)
		}
		v.Data = make([]byte, 4)
		if typ == REG_DWORD {
			binary.LittleEndian.PutUint32(v.Data, uint32(n))
		} else {
			binary.BigEndian.PutUint32(v.Data, uint32(n))
		}
	case REG_QWORD:
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return v, fmt.Errorf("winregistry: invalid %s data %q: %w", TypeName(typ), text, err)
		}
		v.Data = make([]byte, 8)
		binary.LittleEndian.PutUint64(v.Data, n)
	case REG_BINARY, REG_NONE:
		b, err := hex.DecodeString(text)
		if err != nil {
			return v, fmt.Errorf("winregistry: invalid %s data %q: %w", TypeName(typ), text, err)
		}
		v.Data = b
	default:
		return v, fmt.Errorf("winregistry: cannot parse data for %s", TypeName(typ))
	}
	return v, nil
}
