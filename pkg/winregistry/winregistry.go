package winregistry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/C-Sto/gowinreg/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// regf layout. Cell offsets are relative to the first hbin, which follows the
// 4096 byte base block.
const (
	baseBlockSize   = 0x1000
	rootCellOffset  = 0x24
	majorVersionOff = 0x14
	minorVersionOff = 0x18

	keyCompName   = 0x0020
	valueCompName = 0x0001

	inlineDataFlag = 0x80000000
	bigDataLimit   = 16344

	noOffset = 0xffffffff

	// lists nested through ri cells never go deeper than this in practice
	maxListDepth = 8
)

type keyNode struct {
	offset      uint32
	flags       uint16
	numSubKeys  uint32
	subKeyList  uint32
	numValues   uint32
	valueList   uint32
	classOffset uint32
	classLength uint16
	name        string
}

type valueNode struct {
	name     string
	dataSize uint32
	dataOff  uint32
	typ      uint32
	cell     []byte
}

// HiveStore reads an offline registry hive (regf) file, such as a copy of
// C:\Windows\System32\config\SOFTWARE. The hive root is mounted at a store path,
// for example HKLM\SOFTWARE. It is read only and safe for concurrent use.
type HiveStore struct {
	data  []byte
	root  keyNode
	mount []string
	hive  string
	minor uint32
}

// OpenHive reads the hive file at name and mounts it at mount.
func OpenHive(name, mount string) (*HiveStore, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return NewHiveStore(data, mount)
}

// NewHiveStore parses an in-memory hive image and mounts it at mount.
func NewHiveStore(data []byte, mount string) (*HiveStore, error) {
	hive, parts, err := SplitPath(mount)
	if err != nil {
		return nil, err
	}
	if len(data) < baseBlockSize {
		return nil, fmt.Errorf("%w: short base block", ErrBadHive)
	}
	if !bytes.Equal(data[:4], []byte("regf")) {
		return nil, fmt.Errorf("%w: magic header on registry key failure", ErrBadHive)
	}
	h := &HiveStore{data: data, hive: hive, mount: parts}
	major := binary.LittleEndian.Uint32(data[majorVersionOff:])
	h.minor = binary.LittleEndian.Uint32(data[minorVersionOff:])
	if major != 1 {
		return nil, fmt.Errorf("%w: unsupported version, wanted major 1 got major %d minor %d", ErrBadHive, major, h.minor)
	}
	h.root, err = h.keyNode(binary.LittleEndian.Uint32(data[rootCellOffset:]))
	if err != nil {
		return nil, fmt.Errorf("could not find root key: %w", err)
	}
	logger.Logger.Debug("opened offline hive", zap.String("mount", mount), zap.Uint32("minor", h.minor), zap.String("root", h.root.name))
	return h, nil
}

func (h *HiveStore) cell(off uint32) ([]byte, error) {
	start := int64(baseBlockSize) + int64(off)
	if off == noOffset || start+4 > int64(len(h.data)) {
		return nil, fmt.Errorf("%w: cell offset 0x%x out of range", ErrBadHive, off)
	}
	size := int64(int32(binary.LittleEndian.Uint32(h.data[start:])))
	if size < 0 {
		size = -size
	}
	if size < 4 || start+size > int64(len(h.data)) {
		return nil, fmt.Errorf("%w: cell at 0x%x has bad size %d", ErrBadHive, off, size)
	}
	return h.data[start+4 : start+size], nil
}

func decodeName(b []byte, compressed bool) string {
	if !compressed {
		return decodeUTF16(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func (h *HiveStore) keyNode(off uint32) (keyNode, error) {
	c, err := h.cell(off)
	if err != nil {
		return keyNode{}, err
	}
	if len(c) < 76 || string(c[:2]) != "nk" {
		return keyNode{}, fmt.Errorf("%w: expected nk cell at 0x%x", ErrBadHive, off)
	}
	k := keyNode{
		offset:      off,
		flags:       binary.LittleEndian.Uint16(c[2:]),
		numSubKeys:  binary.LittleEndian.Uint32(c[20:]),
		subKeyList:  binary.LittleEndian.Uint32(c[28:]),
		numValues:   binary.LittleEndian.Uint32(c[36:]),
		valueList:   binary.LittleEndian.Uint32(c[40:]),
		classOffset: binary.LittleEndian.Uint32(c[48:]),
		classLength: binary.LittleEndian.Uint16(c[74:]),
	}
	nameLen := int(binary.LittleEndian.Uint16(c[72:]))
	if 76+nameLen > len(c) {
		return keyNode{}, fmt.Errorf("%w: nk name overruns cell at 0x%x", ErrBadHive, off)
	}
	k.name = decodeName(c[76:76+nameLen], k.flags&keyCompName != 0)
	return k, nil
}

type subKeyRef struct {
	offset uint32
	hash   uint32
	hashed bool
}

func (h *HiveStore) subKeyRefs(list uint32, depth int) ([]subKeyRef, error) {
	if depth > maxListDepth {
		return nil, fmt.Errorf("%w: subkey lists nested too deep", ErrBadHive)
	}
	c, err := h.cell(list)
	if err != nil {
		return nil, err
	}
	if len(c) < 4 {
		return nil, fmt.Errorf("%w: short subkey list at 0x%x", ErrBadHive, list)
	}
	count := int(binary.LittleEndian.Uint16(c[2:]))
	entries := c[4:]
	var r []subKeyRef
	switch string(c[:2]) {
	case "lf", "lh":
		if len(entries) < count*8 {
			return nil, fmt.Errorf("%w: subkey list overruns cell at 0x%x", ErrBadHive, list)
		}
		for i := 0; i < count; i++ {
			r = append(r, subKeyRef{
				offset: binary.LittleEndian.Uint32(entries[i*8:]),
				hash:   binary.LittleEndian.Uint32(entries[i*8+4:]),
				hashed: c[1] == 'h',
			})
		}
	case "li", "ri":
		if len(entries) < count*4 {
			return nil, fmt.Errorf("%w: subkey list overruns cell at 0x%x", ErrBadHive, list)
		}
		for i := 0; i < count; i++ {
			off := binary.LittleEndian.Uint32(entries[i*4:])
			if c[0] == 'l' {
				r = append(r, subKeyRef{offset: off})
				continue
			}
			nested, err := h.subKeyRefs(off, depth+1)
			if err != nil {
				return nil, err
			}
			r = append(r, nested...)
		}
	default:
		return nil, fmt.Errorf("%w: unknown subkey list %q at 0x%x", ErrBadHive, c[:2], list)
	}
	return r, nil
}

// lhHash is the hash stored next to each entry of an lh list. Windows computes it
// over the upper-cased UTF-16 code units of the name, one unit at a time.
func lhHash(name string) uint32 {
	var res uint32
	for _, u := range utf16.Encode([]rune(name)) {
		res = res*37 + uint32(unicode.ToUpper(rune(u)))
	}
	return res
}

func (h *HiveStore) subKeys(k keyNode) ([]keyNode, error) {
	if k.numSubKeys == 0 || k.subKeyList == noOffset {
		return nil, nil
	}
	refs, err := h.subKeyRefs(k.subKeyList, 0)
	if err != nil {
		return nil, err
	}
	r := make([]keyNode, 0, len(refs))
	for _, ref := range refs {
		nk, err := h.keyNode(ref.offset)
		if err != nil {
			return nil, err
		}
		r = append(r, nk)
	}
	return r, nil
}

func (h *HiveStore) findSubKey(parent keyNode, name string) (keyNode, error) {
	if parent.numSubKeys == 0 || parent.subKeyList == noOffset {
		return keyNode{}, ErrNotExist
	}
	refs, err := h.subKeyRefs(parent.subKeyList, 0)
	if err != nil {
		return keyNode{}, err
	}
	want := lhHash(name)
	for _, ref := range refs {
		if ref.hashed && ref.hash != want {
			continue
		}
		nk, err := h.keyNode(ref.offset)
		if err != nil {
			return keyNode{}, err
		}
		if strings.EqualFold(nk.name, name) {
			return nk, nil
		}
	}
	return keyNode{}, ErrNotExist
}

// resolve maps a store path to a key node. A path above the mount point has no node;
// next then names the mount component below it.
func (h *HiveStore) resolve(path string) (k keyNode, next string, err error) {
	hive, parts, err := SplitPath(path)
	if err != nil {
		return keyNode{}, "", err
	}
	if hive != h.hive {
		return keyNode{}, "", ErrNotExist
	}
	for i, m := range h.mount {
		if i == len(parts) {
			return keyNode{}, m, nil
		}
		if !strings.EqualFold(parts[i], m) {
			return keyNode{}, "", ErrNotExist
		}
	}
	k = h.root
	for _, p := range parts[len(h.mount):] {
		if k, err = h.findSubKey(k, p); err != nil {
			return keyNode{}, "", err
		}
	}
	return k, "", nil
}

func (h *HiveStore) EnumKeys(path string) ([]string, error) {
	k, next, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	if next != "" {
		return []string{next}, nil
	}
	subs, err := h.subKeys(k)
	if err != nil {
		return nil, err
	}
	r := make([]string, 0, len(subs))
	for _, s := range subs {
		r = append(r, s.name)
	}
	return r, nil
}

func (h *HiveStore) valueNodes(k keyNode) ([]valueNode, error) {
	if k.numValues == 0 || k.valueList == noOffset {
		return nil, nil
	}
	list, err := h.cell(k.valueList)
	if err != nil {
		return nil, err
	}
	if len(list) < int(k.numValues)*4 {
		return nil, fmt.Errorf("%w: value list overruns cell at 0x%x", ErrBadHive, k.valueList)
	}
	r := make([]valueNode, 0, k.numValues)
	for i := uint32(0); i < k.numValues; i++ {
		off := binary.LittleEndian.Uint32(list[i*4:])
		c, err := h.cell(off)
		if err != nil {
			return nil, err
		}
		if len(c) < 20 || string(c[:2]) != "vk" {
			logger.Logger.Debug("skipping value cell without vk signature", zap.Uint32("offset", off))
			continue
		}
		nameLen := int(binary.LittleEndian.Uint16(c[2:]))
		if 20+nameLen > len(c) {
			return nil, fmt.Errorf("%w: vk name overruns cell at 0x%x", ErrBadHive, off)
		}
		flags := binary.LittleEndian.Uint16(c[16:])
		r = append(r, valueNode{
			name:     decodeName(c[20:20+nameLen], flags&valueCompName != 0),
			dataSize: binary.LittleEndian.Uint32(c[4:]),
			dataOff:  binary.LittleEndian.Uint32(c[8:]),
			typ:      binary.LittleEndian.Uint32(c[12:]),
			cell:     c,
		})
	}
	return r, nil
}

func (h *HiveStore) valueData(v valueNode) ([]byte, error) {
	if v.dataSize&inlineDataFlag != 0 {
		n := v.dataSize &^ inlineDataFlag
		if n > 4 {
			n = 4
		}
		return append([]byte(nil), v.cell[8:8+n]...), nil
	}
	if v.dataSize == 0 {
		return []byte{}, nil
	}
	c, err := h.cell(v.dataOff)
	if err != nil {
		return nil, err
	}
	if v.dataSize > bigDataLimit && len(c) >= 8 && string(c[:2]) == "db" {
		return h.bigData(c, v.dataSize)
	}
	if uint32(len(c)) < v.dataSize {
		return nil, fmt.Errorf("%w: value data overruns cell at 0x%x", ErrBadHive, v.dataOff)
	}
	return append([]byte(nil), c[:v.dataSize]...), nil
}

func (h *HiveStore) bigData(db []byte, size uint32) ([]byte, error) {
	count := int(binary.LittleEndian.Uint16(db[2:]))
	segs, err := h.cell(binary.LittleEndian.Uint32(db[4:]))
	if err != nil {
		return nil, err
	}
	if len(segs) < count*4 {
		return nil, fmt.Errorf("%w: big data segment list overruns cell", ErrBadHive)
	}
	out := make([]byte, 0, size)
	for i := 0; i < count && uint32(len(out)) < size; i++ {
		seg, err := h.cell(binary.LittleEndian.Uint32(segs[i*4:]))
		if err != nil {
			return nil, err
		}
		if len(seg) > bigDataLimit {
			seg = seg[:bigDataLimit]
		}
		out = append(out, seg...)
	}
	if uint32(len(out)) < size {
		return nil, fmt.Errorf("%w: big data shorter than declared size", ErrBadHive)
	}
	return out[:size], nil
}

func (h *HiveStore) EnumValues(path string) ([]Value, error) {
	k, next, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	if next != "" {
		return nil, nil
	}
	nodes, err := h.valueNodes(k)
	if err != nil {
		return nil, err
	}
	r := make([]Value, 0, len(nodes))
	for _, n := range nodes {
		d, err := h.valueData(n)
		if err != nil {
			return nil, err
		}
		r = append(r, Value{Name: n.name, Type: n.typ, Data: d})
	}
	return r, nil
}

func (h *HiveStore) GetValue(path, name string) (Value, error) {
	k, next, err := h.resolve(path)
	if err != nil {
		return Value{}, err
	}
	if next != "" {
		return Value{}, ErrNotExist
	}
	nodes, err := h.valueNodes(k)
	if err != nil {
		return Value{}, err
	}
	for _, n := range nodes {
		if !strings.EqualFold(n.name, name) {
			continue
		}
		d, err := h.valueData(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Name: n.name, Type: n.typ, Data: d}, nil
	}
	return Value{}, ErrNotExist
}

// GetClass returns the raw (UTF-16LE) class name of a key.
func (h *HiveStore) GetClass(path string) ([]byte, error) {
	k, next, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	if next != "" || k.classOffset == noOffset || k.classLength == 0 {
		return nil, ErrNotExist
	}
	c, err := h.cell(k.classOffset)
	if err != nil {
		return nil, err
	}
	if len(c) < int(k.classLength) {
		return nil, fmt.Errorf("%w: class name overruns cell at 0x%x", ErrBadHive, k.classOffset)
	}
	return append([]byte(nil), c[:k.classLength]...), nil
}

func (h *HiveStore) KeyExists(path string) (bool, error) {
	_, _, err := h.resolve(path)
	if err == ErrNotExist {
		return false, nil
	}
	return err == nil, err
}

func (h *HiveStore) SetValue(string, Value) error { return ErrReadOnly }

func (h *HiveStore) DeleteValue(string, string) error { return ErrReadOnly }

func (h *HiveStore) CreateKey(string) error { return ErrReadOnly }

func (h *HiveStore) DeleteKey(string) error { return ErrReadOnly }
