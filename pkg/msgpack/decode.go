// Package msgpack implements the subset of the MessagePack encoding that
// the venue's stream actually uses. Decoding is recursive descent with a
// one-byte dispatch and an independent cursor per Decode call.
//
// Known precision boundary: uint64/int64 values (0xcf/0xd3) are widened to
// float64, so integers above 2^53 lose precision. The feed uses 64-bit
// tags for ids, which are compared but never used for arithmetic.
package msgpack

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind discriminates the decoded value union.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBinary
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	}
	return "unknown"
}

// Pair is one map entry. Keys need not be strings; iteration order is the
// stream's declared order.
type Pair struct {
	Key   Value
	Value Value
}

// Value is the decoded tagged union. Exactly one payload field is
// meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Bin   []byte
	Items []Value
	Pairs []Pair
}

// Num returns the numeric payload as float64 for both Int and Float kinds.
func (v Value) Num() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

// AsString returns the string payload if the value is a string.
func (v Value) AsString() (string, bool) {
	if v.Kind == KindString {
		return v.Str, true
	}
	return "", false
}

// Get looks up a map entry by string key, in declared order.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Value{}, false
	}
	for _, p := range v.Pairs {
		if p.Key.Kind == KindString && p.Key.Str == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// GetString is Get narrowed to string payloads.
func (v Value) GetString(key string) (string, bool) {
	child, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return child.AsString()
}

// DecodeError reports a malformed or truncated buffer. It is per-message:
// the caller drops the message and keeps consuming the stream.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("msgpack: %s at offset %d", e.Msg, e.Offset)
}

// Decode parses one top-level value from data. The cursor starts at
// offset 0 and no state survives between calls. Trailing bytes after the
// top-level value are ignored, matching the feed's one-value-per-frame
// framing.
func Decode(data []byte) (Value, error) {
	d := decoder{buf: data}
	return d.read()
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) fail(msg string) error {
	return &DecodeError{Offset: d.off, Msg: msg}
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.off+n > len(d.buf) {
		return nil, d.fail("unexpected end of buffer")
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) byte() (byte, error) {
	if d.off >= len(d.buf) {
		return 0, d.fail("unexpected end of buffer")
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

func (d *decoder) uint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) str(n int) (Value, error) {
	b, err := d.take(n)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindString, Str: string(b)}, nil
}

func (d *decoder) bin(n int) (Value, error) {
	b, err := d.take(n)
	if err != nil {
		return Value{}, err
	}
	out := make([]byte, n)
	copy(out, b)
	return Value{Kind: KindBinary, Bin: out}, nil
}

// remaining bounds declared container lengths before any allocation:
// every element is at least one encoded byte, so a length beyond the
// unread buffer can never complete and must not size a slice.
func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) array(n int) (Value, error) {
	if n > d.remaining() {
		return Value{}, d.fail("array length exceeds buffer")
	}
	items := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		item, err := d.read()
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return Value{Kind: KindArray, Items: items}, nil
}

func (d *decoder) mapping(n int) (Value, error) {
	if n > d.remaining()/2 {
		return Value{}, d.fail("map length exceeds buffer")
	}
	pairs := make([]Pair, 0, n)
	for i := 0; i < n; i++ {
		key, err := d.read()
		if err != nil {
			return Value{}, err
		}
		val, err := d.read()
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	return Value{Kind: KindMap, Pairs: pairs}, nil
}

func (d *decoder) read() (Value, error) {
	tag, err := d.byte()
	if err != nil {
		return Value{}, err
	}

	switch {
	// Positive fixint (0x00 - 0x7f)
	case tag <= 0x7f:
		return Value{Kind: KindInt, Int: int64(tag)}, nil

	// Fixmap (0x80 - 0x8f)
	case tag >= 0x80 && tag <= 0x8f:
		return d.mapping(int(tag & 0x0f))

	// Fixarray (0x90 - 0x9f)
	case tag >= 0x90 && tag <= 0x9f:
		return d.array(int(tag & 0x0f))

	// Fixstr (0xa0 - 0xbf)
	case tag >= 0xa0 && tag <= 0xbf:
		return d.str(int(tag & 0x1f))

	// Negative fixint (0xe0 - 0xff)
	case tag >= 0xe0:
		return Value{Kind: KindInt, Int: int64(int8(tag))}, nil
	}

	switch tag {
	case 0xc0:
		return Value{Kind: KindNil}, nil
	case 0xc2:
		return Value{Kind: KindBool, Bool: false}, nil
	case 0xc3:
		return Value{Kind: KindBool, Bool: true}, nil

	case 0xc4: // bin 8
		n, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		return d.bin(int(n))
	case 0xc5: // bin 16
		n, err := d.uint16()
		if err != nil {
			return Value{}, err
		}
		return d.bin(int(n))

	case 0xca: // float 32
		u, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindFloat, Float: float64(math.Float32frombits(u))}, nil
	case 0xcb: // float 64
		u, err := d.uint64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindFloat, Float: math.Float64frombits(u)}, nil

	case 0xcc: // uint 8
		n, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: int64(n)}, nil
	case 0xcd: // uint 16
		n, err := d.uint16()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: int64(n)}, nil
	case 0xce: // uint 32
		n, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: int64(n)}, nil
	case 0xcf: // uint 64, widened (see package doc)
		n, err := d.uint64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindFloat, Float: float64(n)}, nil

	case 0xd0: // int 8
		n, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: int64(int8(n))}, nil
	case 0xd1: // int 16
		n, err := d.uint16()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: int64(int16(n))}, nil
	case 0xd2: // int 32
		n, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: int64(int32(n))}, nil
	case 0xd3: // int 64, widened (see package doc)
		n, err := d.uint64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindFloat, Float: float64(int64(n))}, nil

	case 0xd9: // str 8
		n, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		return d.str(int(n))
	case 0xda: // str 16
		n, err := d.uint16()
		if err != nil {
			return Value{}, err
		}
		return d.str(int(n))
	case 0xdb: // str 32
		n, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return d.str(int(n))

	case 0xdc: // array 16
		n, err := d.uint16()
		if err != nil {
			return Value{}, err
		}
		return d.array(int(n))
	case 0xdd: // array 32
		n, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return d.array(int(n))

	case 0xde: // map 16
		n, err := d.uint16()
		if err != nil {
			return Value{}, err
		}
		return d.mapping(int(n))
	case 0xdf: // map 32
		n, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return d.mapping(int(n))
	}

	return Value{}, &DecodeError{Offset: d.off - 1, Msg: fmt.Sprintf("unrecognized tag 0x%02x", tag)}
}
