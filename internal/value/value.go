// Package value holds the dynamic record values that flow through the pipeline.
//
// A Value is one of Null, Bool, Number, String, Mapping or Sequence. Mappings
// keep insertion order so flattened output is emitted in the order keys were
// read from the wire.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged JSON-like value. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	s    string // string payload, or the literal text of a number
	m    *Map
	seq  []Value
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Number(n json.Number) Value { return Value{kind: KindNumber, s: string(n)} }

// Int is shorthand for an integral Number.
func Int(i int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)} }

// Mapping wraps m. A nil m is treated as an empty mapping.
func Mapping(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMapping, m: m}
}

// Sequence builds a sequence value from vs.
func Sequence(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindSequence, seq: vs}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return json.Number(v.s), true
}

func (v Value) AsMap() (*Map, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	return v.m, true
}

func (v Value) AsSequence() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.seq, true
}

// Empty reports whether v carries nothing: null, "", {} or [].
func (v Value) Empty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindMapping:
		return v.m.Len() == 0
	case KindSequence:
		return len(v.seq) == 0
	}
	return false
}

// Equal reports deep equality. Mapping comparison is order-sensitive.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.s == o.s
	case KindMapping:
		return v.m.Equal(o.m)
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v into plain Go values (nil, bool, json.Number, string,
// map[string]any, []any). Mapping order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindMapping:
		out := make(map[string]any, v.m.Len())
		v.m.Range(func(k string, e Value) bool {
			out[k] = e.Interface()
			return true
		})
		return out
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Interface()
		}
		return out
	}
	return nil
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}

// MarshalJSON encodes v, keeping mapping order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes data with Decode.
func (v *Value) UnmarshalJSON(data []byte) error {
	dv, err := Decode(data)
	if err != nil {
		return err
	}
	*v = dv
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber, KindString:
		var raw any = v.s
		if v.kind == KindNumber {
			raw = json.Number(v.s)
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("value: encode %s: %w", v.kind, err)
		}
		buf.Write(b)
	case KindMapping:
		return v.m.encode(buf)
	case KindSequence:
		buf.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("value: unknown kind %d", v.kind)
	}
	return nil
}
