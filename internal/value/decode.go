package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxDepth is the deepest nesting of objects and arrays Decode accepts.
const MaxDepth = 100

// ErrTooDeep is returned when a document nests deeper than MaxDepth.
var ErrTooDeep = fmt.Errorf("value: nesting deeper than %d", MaxDepth)

// Decode parses one JSON document into a Value. Object key order is kept;
// a key repeated inside one object keeps its first position and its last value.
// Trailing data after the document is an error, as is nesting beyond MaxDepth.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeNext(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data after top-level value")
		}
		return Value{}, fmt.Errorf("value: %w", err)
	}
	return v, nil
}

// decodeNext reads one value; depth is the number of enclosing containers.
func decodeNext(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Value{}, fmt.Errorf("value: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		if t != '{' && t != '[' {
			return Value{}, fmt.Errorf("value: unexpected delimiter %q", rune(t))
		}
		if depth >= MaxDepth {
			return Value{}, ErrTooDeep
		}
		if t == '{' {
			return decodeObject(dec, depth+1)
		}
		return decodeArray(dec, depth+1)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, fmt.Errorf("value: unexpected token %T", tok)
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	m := NewMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("value: object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("value: object key is %T, not string", tok)
		}
		v, err := decodeNext(dec, depth)
		if err != nil {
			return Value{}, err
		}
		m.Set(key, v)
	}
	if err := closeDelim(dec); err != nil {
		return Value{}, err
	}
	return Mapping(m), nil
}

func decodeArray(dec *json.Decoder, depth int) (Value, error) {
	seq := []Value{}
	for dec.More() {
		v, err := decodeNext(dec, depth)
		if err != nil {
			return Value{}, err
		}
		seq = append(seq, v)
	}
	if err := closeDelim(dec); err != nil {
		return Value{}, err
	}
	return Sequence(seq...), nil
}

func closeDelim(dec *json.Decoder) error {
	if _, err := dec.Token(); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("value: %w", err)
	}
	return nil
}
