package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Codec converts variable values to and from their stored form.
type Codec interface {
	Encode(v any) (string, error)
	Decode(s string) any
}

var (
	// RawCodec stores strings as they are and everything else as JSON.
	// It keeps query strings readable, at the cost of string values that
	// look like JSON literals reading back decoded.
	RawCodec Codec = rawCodec{}

	// JSONCodec stores every value as JSON, strings included, so values
	// read back with the type they were written with.
	JSONCodec Codec = jsonCodec{}
)

// CodecFor returns the codec used for values persisted in a store of
// kind k. The URL store uses RawCodec; local and session use JSONCodec.
func CodecFor(k Kind) Codec {
	if k == URL {
		return RawCodec
	}
	return JSONCodec
}

// Encode converts a variable value to its stored form with RawCodec.
func Encode(v any) (string, error) {
	return RawCodec.Encode(v)
}

// Decode converts a stored value back with RawCodec. Values that look like
// JSON literals (numbers, booleans, null, objects, arrays) are decoded,
// the rest are returned as strings.
func Decode(s string) any {
	return RawCodec.Decode(s)
}

type rawCodec struct{}

func (rawCodec) Encode(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case nil:
		return "null", nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return marshal(v)
}

func (rawCodec) Decode(s string) any {
	t := strings.TrimSpace(s)
	if t == "" || !looksJSON(t) {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(t), &v); err != nil {
		return s
	}
	return v
}

type jsonCodec struct{}

func (jsonCodec) Encode(v any) (string, error) {
	if x, ok := v.(fmt.Stringer); ok {
		v = x.String()
	}
	return marshal(v)
}

// Decode falls back to the raw string for values that are not JSON, such
// as entries written by hand.
func (jsonCodec) Decode(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: encode %T: %w", v, err)
	}
	return string(data), nil
}

func looksJSON(s string) bool {
	switch s {
	case "true", "false", "null":
		return true
	}
	switch c := s[0]; {
	case c == '{', c == '[':
		return true
	case c == '-', c >= '0' && c <= '9':
		return true
	}
	return false
}
