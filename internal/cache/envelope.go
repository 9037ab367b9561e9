package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Values cross backend serialization inside a small typed envelope so
// the dynamic type survives the round trip. Without it a JSON backend
// would hand "15551234567" back as a float and lose the distinction
// between the string "42" and the number 42.
//
// Counter fields written by IncrField bypass the envelope and are stored
// as bare decimal integers (redis requires this for HINCRBY); decode
// recognizes that form.
type envelope struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

const (
	tagString = "s"
	tagInt    = "i"
	tagFloat  = "f"
	tagBool   = "b"
	tagJSON   = "j"
)

func encodeValue(v any) ([]byte, error) {
	var e envelope
	switch val := v.(type) {
	case string:
		e.T = tagString
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		e.V = raw
	case int:
		e.T = tagInt
		e.V = json.RawMessage(strconv.Quote(strconv.FormatInt(int64(val), 10)))
	case int64:
		e.T = tagInt
		e.V = json.RawMessage(strconv.Quote(strconv.FormatInt(val, 10)))
	case float64:
		e.T = tagFloat
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		e.V = raw
	case bool:
		e.T = tagBool
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		e.V = raw
	default:
		e.T = tagJSON
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("cache: unencodable value: %w", err)
		}
		e.V = raw
	}
	return json.Marshal(e)
}

func decodeValue(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("cache: empty value")
	}

	// Bare integer: a counter written by IncrField.
	if trimmed[0] != '{' {
		n, err := strconv.ParseInt(string(trimmed), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cache: unrecognized value encoding")
		}
		return n, nil
	}

	var e envelope
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, err
	}

	switch e.T {
	case tagString:
		var s string
		err := json.Unmarshal(e.V, &s)
		return s, err
	case tagInt:
		var s string
		if err := json.Unmarshal(e.V, &s); err != nil {
			return nil, err
		}
		return strconv.ParseInt(s, 10, 64)
	case tagFloat:
		var f float64
		err := json.Unmarshal(e.V, &f)
		return f, err
	case tagBool:
		var b bool
		err := json.Unmarshal(e.V, &b)
		return b, err
	case tagJSON:
		var v any
		err := json.Unmarshal(e.V, &v)
		return v, err
	default:
		return nil, fmt.Errorf("cache: unknown envelope tag %q", e.T)
	}
}
