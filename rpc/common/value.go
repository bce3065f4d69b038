package common

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// ValueEncodingBase64 marks a json value that carries base64 encoded bytes
const ValueEncodingBase64 = "base64"

// EncodeJSONValue renders stored bytes as a json value.
// Bytes holding a compact json document other than a string are returned as that
// document, valid utf-8 as a json string. Anything else is base64 encoded and the
// returned encoding is ValueEncodingBase64.
func EncodeJSONValue(value []byte) (json.RawMessage, string) {
	if isCompactDocument(value) {
		return value, ""
	}
	if !utf8.Valid(value) {
		str, _ := json.Marshal(base64.StdEncoding.EncodeToString(value))
		return str, ValueEncodingBase64
	}
	str, _ := json.Marshal(string(value))
	return str, ""
}

// DecodeJSONValue is the inverse of EncodeJSONValue.
// A json string is stored by its content, any other json value by its compact encoding.
// A missing value or null is an empty value.
func DecodeJSONValue(raw json.RawMessage, encoding string) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []byte{}, nil
	}

	switch encoding {
	case "":
	case ValueEncodingBase64:
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, fmt.Errorf("base64 value must be a json string: %w", err)
		}
		return base64.StdEncoding.DecodeString(str)
	default:
		return nil, fmt.Errorf("unknown value encoding %q", encoding)
	}

	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		return []byte(str), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}
	return buf.Bytes(), nil
}

// isCompactDocument reports whether value is a json document in compact form that is not a string
func isCompactDocument(value []byte) bool {
	if len(value) == 0 || value[0] == '"' || bytes.Equal(value, []byte("null")) || !json.Valid(value) {
		return false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return false
	}
	return bytes.Equal(buf.Bytes(), value)
}
