package equipment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Velocidex/ordereddict"
)

// valueSuffix selects the member of a property's data object that carries
// the measured value.
const valueSuffix = "value"

// PropertyValue is one measured property of an equipment record.
type PropertyValue struct {
	PropertyID string
	Value      string
}

// FirstValue returns the first member of the JSON object data, in document
// order, whose name ends with "value" in any letter case. Absent or null
// data and objects without such a member yield "".
//
// Strings are returned verbatim, numbers and booleans as their JSON text and
// null as "". A matching member holding an object or array is an error.
func FirstValue(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}
	if data[0] != '{' {
		return "", fmt.Errorf("property data must be an object")
	}

	members, err := decodeMembers(data)
	if err != nil {
		return "", fmt.Errorf("decode property data: %w", err)
	}

	for _, name := range members.Keys() {
		if !strings.HasSuffix(strings.ToLower(name), valueSuffix) {
			continue
		}
		raw, _ := members.Get(name)
		v, err := scalarText(raw.(json.RawMessage))
		if err != nil {
			return "", fmt.Errorf("member %q: %w", name, err)
		}
		return v, nil
	}
	return "", nil
}

// decodeMembers reads the members of a JSON object in document order. A
// repeated name keeps its first value. Values stay raw so numbers keep their
// source text.
func decodeMembers(data []byte) (*ordereddict.Dict, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if tok != json.Delim('{') {
		return nil, fmt.Errorf("expected object")
	}

	members := ordereddict.NewDict()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected member name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if _, seen := members.Get(name); !seen {
			members.Set(name, raw)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after object")
	}
	return members, nil
}

func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("value is not a scalar")
	case 'n':
		return "", nil
	default:
		return string(raw), nil
	}
}
