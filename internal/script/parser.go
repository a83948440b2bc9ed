package script

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RawTurn is one untrusted element of the model's "script" array.
// Elements that are not JSON objects decode to an empty RawTurn.
type RawTurn map[string]any

// Parse extracts the candidate turns from a raw model response.
//
// The response is decoded as-is first. If that fails, one layer of markdown
// code fences (```json ... ``` or ``` ... ```) is stripped and decoding is
// retried once.
func Parse(raw string) ([]RawTurn, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		stripped := stripFences(raw)
		doc, err = decodeObject(stripped)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	field, ok := doc["script"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"script\" key", ErrMalformedResponse)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(field, &elements); err != nil || elements == nil {
		return nil, fmt.Errorf("%w: \"script\" is not an array", ErrMalformedResponse)
	}

	candidates := make([]RawTurn, 0, len(elements))
	for _, el := range elements {
		var turn RawTurn
		if err := json.Unmarshal(el, &turn); err != nil {
			turn = RawTurn{}
		}
		candidates = append(candidates, turn)
	}

	return candidates, nil
}

func decodeObject(s string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("top-level value is not an object")
	}
	return doc, nil
}

// stripFences removes a single leading ```json or ``` marker and a single
// trailing ``` marker.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
