package script

import "strings"

// Normalize turns untrusted candidate records into clean, punctuated turns.
//
// Records that are not a single key/value pair, or whose value is not a
// string, are skipped. Exact speaker labels pass through untouched; anything
// else is coerced by looking for "1"/"one" or "2"/"two", and a label with
// neither takes the alternation cursor. The cursor flips after every accepted
// turn whatever speaker that turn ended up with.
func Normalize(candidates []RawTurn) ([]Turn, error) {
	turns := make([]Turn, 0, len(candidates))
	expected := Speaker1

	for _, c := range candidates {
		if len(c) != 1 {
			continue
		}

		var label string
		var value any
		for k, v := range c {
			label, value = k, v
		}

		text, ok := value.(string)
		if !ok {
			continue
		}

		dialogue := strings.TrimSpace(text)
		if dialogue == "" {
			continue
		}

		turns = append(turns, Turn{
			Speaker:  normalizeSpeaker(label, expected),
			Dialogue: ensureTerminalPunctuation(dialogue),
		})
		expected = expected.Other()
	}

	if len(turns) < minTurns {
		return nil, ErrScriptTooShort
	}

	return turns, nil
}

func normalizeSpeaker(label string, expected Speaker) Speaker {
	label = strings.TrimSpace(label)
	if s := Speaker(label); s.Valid() {
		return s
	}

	lower := strings.ToLower(label)
	switch {
	case strings.Contains(label, "1") || strings.Contains(lower, "one"):
		return Speaker1
	case strings.Contains(label, "2") || strings.Contains(lower, "two"):
		return Speaker2
	default:
		return expected
	}
}

// HasTerminalPunctuation reports whether s ends in '.', '!' or '?'.
func HasTerminalPunctuation(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

func ensureTerminalPunctuation(s string) string {
	if HasTerminalPunctuation(s) {
		return s
	}
	return s + "."
}
