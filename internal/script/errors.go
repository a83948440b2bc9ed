package script

import "errors"

var (
	// ErrMalformedResponse means the model output could not be decoded into
	// an object with a "script" array, even after stripping code fences.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrScriptTooShort means fewer than two usable turns survived normalization.
	ErrScriptTooShort = errors.New("generated script is too short or invalid")
)

const minTurns = 2
