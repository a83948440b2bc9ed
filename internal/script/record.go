package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Speaker identifies one of the two podcast hosts.
type Speaker string

const (
	Speaker1 Speaker = "Speaker 1"
	Speaker2 Speaker = "Speaker 2"
)

// Other returns the opposite host.
func (s Speaker) Other() Speaker {
	if s == Speaker1 {
		return Speaker2
	}
	return Speaker1
}

// Valid reports whether s is one of the two known identities.
func (s Speaker) Valid() bool {
	return s == Speaker1 || s == Speaker2
}

// Slug returns the file-name form of the speaker, e.g. "speaker_1".
func (s Speaker) Slug() string {
	return strings.ToLower(strings.ReplaceAll(string(s), " ", "_"))
}

// Turn is one attributed line of dialogue.
type Turn struct {
	Speaker  Speaker
	Dialogue string
}

// MarshalJSON encodes a turn as a single-key object: {"Speaker 1": "..."}.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{string(t.Speaker): t.Dialogue})
}

// Script is a validated two-speaker dialogue plus metadata.
// It is built once by NewScript and is read-only afterwards.
type Script struct {
	turns             []Turn
	sourceName        string
	estimatedDuration string
}

// NewScript builds a Script from already normalized turns.
func NewScript(turns []Turn, sourceName, estimatedDuration string) (*Script, error) {
	if len(turns) < minTurns {
		return nil, fmt.Errorf("%w: got %d turns, need at least %d", ErrScriptTooShort, len(turns), minTurns)
	}

	owned := make([]Turn, len(turns))
	copy(owned, turns)

	return &Script{
		turns:             owned,
		sourceName:        sourceName,
		estimatedDuration: estimatedDuration,
	}, nil
}

// Turns returns a copy of the ordered dialogue turns.
func (s *Script) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// TotalLines is the number of turns in the script.
func (s *Script) TotalLines() int {
	return len(s.turns)
}

func (s *Script) SourceName() string {
	return s.sourceName
}

func (s *Script) EstimatedDuration() string {
	return s.estimatedDuration
}

// SpeakerLines returns every line spoken by speaker, in script order.
func (s *Script) SpeakerLines(speaker Speaker) []string {
	var lines []string
	for _, t := range s.turns {
		if t.Speaker == speaker {
			lines = append(lines, t.Dialogue)
		}
	}
	return lines
}

// ---------------------------------------------------------------------------
// Transport format
// ---------------------------------------------------------------------------

type transportMetadata struct {
	SourceDocument    string `json:"source_document"`
	TotalLines        int    `json:"total_lines"`
	EstimatedDuration string `json:"estimated_duration"`
}

type transportScript struct {
	Script   []Turn            `json:"script"`
	Metadata transportMetadata `json:"metadata"`
}

// MarshalJSON encodes the script in its transport format.
func (s *Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(transportScript{
		Script: s.turns,
		Metadata: transportMetadata{
			SourceDocument:    s.sourceName,
			TotalLines:        len(s.turns),
			EstimatedDuration: s.estimatedDuration,
		},
	})
}

// ToJSON returns the transport format indented with two spaces.
func (s *Script) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON decodes a transport-format document. The turns are run through
// Normalize again, so a hand-edited document still satisfies the invariants.
func FromJSON(data []byte) (*Script, error) {
	var doc struct {
		Metadata transportMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode script document: %w", err)
	}

	candidates, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	turns, err := Normalize(candidates)
	if err != nil {
		return nil, err
	}

	return NewScript(turns, doc.Metadata.SourceDocument, doc.Metadata.EstimatedDuration)
}

// IsScriptError reports whether err came from parsing or validating a script.
func IsScriptError(err error) bool {
	return errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrScriptTooShort)
}
