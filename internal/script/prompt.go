package script

import (
	"fmt"
	"strings"
)

const (
	DefaultStyle    = "conversational"
	DefaultDuration = "10 minutes"

	// maxContentRunes caps how much of the source document goes into the prompt.
	maxContentRunes = 8000
)

// Preset is a named prompt fragment offered to callers.
type Preset struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
}

var stylePresets = []Preset{
	{"conversational", "Create a natural, friendly conversation between two hosts discussing the document. They should build on each other's points and occasionally ask clarifying questions."},
	{"educational", "Create an educational discussion where one speaker explains concepts and the other asks thoughtful questions to help clarify complex topics for listeners."},
	{"interview", "Create an interview format where Speaker 1 acts as the interviewer asking questions and Speaker 2 provides detailed explanations from the document."},
	{"debate", "Create a thoughtful discussion where speakers present different perspectives on the topics, maintaining respect while exploring various viewpoints."},
}

var durationPresets = []Preset{
	{"5 minutes", "Keep the conversation concise, focusing on 3-4 main points with brief explanations."},
	{"10 minutes", "Cover the key topics thoroughly with good explanations and examples."},
	{"15 minutes", "Provide comprehensive coverage with detailed discussions and multiple examples."},
	{"20 minutes", "Create an in-depth exploration with extensive analysis and supporting details."},
}

// Styles lists the available podcast styles.
func Styles() []Preset {
	return append([]Preset(nil), stylePresets...)
}

// Durations lists the available target durations.
func Durations() []Preset {
	return append([]Preset(nil), durationPresets...)
}

// ResolveStyle returns the preset for name, falling back to the conversational style.
func ResolveStyle(name string) Preset {
	return resolve(stylePresets, name, DefaultStyle)
}

// ResolveDuration returns the preset for name, falling back to ten minutes.
func ResolveDuration(name string) Preset {
	return resolve(durationPresets, name, DefaultDuration)
}

func resolve(presets []Preset, name, fallback string) Preset {
	var def Preset
	for _, p := range presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p
		}
		if p.Name == fallback {
			def = p
		}
	}
	return def
}

// BuildPrompt renders the script-generation prompt for a document.
func BuildPrompt(content, style, duration string) string {
	s := ResolveStyle(style)
	d := ResolveDuration(duration)

	return fmt.Sprintf(`Using the following document, create a podcast script for two speakers: 'Speaker 1' and 'Speaker 2'.

STYLE GUIDELINES:
%s

DURATION GUIDELINES:
%s

CONVERSATION RULES:
1. Each speaker should speak for 2-4 sentences maximum before alternating
2. The conversation should flow naturally with smooth transitions
3. Use engaging, conversational language that's easy to understand
4. Include brief introductions at the start and wrap-up at the end
5. Break down complex concepts into digestible explanations
6. Maintain professional grammar and punctuation throughout
7. Make it engaging for listeners who haven't read the document

RESPONSE FORMAT:
Respond with a valid JSON object containing a 'script' array. Each array element should be an object with either 'Speaker 1' or 'Speaker 2' as the key and their dialogue as the value.

Example format:
{
  "script": [
    {"Speaker 1": "Welcome everyone to our podcast! Today we're diving into some fascinating insights from this document..."},
    {"Speaker 2": "Thanks for having me! I'm really excited to discuss this topic. The first thing that caught my attention was..."}
  ]
}

DOCUMENT CONTENT:
%s

Generate an engaging %s podcast script now:`, s.Instruction, d.Instruction, truncateRunes(content, maxContentRunes), d.Name)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
