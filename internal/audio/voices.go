package audio

import "github.com/bobarin/podcastgen/internal/script"

// VoiceMap assigns one engine voice to each host. It is built once at
// startup and never changes.
type VoiceMap struct {
	speaker1 string
	speaker2 string
}

func NewVoiceMap(speaker1, speaker2 string) VoiceMap {
	return VoiceMap{speaker1: speaker1, speaker2: speaker2}
}

// Voice returns the voice for speaker. Unknown speakers get the first host's voice.
func (m VoiceMap) Voice(speaker script.Speaker) string {
	if speaker == script.Speaker2 {
		return m.speaker2
	}
	return m.speaker1
}
