package deepgram

import (
	"fmt"
	"slices"
)

type deepgramVoice string

// Deepgram Aura voices accepted by the streaming speak API.
const (
	VoiceAsteria deepgramVoice = "aura-asteria-en"
	VoiceLuna    deepgramVoice = "aura-luna-en"
	VoiceStella  deepgramVoice = "aura-stella-en"
	VoiceAthena  deepgramVoice = "aura-athena-en"
	VoiceHera    deepgramVoice = "aura-hera-en"
	VoiceOrion   deepgramVoice = "aura-orion-en"
	VoiceArcas   deepgramVoice = "aura-arcas-en"
	VoicePerseus deepgramVoice = "aura-perseus-en"
	VoiceAngus   deepgramVoice = "aura-angus-en"
	VoiceOrpheus deepgramVoice = "aura-orpheus-en"
	VoiceHelios  deepgramVoice = "aura-helios-en"
	VoiceZeus    deepgramVoice = "aura-zeus-en"
)

const defaultVoice = VoiceAsteria

// GetAvailableVoices lists the voices [NewTextToSpeechClient] accepts.
func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceAsteria, VoiceLuna, VoiceStella, VoiceAthena,
		VoiceHera, VoiceOrion, VoiceArcas, VoicePerseus,
		VoiceAngus, VoiceOrpheus, VoiceHelios, VoiceZeus,
	}
}

// ParseVoice resolves a voice name to a known Deepgram voice.
func ParseVoice(name string) (deepgramVoice, error) {
	voice := deepgramVoice(name)
	if !slices.Contains(GetAvailableVoices(), voice) {
		return defaultVoice, fmt.Errorf("unknown voice %q", name)
	}
	return voice, nil
}
