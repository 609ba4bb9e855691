// Package speech synthesizes spoken responses and transcribes dictated input.
package speech

import (
	"log/slog"
	"strings"

	"github.com/ashureev/paradox/internal/config"
)

// Gender is the requested voice attribute.
type Gender string

const (
	GenderAny    Gender = ""
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// PrebuiltVoices are the voice names the hosted TTS model accepts.
var PrebuiltVoices = []string{
	"Zephyr", "Puck", "Charon", "Kore", "Fenrir", "Leda", "Orus", "Aoede",
	"Callirrhoe", "Autonoe", "Enceladus", "Iapetus", "Umbriel", "Algieba",
	"Despina", "Erinome", "Algenib", "Rasalgethi", "Laomedeia", "Achernar",
	"Alnilam", "Schedar", "Gacrux", "Pulcherrima", "Achird", "Zubenelgenubi",
	"Vindemiatrix", "Sadachbia", "Sadaltager", "Sulafat",
}

// VoiceTable maps voice attributes to concrete voice names. It is resolved
// once at construction; unknown names fall back to the default voice.
type VoiceTable struct {
	byGender map[Gender]string
	fallback string
}

// NewVoiceTable resolves cfg against available voice names. A nil available
// list uses PrebuiltVoices.
func NewVoiceTable(cfg config.VoiceConfig, available []string) *VoiceTable {
	if len(available) == 0 {
		available = PrebuiltVoices
	}
	index := make(map[string]string, len(available))
	for _, v := range available {
		index[strings.ToLower(v)] = v
	}
	lookup := func(name string) (string, bool) {
		v, ok := index[strings.ToLower(strings.TrimSpace(name))]
		return v, ok
	}

	fallback, ok := lookup(cfg.Default)
	if !ok {
		fallback = available[0]
		slog.Warn("default voice not available, using first prebuilt voice", "configured", cfg.Default, "voice", fallback)
	}

	t := &VoiceTable{
		byGender: map[Gender]string{GenderAny: fallback},
		fallback: fallback,
	}
	for gender, name := range map[Gender]string{GenderFemale: cfg.Female, GenderMale: cfg.Male} {
		if v, ok := lookup(name); ok {
			t.byGender[gender] = v
			continue
		}
		if name != "" {
			slog.Warn("configured voice not available, using default", "gender", gender, "configured", name, "voice", fallback)
		}
		t.byGender[gender] = fallback
	}
	return t
}

// Resolve returns the voice name for gender.
func (t *VoiceTable) Resolve(gender Gender) string {
	if v, ok := t.byGender[gender]; ok {
		return v
	}
	return t.fallback
}

// Default returns the fallback voice.
func (t *VoiceTable) Default() string {
	return t.fallback
}

// Entries returns the resolved mapping for display.
func (t *VoiceTable) Entries() map[string]string {
	return map[string]string{
		"default":           t.fallback,
		string(GenderFemale): t.byGender[GenderFemale],
		string(GenderMale):   t.byGender[GenderMale],
	}
}
