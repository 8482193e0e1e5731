package protocol

import (
	"fmt"
	"slices"
	"strings"
)

type (
	Humor    string
	Voice    string
	Tone     string
	Language string
)

const (
	HumorNone Humor = "None"
	HumorLow  Humor = "Low"
	HumorHigh Humor = "High"

	VoiceFemale Voice = "Female"
	VoiceMale   Voice = "Male"

	ToneFriendly        Tone = "Friendly"
	ToneModerate        Tone = "Moderate"
	ToneStraightforward Tone = "Straightforward"

	LanguageEnglish Language = "English"
	LanguageTagalog Language = "Tagalog"
	LanguageAuto    Language = "Auto-detect"
)

var (
	humors    = []Humor{HumorNone, HumorLow, HumorHigh}
	voices    = []Voice{VoiceFemale, VoiceMale}
	tones     = []Tone{ToneFriendly, ToneModerate, ToneStraightforward}
	languages = []Language{LanguageEnglish, LanguageTagalog, LanguageAuto}
)

// Personality configures how the assistant talks. Each axis is independent.
type Personality struct {
	Humor    Humor    `json:"humor" yaml:"humor"`
	Voice    Voice    `json:"voice" yaml:"voice"`
	Tone     Tone     `json:"tone" yaml:"tone"`
	Language Language `json:"language" yaml:"language"`
}

// DefaultPersonality returns the personality used before the user customizes it.
func DefaultPersonality() Personality {
	return Personality{
		Humor:    HumorLow,
		Voice:    VoiceFemale,
		Tone:     ToneFriendly,
		Language: LanguageAuto,
	}
}

// Validate reports every axis holding a value outside its allowed set.
func (p Personality) Validate() error {
	var errs []string
	if !slices.Contains(humors, p.Humor) {
		errs = append(errs, fmt.Sprintf("humor %q is not one of %v", p.Humor, humors))
	}
	if !slices.Contains(voices, p.Voice) {
		errs = append(errs, fmt.Sprintf("voice %q is not one of %v", p.Voice, voices))
	}
	if !slices.Contains(tones, p.Tone) {
		errs = append(errs, fmt.Sprintf("tone %q is not one of %v", p.Tone, tones))
	}
	if !slices.Contains(languages, p.Language) {
		errs = append(errs, fmt.Sprintf("language %q is not one of %v", p.Language, languages))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid personality: %s", strings.Join(errs, "; "))
	}
	return nil
}
