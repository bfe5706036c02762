// Package narration serialises spoken lines: one request plays at a time,
// in enqueue order, with a remote synthesizer backed by a local speaker.
package narration

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// Voice defaults used by every line unless a script overrides them.
const (
	DefaultVoice    = "en-US-Standard-C"
	DefaultLanguage = "en-us"
	DefaultRate     = 1.0
)

// VoiceParams is the one voice contract shared by all backends. Backends
// adapt it to their own option shapes.
type VoiceParams struct {
	Voice    string  `json:"voice" yaml:"voice"`
	Rate     float64 `json:"rate" yaml:"rate"`
	Pitch    float64 `json:"pitch" yaml:"pitch"`
	Language string  `json:"language" yaml:"language"`
}

// DefaultVoiceParams is the narrator voice at neutral pitch.
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{Voice: DefaultVoice, Rate: DefaultRate, Language: DefaultLanguage}
}

// WithPitch returns a copy shifted by delta.
func (v VoiceParams) WithPitch(delta float64) VoiceParams {
	v.Pitch += delta
	return v
}

// Normalize fills zero fields with defaults.
func (v VoiceParams) Normalize() VoiceParams {
	if v.Voice == "" {
		v.Voice = DefaultVoice
	}
	if v.Rate <= 0 {
		v.Rate = DefaultRate
	}
	if v.Language == "" {
		v.Language = DefaultLanguage
	}
	return v
}

// Validate checks the language tag and numeric ranges.
func (v VoiceParams) Validate() error {
	if _, err := language.Parse(v.Language); err != nil {
		return errors.Wrapf(err, "voice language %q", v.Language)
	}
	if v.Rate <= 0 || v.Rate > 4 {
		return errors.Errorf("voice rate %.2f out of range (0,4]", v.Rate)
	}
	if v.Pitch < -1 || v.Pitch > 1 {
		return errors.Errorf("voice pitch %.2f out of range [-1,1]", v.Pitch)
	}
	return nil
}

// Request is one line to speak.
type Request struct {
	ID    uuid.UUID   `json:"id"`
	Text  string      `json:"text"`
	Voice VoiceParams `json:"voice"`
}

// NewRequest builds a request with a fresh id.
func NewRequest(text string, voice VoiceParams) Request {
	return Request{ID: uuid.New(), Text: text, Voice: voice}
}
