package util

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/DaanHessen/glass-bridge/internal/engine"
	"github.com/DaanHessen/glass-bridge/internal/narration"
)

// LoadScript reads a YAML narration script. Fields it leaves out keep
// their stock values. An empty path returns the stock script.
func LoadScript(path string) (engine.Script, error) {
	if path == "" {
		return engine.DefaultScript(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return engine.Script{}, errors.Wrap(err, "open script")
	}
	defer f.Close()
	return DecodeScript(f)
}

// DecodeScript overlays YAML from r on the stock script and validates
// every voice.
func DecodeScript(r io.Reader) (engine.Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return engine.Script{}, errors.Wrap(err, "read script")
	}
	s := engine.DefaultScript()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return engine.Script{}, errors.Wrap(err, "decode script")
	}
	voices := map[string]narration.VoiceParams{
		"voice":           s.Voice,
		"game_over.voice": s.GameOver.Voice,
		"victory.voice":   s.Victory.Voice,
		"success_pitch":   s.Voice.WithPitch(s.SuccessPitch),
		"failure_pitch":   s.Voice.WithPitch(s.FailurePitch),
	}
	for name, v := range voices {
		if err := v.Normalize().Validate(); err != nil {
			return engine.Script{}, errors.Wrap(err, name)
		}
	}
	if s.Move == "" || s.Holds == "" || s.Breaks == "" || s.GameOver.Text == "" || s.Victory.Text == "" {
		return engine.Script{}, errors.New("script lines must not be empty")
	}
	return s, nil
}
