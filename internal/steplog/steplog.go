// Package steplog reads agent step logs: a JSON array of choice and
// game_state entries in the flat wire form.
package steplog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/DaanHessen/glass-bridge/internal/engine"
)

// ErrNotALog is returned when the document is not a JSON array.
var ErrNotALog = stderrors.New("step log is not a JSON array")

//go:embed step.schema.json
var stepSchemaJSON string

var stepSchema = jsonschema.MustCompileString("step.schema.json", stepSchemaJSON)

// Issue describes an entry that failed schema validation or decoding. The
// entry is kept in the log as a payload-less step so it still occupies its
// index and is skipped by the replay driver.
type Issue struct {
	Index int
	Err   error
}

func (i Issue) Error() string { return errors.Wrapf(i.Err, "step %d", i.Index).Error() }

// Log is a decoded step log.
type Log struct {
	Steps  []engine.Step
	Issues []Issue
}

// LoadFile decodes the log at path.
func LoadFile(path string) (Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return Log{}, errors.Wrap(err, "open step log")
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a whole log. Only a document that is not an array of
// entries is an error; bad entries become Issues.
func Decode(r io.Reader) (Log, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Log{}, errors.Wrap(err, "read step log")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return Log{}, errors.Wrap(ErrNotALog, err.Error())
	}
	out := Log{Steps: make([]engine.Step, len(raw))}
	for i, item := range raw {
		step, err := decodeStep(item)
		if err != nil {
			out.Issues = append(out.Issues, Issue{Index: i, Err: err})
		}
		out.Steps[i] = step
	}
	return out, nil
}

func decodeStep(item json.RawMessage) (engine.Step, error) {
	var v any
	if err := json.Unmarshal(item, &v); err != nil {
		return engine.Step{}, errors.Wrap(engine.ErrMalformedStep, err.Error())
	}
	if err := stepSchema.Validate(v); err != nil {
		return engine.Step{Type: headerType(v)}, errors.Wrap(engine.ErrMalformedStep, err.Error())
	}
	var s engine.Step
	if err := json.Unmarshal(item, &s); err != nil {
		return engine.Step{Type: headerType(v)}, errors.Wrap(engine.ErrMalformedStep, err.Error())
	}
	return s, nil
}

func headerType(v any) engine.StepType {
	if m, ok := v.(map[string]any); ok {
		if t, ok := m["type"].(string); ok {
			return engine.StepType(t)
		}
	}
	return ""
}
