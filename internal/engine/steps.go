package engine

import (
	"encoding/json"
	stderrors "errors"

	"github.com/pkg/errors"
)

// ErrMalformedStep marks a step log entry that is missing required fields.
var ErrMalformedStep = stderrors.New("malformed step")

// Attempt is one entry of a game state's attempt history.
type Attempt struct {
	Position int    `json:"position"`
	Choice   Side   `json:"choice"`
	Result   Result `json:"result"`
}

// ChoiceStep records an agent picking a tile and what happened.
type ChoiceStep struct {
	Position  int    `json:"position"`
	Choice    Side   `json:"choice"`
	Result    Result `json:"result"`
	AgentID   string `json:"agent_id"`
	Timestamp string `json:"timestamp,omitempty"`
}

// GameStateStep is a full state dump emitted between rounds.
type GameStateStep struct {
	BridgePattern    []Side         `json:"bridge_pattern"`
	AttemptHistory   []Attempt      `json:"attempt_history"`
	EliminatedAgents []string       `json:"eliminated_agents,omitempty"`
	ImmuneAgents     []string       `json:"immune_agents,omitempty"`
	ActiveAgents     []string       `json:"active_agents,omitempty"`
	AgentOrder       map[string]int `json:"agent_order,omitempty"`
	OrderingPhase    bool           `json:"ordering_phase,omitempty"`
}

// Step is one entry of the replay log. Exactly one of Choice and State is
// set, matching Type.
type Step struct {
	Type   StepType
	Choice *ChoiceStep
	State  *GameStateStep
}

// TileID is the id of the tile a choice step landed on.
func (c ChoiceStep) TileID() int { return TileID(c.Position, c.Choice) }

// TileID is the id of the tile an attempt landed on.
func (a Attempt) TileID() int { return TileID(a.Position, a.Choice) }

// Validate checks the fields the driver relies on.
func (s Step) Validate() error {
	switch s.Type {
	case StepChoice:
		c := s.Choice
		if c == nil {
			return errors.Wrap(ErrMalformedStep, "choice step without payload")
		}
		if c.Position < 0 {
			return errors.Wrapf(ErrMalformedStep, "choice position %d", c.Position)
		}
		if !c.Choice.Validate() {
			return errors.Wrapf(ErrMalformedStep, "choice side %q", c.Choice)
		}
		if !c.Result.Validate() {
			return errors.Wrapf(ErrMalformedStep, "choice result %q", c.Result)
		}
		if c.AgentID == "" {
			return errors.Wrap(ErrMalformedStep, "choice without agent_id")
		}
	case StepGameState:
		if s.State == nil {
			return errors.Wrap(ErrMalformedStep, "game_state step without payload")
		}
		for i, a := range s.State.AttemptHistory {
			if a.Position < 0 || !a.Choice.Validate() || !a.Result.Validate() {
				return errors.Wrapf(ErrMalformedStep, "attempt %d: %+v", i, a)
			}
		}
	default:
		return errors.Wrapf(ErrMalformedStep, "unknown step type %q", s.Type)
	}
	return nil
}

type stepHeader struct {
	Type StepType `json:"type"`
}

// UnmarshalJSON decodes the flat wire form {"type": ..., fields...}.
// Unknown types decode without a payload and fail Validate.
func (s *Step) UnmarshalJSON(b []byte) error {
	var h stepHeader
	if err := json.Unmarshal(b, &h); err != nil {
		return err
	}
	*s = Step{Type: h.Type}
	switch h.Type {
	case StepChoice:
		var c ChoiceStep
		if err := json.Unmarshal(b, &c); err != nil {
			return err
		}
		s.Choice = &c
	case StepGameState:
		var w gameStateWire
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		g := w.flatten()
		s.State = &g
	}
	return nil
}

// gameStateWire also accepts transcript exports, where bridge_pattern is a
// list of booleans and the full state sits under message_data.
type gameStateWire struct {
	GameStateStep
	BridgePattern json.RawMessage `json:"bridge_pattern"`
	MessageData   *GameStateStep  `json:"message_data"`
}

func (w gameStateWire) flatten() GameStateStep {
	g := w.GameStateStep
	// a boolean pattern does not name sides; leave it to message_data
	var sides []Side
	if json.Unmarshal(w.BridgePattern, &sides) == nil {
		g.BridgePattern = sides
	}
	md := w.MessageData
	if md == nil {
		return g
	}
	if len(g.BridgePattern) == 0 {
		g.BridgePattern = md.BridgePattern
	}
	if len(g.AttemptHistory) == 0 {
		g.AttemptHistory = md.AttemptHistory
	}
	if len(g.EliminatedAgents) == 0 {
		g.EliminatedAgents = md.EliminatedAgents
	}
	if len(g.ImmuneAgents) == 0 {
		g.ImmuneAgents = md.ImmuneAgents
	}
	if len(g.ActiveAgents) == 0 {
		g.ActiveAgents = md.ActiveAgents
	}
	if len(g.AgentOrder) == 0 {
		g.AgentOrder = md.AgentOrder
	}
	g.OrderingPhase = g.OrderingPhase || md.OrderingPhase
	return g
}

// MarshalJSON writes the flat wire form.
func (s Step) MarshalJSON() ([]byte, error) {
	switch {
	case s.Type == StepChoice && s.Choice != nil:
		return json.Marshal(struct {
			Type StepType `json:"type"`
			ChoiceStep
		}{s.Type, *s.Choice})
	case s.Type == StepGameState && s.State != nil:
		return json.Marshal(struct {
			Type StepType `json:"type"`
			GameStateStep
		}{s.Type, *s.State})
	default:
		return json.Marshal(stepHeader{Type: s.Type})
	}
}
