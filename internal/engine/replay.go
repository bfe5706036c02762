package engine

import (
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/DaanHessen/glass-bridge/internal/narration"
)

// ErrStepOutOfRange is returned for cursor positions outside the log.
var ErrStepOutOfRange = stderrors.New("step index out of range")

// CharacterPosition is where an agent stands. BoardPosition 0 is the start
// platform; n means the tile of pair n-1.
type CharacterPosition struct {
	BoardPosition int  `json:"board_position"`
	Facing        Side `json:"facing"`
}

// ReplaySink receives the effects of replayed steps. animate is false
// while the driver silently catches up after a rewind.
type ReplaySink interface {
	BreakTile(tileID int, animate bool) bool
	Narrate(req narration.Request)
}

// Driver walks the step log. It remembers the last processed index so a
// re-delivered index has no further effect.
type Driver struct {
	script    Script
	last      int
	positions map[string]CharacterPosition
	log       *slog.Logger
}

// NewDriver returns a driver that has processed nothing.
func NewDriver(script Script, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{script: script, last: -1, positions: map[string]CharacterPosition{}, log: logger}
}

// LastProcessed is the index of the last applied step, -1 initially.
func (d *Driver) LastProcessed() int { return d.last }

// Reset forgets every processed step and all character positions.
func (d *Driver) Reset() {
	d.last = -1
	d.positions = map[string]CharacterPosition{}
}

// Positions returns a copy of the character positions.
func (d *Driver) Positions() map[string]CharacterPosition {
	out := make(map[string]CharacterPosition, len(d.positions))
	for k, v := range d.positions {
		out[k] = v
	}
	return out
}

// Advance applies steps[index] with narration. Re-delivering the last
// processed index is a no-op. A malformed step is skipped but still
// consumes its index; the returned error wraps ErrMalformedStep.
func (d *Driver) Advance(index int, steps []Step, sink ReplaySink) error {
	if index == d.last {
		return nil
	}
	if index < 0 || index >= len(steps) {
		return errors.Wrapf(ErrStepOutOfRange, "index %d of %d", index, len(steps))
	}
	return d.applyAt(index, steps[index], sink, true)
}

// Replay resets the driver and re-applies steps 0..target. Only the target
// step is narrated and animated.
func (d *Driver) Replay(target int, steps []Step, sink ReplaySink) error {
	if target < 0 || target >= len(steps) {
		return errors.Wrapf(ErrStepOutOfRange, "index %d of %d", target, len(steps))
	}
	d.Reset()
	for i := 0; i < target; i++ {
		// malformed history steps were already reported when first seen
		_ = d.applyAt(i, steps[i], sink, false)
	}
	return d.applyAt(target, steps[target], sink, true)
}

func (d *Driver) applyAt(index int, step Step, sink ReplaySink, live bool) error {
	d.last = index
	if err := step.Validate(); err != nil {
		if live {
			d.log.Warn("skipping malformed step", "index", index, "err", err)
		}
		return errors.Wrapf(err, "step %d", index)
	}
	switch step.Type {
	case StepChoice:
		d.applyChoice(*step.Choice, sink, live)
	case StepGameState:
		d.applyGameState(*step.State, sink, live)
	}
	d.log.Debug("step applied", "index", index, "type", step.Type, "live", live)
	return nil
}

func (d *Driver) applyChoice(c ChoiceStep, sink ReplaySink, live bool) {
	if live {
		sink.Narrate(d.script.MoveRequest(c.AgentID, c.Choice))
		sink.Narrate(d.script.OutcomeRequest(c.Result))
	}
	if c.Result == ResultFailure {
		sink.BreakTile(c.TileID(), live)
		delete(d.positions, c.AgentID)
		return
	}
	d.positions[c.AgentID] = CharacterPosition{BoardPosition: c.Position + 1, Facing: c.Choice}
}

func (d *Driver) applyGameState(g GameStateStep, sink ReplaySink, live bool) {
	for _, a := range g.AttemptHistory {
		if a.Result == ResultFailure {
			sink.BreakTile(a.TileID(), live)
		}
	}
	eliminated := make(map[string]bool, len(g.EliminatedAgents))
	for _, id := range g.EliminatedAgents {
		eliminated[id] = true
		delete(d.positions, id)
	}
	for _, group := range [][]string{g.ActiveAgents, g.ImmuneAgents} {
		for _, id := range group {
			if eliminated[id] {
				continue
			}
			if _, ok := d.positions[id]; !ok {
				d.positions[id] = CharacterPosition{BoardPosition: 0, Facing: SideLeft}
			}
		}
	}
}
