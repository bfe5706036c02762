package engine

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	ErrUnknownCommand = stderrors.New("unknown command")
	ErrBadArgument    = stderrors.New("invalid command argument")
)

// Command names accepted from front ends.
const (
	CmdSnapshot    = "snapshot"
	CmdStart       = "start"
	CmdSelectTile  = "select_tile"
	CmdSelectSide  = "select_side"
	CmdAdvanceStep = "advance_step"
	CmdNextStep    = "next_step"
	CmdPrevStep    = "prev_step"
	CmdRestart     = "restart"
	CmdToggleMute  = "toggle_mute"
)

// Command is one front end request. Only the field its Name needs is read.
type Command struct {
	Name   string `json:"command"`
	TileID int    `json:"tile_id,omitempty"`
	Side   Side   `json:"side,omitempty"`
	Index  int    `json:"index,omitempty"`
}

// Apply runs c against g. Ignored tile picks are not errors.
func (c Command) Apply(g *Game) error {
	switch c.Name {
	case CmdSnapshot, "":
	case CmdStart:
		g.Start()
	case CmdSelectTile:
		g.SelectTile(c.TileID)
	case CmdSelectSide:
		if !c.Side.Validate() {
			return errors.Wrapf(ErrBadArgument, "side %q", c.Side)
		}
		g.SelectSide(c.Side)
	case CmdAdvanceStep:
		return g.AdvanceStep(c.Index)
	case CmdNextStep:
		return g.AdvanceStep(g.StepIndex() + 1)
	case CmdPrevStep:
		if g.StepIndex() <= 0 {
			return nil
		}
		return g.AdvanceStep(g.StepIndex() - 1)
	case CmdRestart:
		g.Restart()
	case CmdToggleMute:
		g.ToggleMute()
	default:
		return errors.Wrap(ErrUnknownCommand, c.Name)
	}
	return nil
}

// Host pairs a Game with the Loop that owns it.
type Host struct {
	Loop *Loop
	Game *Game
}

// Do applies cmd on the loop and returns the snapshot taken right after.
func (h Host) Do(ctx context.Context, cmd Command) (Snapshot, error) {
	var (
		snap   Snapshot
		cmdErr error
	)
	err := h.Loop.Call(ctx, func() {
		cmdErr = cmd.Apply(h.Game)
		snap = h.Game.Snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, cmdErr
}
