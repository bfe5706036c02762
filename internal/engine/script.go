package engine

import (
	"strings"

	"github.com/DaanHessen/glass-bridge/internal/narration"
)

// Line is a fixed spoken line with its own voice.
type Line struct {
	Text  string                `yaml:"text"`
	Voice narration.VoiceParams `yaml:"voice"`
}

// Script holds everything the game says. Move may use {agent} and {side}.
type Script struct {
	Voice        narration.VoiceParams `yaml:"voice"`
	Move         string                `yaml:"move"`
	Holds        string                `yaml:"holds"`
	Breaks       string                `yaml:"breaks"`
	SuccessPitch float64               `yaml:"success_pitch"`
	FailurePitch float64               `yaml:"failure_pitch"`
	GameOver     Line                  `yaml:"game_over"`
	Victory      Line                  `yaml:"victory"`
}

// DefaultScript is the stock narration.
func DefaultScript() Script {
	v := narration.DefaultVoiceParams()
	gameOver := v
	gameOver.Rate, gameOver.Pitch = 0.9, -0.2
	victory := v
	victory.Rate, victory.Pitch = 1.1, 0.3
	return Script{
		Voice:        v,
		Move:         "{agent} chooses the {side} tile.",
		Holds:        "The tile holds! Good choice!",
		Breaks:       "The tile breaks! Oh no!",
		SuccessPitch: 0.5,
		FailurePitch: -0.5,
		GameOver:     Line{Text: "Game Over! Better luck next time!", Voice: gameOver},
		Victory:      Line{Text: "Congratulations! You've made it across the bridge!", Voice: victory},
	}
}

// MoveRequest narrates an agent's pick.
func (s Script) MoveRequest(agent string, side Side) narration.Request {
	text := strings.NewReplacer("{agent}", agent, "{side}", string(side)).Replace(s.Move)
	return narration.NewRequest(text, s.Voice)
}

// OutcomeRequest narrates the result of a pick, pitched up on success and
// down on failure.
func (s Script) OutcomeRequest(r Result) narration.Request {
	if r == ResultSuccess {
		return narration.NewRequest(s.Holds, s.Voice.WithPitch(s.SuccessPitch))
	}
	return narration.NewRequest(s.Breaks, s.Voice.WithPitch(s.FailurePitch))
}

// Request builds the request for a fixed line.
func (l Line) Request() narration.Request { return narration.NewRequest(l.Text, l.Voice) }
