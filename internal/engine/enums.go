package engine

// String backed enums so steps and snapshots round-trip through JSON
// without translation tables.

type Side string
type TileStatus string
type Phase string
type Result string
type StepType string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

var AllSides = []Side{SideLeft, SideRight}

const (
	TileUnselected TileStatus = "unselected"
	TileCurrent    TileStatus = "current"
	TileCorrect    TileStatus = "correct"
	TileWrong      TileStatus = "wrong"
)

var AllTileStatuses = []TileStatus{TileUnselected, TileCurrent, TileCorrect, TileWrong}

const (
	PhaseNotStarted Phase = "not_started"
	PhaseActive     Phase = "active"
	PhaseGameOver   Phase = "game_over"
	PhaseVictory    Phase = "victory"
)

var AllPhases = []Phase{PhaseNotStarted, PhaseActive, PhaseGameOver, PhaseVictory}

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

var AllResults = []Result{ResultSuccess, ResultFailure}

const (
	StepChoice    StepType = "choice"
	StepGameState StepType = "game_state"
)

var AllStepTypes = []StepType{StepChoice, StepGameState}

func contains[T ~string](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (s Side) Validate() bool       { return contains(AllSides, s) }
func (t TileStatus) Validate() bool { return contains(AllTileStatuses, t) }
func (p Phase) Validate() bool      { return contains(AllPhases, p) }
func (r Result) Validate() bool     { return contains(AllResults, r) }
func (t StepType) Validate() bool   { return contains(AllStepTypes, t) }

// Index is 0 for the left tile and 1 for the right tile of a pair.
func (s Side) Index() int {
	if s == SideRight {
		return 1
	}
	return 0
}

// Opposite returns the other side of the pair.
func (s Side) Opposite() Side {
	if s == SideRight {
		return SideLeft
	}
	return SideRight
}

// Terminal reports whether no further tile input is accepted in this phase.
func (p Phase) Terminal() bool { return p == PhaseGameOver || p == PhaseVictory }
