package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/DaanHessen/glass-bridge/internal/narration"
)

// Animation stages of a breaking tile.
const (
	ShardDelay    = 300 * time.Millisecond
	GameOverDelay = 2000 * time.Millisecond
)

// Narrator is the part of the narration queue the game drives.
type Narrator interface {
	Enqueue(req narration.Request)
	Stop()
	Playing() bool
	Current() (narration.Request, bool)
	SetMuted(muted bool)
	Muted() bool
	Warning() (narration.Warning, bool)
}

// Session is the scoring state of the current attempt.
type Session struct {
	Phase            Phase `json:"phase"`
	Score            int   `json:"score"`
	MaxScore         int   `json:"max_score"`
	CurrentPairIndex int   `json:"current_pair_index"`
	BreakingTileID   *int  `json:"breaking_tile_id,omitempty"`
}

// Snapshot is everything a front end needs to draw one frame.
type Snapshot struct {
	Board            Board                        `json:"board"`
	Session          Session                      `json:"session"`
	Characters       map[string]CharacterPosition `json:"characters"`
	NarrationPlaying bool                         `json:"narration_playing"`
	Narrating        string                       `json:"narrating,omitempty"`
	Muted            bool                         `json:"muted"`
	ShowShards       bool                         `json:"show_shards"`
	GameOverShown    bool                         `json:"game_over_shown"`
	Warning          string                       `json:"warning,omitempty"`
	WarningRetryable bool                         `json:"warning_retryable,omitempty"`
	StepIndex        int                          `json:"step_index"`
	StepCount        int                          `json:"step_count"`
}

// GameConfig fixes the bridge shape and what the narrator says.
type GameConfig struct {
	TotalPairs int
	Seed       Seed
	Script     Script
}

// Game is the session controller. It is not safe for concurrent use; run
// every method on the owning Loop.
type Game struct {
	cfg      GameConfig
	narrator Narrator
	sched    Scheduler
	log      *slog.Logger

	board    Board
	phase    Phase
	score    int
	maxScore int
	// layout counts restarts; rewinds rebuild the same layout
	layout int
	driver *Driver
	steps  []Step

	// fallTile is the tile the player fell through, -1 otherwise. It
	// outlives rewinds, which only rebuild the replayed board.
	fallTile int

	timers        []Timer
	timerGen      uint64
	showShards    bool
	gameOverShown bool
	warning       string
}

// NewGame builds a game in the not started phase.
func NewGame(cfg GameConfig, narrator Narrator, sched Scheduler, logger *slog.Logger) *Game {
	if cfg.TotalPairs <= 0 {
		cfg.TotalPairs = DefaultTotalPairs
	}
	if cfg.Script.Move == "" {
		cfg.Script = DefaultScript()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Game{
		cfg:      cfg,
		narrator: narrator,
		sched:    sched,
		log:      logger,
		phase:    PhaseNotStarted,
		fallTile: noTile,
		driver:   NewDriver(cfg.Script, logger.With("component", "replay")),
	}
	g.board = NewBoard(cfg.TotalPairs, cfg.Seed.BoardStream(g.layout))
	return g
}

// Start moves a fresh game into the active phase.
func (g *Game) Start() {
	if g.phase == PhaseNotStarted {
		g.setPhase(PhaseActive)
	}
}

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// Board returns the current board value.
func (g *Game) Board() Board { return g.board }

// SelectTile applies a player pick. Invalid picks return OutcomeIgnored.
func (g *Game) SelectTile(tileID int) Outcome {
	next, out := SelectTile(g.board, g.phase, tileID)
	if out.Kind == OutcomeIgnored {
		g.log.Debug("tile input ignored", "tile", tileID, "phase", g.phase)
		return out
	}
	g.board = next
	switch out.Kind {
	case OutcomeAdvanced:
		g.addPoint()
	case OutcomeVictory:
		g.addPoint()
		g.setPhase(PhaseVictory)
	case OutcomeFailure:
		g.fallTile = tileID
		g.setPhase(PhaseGameOver)
		g.scheduleBreak(true)
	}
	g.log.Info("tile selected", "tile", tileID, "outcome", out.Kind, "score", g.score)
	return out
}

// SelectSide picks the left or right tile of the current pair.
func (g *Game) SelectSide(side Side) Outcome {
	t, ok := g.board.CurrentTile(side)
	if !ok {
		return Outcome{Kind: OutcomeIgnored, TileID: -1}
	}
	return g.SelectTile(t.ID)
}

// LoadSteps installs a step log. Replacing a log that was already being
// replayed rebuilds the board and silently catches up to the same cursor.
func (g *Game) LoadSteps(steps []Step) {
	cursor := g.driver.LastProcessed()
	g.steps = steps
	if cursor < 0 {
		return
	}
	g.rebuild(false)
	if cursor >= len(steps) {
		cursor = len(steps) - 1
	}
	for i := 0; i <= cursor; i++ {
		_ = g.driver.applyAt(i, steps[i], g, false)
	}
	g.restoreFall()
}

// Steps returns the installed step log.
func (g *Game) Steps() []Step { return g.steps }

// AdvanceStep moves the replay cursor to index. Moving backwards rebuilds
// the board and replays from the start.
func (g *Game) AdvanceStep(index int) error {
	var err error
	switch last := g.driver.LastProcessed(); {
	case index == last:
		return nil
	case index < last && index >= 0:
		g.rebuild(false)
		err = g.driver.Replay(index, g.steps, g)
		g.restoreFall()
	default:
		err = g.driver.Advance(index, g.steps, g)
	}
	switch {
	case err == nil:
		g.warning = ""
	case errors.Is(err, ErrMalformedStep):
		g.warning = err.Error()
	}
	return err
}

// StepIndex is the replay cursor.
func (g *Game) StepIndex() int { return g.driver.LastProcessed() }

// Restart lays out a new bridge and resets replay, narration and timers.
func (g *Game) Restart() {
	g.layout++
	g.fallTile = noTile
	g.rebuild(true)
	g.setPhase(PhaseActive)
	g.log.Info("game restarted", "layout", g.layout)
}

// ToggleMute flips narration muting.
func (g *Game) ToggleMute() { g.narrator.SetMuted(!g.narrator.Muted()) }

// BreakTile implements ReplaySink.
func (g *Game) BreakTile(tileID int, animate bool) bool {
	next, ok := BreakTile(g.board, tileID)
	if !ok {
		return false
	}
	g.board = next
	if animate {
		g.scheduleBreak(false)
	} else {
		g.showShards = true
	}
	return true
}

// Narrate implements ReplaySink.
func (g *Game) Narrate(req narration.Request) { g.narrator.Enqueue(req) }

// Snapshot copies the state a front end renders.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Board:            g.board.clone(),
		Session:          g.session(),
		Characters:       g.driver.Positions(),
		NarrationPlaying: g.narrator.Playing(),
		Muted:            g.narrator.Muted(),
		ShowShards:       g.showShards,
		GameOverShown:    g.gameOverShown,
		Warning:          g.warning,
		StepIndex:        g.driver.LastProcessed(),
		StepCount:        len(g.steps),
	}
	if req, ok := g.narrator.Current(); ok {
		s.Narrating = req.Text
	}
	if w, ok := g.narrator.Warning(); ok && s.Warning == "" {
		s.Warning = w.Error()
		s.WarningRetryable = w.Retryable
	}
	return s
}

func (g *Game) session() Session {
	s := Session{
		Phase:            g.phase,
		Score:            g.score,
		MaxScore:         g.maxScore,
		CurrentPairIndex: g.board.CurrentPair,
	}
	if g.board.Breaking() {
		id := g.board.BreakingTileID
		s.BreakingTileID = &id
	}
	return s
}

func (g *Game) addPoint() {
	g.score++
	if g.score > g.maxScore {
		g.maxScore = g.score
	}
}

// setPhase fires terminal narration on the transition edge only.
func (g *Game) setPhase(p Phase) {
	prev := g.phase
	if prev == p {
		return
	}
	g.phase = p
	g.log.Info("phase changed", "from", prev, "to", p)
	switch p {
	case PhaseGameOver:
		g.narrator.Enqueue(g.cfg.Script.GameOver.Request())
	case PhaseVictory:
		g.narrator.Enqueue(g.cfg.Script.Victory.Request())
	}
}

// rebuild resets board, replay, narration and timers. fresh keeps the
// layout counter as already advanced by Restart; rewinds pass false and
// reuse the current layout.
func (g *Game) rebuild(fresh bool) {
	g.cancelTimers()
	g.narrator.Stop()
	g.board = NewBoard(g.cfg.TotalPairs, g.cfg.Seed.BoardStream(g.layout))
	g.driver.Reset()
	g.showShards = false
	g.gameOverShown = false
	g.warning = ""
	if fresh {
		g.score = 0
	}
}

// restoreFall puts the player's fall back on a rebuilt board. A lost game
// keeps its broken tile and banner whatever the replay cursor does.
func (g *Game) restoreFall() {
	if g.phase != PhaseGameOver || g.fallTile == noTile {
		return
	}
	if next, ok := BreakTile(g.board, g.fallTile); ok {
		g.board = next
	}
	g.showShards = true
	g.gameOverShown = true
}

func (g *Game) scheduleBreak(declareGameOver bool) {
	if g.sched == nil {
		g.showShards = true
		g.gameOverShown = declareGameOver
		return
	}
	gen := g.timerGen
	g.timers = append(g.timers, g.sched.AfterFunc(ShardDelay, func() {
		if gen != g.timerGen {
			return
		}
		g.showShards = true
		if !declareGameOver {
			return
		}
		g.timers = append(g.timers, g.sched.AfterFunc(GameOverDelay, func() {
			if gen != g.timerGen {
				return
			}
			g.gameOverShown = true
		}))
	}))
}

func (g *Game) cancelTimers() {
	for _, t := range g.timers {
		t.Stop()
	}
	g.timers = nil
	g.timerGen++
}
