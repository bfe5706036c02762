package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/DaanHessen/glass-bridge/internal/narration"
)

type recordingSink struct {
	broken   []int
	animated []bool
	said     []narration.Request
}

func (s *recordingSink) BreakTile(id int, animate bool) bool {
	for _, b := range s.broken {
		if b == id {
			return false
		}
	}
	s.broken = append(s.broken, id)
	s.animated = append(s.animated, animate)
	return true
}

func (s *recordingSink) Narrate(r narration.Request) { s.said = append(s.said, r) }

func choice(pos int, side Side, r Result, agent string) Step {
	return Step{Type: StepChoice, Choice: &ChoiceStep{Position: pos, Choice: side, Result: r, AgentID: agent}}
}

func TestDriverChoiceFailureNarratesAndBreaks(t *testing.T) {
	d := NewDriver(DefaultScript(), nil)
	sink := &recordingSink{}
	steps := []Step{choice(2, SideLeft, ResultFailure, "X")}
	if err := d.Advance(0, steps, sink); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(sink.said) != 2 {
		t.Fatalf("requests = %d, want 2", len(sink.said))
	}
	if sink.said[0].Text != "X chooses the left tile." || sink.said[1].Text != "The tile breaks! Oh no!" {
		t.Fatalf("texts = %q, %q", sink.said[0].Text, sink.said[1].Text)
	}
	if sink.said[1].Voice.Pitch != -0.5 {
		t.Fatalf("failure pitch = %v", sink.said[1].Voice.Pitch)
	}
	if len(sink.broken) != 1 || sink.broken[0] != 4 || !sink.animated[0] {
		t.Fatalf("broken = %v animated = %v", sink.broken, sink.animated)
	}
	if _, ok := d.Positions()["X"]; ok {
		t.Fatal("eliminated agent still on the board")
	}
}

func TestDriverRedeliveredIndexIsNoop(t *testing.T) {
	d := NewDriver(DefaultScript(), nil)
	sink := &recordingSink{}
	steps := []Step{choice(0, SideRight, ResultSuccess, "A")}
	for i := 0; i < 3; i++ {
		if err := d.Advance(0, steps, sink); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	if len(sink.said) != 2 {
		t.Fatalf("requests = %d, want 2", len(sink.said))
	}
	if got := d.Positions()["A"]; got != (CharacterPosition{BoardPosition: 1, Facing: SideRight}) {
		t.Fatalf("position = %+v", got)
	}
}

func TestDriverGameStateBreaksAndSeedsAgents(t *testing.T) {
	d := NewDriver(DefaultScript(), nil)
	sink := &recordingSink{}
	state := Step{Type: StepGameState, State: &GameStateStep{
		AttemptHistory: []Attempt{
			{Position: 0, Choice: SideRight, Result: ResultFailure},
			{Position: 0, Choice: SideLeft, Result: ResultSuccess},
			{Position: 0, Choice: SideRight, Result: ResultFailure},
		},
		EliminatedAgents: []string{"B"},
		ImmuneAgents:     []string{"C"},
		ActiveAgents:     []string{"A", "B"},
	}}
	steps := []Step{choice(0, SideLeft, ResultSuccess, "A"), state}
	if err := d.Advance(0, steps, sink); err != nil {
		t.Fatal(err)
	}
	if err := d.Advance(1, steps, sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.broken) != 1 || sink.broken[0] != TileID(0, SideRight) {
		t.Fatalf("broken = %v", sink.broken)
	}
	if len(sink.said) != 2 {
		t.Fatalf("game state steps are not narrated, got %d requests", len(sink.said))
	}
	pos := d.Positions()
	if pos["A"].BoardPosition != 1 {
		t.Fatalf("existing agent moved: %+v", pos["A"])
	}
	if _, ok := pos["B"]; ok {
		t.Fatal("eliminated agent kept")
	}
	if pos["C"] != (CharacterPosition{BoardPosition: 0, Facing: SideLeft}) {
		t.Fatalf("immune agent = %+v", pos["C"])
	}
}

func TestDriverMalformedStepConsumesIndex(t *testing.T) {
	d := NewDriver(DefaultScript(), nil)
	sink := &recordingSink{}
	steps := []Step{{Type: StepChoice}, choice(0, SideLeft, ResultSuccess, "A")}
	err := d.Advance(0, steps, sink)
	if !errors.Is(err, ErrMalformedStep) {
		t.Fatalf("err = %v, want ErrMalformedStep", err)
	}
	if d.LastProcessed() != 0 || len(sink.said) != 0 {
		t.Fatalf("last = %d said = %d", d.LastProcessed(), len(sink.said))
	}
	if err := d.Advance(1, steps, sink); err != nil {
		t.Fatalf("next step: %v", err)
	}
}

func TestDriverOutOfRange(t *testing.T) {
	d := NewDriver(DefaultScript(), nil)
	if err := d.Advance(3, nil, &recordingSink{}); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	if d.LastProcessed() != -1 {
		t.Fatalf("cursor moved to %d", d.LastProcessed())
	}
}

func TestDriverReplayNarratesOnlyTarget(t *testing.T) {
	d := NewDriver(DefaultScript(), nil)
	sink := &recordingSink{}
	steps := []Step{
		choice(0, SideLeft, ResultFailure, "A"),
		choice(0, SideRight, ResultSuccess, "B"),
		choice(1, SideLeft, ResultSuccess, "B"),
	}
	if err := d.Replay(2, steps, sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.said) != 2 || sink.said[0].Text != "B chooses the left tile." {
		t.Fatalf("said = %v", sink.said)
	}
	if len(sink.animated) != 1 || sink.animated[0] {
		t.Fatalf("history break should not animate: %v", sink.animated)
	}
	if d.Positions()["B"].BoardPosition != 2 {
		t.Fatalf("B = %+v", d.Positions()["B"])
	}
}

func snapshotJSON(t *testing.T, s Snapshot) []string {
	t.Helper()
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return difflib.SplitLines(string(b))
}

func assertSameSnapshot(t *testing.T, want, got Snapshot) {
	t.Helper()
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        snapshotJSON(t, want),
		B:        snapshotJSON(t, got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if diff != "" {
		t.Fatalf("snapshot mismatch:\n%s", diff)
	}
}

func TestGameReprocessingSameIndexLeavesStateUnchanged(t *testing.T) {
	g, n, _ := newTestGame(t, "replay")
	g.LoadSteps([]Step{choice(2, SideLeft, ResultFailure, "X")})
	if err := g.AdvanceStep(0); err != nil {
		t.Fatal(err)
	}
	first := g.Snapshot()
	if err := g.AdvanceStep(0); err != nil {
		t.Fatal(err)
	}
	assertSameSnapshot(t, first, g.Snapshot())
	if len(n.all) != 2 {
		t.Fatalf("enqueued %d requests, want 2", len(n.all))
	}
	if s := first.Board.Tiles[4].Status; s != TileWrong {
		t.Fatalf("tile 4 = %s", s)
	}
	if s := first.Board.Tiles[5].Status; s != TileCorrect {
		t.Fatalf("tile 5 = %s", s)
	}
}

func TestGameRewindMatchesFreshReplay(t *testing.T) {
	steps := []Step{
		choice(0, SideLeft, ResultSuccess, "A"),
		choice(1, SideRight, ResultFailure, "B"),
		choice(1, SideLeft, ResultSuccess, "A"),
	}

	g, n, _ := newTestGame(t, "rewind")
	g.LoadSteps(steps)
	for i := range steps {
		if err := g.AdvanceStep(i); err != nil {
			t.Fatal(err)
		}
	}
	before := len(n.all)
	if err := g.AdvanceStep(0); err != nil {
		t.Fatal(err)
	}
	if got := len(n.all) - before; got != 2 {
		t.Fatalf("rewind narrated %d requests, want 2", got)
	}
	rewound := g.Snapshot()
	if rewound.Board.Broken(TileID(1, SideRight)) {
		t.Fatal("rewind kept a tile broken by a later step")
	}

	fresh, _, _ := newTestGame(t, "rewind")
	fresh.LoadSteps(steps)
	if err := fresh.AdvanceStep(0); err != nil {
		t.Fatal(err)
	}
	assertSameSnapshot(t, fresh.Snapshot(), rewound)
}

func TestGameMalformedStepSetsWarning(t *testing.T) {
	g, _, _ := newTestGame(t, "warn")
	g.LoadSteps([]Step{{Type: StepGameState}, choice(0, SideLeft, ResultSuccess, "A")})
	if err := g.AdvanceStep(0); !errors.Is(err, ErrMalformedStep) {
		t.Fatalf("err = %v", err)
	}
	if g.Snapshot().Warning == "" {
		t.Fatal("expected a warning")
	}
	if err := g.AdvanceStep(1); err != nil {
		t.Fatal(err)
	}
	if g.StepIndex() != 1 {
		t.Fatalf("cursor = %d", g.StepIndex())
	}
	if w := g.Snapshot().Warning; w != "" {
		t.Fatalf("warning kept after a good step: %q", w)
	}
}

func TestGameLoadStepsCatchesUpSilently(t *testing.T) {
	g, n, _ := newTestGame(t, "reload")
	steps := []Step{
		choice(0, SideLeft, ResultFailure, "A"),
		choice(0, SideRight, ResultSuccess, "B"),
	}
	g.LoadSteps(steps)
	_ = g.AdvanceStep(0)
	_ = g.AdvanceStep(1)
	said := len(n.all)

	g.LoadSteps(append(steps, choice(1, SideLeft, ResultSuccess, "B")))
	if len(n.all) != said {
		t.Fatalf("reload narrated %d extra requests", len(n.all)-said)
	}
	snap := g.Snapshot()
	if snap.StepIndex != 1 || snap.StepCount != 3 {
		t.Fatalf("cursor %d of %d", snap.StepIndex, snap.StepCount)
	}
	if !snap.Board.Broken(TileID(0, SideLeft)) {
		t.Fatal("history break lost on reload")
	}
}
