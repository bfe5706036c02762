package engine

import (
	"fmt"
	"testing"
)

func testBoard(t *testing.T, seed string, pairs int) Board {
	t.Helper()
	s, err := NewSeed(seed)
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	return NewBoard(pairs, s.BoardStream(0))
}

func safeSide(b Board, pair int) Side {
	if b.Tiles[TileID(pair, SideLeft)].IsSafe {
		return SideLeft
	}
	return SideRight
}

func TestNewBoardExactlyOneSafeTilePerPair(t *testing.T) {
	for i := 0; i < 500; i++ {
		b := testBoard(t, fmt.Sprintf("seed-%d", i), DefaultTotalPairs)
		if len(b.Tiles) != DefaultTotalPairs*2 {
			t.Fatalf("seed %d: got %d tiles", i, len(b.Tiles))
		}
		for p := 0; p < b.TotalPairs; p++ {
			l, r := b.Tiles[TileID(p, SideLeft)], b.Tiles[TileID(p, SideRight)]
			if l.IsSafe == r.IsSafe {
				t.Fatalf("seed %d pair %d: left safe=%v right safe=%v", i, p, l.IsSafe, r.IsSafe)
			}
			want := TileUnselected
			if p == 0 {
				want = TileCurrent
			}
			if l.Status != want || r.Status != want {
				t.Fatalf("seed %d pair %d: statuses %s/%s want %s", i, p, l.Status, r.Status, want)
			}
		}
	}
}

func TestNewBoardSafetyIsRoughlyBalanced(t *testing.T) {
	left := 0
	total := 0
	for i := 0; i < 200; i++ {
		b := testBoard(t, fmt.Sprintf("balance-%d", i), DefaultTotalPairs)
		for p := 0; p < b.TotalPairs; p++ {
			total++
			if safeSide(b, p) == SideLeft {
				left++
			}
		}
	}
	ratio := float64(left) / float64(total)
	if ratio < 0.4 || ratio > 0.6 {
		t.Fatalf("left-safe ratio %.2f out of range", ratio)
	}
}

func TestNewBoardIsDeterministicPerSeed(t *testing.T) {
	a := testBoard(t, "same", DefaultTotalPairs)
	b := testBoard(t, "same", DefaultTotalPairs)
	for i := range a.Tiles {
		if a.Tiles[i] != b.Tiles[i] {
			t.Fatalf("tile %d differs: %+v vs %+v", i, a.Tiles[i], b.Tiles[i])
		}
	}
}

func TestSelectSafeTileAdvances(t *testing.T) {
	b := testBoard(t, "advance", DefaultTotalPairs)
	for p := 0; p < b.TotalPairs-1; p++ {
		id := TileID(p, safeSide(b, p))
		next, out := SelectTile(b, PhaseActive, id)
		if out.Kind != OutcomeAdvanced {
			t.Fatalf("pair %d: outcome %s", p, out.Kind)
		}
		if next.CurrentPair != b.CurrentPair+1 {
			t.Fatalf("pair %d: current %d want %d", p, next.CurrentPair, b.CurrentPair+1)
		}
		if next.Tiles[id].Status != TileCorrect {
			t.Fatalf("pair %d: picked tile status %s", p, next.Tiles[id].Status)
		}
		if s := next.Tiles[siblingID(id)].Status; s != TileCurrent {
			t.Fatalf("pair %d: sibling status %s, want it untouched", p, s)
		}
		for _, side := range AllSides {
			if s := next.Tiles[TileID(next.CurrentPair, side)].Status; s != TileCurrent {
				t.Fatalf("pair %d: new pair tile %s status %s", p, side, s)
			}
		}
		if b.Tiles[id].Status != TileCurrent {
			t.Fatalf("SelectTile mutated its input board")
		}
		b = next
	}
	last := b.TotalPairs - 1
	_, out := SelectTile(b, PhaseActive, TileID(last, safeSide(b, last)))
	if out.Kind != OutcomeVictory {
		t.Fatalf("last pair outcome %s, want victory", out.Kind)
	}
}

func TestSelectUnsafeTileBreaks(t *testing.T) {
	b := testBoard(t, "break", DefaultTotalPairs)
	id := TileID(0, safeSide(b, 0).Opposite())
	next, out := SelectTile(b, PhaseActive, id)
	if out.Kind != OutcomeFailure || out.TileID != id {
		t.Fatalf("outcome %+v", out)
	}
	if next.Tiles[id].Status != TileWrong {
		t.Fatalf("picked status %s", next.Tiles[id].Status)
	}
	if next.Tiles[siblingID(id)].Status != TileCorrect {
		t.Fatalf("sibling status %s", next.Tiles[siblingID(id)].Status)
	}
	if next.BreakingTileID != id {
		t.Fatalf("breaking tile %d want %d", next.BreakingTileID, id)
	}
}

func TestSelectTileIgnoredCases(t *testing.T) {
	b := testBoard(t, "ignored", DefaultTotalPairs)
	unsafe := TileID(0, safeSide(b, 0).Opposite())
	broken, _ := SelectTile(b, PhaseActive, unsafe)
	cases := []struct {
		name  string
		board Board
		phase Phase
		id    int
	}{
		{"not started", b, PhaseNotStarted, TileID(0, SideLeft)},
		{"game over", b, PhaseGameOver, TileID(0, SideLeft)},
		{"victory", b, PhaseVictory, TileID(0, SideLeft)},
		{"wrong pair", b, PhaseActive, TileID(3, SideLeft)},
		{"unknown tile", b, PhaseActive, 99},
		{"negative tile", b, PhaseActive, -1},
		{"mid break", broken, PhaseActive, siblingID(unsafe)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, out := SelectTile(tc.board, tc.phase, tc.id)
			if out.Kind != OutcomeIgnored {
				t.Fatalf("outcome %s, want ignored", out.Kind)
			}
			if next.CurrentPair != tc.board.CurrentPair || next.BreakingTileID != tc.board.BreakingTileID {
				t.Fatalf("board changed on ignored input")
			}
		})
	}
}

func TestBreakTileIsIdempotent(t *testing.T) {
	b := testBoard(t, "replay-break", DefaultTotalPairs)
	next, ok := BreakTile(b, 4)
	if !ok {
		t.Fatal("first break should apply")
	}
	if next.Tiles[4].Status != TileWrong || next.Tiles[5].Status != TileCorrect {
		t.Fatalf("statuses %s/%s", next.Tiles[4].Status, next.Tiles[5].Status)
	}
	if next.BreakingTileID != 4 || !next.Broken(4) {
		t.Fatalf("break not recorded")
	}
	again, ok := BreakTile(next, 4)
	if ok {
		t.Fatal("second break of the same tile should be a no-op")
	}
	if again.BreakingTileID != 4 || again.CurrentPair != next.CurrentPair {
		t.Fatal("no-op break changed the board")
	}
	if _, ok := BreakTile(b, 400); ok {
		t.Fatal("unknown tile should not break")
	}
}
