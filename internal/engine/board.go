package engine

// DefaultTotalPairs is the bridge length used when none is configured.
const DefaultTotalPairs = 8

// noTile marks the absence of a breaking tile.
const noTile = -1

// Tile is one glass panel of the bridge.
type Tile struct {
	ID       int        `json:"id"`
	Position Side       `json:"position"`
	IsSafe   bool       `json:"is_safe"`
	Status   TileStatus `json:"status"`
}

// Pair returns the index of the pair this tile belongs to.
func (t Tile) Pair() int { return t.ID / 2 }

// TileID computes the id of the tile at side of pair.
func TileID(pair int, side Side) int { return pair*2 + side.Index() }

// siblingID returns the other tile of the same pair.
func siblingID(id int) int { return id ^ 1 }

// Board is the tile pair model. All transitions are value based: they
// return a new Board and leave the receiver untouched.
type Board struct {
	Tiles       []Tile `json:"tiles"`
	TotalPairs  int    `json:"total_pairs"`
	CurrentPair int    `json:"current_pair"`
	// BreakingTileID is the tile currently shattering, or -1.
	BreakingTileID int `json:"breaking_tile_id"`
	broken         map[int]bool
}

// OutcomeKind classifies the result of a tile selection.
type OutcomeKind int

const (
	OutcomeIgnored OutcomeKind = iota
	OutcomeAdvanced
	OutcomeVictory
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeVictory:
		return "victory"
	case OutcomeFailure:
		return "failure"
	default:
		return "ignored"
	}
}

// Outcome is what SelectTile reports back to the controller.
type Outcome struct {
	Kind   OutcomeKind
	TileID int
}

// NewBoard lays out totalPairs pairs, drawing the safe side of every pair
// independently from rnd. Pair 0 starts current.
func NewBoard(totalPairs int, rnd RandomSource) Board {
	if totalPairs <= 0 {
		totalPairs = DefaultTotalPairs
	}
	b := Board{
		Tiles:          make([]Tile, 0, totalPairs*2),
		TotalPairs:     totalPairs,
		BreakingTileID: noTile,
		broken:         map[int]bool{},
	}
	for i := 0; i < totalPairs; i++ {
		leftSafe := rnd.Intn(2) == 0
		status := TileUnselected
		if i == 0 {
			status = TileCurrent
		}
		b.Tiles = append(b.Tiles,
			Tile{ID: TileID(i, SideLeft), Position: SideLeft, IsSafe: leftSafe, Status: status},
			Tile{ID: TileID(i, SideRight), Position: SideRight, IsSafe: !leftSafe, Status: status},
		)
	}
	return b
}

// Reset is NewBoard under the name the controller uses on restart.
func Reset(totalPairs int, rnd RandomSource) Board { return NewBoard(totalPairs, rnd) }

func (b Board) clone() Board {
	out := b
	out.Tiles = append([]Tile(nil), b.Tiles...)
	out.broken = make(map[int]bool, len(b.broken))
	for k, v := range b.broken {
		out.broken[k] = v
	}
	return out
}

// Tile looks a tile up by id.
func (b Board) Tile(id int) (Tile, bool) {
	if id < 0 || id >= len(b.Tiles) {
		return Tile{}, false
	}
	return b.Tiles[id], true
}

// Breaking reports whether a tile is mid-break.
func (b Board) Breaking() bool { return b.BreakingTileID != noTile }

// Broken reports whether id already went through the break path.
func (b Board) Broken(id int) bool { return b.broken[id] }

// SelectTile resolves a pick of tileID. Picks outside an active phase, off
// the current pair, or while a tile is breaking return the board unchanged
// with OutcomeIgnored.
func SelectTile(b Board, phase Phase, tileID int) (Board, Outcome) {
	ignored := Outcome{Kind: OutcomeIgnored, TileID: tileID}
	if phase != PhaseActive || b.Breaking() {
		return b, ignored
	}
	t, ok := b.Tile(tileID)
	if !ok || t.Pair() != b.CurrentPair || t.Status != TileCurrent {
		return b, ignored
	}
	next := b.clone()
	if t.IsSafe {
		next.Tiles[tileID].Status = TileCorrect
		if b.CurrentPair == b.TotalPairs-1 {
			return next, Outcome{Kind: OutcomeVictory, TileID: tileID}
		}
		next.CurrentPair++
		next.Tiles[TileID(next.CurrentPair, SideLeft)].Status = TileCurrent
		next.Tiles[TileID(next.CurrentPair, SideRight)].Status = TileCurrent
		return next, Outcome{Kind: OutcomeAdvanced, TileID: tileID}
	}
	next.Tiles[tileID].Status = TileWrong
	next.Tiles[siblingID(tileID)].Status = TileCorrect
	next.BreakingTileID = tileID
	next.broken[tileID] = true
	return next, Outcome{Kind: OutcomeFailure, TileID: tileID}
}

// BreakTile runs the visual break path for a tile whose failure was
// decided elsewhere (replay). It never scores. The second return value is
// false when the tile is unknown or already broken.
func BreakTile(b Board, tileID int) (Board, bool) {
	if _, ok := b.Tile(tileID); !ok || b.broken[tileID] {
		return b, false
	}
	next := b.clone()
	next.Tiles[tileID].Status = TileWrong
	next.Tiles[siblingID(tileID)].Status = TileCorrect
	next.BreakingTileID = tileID
	next.broken[tileID] = true
	return next, true
}

// CurrentTile returns the tile at side of the current pair.
func (b Board) CurrentTile(side Side) (Tile, bool) {
	return b.Tile(TileID(b.CurrentPair, side))
}
