package ui

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/DaanHessen/glass-bridge/internal/engine"
)

const (
	viewBridge = "bridge"
	viewHelp   = "help"

	pollInterval = 100 * time.Millisecond
)

//go:embed help.md
var helpMarkdown string

// Controller runs commands against the game and returns the resulting
// snapshot. engine.Host is the production implementation.
type Controller interface {
	Do(ctx context.Context, cmd engine.Command) (engine.Snapshot, error)
}

type snapshotMsg struct {
	snap engine.Snapshot
	err  error
}

type tickMsg struct{}

type model struct {
	ctx     context.Context
	ctrl    Controller
	keys    keyMap
	help    help.Model
	theme   string
	styles  styles
	view    string
	snap    engine.Snapshot
	status  string
	seed    string
	version string
	// helpDoc is the glamour render of helpMarkdown for helpWidth
	helpDoc   string
	helpWidth int
	width     int
	height    int
}

func initialModel(ctx context.Context, ctrl Controller, seed, version string) model {
	m := model{
		ctx:     ctx,
		ctrl:    ctrl,
		keys:    defaultKeys(),
		help:    help.New(),
		theme:   defaultTheme,
		view:    viewBridge,
		seed:    seed,
		version: version,
	}
	m.styles = newStyles(paletteFor(m.theme))
	return m
}

func (m model) do(cmd engine.Command) tea.Cmd {
	return func() tea.Msg {
		snap, err := m.ctrl.Do(m.ctx, cmd)
		return snapshotMsg{snap: snap, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// tea.Model implementation ---------------------------------------------------

func (m model) Init() tea.Cmd {
	return tea.Batch(m.do(engine.Command{Name: engine.CmdSnapshot}), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.do(engine.Command{Name: engine.CmdSnapshot}), tick())
	case snapshotMsg:
		if msg.err != nil {
			if errors.Is(msg.err, engine.ErrLoopClosed) || errors.Is(msg.err, context.Canceled) {
				return m, tea.Quit
			}
			m.status = describeErr(msg.err)
			if msg.snap.Board.TotalPairs == 0 {
				return m, nil
			}
		}
		m.snap = msg.snap
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		if m.view == viewHelp {
			m.view = viewBridge
		} else {
			m.view = viewHelp
			m.renderHelpDoc()
		}
		return m, nil
	}
	if m.view == viewHelp {
		if msg.String() == "esc" {
			m.view = viewBridge
		}
		return m, nil
	}
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Left):
		return m, m.do(engine.Command{Name: engine.CmdSelectSide, Side: engine.SideLeft})
	case key.Matches(msg, m.keys.Right):
		return m, m.do(engine.Command{Name: engine.CmdSelectSide, Side: engine.SideRight})
	case key.Matches(msg, m.keys.Start):
		return m, m.do(engine.Command{Name: engine.CmdStart})
	case key.Matches(msg, m.keys.Next):
		return m, m.do(engine.Command{Name: engine.CmdNextStep})
	case key.Matches(msg, m.keys.Prev):
		return m, m.do(engine.Command{Name: engine.CmdPrevStep})
	case key.Matches(msg, m.keys.Restart):
		return m, m.do(engine.Command{Name: engine.CmdRestart})
	case key.Matches(msg, m.keys.Mute):
		return m, m.do(engine.Command{Name: engine.CmdToggleMute})
	case key.Matches(msg, m.keys.Theme):
		m.theme = nextThemeName(m.theme, 1)
		m.styles = newStyles(paletteFor(m.theme))
	}
	return m, nil
}

func describeErr(err error) string {
	switch {
	case errors.Is(err, engine.ErrStepOutOfRange):
		return "no more steps"
	case errors.Is(err, engine.ErrMalformedStep):
		return "skipped a malformed step"
	default:
		return err.Error()
	}
}

func (m *model) renderHelpDoc() {
	w := m.width
	if w <= 0 {
		w = 80
	}
	if m.helpDoc != "" && m.helpWidth == w {
		return
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(w-4))
	if err != nil {
		m.helpDoc = helpMarkdown
		return
	}
	rendered, err := renderer.Render(helpMarkdown)
	if err != nil {
		rendered = helpMarkdown
	}
	m.helpDoc, m.helpWidth = rendered, w
}

func (m model) View() string {
	if m.view == viewHelp {
		return m.helpDoc + "\n" + m.styles.muted.Render("glass-bridge "+m.version+" • ? or esc to return")
	}
	parts := []string{
		m.renderTopBar(),
		"",
		renderBridge(m.snap, m.styles),
		renderRoster(m.snap),
		"",
	}
	if banner := m.renderBanner(); banner != "" {
		parts = append(parts, banner, "")
	}
	parts = append(parts, m.renderNarration())
	if w := m.warningLine(); w != "" {
		parts = append(parts, m.styles.warning.Render(w))
	}
	parts = append(parts, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m model) renderTopBar() string {
	s := m.snap.Session
	left := strings.Join([]string{
		"GLASS BRIDGE",
		phaseLabel(s.Phase),
		fmt.Sprintf("score %d (best %d)", s.Score, s.MaxScore),
	}, " • ")
	right := "seed " + m.seed
	if m.snap.StepCount > 0 {
		right = fmt.Sprintf("step %d/%d  %s", m.snap.StepIndex+1, m.snap.StepCount, right)
	}
	w := m.width
	if w <= 0 {
		w = 100
	}
	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.styles.title.Render(left + strings.Repeat(" ", gap) + right)
}

func phaseLabel(p engine.Phase) string {
	switch p {
	case engine.PhaseNotStarted:
		return "press enter"
	case engine.PhaseActive:
		return "crossing"
	case engine.PhaseGameOver:
		return "fallen"
	case engine.PhaseVictory:
		return "across"
	}
	return string(p)
}

func (m model) renderBanner() string {
	switch {
	case m.snap.Session.Phase == engine.PhaseVictory:
		return m.styles.banner.Foreground(paletteFor(m.theme).Safe).Render("YOU MADE IT ACROSS")
	case m.snap.GameOverShown:
		return m.styles.banner.Foreground(paletteFor(m.theme).Broken).Render("GAME OVER  •  r to try again")
	}
	return ""
}

func (m model) renderNarration() string {
	switch {
	case m.snap.Muted:
		return m.styles.muted.Render("narrator muted")
	case m.snap.Narrating != "":
		return "♪ " + m.snap.Narrating
	}
	return m.styles.muted.Render("…")
}

func (m model) warningLine() string {
	w := m.snap.Warning
	if w != "" && m.snap.WarningRetryable {
		w += " (next line retries playback)"
	}
	switch {
	case m.status != "" && w != "":
		return m.status + " • " + w
	case m.status != "":
		return m.status
	}
	return w
}

// renderBridge draws the board left to right: the top row holds the left
// panels, the bottom row the right panels.
func renderBridge(s engine.Snapshot, st styles) string {
	b := s.Board
	if b.TotalPairs == 0 {
		return st.muted.Render("(no bridge)")
	}
	rows := make([]string, 0, 2)
	for _, side := range engine.AllSides {
		cells := []string{st.muted.Render("▕start▏")}
		for p := 0; p < b.TotalPairs; p++ {
			t, ok := b.Tile(engine.TileID(p, side))
			if !ok {
				continue
			}
			cells = append(cells, st.tiles[string(t.Status)].Render(tileGlyph(t, s.ShowShards && b.Broken(t.ID))))
		}
		cells = append(cells, st.muted.Render("▕goal▏"))
		rows = append(rows, strings.Join(cells, " "))
	}
	return strings.Join(rows, "\n")
}

func tileGlyph(t engine.Tile, shattered bool) string {
	switch t.Status {
	case engine.TileCurrent:
		return "[ ? ]"
	case engine.TileCorrect:
		return "[===]"
	case engine.TileWrong:
		if shattered {
			return "[/\\/]"
		}
		return "[ X ]"
	}
	return "[   ]"
}

func renderRoster(s engine.Snapshot) string {
	if len(s.Characters) == 0 {
		return ""
	}
	ids := make([]string, 0, len(s.Characters))
	for id := range s.Characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		c := s.Characters[id]
		where := "start"
		if c.BoardPosition > 0 {
			where = fmt.Sprintf("pair %d %s", c.BoardPosition, c.Facing)
		}
		parts = append(parts, id+" @ "+where)
	}
	return "agents: " + strings.Join(parts, ", ")
}
