package main

import (
	"math"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"rotanim/pkg/anim"
	"rotanim/pkg/host"
)

// grid is an in-memory canvas.
type grid struct {
	w, h  int
	cells [][]rune
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([][]rune, h)}
	for y := range g.cells {
		g.cells[y] = []rune(strings.Repeat(" ", w))
	}
	return g
}

func (g *grid) SetContent(x, y int, primary rune, _ []rune, _ tcell.Style) {
	if x >= 0 && x < g.w && y >= 0 && y < g.h {
		g.cells[y][x] = primary
	}
}

func (g *grid) Size() (int, int) { return g.w, g.h }

func (g *grid) row(y int) string { return strings.TrimRight(string(g.cells[y]), " ") }

func (g *grid) text() string {
	rows := make([]string, g.h)
	for y := range rows {
		rows[y] = g.row(y)
	}
	return strings.Join(rows, "\n")
}

func TestKeyActions(t *testing.T) {
	v := newView("carrier")
	if v.kind() != anim.KindBayDoor {
		t.Fatalf("Expected fighterbay selected, got %s", v.kind())
	}

	tests := []struct {
		key     tcell.Key
		r       rune
		cmd     command
		dir     int
		instant bool
	}{
		{tcell.KeyRune, 'f', cmdTrigger, 1, false},
		{tcell.KeyEnter, 0, cmdTrigger, 1, false},
		{tcell.KeyRune, 'r', cmdTrigger, -1, false},
		{tcell.KeyRune, 'i', cmdTrigger, 1, true},
		{tcell.KeyRune, 'I', cmdTrigger, -1, true},
		{tcell.KeyRune, 'p', cmdPush, 1, false},
		{tcell.KeyRune, 'o', cmdPop, 0, false},
		{tcell.KeyRune, 'q', cmdQuit, 0, false},
		{tcell.KeyEscape, 0, cmdQuit, 0, false},
		{tcell.KeyRune, 'z', cmdNone, 0, false},
		{tcell.KeyTab, 0, cmdNone, 0, false},
	}
	for _, tt := range tests {
		a := v.keyAction(tt.key, tt.r)
		if a.cmd != tt.cmd {
			t.Errorf("key %v %q: expected command %d, got %d", tt.key, tt.r, tt.cmd, a.cmd)
			continue
		}
		if tt.cmd == cmdTrigger || tt.cmd == cmdPush {
			if a.req.Kind != anim.KindBayDoor || a.req.Subtype != 1 {
				t.Errorf("key %q: unexpected request %+v", tt.r, a.req)
			}
			if a.req.Direction != tt.dir || a.req.Instant != tt.instant {
				t.Errorf("key %q: expected dir %d instant %v, got %+v", tt.r, tt.dir, tt.instant, a.req)
			}
		}
	}
}

func TestKeyNavigation(t *testing.T) {
	v := newView("carrier")
	start := v.sel

	v.keyAction(tcell.KeyRight, 0)
	if v.sel != (start+1)%len(v.kinds) {
		t.Errorf("Expected next kind, got index %d", v.sel)
	}
	v.keyAction(tcell.KeyLeft, 0)
	v.keyAction(tcell.KeyLeft, 0)
	if v.sel != (start+len(v.kinds)-1)%len(v.kinds) {
		t.Errorf("Expected previous kind, got index %d", v.sel)
	}

	v.sel = 0
	v.keyAction(tcell.KeyLeft, 0)
	if v.sel != len(v.kinds)-1 {
		t.Errorf("Expected wrap to last kind, got index %d", v.sel)
	}

	v.subtype = 0
	v.keyAction(tcell.KeyDown, 0)
	v.keyAction(tcell.KeyDown, 0)
	if v.subtype != anim.SubtypeAll {
		t.Errorf("Expected subtype floor at %d, got %d", anim.SubtypeAll, v.subtype)
	}
	v.keyAction(tcell.KeyUp, 0)
	if v.subtype != 0 {
		t.Errorf("Expected subtype 0, got %d", v.subtype)
	}

	a := v.keyAction(tcell.KeyRune, 'x')
	if a.cmd != cmdReset || a.req.Kind != anim.KindInitial || !a.req.Instant {
		t.Errorf("Expected instant initial reset, got %+v", a)
	}
}

func TestGauge(t *testing.T) {
	tests := []struct {
		heading float64
		pos     int
	}{
		{0, 0},
		{100 * math.Pi / 180, 6},
		{200 * math.Pi / 180, 13},
		{-50 * math.Pi / 180, 20},
	}
	for _, tt := range tests {
		g := gauge(tt.heading, 24)
		if len(g) != 24 || strings.IndexRune(g, '#') != tt.pos {
			t.Errorf("gauge(%f) = %q, expected marker at %d", tt.heading, g, tt.pos)
		}
	}
}

func TestDraw(t *testing.T) {
	v := newView("carrier")
	v.message = "pushed"
	st := host.ObjectStatus{
		Name: "carrier",
		Time: 1.5,
		Parts: []host.PartStatus{
			{Name: "door01", Angle: [3]float64{math.Pi / 2, 0, 0}, Moving: true, Kind: "fighterbay", TurnRate: 0.5},
			{Name: "radar", Angle: [3]float64{0, math.Pi / 2, 0}},
		},
	}
	g := newGrid(120, 12)
	v.draw(g, st)

	if got := g.row(0); got != "carrier  t=1.50s" {
		t.Errorf("Unexpected title %q", got)
	}
	if !strings.Contains(g.row(1), "fighterbay") {
		t.Errorf("Expected selected kind in %q", g.row(1))
	}
	if !strings.HasPrefix(g.row(3), "door01") || !strings.Contains(g.row(3), "p    90.0") {
		t.Errorf("Unexpected door row %q", g.row(3))
	}
	if !strings.HasSuffix(g.row(3), "fighterbay") {
		t.Errorf("Expected active kind on door row %q", g.row(3))
	}
	if !strings.Contains(g.row(4), "h    90.0") {
		t.Errorf("Unexpected radar row %q", g.row(4))
	}
	if !strings.Contains(g.text(), "pushed") {
		t.Error("Expected status message")
	}
	if !strings.HasPrefix(g.row(11), "p push") {
		t.Errorf("Expected help on last row, got %q", g.row(11))
	}

	// Redraw with fewer parts clears stale rows.
	st.Parts = st.Parts[:1]
	v.message = ""
	v.draw(g, st)
	if g.row(4) != "" {
		t.Errorf("Expected cleared row, got %q", g.row(4))
	}
}

func TestDrawClipsToScreen(t *testing.T) {
	v := newView("carrier")
	g := newGrid(10, 3)
	v.draw(g, host.ObjectStatus{Parts: []host.PartStatus{{Name: "a"}, {Name: "b"}, {Name: "c"}}})
	if len(g.row(0)) > 10 {
		t.Errorf("Expected clipped row, got %q", g.row(0))
	}
}

func TestDrawSimulationScreen(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(80, 24)

	v := newView("carrier")
	v.draw(screen, host.ObjectStatus{Name: "carrier", Parts: []host.PartStatus{{Name: "door01"}}})
	screen.Show()

	if w, h := screen.Size(); w != 80 || h != 24 {
		t.Errorf("Expected 80x24, got %dx%d", w, h)
	}
}
