package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"rotanim/pkg/anim"
	"rotanim/pkg/host"
	"rotanim/pkg/subsys"
)

// canvas is the part of tcell.Screen the view draws on.
type canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (int, int)
}

type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdTrigger
	cmdPush
	cmdPop
	cmdReset
)

// action is what a key press asks the sandbox to do.
type action struct {
	cmd command
	req subsys.Request
}

// view holds the selection state and renders one object.
type view struct {
	object  string
	kinds   []anim.TriggerKind
	sel     int
	subtype int
	message string
}

func newView(object string) *view {
	kinds := anim.Kinds()
	sel := 0
	for i, k := range kinds {
		if k == anim.KindBayDoor {
			sel = i
		}
	}
	return &view{object: object, kinds: kinds, sel: sel, subtype: 1}
}

func (v *view) kind() anim.TriggerKind { return v.kinds[v.sel] }

func (v *view) request(dir int, instant bool) subsys.Request {
	return subsys.Request{Kind: v.kind(), Subtype: v.subtype, Direction: dir, Instant: instant}
}

// keyAction maps a key to an action, updating the selection for navigation
// keys.
func (v *view) keyAction(key tcell.Key, r rune) action {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return action{cmd: cmdQuit}
	case tcell.KeyLeft:
		v.sel = (v.sel + len(v.kinds) - 1) % len(v.kinds)
		return action{}
	case tcell.KeyRight:
		v.sel = (v.sel + 1) % len(v.kinds)
		return action{}
	case tcell.KeyUp:
		v.subtype++
		return action{}
	case tcell.KeyDown:
		if v.subtype > anim.SubtypeAll {
			v.subtype--
		}
		return action{}
	case tcell.KeyEnter:
		return action{cmd: cmdTrigger, req: v.request(1, false)}
	case tcell.KeyRune:
	default:
		return action{}
	}

	switch r {
	case 'q':
		return action{cmd: cmdQuit}
	case 'f':
		return action{cmd: cmdTrigger, req: v.request(1, false)}
	case 'r':
		return action{cmd: cmdTrigger, req: v.request(-1, false)}
	case 'i':
		return action{cmd: cmdTrigger, req: v.request(1, true)}
	case 'I':
		return action{cmd: cmdTrigger, req: v.request(-1, true)}
	case 'p':
		return action{cmd: cmdPush, req: v.request(1, false)}
	case 'o':
		return action{cmd: cmdPop}
	case 'x':
		return action{cmd: cmdReset, req: subsys.Request{Kind: anim.KindInitial, Subtype: anim.SubtypeAll, Direction: 1, Instant: true}}
	}
	return action{}
}

var (
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleMoving  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleIdle    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDead    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleHelp    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMessage = tcell.StyleDefault.Foreground(tcell.ColorAqua)
)

func drawText(c canvas, x, y int, style tcell.Style, text string) {
	w, h := c.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range text {
		if x >= w {
			return
		}
		if x >= 0 {
			c.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

func clearRow(c canvas, y int) {
	w, _ := c.Size()
	for x := 0; x < w; x++ {
		c.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

// gauge renders heading as a dial position on a fixed-width bar.
func gauge(heading float64, width int) string {
	a := math.Mod(deg(heading), 360)
	if a < 0 {
		a += 360
	}
	pos := int(a / 360 * float64(width))
	b := make([]rune, width)
	for i := range b {
		b[i] = '-'
	}
	if pos >= width {
		pos = width - 1
	}
	b[pos] = '#'
	return string(b)
}

// draw renders st and the controls.
func (v *view) draw(c canvas, st host.ObjectStatus) {
	_, h := c.Size()
	for y := 0; y < h; y++ {
		clearRow(c, y)
	}
	drawText(c, 0, 0, styleTitle, fmt.Sprintf("%s  t=%.2fs", v.object, st.Time))
	drawText(c, 0, 1, styleIdle, fmt.Sprintf("trigger: %-16s subtype: %d", v.kind(), v.subtype))

	y := 3
	for _, p := range st.Parts {
		style := styleIdle
		switch {
		case p.Destroyed:
			style = styleDead
		case p.Moving:
			style = styleMoving
		}
		line := fmt.Sprintf("%-12s p%8.1f h%8.1f b%8.1f  %s  rate %5.2f  left %5.2fs  q%d",
			p.Name, deg(p.Angle[0]), deg(p.Angle[1]), deg(p.Angle[2]),
			gauge(p.Angle[1], 24), p.TurnRate, p.Remaining, p.Pending)
		if p.Kind != "" {
			line += "  " + p.Kind
		}
		drawText(c, 0, y, style, line)
		y++
	}

	drawText(c, 0, y+1, styleMessage, v.message)
	drawText(c, 0, h-2, styleHelp, "left/right kind  up/down subtype  f/enter fwd  r rev  i/I instant")
	drawText(c, 0, h-1, styleHelp, "p push  o pop  x reset  q quit")
}
