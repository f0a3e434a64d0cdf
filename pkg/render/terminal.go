package render

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/engine"
	"github.com/opd-ai/go-aerocontrol/pkg/flight"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/logging"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
)

// Terminal cells are not square; these approximate a cell in pixels so the
// cursor mapper sees pixel-scaled motion.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

// ThrottleStep is the throttle change per key press.
const ThrottleStep = 0.05

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleHeader  = styleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleWarning = styleDefault.Foreground(tcell.ColorYellow)
	styleStall   = styleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorRed).Bold(true)
	styleCursor  = styleDefault.Foreground(tcell.ColorLime).Bold(true)
	styleCenter  = styleDefault.Foreground(tcell.ColorDarkGray)
)

// TerminalHost drives a session from a terminal: mouse motion becomes the
// virtual stick, keys set throttle and the AoA override, and a text HUD
// shows the flight state. It owns the session clock, calling Advance once
// per frame.
//
// Terminals report no key releases, so the AoA override toggles on each
// press of space.
type TerminalHost struct {
	screen  tcell.Screen
	session *engine.Session
	mapper  *input.CursorMapper
	logger  *logging.Logger

	pending   physics.Vector2D
	lastMouse physics.Vector2D
	haveMouse bool
	quit      bool
}

// NewTerminalHost creates a host. The screen must not be initialised yet;
// Run does that.
func NewTerminalHost(screen tcell.Screen, session *engine.Session, cursor config.CursorConfig, logger *logging.Logger) *TerminalHost {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TerminalHost{
		screen:  screen,
		session: session,
		mapper:  input.NewCursorMapper(cursor),
		logger:  logger.Component("terminal"),
	}
}

// Run initialises the screen and runs frames at the session's render rate
// until ctx is done or the pilot quits.
func (h *TerminalHost) Run(ctx context.Context) error {
	if err := h.screen.Init(); err != nil {
		return logging.WrapError(err, "failed to initialise terminal")
	}
	defer h.screen.Fini()
	h.screen.SetStyle(styleDefault)
	h.screen.EnableMouse(tcell.MouseMotionEvents)
	h.screen.HideCursor()
	h.resize(h.screen.Size())

	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go h.pollEvents(events, done)

	h.session.Start()
	defer h.session.Stop()

	frame := time.Second / time.Duration(h.session.Config.RenderRate)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for !h.quit {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			h.HandleEvent(ev)
		case now := <-ticker.C:
			h.Frame(now.Sub(last).Seconds())
			last = now
			h.Draw()
		}
	}
	h.logger.Info(h.session.Context(), "pilot quit")
	return nil
}

// pollEvents forwards screen events until the screen is finalised or done
// is closed, then closes events.
func (h *TerminalHost) pollEvents(events chan<- tcell.Event, done <-chan struct{}) {
	defer close(events)
	for {
		ev := h.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// HandleEvent applies one terminal event.
func (h *TerminalHost) HandleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		h.resize(ev.Size())
		h.screen.Sync()
	case *tcell.EventKey:
		h.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventMouse:
		h.handleMouse(ev.Position())
	}
}

func (h *TerminalHost) resize(cols, rows int) {
	h.mapper.Init(float64(cols)*cellWidth, float64(rows)*cellHeight)
	h.haveMouse = false
	h.pending = physics.Vector2D{}
}

func (h *TerminalHost) handleKey(key tcell.Key, r rune) {
	controls := h.session.Controls
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		h.quit = true
	case tcell.KeyUp:
		controls.AdjustThrottle(ThrottleStep)
	case tcell.KeyDown:
		controls.AdjustThrottle(-ThrottleStep)
	case tcell.KeyRune:
		switch r {
		case 'q', 'Q':
			h.quit = true
		case 'w', 'W':
			controls.AdjustThrottle(ThrottleStep)
		case 's', 'S':
			controls.AdjustThrottle(-ThrottleStep)
		case ' ':
			controls.SetAoAHeld(!controls.AoAHeld())
		case 'c', 'C':
			w, hh := h.screen.Size()
			h.resize(w, hh)
		}
	}
}

// handleMouse turns absolute cell positions into pixel-scaled deltas.
func (h *TerminalHost) handleMouse(col, row int) {
	pos := physics.Vector2D{X: float64(col) * cellWidth, Y: float64(row) * cellHeight}
	if h.haveMouse {
		h.pending = h.pending.Add(pos.Sub(h.lastMouse))
	}
	h.lastMouse = pos
	h.haveMouse = true
}

// Frame feeds the accumulated mouse motion to the mapper, publishes the
// stick and advances the session clock by dt.
func (h *TerminalHost) Frame(dt float64) {
	h.mapper.Update(h.pending, dt)
	h.pending = physics.Vector2D{}
	h.session.Handoff.Store(h.mapper.Output())
	h.session.Advance(dt)
}

// Quit reports whether the pilot asked to leave.
func (h *TerminalHost) Quit() bool { return h.quit }

// Draw renders the HUD and the virtual stick.
func (h *TerminalHost) Draw() {
	h.screen.Clear()
	snap := h.session.Snapshot()
	lines := HUDLines(snap)
	for i, line := range lines {
		style := styleDefault
		switch {
		case i == 0:
			style = styleHeader
		case snap.StallIntensity > 0 && i == len(lines)-1:
			style = styleStall
		case !snap.LimiterActive && i == 4, line == overCeilingLine:
			style = styleWarning
		}
		drawText(h.screen, 1, i, line, style)
	}

	cursor := h.mapper.State()
	cx, cy := int(cursor.Center.X/cellWidth), int(cursor.Center.Y/cellHeight)
	px, py := int(cursor.Position.X/cellWidth), int(cursor.Position.Y/cellHeight)
	h.screen.SetContent(cx, cy, '+', nil, styleCenter)
	h.screen.SetContent(px, py, 'O', nil, styleCursor)
	h.screen.Show()
}

const overCeilingLine = "AOA OVER LIMIT"

// HUDLines formats a snapshot for a text HUD. The stall line, when
// present, is always last.
func HUDLines(s flight.Snapshot) []string {
	lines := []string{
		fmt.Sprintf("AIRCRAFT %d  tick %d", s.ID, s.Tick),
		fmt.Sprintf("SPD %6.1f  ALT %7.1f", s.Speed, s.Altitude),
		fmt.Sprintf("AOA %+6.1f/%-4.0f THR %3.0f%%", s.AoA, s.AoACeiling, s.Throttle*100),
		fmt.Sprintf("EFF %3.0f%%", s.Efficiency*100),
		limiterLine(s),
	}
	if s.OverCeiling() {
		lines = append(lines, overCeilingLine)
	}
	if s.StallIntensity > 0 {
		lines = append(lines, fmt.Sprintf("STALL %3.0f%%  %.1fs", s.StallIntensity*100, s.StallDuration))
	}
	return lines
}

func limiterLine(s flight.Snapshot) string {
	switch s.LimiterMode {
	case "cooldown":
		return fmt.Sprintf("AOA LIMIT  cooldown %.1fs", s.CooldownRemaining)
	case "disabled":
		return "AOA LIMIT  OFF"
	}
	return "AOA LIMIT  on"
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, style)
	}
}
