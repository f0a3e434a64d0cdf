package engo

import (
	"image/color"
	"strings"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-aerocontrol/pkg/engine"
	"github.com/opd-ai/go-aerocontrol/pkg/flight"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
	"github.com/opd-ai/go-aerocontrol/pkg/render"
)

const (
	indicatorSize = 12
	centerSize    = 4
)

var (
	hudColor     = color.RGBA{255, 255, 255, 255}
	warningColor = color.RGBA{255, 220, 0, 255}
	stallColor   = color.RGBA{255, 40, 40, 255}
	stickColor   = color.RGBA{0, 255, 0, 255}
	centerColor  = color.RGBA{128, 128, 128, 255}
)

type hudEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// HUDSystem draws the flight state and the virtual stick.
type HUDSystem struct {
	session *engine.Session
	input   *InputSystem
	font    *common.Font

	text   *hudEntity
	stick  *hudEntity
	center *hudEntity
	lines  []string
}

// NewHUDSystem creates a HUD reading session state and the input system's
// cursor. font may be nil, in which case only the stick is drawn.
func NewHUDSystem(session *engine.Session, in *InputSystem, font *common.Font) *HUDSystem {
	return &HUDSystem{session: session, input: in, font: font}
}

// New creates the HUD entities and hands them to the render system.
func (hud *HUDSystem) New(w *ecs.World) {
	hud.center = newRect(centerSize, centerColor)
	hud.stick = newRect(indicatorSize, stickColor)
	entities := []*hudEntity{hud.center, hud.stick}
	if hud.font != nil {
		hud.text = &hudEntity{BasicEntity: ecs.NewBasic()}
		hud.text.RenderComponent = common.RenderComponent{
			Drawable: common.Text{Font: hud.font, Text: " "},
			Color:    hudColor,
		}
		hud.text.SpaceComponent = common.SpaceComponent{Position: engo.Point{X: 10, Y: 10}}
		entities = append(entities, hud.text)
	}

	for _, system := range w.Systems() {
		if rs, ok := system.(*common.RenderSystem); ok {
			for _, e := range entities {
				e.SetShader(common.HUDShader)
				e.SetZIndex(1000)
				rs.Add(&e.BasicEntity, &e.RenderComponent, &e.SpaceComponent)
			}
		}
	}
}

func newRect(size float32, c color.Color) *hudEntity {
	return &hudEntity{
		BasicEntity: ecs.NewBasic(),
		RenderComponent: common.RenderComponent{
			Drawable: common.Rectangle{},
			Color:    c,
		},
		SpaceComponent: common.SpaceComponent{Width: size, Height: size},
	}
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}

// Update refreshes the text and moves the stick indicator.
func (hud *HUDSystem) Update(dt float32) {
	snap := hud.session.Snapshot()
	hud.lines = render.HUDLines(snap)

	if hud.text != nil {
		hud.text.Drawable = common.Text{Font: hud.font, Text: strings.Join(hud.lines, "\n")}
		hud.text.Color = textColor(snap)
	}
	if hud.stick != nil && hud.input != nil {
		cursor := hud.input.Cursor()
		hud.center.Position = centeredAt(cursor.Center, centerSize)
		hud.stick.Position = centeredAt(cursor.Position, indicatorSize)
	}
}

// Lines returns the text shown in the last update.
func (hud *HUDSystem) Lines() []string { return hud.lines }

func textColor(s flight.Snapshot) color.Color {
	switch {
	case s.StallIntensity > 0:
		return stallColor
	case !s.LimiterActive, s.OverCeiling():
		return warningColor
	}
	return hudColor
}

// centeredAt returns the top-left corner of a square of the given size
// centered on p.
func centeredAt(p physics.Vector2D, size float32) engo.Point {
	return engo.Point{X: float32(p.X) - size/2, Y: float32(p.Y) - size/2}
}
