// Package engo hosts a flight session in an engo window: the mouse flies
// the aircraft through the virtual stick and a HUD shows the flight state.
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/engine"
	"github.com/opd-ai/go-aerocontrol/pkg/logging"
)

// FlightScene is the engo scene for one session.
type FlightScene struct {
	session  *engine.Session
	cursor   config.CursorConfig
	fontPath string
	logger   *logging.Logger

	font  *common.Font
	input *InputSystem
	hud   *HUDSystem
}

// NewFlightScene creates a scene. fontPath names a TTF file for the text
// HUD; leave it empty to draw only the stick.
func NewFlightScene(session *engine.Session, cursor config.CursorConfig, fontPath string, logger *logging.Logger) *FlightScene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FlightScene{
		session:  session,
		cursor:   cursor,
		fontPath: fontPath,
		logger:   logger.Component("engo"),
	}
}

// Type returns the scene type (required by Engo)
func (scene *FlightScene) Type() string {
	return "FlightScene"
}

// Preload loads the HUD font when one is configured.
func (scene *FlightScene) Preload() {
	if scene.fontPath == "" {
		return
	}
	ctx := scene.session.Context()
	if err := engo.Files.Load(scene.fontPath); err != nil {
		scene.logger.Warn(ctx, "HUD font unavailable, drawing stick only", "path", scene.fontPath, "error", err)
		return
	}
	font := &common.Font{URL: scene.fontPath, FG: color.White, Size: 16}
	if err := font.CreatePreloaded(); err != nil {
		scene.logger.Warn(ctx, "HUD font unusable, drawing stick only", "path", scene.fontPath, "error", err)
		return
	}
	scene.font = font
}

// Setup builds the render world and starts the session.
func (scene *FlightScene) Setup(u engo.Updater) {
	w, _ := u.(*ecs.World)
	common.SetBackground(color.RGBA{20, 24, 40, 255})

	w.AddSystem(&common.RenderSystem{})
	SetupInputBindings()

	scene.input = NewInputSystem(scene.session, scene.cursor)
	w.AddSystem(scene.input)

	scene.hud = NewHUDSystem(scene.session, scene.input, scene.font)
	w.AddSystem(scene.hud)

	scene.session.Start()
	scene.logger.Info(scene.session.Context(), "window session started", "font", scene.font != nil)
}

// Exit stops the session when the window closes.
func (scene *FlightScene) Exit() {
	scene.session.Stop()
}

// Run opens a window and blocks until it closes.
func Run(scene *FlightScene, width, height int) {
	engo.Run(engo.RunOptions{
		Title:          "aerocontrol",
		Width:          width,
		Height:         height,
		FPSLimit:       scene.session.Config.RenderRate,
		StandardInputs: false,
	}, scene)
}
