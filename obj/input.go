package obj

import (
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Input holds the viewer commands triggered this frame.
type Input struct {
	// Rotate is -1 or +1 on the frame a rotation key was pressed.
	Rotate      int
	FlipGravity bool
	Reload      bool
	// Pause toggles stepping; Step advances one frame while paused.
	Pause bool
	Step  bool
	// Liquid is -1 or +1 when the liquid plane should move.
	Liquid int
}

func NewInput() *Input {
	return &Input{}
}

// Update polls keyboard and gamepad.
func (i *Input) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		os.Exit(0)
	}

	*i = Input{}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		i.Rotate = -1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyE) {
		i.Rotate = 1
	}
	i.FlipGravity = inpututil.IsKeyJustPressed(ebiten.KeyG)
	i.Reload = inpututil.IsKeyJustPressed(ebiten.KeyR)
	i.Pause = inpututil.IsKeyJustPressed(ebiten.KeyP)
	i.Step = inpututil.IsKeyJustPressed(ebiten.KeyN)
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) {
		i.Liquid = 1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) {
		i.Liquid = -1
	}

	// Gamepad: shoulders rotate, face buttons flip and reload.
	ids := ebiten.GamepadIDs()
	if len(ids) == 0 {
		return
	}
	gid := ids[0]
	if inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonFrontTopLeft) {
		i.Rotate = -1
	}
	if inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonFrontTopRight) {
		i.Rotate = 1
	}
	i.FlipGravity = i.FlipGravity || inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonRightBottom)
	i.Reload = i.Reload || inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonCenterRight)
}
