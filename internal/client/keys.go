package client

import (
	"github.com/hajimehoshi/ebiten/v2"
)

var keyBindings = map[Action][]ebiten.Key{
	ActionUp:      {ebiten.KeyUp, ebiten.KeyW},
	ActionDown:    {ebiten.KeyDown, ebiten.KeyS},
	ActionSelect:  {ebiten.KeyEnter, ebiten.KeySpace},
	ActionBack:    {ebiten.KeyEscape, ebiten.KeyBackspace},
	ActionCreate:  {ebiten.KeyC},
	ActionLeave:   {ebiten.KeyL},
	ActionVolDown: {ebiten.KeyLeft, ebiten.KeyA},
	ActionVolUp:   {ebiten.KeyRight, ebiten.KeyD},
}

var padBindings = map[Action][]ebiten.StandardGamepadButton{
	ActionUp:     {ebiten.StandardGamepadButtonLeftTop},
	ActionDown:   {ebiten.StandardGamepadButtonLeftBottom},
	ActionSelect: {ebiten.StandardGamepadButtonRightBottom, ebiten.StandardGamepadButtonCenterRight},
	ActionBack:   {ebiten.StandardGamepadButtonRightRight, ebiten.StandardGamepadButtonCenterLeft},
	ActionCreate: {ebiten.StandardGamepadButtonRightLeft},
	ActionLeave:  {ebiten.StandardGamepadButtonRightTop},
}

// Keyboard resolves named actions from the keyboard and any connected
// standard-layout gamepad.
type Keyboard struct {
	gamepads []ebiten.GamepadID
}

// Refresh re-reads the connected gamepads; call once per frame.
func (k *Keyboard) Refresh() {
	k.gamepads = ebiten.AppendGamepadIDs(k.gamepads[:0])
}

func (k *Keyboard) Pressed(a Action) bool {
	for _, key := range keyBindings[a] {
		if ebiten.IsKeyPressed(key) {
			return true
		}
	}
	for _, id := range k.gamepads {
		for _, btn := range padBindings[a] {
			if ebiten.IsStandardGamepadButtonPressed(id, btn) {
				return true
			}
		}
	}
	return false
}
