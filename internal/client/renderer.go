package client

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"pongonline/internal/game"
)

var (
	colorBG   = color.RGBA{0, 0, 0, 255}
	colorCell = color.RGBA{255, 255, 255, 255}
	colorDash = color.RGBA{120, 120, 120, 255}
)

// Renderer draws the machine's output: a UI string plus cell entities on
// the fixed grid. It holds no game state.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Draw(screen *ebiten.Image, ui string, entities []game.Entity) {
	screen.Fill(colorBG)

	for _, e := range entities {
		x := float32(e.Col * game.CellSize)
		y := float32(e.Row * game.CellSize)

		switch e.Kind {
		case game.KindPaddle:
			h := float32(e.Height * game.CellSize)
			vector.DrawFilledRect(screen, x, y, game.CellSize, h, colorCell, false)
		case game.KindDash:
			vector.DrawFilledRect(screen, x+3, y+1, 2, game.CellSize-2, colorDash, false)
		default:
			vector.DrawFilledRect(screen, x, y, game.CellSize, game.CellSize, colorCell, false)
		}
	}

	if ui != "" {
		ebitenutil.DebugPrintAt(screen, ui, 8, 0)
	}
}
