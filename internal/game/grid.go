package game

// The playfield is a fixed cell grid. The render layer scales it to the
// window; nothing in here knows about pixels beyond CellSize.
const (
	CellSize = 8
	Cols     = 35
	Rows     = 23
	ScreenW  = Cols * CellSize // 280
	ScreenH  = Rows * CellSize // 184
)

type EntityKind int

const (
	KindCell EntityKind = iota // transition filler block
	KindDash                   // center line dash
	KindPaddle
	KindBall
)

// Entity is one drawable cell occupant. Height is in rows and only
// meaningful for paddles.
type Entity struct {
	Kind   EntityKind
	Row    int
	Col    int
	Height int
}
