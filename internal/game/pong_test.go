package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// armBall positions the ball so the very next Step moves it.
func armBall(p *Pong, row, col, vx, vy int) {
	p.ballRow = row
	p.ballCol = col
	p.vx = vx
	p.vy = vy
	p.tick = p.period - 1
}

func TestNewPong_ServesLeftFromCenter(t *testing.T) {
	p := NewPong(false)

	row, col := p.BallAt()
	assert.Equal(t, Rows/2, row)
	assert.Equal(t, Cols/2, col)
	assert.Equal(t, -1, p.vx)
	assert.Equal(t, 0, p.vy)
	assert.Equal(t, ballBasePeriod, p.period)
}

func TestStep_BallOnlyMovesOnPeriod(t *testing.T) {
	p := NewPong(false)
	_, before := p.BallAt()

	for i := 0; i < ballBasePeriod-1; i++ {
		require.Equal(t, OutcomeNone, p.Step(false, false))
	}
	_, col := p.BallAt()
	assert.Equal(t, before, col, "ball must hold still between period ticks")

	p.Step(false, false)
	_, col = p.BallAt()
	assert.Equal(t, before-1, col)
}

func TestStep_TopAndBottomBounce(t *testing.T) {
	p := NewPong(false)
	armBall(p, 1, Cols/2, 0, -1)
	p.Step(false, false)

	row, _ := p.BallAt()
	assert.Equal(t, 0, row)
	assert.Equal(t, 1, p.vy, "vertical velocity flips at the top wall")

	armBall(p, Rows-2, Cols/2, 0, 1)
	p.Step(false, false)

	row, _ = p.BallAt()
	assert.Equal(t, Rows-1, row)
	assert.Equal(t, -1, p.vy)
}

func TestStep_Goals(t *testing.T) {
	p := NewPong(false)

	// Past the left paddle, about to cross the edge
	armBall(p, 5, 0, -1, 0)
	assert.Equal(t, OutcomeGoalLeft, p.Step(false, false))

	p = NewPong(false)
	armBall(p, 5, Cols-1, 1, 0)
	assert.Equal(t, OutcomeGoalRight, p.Step(false, false))
}

func TestStep_PaddleDeflectSpeedsRallyUp(t *testing.T) {
	p := NewPong(false)
	armBall(p, p.left.row+1, p.left.col+1, -1, 0)

	require.Equal(t, OutcomeNone, p.Step(false, false))

	assert.Equal(t, 1, p.vx, "ball reverses off the paddle")
	assert.Equal(t, ballBasePeriod-1, p.period)
	assert.Equal(t, 1, p.owner)
}

func TestStep_MovingPaddleFoldsIntoDeflection(t *testing.T) {
	p := NewPong(false)
	p.left.row = 10
	// After the down-move this frame the paddle covers rows 11-13.
	armBall(p, 12, p.left.col+1, -1, 0)

	p.Step(false, true)

	assert.Equal(t, 1, p.vx)
	assert.Equal(t, 1, p.vy, "paddle motion carries into the ball")
}

func TestStep_OwnerGuardBlocksDoubleTouch(t *testing.T) {
	p := NewPong(false)
	p.owner = 1
	armBall(p, p.left.row+1, p.left.col+1, -1, 0)

	require.Equal(t, OutcomeNone, p.Step(false, false))

	assert.Equal(t, -1, p.vx, "the same paddle cannot touch twice in a row")
	assert.Equal(t, ballBasePeriod, p.period)
}

func TestDeflect_SpeedFloor(t *testing.T) {
	p := NewPong(false)
	p.period = ballMinPeriod

	p.deflect(1, 0)

	assert.Equal(t, ballMinPeriod, p.period)
}

func TestStep_CPUTracksBall(t *testing.T) {
	p := NewPong(false)
	p.period = 1 << 20 // park the ball; only paddles move
	p.ballRow = p.right.row + PaddleHeight/2 + 5

	before := p.right.row
	for i := 0; i < cpuMovePeriod; i++ {
		p.Step(false, false)
	}

	assert.Equal(t, before+1, p.right.row)
}

func TestStep_DemoDrivesLeftPaddleToo(t *testing.T) {
	p := NewPong(true)
	p.period = 1 << 20
	p.ballRow = 0

	before := p.left.row
	for i := 0; i < cpuMovePeriod; i++ {
		p.Step(true, true) // inputs ignored in demo mode
	}

	assert.Equal(t, before-1, p.left.row)
}

func TestPaddle_MoveClampsToField(t *testing.T) {
	pd := paddle{row: 0}
	pd.move(-1)
	assert.Equal(t, 0, pd.row)

	pd.row = Rows - PaddleHeight
	pd.move(1)
	assert.Equal(t, Rows-PaddleHeight, pd.row)
}

func TestRespawn_ResetsRally(t *testing.T) {
	p := NewPong(false)
	p.left.row = 0
	p.right.row = Rows - PaddleHeight
	p.period = ballMinPeriod
	p.owner = 2

	p.Respawn(1)

	row, col := p.BallAt()
	assert.Equal(t, Rows/2, row)
	assert.Equal(t, Cols/2, col)
	assert.Equal(t, 1, p.vx)
	assert.Equal(t, ballBasePeriod, p.period)
	assert.Equal(t, 0, p.owner)
	assert.Equal(t, Rows/2-PaddleHeight/2, p.left.row)
	assert.Equal(t, Rows/2-PaddleHeight/2, p.right.row)
}

func TestEntities_PaddlesAndBall(t *testing.T) {
	p := NewPong(false)
	ents := p.Entities()

	require.Len(t, ents, 3)
	assert.Equal(t, KindPaddle, ents[0].Kind)
	assert.Equal(t, PaddleHeight, ents[0].Height)
	assert.Equal(t, KindPaddle, ents[1].Kind)
	assert.Equal(t, KindBall, ents[2].Kind)
}
