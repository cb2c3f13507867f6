package game

// Fixed-timestep pong on the cell grid. Drives both the offline match and
// the menu demo rally; the mode handlers own scores, halts and countdowns.

const (
	PaddleHeight = 3

	// Ticks between ball steps. Lower is faster; each paddle hit speeds
	// the ball up until a goal resets it.
	ballBasePeriod = 6
	ballMinPeriod  = 2

	cpuMovePeriod = 3
)

// Outcome of one simulation step.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeGoalLeft  // ball left the left edge: right side scores
	OutcomeGoalRight // ball left the right edge: left side scores
)

type paddle struct {
	row      int // top row
	col      int
	lastMove int // -1 up, +1 down, 0 still; deflects the ball on hit
}

// Pong holds one rally's worth of state. Demo mode replaces the left
// paddle's keyboard control with the same tracking the right CPU uses.
type Pong struct {
	Demo bool

	left  paddle
	right paddle

	ballRow, ballCol int
	vx, vy           int
	period           int // current ticks per ball step
	owner            int // 0 none, 1 left, 2 right; last paddle to touch

	tick int
}

func NewPong(demo bool) *Pong {
	p := &Pong{Demo: demo}
	p.left = paddle{row: Rows/2 - PaddleHeight/2, col: 2}
	p.right = paddle{row: Rows/2 - PaddleHeight/2, col: Cols - 3}
	p.serve(-1)
	return p
}

// serve recenters the ball and sends it toward the given horizontal
// direction at base speed.
func (p *Pong) serve(dir int) {
	p.ballRow = Rows / 2
	p.ballCol = Cols / 2
	p.vx = dir
	p.vy = 0
	p.period = ballBasePeriod
	p.owner = 0
}

// Respawn resets paddles and serves toward dir (-1 left, +1 right), used
// after a goal halt.
func (p *Pong) Respawn(dir int) {
	p.left.row = Rows/2 - PaddleHeight/2
	p.right.row = Rows/2 - PaddleHeight/2
	p.serve(dir)
}

// Step advances one tick. up/down are the player's held inputs and are
// ignored in demo mode.
func (p *Pong) Step(up, down bool) Outcome {
	p.tick++

	// Left paddle: player or demo CPU
	if p.Demo {
		if p.tick%cpuMovePeriod == 0 {
			p.left.track(p.ballRow)
		}
	} else {
		p.left.lastMove = 0
		if up && !down {
			p.left.move(-1)
		} else if down && !up {
			p.left.move(1)
		}
	}

	// Right paddle: CPU tracks the ball
	if p.tick%cpuMovePeriod == 0 {
		p.right.track(p.ballRow)
	}

	if p.tick%p.period != 0 {
		return OutcomeNone
	}

	// Ball step
	p.ballRow += p.vy
	p.ballCol += p.vx

	// Top/bottom bounce
	if p.ballRow <= 0 {
		p.ballRow = 0
		p.vy = -p.vy
	} else if p.ballRow >= Rows-1 {
		p.ballRow = Rows - 1
		p.vy = -p.vy
	}

	// Paddle hits. The owner check stops one touch registering twice.
	if p.ballCol == p.left.col && p.left.covers(p.ballRow) && p.owner != 1 {
		p.deflect(1, p.left.lastMove)
		p.owner = 1
	} else if p.ballCol == p.right.col && p.right.covers(p.ballRow) && p.owner != 2 {
		p.deflect(-1, p.right.lastMove)
		p.owner = 2
	}

	// Goals
	if p.ballCol < 0 {
		return OutcomeGoalLeft
	}
	if p.ballCol > Cols-1 {
		return OutcomeGoalRight
	}
	return OutcomeNone
}

// deflect reverses the ball with the paddle's motion folded into its
// vertical velocity, speeding the rally up a notch.
func (p *Pong) deflect(dir, paddleMove int) {
	p.vx = dir
	if paddleMove != 0 {
		p.vy = paddleMove
	}
	if p.period > ballMinPeriod {
		p.period--
	}
}

// Entities returns the drawable state: two paddles and the ball.
func (p *Pong) Entities() []Entity {
	return []Entity{
		{Kind: KindPaddle, Row: p.left.row, Col: p.left.col, Height: PaddleHeight},
		{Kind: KindPaddle, Row: p.right.row, Col: p.right.col, Height: PaddleHeight},
		{Kind: KindBall, Row: p.ballRow, Col: p.ballCol},
	}
}

// BallAt reports the ball's cell, used by tests and the demo respawn check.
func (p *Pong) BallAt() (row, col int) {
	return p.ballRow, p.ballCol
}

func (pd *paddle) move(dir int) {
	pd.row += dir
	pd.lastMove = dir
	if pd.row < 0 {
		pd.row = 0
	}
	if pd.row > Rows-PaddleHeight {
		pd.row = Rows - PaddleHeight
	}
}

// track nudges the paddle toward the ball's row.
func (pd *paddle) track(ballRow int) {
	center := pd.row + PaddleHeight/2
	switch {
	case ballRow < center:
		pd.move(-1)
	case ballRow > center:
		pd.move(1)
	default:
		pd.lastMove = 0
	}
}

func (pd *paddle) covers(row int) bool {
	return row >= pd.row && row < pd.row+PaddleHeight
}
