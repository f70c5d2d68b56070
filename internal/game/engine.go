package game

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrUnknownPlayer is returned when a forfeit names a player that is not part
// of the match. This is a programming error in the caller, not a game event.
var ErrUnknownPlayer = errors.New("player is not part of this match")

// Rect is an axis-aligned bounding box.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Engine is the authoritative simulation for one match. It is a pure state
// container: no I/O, no timers. The loop driver calls Tick at a fixed rate and
// the room coordinator mutates it through the exported methods.
//
// Once a terminal result is produced the engine latches it and refuses any
// further score or position mutation.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand

	player1 PlayerInfo
	player2 PlayerInfo

	paddle1 Rect
	paddle2 Rect

	ballPos  Vec2
	ballVel  Vec2
	ballSize float64

	score1   int
	score2   int
	winScore int

	ready1 bool
	ready2 bool

	baseGame1    bool
	baseGame2    bool
	smallRacket1 bool
	smallRacket2 bool
	obstacle1    bool
	obstacle2    bool

	// Ticks remaining until the next serve. The ball is hidden (zero size,
	// zero velocity) while this is positive.
	launchTicks int

	// Boundary the ball last crossed; the next serve must move away from it.
	lastCrossed Side

	result *Result
}

// NewEngine resets a match to its defaults: centered paddles, hidden ball,
// first serve scheduled after the launch delay, nobody ready. A nil rng gets
// a time-seeded source.
func NewEngine(player1, player2 PlayerInfo, winScore int, rng *rand.Rand) *Engine {
	if winScore <= 0 {
		winScore = DefaultWinScore
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Engine{
		rng:     rng,
		player1: player1,
		player2: player2,
		paddle1: Rect{
			X: PaddleMargin,
			Y: (CanvasHeight - PaddleHeight) / 2,
			W: PaddleWidth,
			H: PaddleHeight,
		},
		paddle2: Rect{
			X: CanvasWidth - PaddleMargin - PaddleWidth,
			Y: (CanvasHeight - PaddleHeight) / 2,
			W: PaddleWidth,
			H: PaddleHeight,
		},
		ballPos:     Vec2{X: CanvasWidth / 2, Y: CanvasHeight / 2},
		winScore:    winScore,
		launchTicks: LaunchDelayTicks,
	}
}

// SideOf maps a player id to its slot, SideNone when unknown.
func (e *Engine) SideOf(playerID string) Side {
	if playerID == e.player1.ID {
		return SideLeft
	}
	if playerID == e.player2.ID {
		return SideRight
	}
	return SideNone
}

// MoveRacket adjusts a paddle by one step, clamped to the court. Commands are
// ignored until at least one player has readied up, which guards against
// pre-game drift.
func (e *Engine) MoveRacket(side Side, dir Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.result != nil {
		return
	}
	if !e.ready1 && !e.ready2 {
		return
	}

	p := e.paddleFor(side)
	if p == nil {
		return
	}
	p.Y += float64(dir) * RacketStep
	e.clampPaddle(p)
}

func (e *Engine) paddleFor(side Side) *Rect {
	switch side {
	case SideLeft:
		return &e.paddle1
	case SideRight:
		return &e.paddle2
	}
	return nil
}

func (e *Engine) clampPaddle(p *Rect) {
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y > CanvasHeight-p.H {
		p.Y = CanvasHeight - p.H
	}
}

// SetReady flips a side's ready flag.
func (e *Engine) SetReady(side Side, ready bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch side {
	case SideLeft:
		e.ready1 = ready
	case SideRight:
		e.ready2 = ready
	}
}

// BothReady reports whether both players have readied up.
func (e *Engine) BothReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready1 && e.ready2
}

// SetBaseGame flips a side's want-base-game flag.
func (e *Engine) SetBaseGame(side Side, want bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch side {
	case SideLeft:
		e.baseGame1 = want
	case SideRight:
		e.baseGame2 = want
	}
}

// SetSmallRacket toggles the half-height paddle for one side. The paddle is
// re-clamped so a shrink or grow at the bottom edge stays inside the court.
func (e *Engine) SetSmallRacket(side Side, small bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.paddleFor(side)
	if p == nil {
		return
	}
	switch side {
	case SideLeft:
		e.smallRacket1 = small
	case SideRight:
		e.smallRacket2 = small
	}
	if small {
		p.H = SmallPaddleHeight
	} else {
		p.H = PaddleHeight
	}
	e.clampPaddle(p)
}

// ToggleBaseGame flips a side's want-base-game flag and returns the new value.
func (e *Engine) ToggleBaseGame(side Side) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch side {
	case SideLeft:
		e.baseGame1 = !e.baseGame1
		return e.baseGame1
	case SideRight:
		e.baseGame2 = !e.baseGame2
		return e.baseGame2
	}
	return false
}

// ToggleSmallRacket flips a side's small-racket option and returns the new value.
func (e *Engine) ToggleSmallRacket(side Side) bool {
	var small bool
	e.mu.Lock()
	switch side {
	case SideLeft:
		small = !e.smallRacket1
	case SideRight:
		small = !e.smallRacket2
	default:
		e.mu.Unlock()
		return false
	}
	e.mu.Unlock()
	e.SetSmallRacket(side, small)
	return small
}

// ToggleObstacle flips a side's obstacle option and returns the new value.
func (e *Engine) ToggleObstacle(side Side) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch side {
	case SideLeft:
		e.obstacle1 = !e.obstacle1
		return e.obstacle1
	case SideRight:
		e.obstacle2 = !e.obstacle2
		return e.obstacle2
	}
	return false
}

// SetObstacle toggles the mid-court obstacle on one side's half.
func (e *Engine) SetObstacle(side Side, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch side {
	case SideLeft:
		e.obstacle1 = enabled
	case SideRight:
		e.obstacle2 = enabled
	}
}

func obstacleRect(side Side) Rect {
	x := CanvasWidth/3 - ObstacleWidth/2
	if side == SideRight {
		x = 2*CanvasWidth/3 - ObstacleWidth/2
	}
	return Rect{
		X: x,
		Y: (CanvasHeight - ObstacleHeight) / 2,
		W: ObstacleWidth,
		H: ObstacleHeight,
	}
}

// Tick advances the simulation by one step. It returns a non-nil Result on
// exactly the tick that ends the match; every later call is a no-op returning
// nil. Point scoring hides the ball and schedules the relaunch internally.
func (e *Engine) Tick() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.result != nil {
		return nil
	}

	if e.launchTicks > 0 {
		e.launchTicks--
		if e.launchTicks == 0 {
			e.launchBall()
		}
		return nil
	}

	e.ballPos = e.ballPos.Plus(e.ballVel)
	e.resolveCollisions()

	// Leading-edge boundary checks. Crossing a goal line scores for the
	// side that did not concede it.
	if e.ballPos.X <= 0 {
		return e.awardPoint(SideRight, SideLeft)
	}
	if e.ballPos.X+e.ballSize >= CanvasWidth {
		return e.awardPoint(SideLeft, SideRight)
	}
	return nil
}

func (e *Engine) resolveCollisions() {
	// Top and bottom walls reflect the vertical component.
	if e.ballPos.Y <= 0 && e.ballVel.Y < 0 {
		e.ballPos.Y = 0
		e.ballVel.Y = -e.ballVel.Y
	}
	if e.ballPos.Y+e.ballSize >= CanvasHeight && e.ballVel.Y > 0 {
		e.ballPos.Y = CanvasHeight - e.ballSize
		e.ballVel.Y = -e.ballVel.Y
	}

	ball := Rect{X: e.ballPos.X, Y: e.ballPos.Y, W: e.ballSize, H: e.ballSize}

	if ball.Intersects(e.paddle1) && e.ballVel.X < 0 {
		e.ballVel.X = -e.ballVel.X
	}
	if ball.Intersects(e.paddle2) && e.ballVel.X > 0 {
		e.ballVel.X = -e.ballVel.X
	}

	if e.obstacle1 && ball.Intersects(obstacleRect(SideLeft)) {
		e.ballVel.X = -e.ballVel.X
	}
	if e.obstacle2 && ball.Intersects(obstacleRect(SideRight)) {
		e.ballVel.X = -e.ballVel.X
	}
}

// awardPoint credits scorer with one point, then either latches the terminal
// result or hides the ball and schedules the relaunch.
func (e *Engine) awardPoint(scorer, crossed Side) *Result {
	switch scorer {
	case SideLeft:
		e.score1++
	case SideRight:
		e.score2++
	}
	e.lastCrossed = crossed

	if e.score1 >= e.winScore || e.score2 >= e.winScore {
		// Terminal visual state: ball frozen at center, zero size.
		e.hideBall()
		e.ballPos = Vec2{X: CanvasWidth / 2, Y: CanvasHeight / 2}
		e.result = &Result{Winner: scorer, Reason: ReasonScore}
		return e.result
	}

	e.hideBall()
	e.launchTicks = LaunchDelayTicks
	return nil
}

func (e *Engine) hideBall() {
	e.ballSize = 0
	e.ballVel = Vec2{}
}

// launchBall serves the ball from one of two vertical bands chosen uniformly
// at random. The band fixes the vertical direction (upper band serves
// downward, lower band upward) and the horizontal direction points away from
// the goal line the ball last crossed, so a serve never immediately re-crosses
// the boundary just scored through. The first serve of a match picks its
// horizontal direction uniformly.
func (e *Engine) launchBall() {
	const bandHeight = CanvasHeight / 6

	var y, vy float64
	if e.rng.Intn(2) == 0 {
		// Upper band: [h/6, h/3), serving downward.
		y = CanvasHeight/6 + e.rng.Float64()*bandHeight
		vy = 1
	} else {
		// Lower band: [2h/3, 5h/6), serving upward.
		y = 2*CanvasHeight/3 + e.rng.Float64()*bandHeight
		vy = -1
	}

	var vx float64
	switch e.lastCrossed {
	case SideLeft:
		vx = 1
	case SideRight:
		vx = -1
	default:
		vx = 1
		if e.rng.Intn(2) == 0 {
			vx = -1
		}
	}

	// Launch angle is one of {pi/4, 3pi/4}; components keep the speed
	// magnitude constant across the whole rally.
	component := BallSpeed * math.Sqrt2 / 2
	e.ballSize = BallSize
	e.ballPos = Vec2{X: CanvasWidth/2 - BallSize/2, Y: y}
	e.ballVel = Vec2{X: vx * component, Y: vy * component}
}

// Forfeit ends the match with the named player's opponent as winner. Calling
// it with an id that matches neither player is an error. After the match is
// already terminal it has no effect.
func (e *Engine) Forfeit(playerID string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	side := SideNone
	if playerID == e.player1.ID {
		side = SideLeft
	} else if playerID == e.player2.ID {
		side = SideRight
	} else {
		return nil, ErrUnknownPlayer
	}

	if e.result != nil {
		return nil, nil
	}

	e.hideBall()
	e.ballPos = Vec2{X: CanvasWidth / 2, Y: CanvasHeight / 2}
	e.result = &Result{Winner: side.Other(), Reason: ReasonForfeit}
	return e.result, nil
}

// Result returns the latched terminal result, nil while the match is live.
func (e *Engine) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Scores returns the current score pair (left, right).
func (e *Engine) Scores() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score1, e.score2
}

// Players returns both players' public identities.
func (e *Engine) Players() (PlayerInfo, PlayerInfo) {
	return e.player1, e.player2
}

// Snapshot is the full derived state pushed to the room on every broadcast
// tick and on demand.
type Snapshot struct {
	Player1ID   string `json:"player1Id"`
	Player2ID   string `json:"player2Id"`
	Player1Name string `json:"player1Name"`
	Player2Name string `json:"player2Name"`

	Score1 int `json:"score1"`
	Score2 int `json:"score2"`

	Paddle1 Rect `json:"paddle1"`
	Paddle2 Rect `json:"paddle2"`

	BallPosition Vec2    `json:"ballPosition"`
	BallSize     float64 `json:"ballSize"`

	Ready1 bool `json:"ready1"`
	Ready2 bool `json:"ready2"`

	BaseGame1    bool `json:"wantBaseGame1"`
	BaseGame2    bool `json:"wantBaseGame2"`
	SmallRacket1 bool `json:"smallRacket1"`
	SmallRacket2 bool `json:"smallRacket2"`

	Obstacle1     bool  `json:"obstacle1"`
	Obstacle2     bool  `json:"obstacle2"`
	Obstacle1Rect *Rect `json:"obstacle1Rect,omitempty"`
	Obstacle2Rect *Rect `json:"obstacle2Rect,omitempty"`
}

// Snapshot captures the current state for broadcast.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Player1ID:    e.player1.ID,
		Player2ID:    e.player2.ID,
		Player1Name:  e.player1.Username,
		Player2Name:  e.player2.Username,
		Score1:       e.score1,
		Score2:       e.score2,
		Paddle1:      e.paddle1,
		Paddle2:      e.paddle2,
		BallPosition: e.ballPos,
		BallSize:     e.ballSize,
		Ready1:       e.ready1,
		Ready2:       e.ready2,
		BaseGame1:    e.baseGame1,
		BaseGame2:    e.baseGame2,
		SmallRacket1: e.smallRacket1,
		SmallRacket2: e.smallRacket2,
		Obstacle1:    e.obstacle1,
		Obstacle2:    e.obstacle2,
	}
	if e.obstacle1 {
		r := obstacleRect(SideLeft)
		snap.Obstacle1Rect = &r
	}
	if e.obstacle2 {
		r := obstacleRect(SideRight)
		snap.Obstacle2Rect = &r
	}
	return snap
}

// BallState returns the ball's position, velocity and size.
func (e *Engine) BallState() (Vec2, Vec2, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ballPos, e.ballVel, e.ballSize
}

// PaddleY returns a paddle's current vertical position.
func (e *Engine) PaddleY(side Side) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p := e.paddleFor(side); p != nil {
		return p.Y
	}
	return 0
}
