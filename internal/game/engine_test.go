package game

import (
	"math"
	"math/rand"
	"testing"
)

// Helper to create a two-player engine with a deterministic random source.
func setupEngine(seed int64) *Engine {
	p1 := PlayerInfo{ID: "p1", Username: "alice"}
	p2 := PlayerInfo{ID: "p2", Username: "bob"}
	return NewEngine(p1, p2, DefaultWinScore, rand.New(rand.NewSource(seed)))
}

// Helper to put the engine in a live rally with a chosen ball state.
func setupRally(t *testing.T, pos, vel Vec2) *Engine {
	t.Helper()
	e := setupEngine(1)
	e.ready1 = true
	e.ready2 = true
	e.launchTicks = 0
	e.ballPos = pos
	e.ballVel = vel
	e.ballSize = BallSize
	return e
}

func TestMoveRacketIgnoredBeforeReady(t *testing.T) {
	e := setupEngine(1)
	startY := e.PaddleY(SideLeft)

	e.MoveRacket(SideLeft, DirUp)

	if e.PaddleY(SideLeft) != startY {
		t.Errorf("Paddle moved before any player was ready: %.1f -> %.1f", startY, e.PaddleY(SideLeft))
	}
}

func TestMoveRacketStepAndClamp(t *testing.T) {
	e := setupEngine(1)
	e.SetReady(SideLeft, true)

	startY := e.PaddleY(SideLeft)
	e.MoveRacket(SideLeft, DirUp)
	if got := e.PaddleY(SideLeft); got != startY-RacketStep {
		t.Errorf("Up move: expected y=%.1f, got %.1f", startY-RacketStep, got)
	}

	// Hammer the paddle against the top wall; it must clamp at 0.
	for i := 0; i < 200; i++ {
		e.MoveRacket(SideLeft, DirUp)
	}
	if got := e.PaddleY(SideLeft); got != 0 {
		t.Errorf("Paddle escaped top wall: y=%.1f", got)
	}

	// And against the bottom wall.
	for i := 0; i < 200; i++ {
		e.MoveRacket(SideLeft, DirDown)
	}
	if got := e.PaddleY(SideLeft); got != CanvasHeight-PaddleHeight {
		t.Errorf("Paddle escaped bottom wall: y=%.1f, want %.1f", got, CanvasHeight-PaddleHeight)
	}
}

func TestLaunchAfterDelayTicks(t *testing.T) {
	e := setupEngine(1)
	e.SetReady(SideLeft, true)
	e.SetReady(SideRight, true)

	// Ball stays hidden for the whole launch delay.
	for i := 0; i < LaunchDelayTicks-1; i++ {
		e.Tick()
		if _, _, size := e.BallState(); size != 0 {
			t.Fatalf("Ball visible during launch delay at tick %d", i)
		}
	}

	e.Tick()
	_, vel, size := e.BallState()
	if size != BallSize {
		t.Fatalf("Ball not launched after delay: size=%.1f", size)
	}
	if speed := vel.Magnitude(); math.Abs(speed-BallSpeed) > 1e-9 {
		t.Errorf("Launch speed %.6f, want %.1f", speed, BallSpeed)
	}
}

func TestBallSpeedConstantAcrossReflections(t *testing.T) {
	e := setupEngine(42)
	e.SetReady(SideLeft, true)
	e.SetReady(SideRight, true)

	// Park both paddles out of the way so the rally runs wall to wall.
	e.paddle1.Y = -1000
	e.paddle2.Y = -1000

	for i := 0; i < LaunchDelayTicks; i++ {
		e.Tick()
	}

	for i := 0; i < 2000; i++ {
		e.Tick()
		_, vel, size := e.BallState()
		if size == 0 {
			// Point scored; rally over.
			break
		}
		if speed := vel.Magnitude(); math.Abs(speed-BallSpeed) > 1e-9 {
			t.Fatalf("Speed drifted at tick %d: %.9f", i, speed)
		}
	}
}

func TestWallReflection(t *testing.T) {
	e := setupRally(t, Vec2{X: CanvasWidth / 2, Y: 1}, Vec2{X: 1, Y: -2})

	e.Tick()

	_, vel, _ := e.BallState()
	if vel.Y <= 0 {
		t.Errorf("Ball not reflected off top wall: vy=%.2f", vel.Y)
	}
	pos, _, _ := e.BallState()
	if pos.Y < 0 {
		t.Errorf("Ball outside court after reflection: y=%.2f", pos.Y)
	}
}

func TestPaddleReflection(t *testing.T) {
	e := setupEngine(1)
	e.ready1 = true
	e.ready2 = true
	e.launchTicks = 0
	e.ballSize = BallSize
	// Place the ball just right of the left paddle, moving left into it.
	e.ballPos = Vec2{X: e.paddle1.X + PaddleWidth + 1, Y: e.paddle1.Y + PaddleHeight/2}
	e.ballVel = Vec2{X: -2, Y: 0}

	e.Tick()

	_, vel, _ := e.BallState()
	if vel.X <= 0 {
		t.Errorf("Ball not reflected off left paddle: vx=%.2f", vel.X)
	}
}

func TestObstacleReflection(t *testing.T) {
	obst := obstacleRect(SideLeft)
	e := setupRally(t,
		Vec2{X: obst.X + ObstacleWidth + 1, Y: obst.Y + ObstacleHeight/2},
		Vec2{X: -2, Y: 0})
	e.SetObstacle(SideLeft, true)

	e.Tick()

	_, vel, _ := e.BallState()
	if vel.X <= 0 {
		t.Errorf("Ball not reflected off obstacle: vx=%.2f", vel.X)
	}
}

func TestScoreHidesBallAndSchedulesRelaunch(t *testing.T) {
	e := setupRally(t, Vec2{X: 1, Y: CanvasHeight / 2}, Vec2{X: -2, Y: 0})
	// Left paddle out of the way.
	e.paddle1.Y = -1000

	res := e.Tick()

	if res != nil {
		t.Fatalf("Single point ended the match: %+v", res)
	}
	if s1, s2 := e.Scores(); s1 != 0 || s2 != 1 {
		t.Errorf("Score after left goal crossed: %d-%d, want 0-1", s1, s2)
	}
	if _, _, size := e.BallState(); size != 0 {
		t.Errorf("Ball still visible after point: size=%.1f", size)
	}
	if e.launchTicks != LaunchDelayTicks {
		t.Errorf("Relaunch not scheduled: launchTicks=%d", e.launchTicks)
	}
}

func TestMatchEndsAtWinScore(t *testing.T) {
	e := setupRally(t, Vec2{X: CanvasWidth - BallSize - 1, Y: CanvasHeight / 2}, Vec2{X: 2, Y: 0})
	e.paddle2.Y = -1000
	e.score1 = DefaultWinScore - 1

	res := e.Tick()

	if res == nil {
		t.Fatal("No result at win score")
	}
	if res.Winner != SideLeft || res.Reason != ReasonScore {
		t.Errorf("Result = %+v, want winner=left reason=score", res)
	}

	// Terminal state: ball hidden and centered, score frozen.
	pos, _, size := e.BallState()
	if size != 0 {
		t.Errorf("Ball visible after match end: size=%.1f", size)
	}
	if pos.X != CanvasWidth/2 || pos.Y != CanvasHeight/2 {
		t.Errorf("Ball not centered after match end: %+v", pos)
	}

	// Every later tick is a no-op returning nil.
	for i := 0; i < 10; i++ {
		if r := e.Tick(); r != nil {
			t.Fatalf("Tick after terminal result returned %+v", r)
		}
	}
	if s1, _ := e.Scores(); s1 != DefaultWinScore {
		t.Errorf("Score moved after match end: %d", s1)
	}
}

func TestLaunchMovesAwayFromScoredBoundary(t *testing.T) {
	for _, crossed := range []Side{SideLeft, SideRight} {
		for seed := int64(0); seed < 20; seed++ {
			e := setupEngine(seed)
			e.lastCrossed = crossed
			e.launchTicks = 1
			e.ready1 = true
			e.ready2 = true

			e.Tick()

			_, vel, _ := e.BallState()
			if crossed == SideLeft && vel.X <= 0 {
				t.Errorf("Seed %d: serve re-crosses left boundary, vx=%.2f", seed, vel.X)
			}
			if crossed == SideRight && vel.X >= 0 {
				t.Errorf("Seed %d: serve re-crosses right boundary, vx=%.2f", seed, vel.X)
			}
		}
	}
}

func TestLaunchBandsFixVerticalDirection(t *testing.T) {
	sawUpper := false
	sawLower := false

	for seed := int64(0); seed < 40; seed++ {
		e := setupEngine(seed)
		e.launchTicks = 1
		e.ready1 = true
		e.ready2 = true

		e.Tick()

		pos, vel, _ := e.BallState()
		switch {
		case pos.Y >= CanvasHeight/6 && pos.Y < CanvasHeight/3:
			sawUpper = true
			if vel.Y <= 0 {
				t.Errorf("Seed %d: upper-band serve not moving down, vy=%.2f", seed, vel.Y)
			}
		case pos.Y >= 2*CanvasHeight/3 && pos.Y < 5*CanvasHeight/6:
			sawLower = true
			if vel.Y >= 0 {
				t.Errorf("Seed %d: lower-band serve not moving up, vy=%.2f", seed, vel.Y)
			}
		default:
			t.Errorf("Seed %d: serve outside both bands, y=%.2f", seed, pos.Y)
		}
	}

	if !sawUpper || !sawLower {
		t.Errorf("Expected both bands across seeds: upper=%v lower=%v", sawUpper, sawLower)
	}
}

func TestForfeit(t *testing.T) {
	e := setupEngine(1)

	res, err := e.Forfeit("p1")
	if err != nil {
		t.Fatalf("Forfeit returned error: %v", err)
	}
	if res == nil || res.Winner != SideRight || res.Reason != ReasonForfeit {
		t.Errorf("Forfeit result = %+v, want winner=right reason=forfeit", res)
	}

	// Second forfeit after the match is terminal is a silent no-op.
	res, err = e.Forfeit("p2")
	if err != nil {
		t.Errorf("Forfeit on ended match returned error: %v", err)
	}
	if res != nil {
		t.Errorf("Forfeit on ended match produced a second result: %+v", res)
	}
}

func TestForfeitUnknownPlayer(t *testing.T) {
	e := setupEngine(1)

	if _, err := e.Forfeit("stranger"); err != ErrUnknownPlayer {
		t.Errorf("Forfeit by unknown player: err=%v, want ErrUnknownPlayer", err)
	}
	if e.Result() != nil {
		t.Errorf("Unknown-player forfeit ended the match")
	}
}

func TestSmallRacketReclamp(t *testing.T) {
	e := setupEngine(1)
	e.SetReady(SideLeft, true)

	// Paddle at the bottom edge with full height.
	for i := 0; i < 200; i++ {
		e.MoveRacket(SideLeft, DirDown)
	}

	e.SetSmallRacket(SideLeft, true)
	if y := e.PaddleY(SideLeft); y > CanvasHeight-SmallPaddleHeight {
		t.Errorf("Small paddle outside court: y=%.1f", y)
	}

	// Growing back must also stay inside.
	e.SetSmallRacket(SideLeft, false)
	if y := e.PaddleY(SideLeft); y > CanvasHeight-PaddleHeight {
		t.Errorf("Restored paddle outside court: y=%.1f", y)
	}
}

func TestSideOf(t *testing.T) {
	e := setupEngine(1)

	if got := e.SideOf("p1"); got != SideLeft {
		t.Errorf("SideOf(p1) = %v", got)
	}
	if got := e.SideOf("p2"); got != SideRight {
		t.Errorf("SideOf(p2) = %v", got)
	}
	if got := e.SideOf("nobody"); got != SideNone {
		t.Errorf("SideOf(nobody) = %v", got)
	}
}

func TestSnapshotCarriesObstacleRects(t *testing.T) {
	e := setupEngine(1)

	snap := e.Snapshot()
	if snap.Obstacle1Rect != nil || snap.Obstacle2Rect != nil {
		t.Errorf("Obstacle rects present while disabled")
	}

	e.SetObstacle(SideRight, true)
	snap = e.Snapshot()
	if snap.Obstacle2Rect == nil {
		t.Fatal("Obstacle2Rect missing after enable")
	}
	want := obstacleRect(SideRight)
	if *snap.Obstacle2Rect != want {
		t.Errorf("Obstacle2Rect = %+v, want %+v", *snap.Obstacle2Rect, want)
	}
}
