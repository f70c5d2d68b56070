package game

// Court and physics constants. These MUST match the canvas constants in the
// front-end renderer exactly.

const (
	CanvasWidth  = 858.0
	CanvasHeight = 525.0

	PaddleWidth       = 6.0
	PaddleHeight      = 42.0
	SmallPaddleHeight = 21.0
	PaddleMargin      = 10.0 // distance from the court edge to the paddle face
	RacketStep        = 6.0  // pixels per move command

	BallSize  = 10.0 // square ball, side length while live
	BallSpeed = 3.0  // constant velocity magnitude

	DefaultWinScore = 5

	// Serve delay expressed in physics ticks: 1500ms at 120Hz.
	TickRateHz       = 120
	LaunchDelayTicks = 180

	// Obstacle geometry when the option is enabled. One obstacle per court
	// half, vertically centered, clear of both paddles and the serve bands.
	ObstacleWidth  = 10.0
	ObstacleHeight = 70.0
)
