package game

// Side identifies one of the two player slots in a match.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "player1"
	case SideRight:
		return "player2"
	}
	return "none"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return SideNone
}

// EndReason explains how a match reached its terminal state.
type EndReason string

const (
	ReasonScore   EndReason = "score"
	ReasonForfeit EndReason = "forfeit"
)

// Result is the terminal outcome of a match. An engine produces exactly one.
type Result struct {
	Winner Side      `json:"winner"`
	Reason EndReason `json:"reason"`
}

// Direction is a racket move command.
type Direction int

const (
	DirUp   Direction = -1
	DirDown Direction = 1
)

// PlayerInfo carries the public identity of a player as the matchmaking and
// room layers see it. Points are only read for ranked sort order.
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points,omitempty"`
	IsGuest  bool   `json:"isGuest,omitempty"`
}
