package game

// Server-to-client event names. The ws layer shares these so the wire surface
// stays in one place.
const (
	EventJoined       = "joined"
	EventLeft         = "left"
	EventJoinedRanked = "joined-ranked"
	EventLeftRanked   = "left-ranked"
	EventStatus       = "status"
	EventStatusRanked = "status-ranked"

	EventMatchFoundStandard = "match-found-standard"
	EventMatchFoundRanked   = "match-found-ranked"
	EventMatchmakingInfo    = "matchmaking-informations"

	EventGamesInfo          = "games-informations"
	EventTimerBeforeLaunch  = "timer-before-launch"
	EventMatchEnded         = "match-ended"
	EventConfirmQuit        = "confirm-quit-match"
	EventErrorQuit          = "error-quit-match"
	EventRejoinedRoom       = "rejoined-room"
	EventRejoinFailed       = "rejoin-failed"
	EventPlayerDisconnected = "player-disconnected"

	EventChallengeState         = "challenge-state-response"
	EventAcceptedChallengeState = "accepted-challenge-state-response"

	EventError = "error"
)

// Notifier pushes an event to a single player's connection.
type Notifier interface {
	SendToPlayer(playerID, event string, payload interface{})
	IsConnected(playerID string) bool
}

// RoomHub additionally manages room membership and room-wide fan-out.
type RoomHub interface {
	Notifier
	JoinRoom(roomID, playerID string)
	LeaveRoom(roomID, playerID string)
	BroadcastToRoom(roomID, event string, payload interface{})
}

// MatchFoundPayload announces a pairing to both players and, once the room
// exists, to the room itself.
type MatchFoundPayload struct {
	Player1 PlayerInfo `json:"player1"`
	Player2 PlayerInfo `json:"player2"`
	RoomID  string     `json:"roomId"`
}

// MatchEndedPayload carries the terminal result of a match.
type MatchEndedPayload struct {
	Winner   string    `json:"winner"`
	WinnerID string    `json:"winnerId"`
	Reason   EndReason `json:"reason"`
}
