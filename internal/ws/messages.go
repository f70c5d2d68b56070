package ws

import "encoding/json"

// Envelope is the wire format for client-to-server messages. Data is decoded
// into a per-type payload struct by the router.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PlayerPayload accompanies join-standard and join-ranked.
type PlayerPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	IsGuest  bool   `json:"isGuest"`
}

// RoomActionPayload accompanies in-room controls: update-racket, set-ready,
// set-want-base-game, set-small-racket, set-obstacle.
type RoomActionPayload struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
}

// RoomIDPayload accompanies ask-games-informations.
type RoomIDPayload struct {
	RoomID string `json:"roomId"`
}

// RejoinRoomPayload accompanies rejoin-room.
type RejoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// ChallengePayload accompanies challenge.
type ChallengePayload struct {
	OpponentID string `json:"opponentId"`
}

// ChallengeAnswerPayload accompanies challenge-answer. Accept is true for an
// accepted challenge, false for a decline.
type ChallengeAnswerPayload struct {
	ChallengerID string `json:"challengerId"`
	Accept       bool   `json:"accept"`
}

// ConfirmChallengePayload accompanies confirm-challenge.
type ConfirmChallengePayload struct {
	Username string `json:"username"`
}

// ChallengeStatePayload accompanies challenge-state.
type ChallengeStatePayload struct {
	FriendID string `json:"friendId"`
}

// QueueStatusPayload is the reply to status-standard and status-ranked.
type QueueStatusPayload struct {
	PlayersInQueue int `json:"playersInQueue"`
}

// ErrorPayload is a scoped error pushed back to the originating connection.
type ErrorPayload struct {
	Scope   string `json:"scope"`
	Message string `json:"message"`
}
