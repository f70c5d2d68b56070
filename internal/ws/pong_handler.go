package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/records"
)

// Handler owns the WebSocket surface: it upgrades connections, decodes client
// envelopes and routes them to the matchmaker, the room coordinator and the
// challenge manager.
type Handler struct {
	hub        *Hub
	queue      *game.Queue
	matchmaker *game.Matchmaker
	rooms      *game.RoomManager
	challenges *game.ChallengeManager
	store      *records.Store
	cfg        *config.Config
}

// NewHandler wires the hub's disconnect hook to the game-side cleanup paths.
func NewHandler(hub *Hub, queue *game.Queue, matchmaker *game.Matchmaker, rooms *game.RoomManager, challenges *game.ChallengeManager, store *records.Store, cfg *config.Config) *Handler {
	h := &Handler{
		hub:        hub,
		queue:      queue,
		matchmaker: matchmaker,
		rooms:      rooms,
		challenges: challenges,
		store:      store,
		cfg:        cfg,
	}
	hub.onDisconnect = func(playerID string) {
		h.matchmaker.HandleDisconnect(playerID)
		h.challenges.HandleDisconnect(playerID)
		h.rooms.HandleDisconnect(playerID)
	}
	return h
}

// HandleWebSocket upgrades an HTTP request to a WebSocket connection.
// Identity comes either from a signed token (required for ranked play) or
// from a caller-supplied guest id.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	var (
		playerID      string
		username      string
		authenticated bool
	)

	if token := c.Query("token"); token != "" {
		claims, err := auth.ParseUserToken(token, h.cfg.JWTSecret)
		if err != nil {
			log.Printf("[WS] Rejected connection with invalid token: %v", err)
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			return
		}
		playerID = claims.UserID
		username = claims.Username
		authenticated = true
	} else {
		playerID = c.Query("pid")
		username = c.Query("username")
		if playerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pid or token required"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed for player %s: %v", playerID, err)
		return
	}

	client := &Client{
		conn:          conn,
		playerID:      playerID,
		username:      username,
		authenticated: authenticated,
		send:          make(chan []byte, 256),
		handler:       h,
	}

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// handleMessage routes one decoded client envelope.
func (h *Handler) handleMessage(c *Client, env Envelope) {
	switch env.Type {
	case "join-standard":
		h.handleJoinStandard(c, env.Data)
	case "leave-standard":
		h.matchmaker.Leave(c.playerID, false)
		c.sendEvent(game.EventLeft, nil)
	case "join-ranked":
		h.handleJoinRanked(c)
	case "leave-ranked":
		h.matchmaker.Leave(c.playerID, true)
		c.sendEvent(game.EventLeftRanked, nil)

	case "status-standard":
		c.sendEvent(game.EventStatus, QueueStatusPayload{PlayersInQueue: h.queue.Size()})
	case "status-ranked":
		c.sendEvent(game.EventStatusRanked, QueueStatusPayload{PlayersInQueue: h.queue.RankedSize()})

	case "rejoin-matchmaking":
		state, _ := h.matchmaker.State(c.playerID)
		c.sendEvent(game.EventMatchmakingInfo, state)

	case "rejoin-room":
		h.handleRejoinRoom(c, env.Data)

	case "update-racket":
		h.handleRoomAction(c, env.Data, "update-racket", h.rooms.HandleRacket)
	case "set-ready":
		h.handleRoomAction(c, env.Data, "set-ready", h.rooms.HandleReady)
	case "set-want-base-game":
		h.handleRoomAction(c, env.Data, "set-want-base-game", h.rooms.HandleBaseGame)
	case "set-small-racket":
		h.handleRoomAction(c, env.Data, "set-small-racket", h.rooms.HandleSmallRacket)
	case "set-obstacle":
		h.handleRoomAction(c, env.Data, "set-obstacle", h.rooms.HandleObstacle)

	case "ask-games-informations":
		h.handleAskGamesInfo(c, env.Data)

	case "quit-match":
		if err := h.rooms.Quit(c.playerID); err != nil {
			c.sendEvent(game.EventErrorQuit, ErrorPayload{Scope: "quit-match", Message: err.Error()})
			return
		}
		c.sendEvent(game.EventConfirmQuit, nil)

	case "challenge":
		h.handleChallenge(c, env.Data)
	case "challenge-answer":
		h.handleChallengeAnswer(c, env.Data)
	case "confirm-challenge":
		h.handleConfirmChallenge(c, env.Data)
	case "challenge-state":
		h.handleChallengeState(c, env.Data)
	case "accepted-challenge-state":
		c.sendEvent(game.EventAcceptedChallengeState, h.challenges.AcceptedStatus(c.playerID))

	default:
		log.Printf("[WS] Unknown message type %q from player %s", env.Type, c.playerID)
	}
}

func (h *Handler) handleJoinStandard(c *Client, data json.RawMessage) {
	var payload PlayerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("join-standard", "invalid payload")
		return
	}

	p := game.PlayerInfo{
		ID:       c.playerID,
		Username: payload.Username,
		Points:   payload.Points,
		IsGuest:  payload.IsGuest,
	}
	if p.Username == "" {
		p.Username = c.username
	}

	if err := h.matchmaker.Join(p, false); err != nil {
		c.sendError("join-standard", err.Error())
		return
	}
	c.sendEvent(game.EventJoined, nil)
}

// handleJoinRanked only admits connections that presented a valid token at
// upgrade time; identity and points come from the server side, never from the
// client payload.
func (h *Handler) handleJoinRanked(c *Client) {
	if !c.authenticated {
		c.sendError("join-ranked", "authentication required for ranked play")
		return
	}

	p := game.PlayerInfo{ID: c.playerID, Username: c.username}
	if user, err := h.store.GetUser(c.playerID); err == nil && user != nil {
		p.Username = user.Username
		p.Points = user.Points
	} else if err != nil {
		log.Printf("[WS] Ranked join for %s without user record: %v", c.playerID, err)
	}

	if err := h.matchmaker.Join(p, true); err != nil {
		c.sendError("join-ranked", err.Error())
		return
	}
	c.sendEvent(game.EventJoinedRanked, nil)
}

func (h *Handler) handleRejoinRoom(c *Client, data json.RawMessage) {
	var payload RejoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(game.EventRejoinFailed, ErrorPayload{Scope: "rejoin-room", Message: "invalid payload"})
		return
	}

	snap, err := h.rooms.Rejoin(c.playerID, payload.RoomID)
	if err != nil {
		c.sendEvent(game.EventRejoinFailed, ErrorPayload{Scope: "rejoin-room", Message: err.Error()})
		return
	}
	c.sendEvent(game.EventRejoinedRoom, snap)
}

func (h *Handler) handleRoomAction(c *Client, data json.RawMessage, scope string, fn func(playerID, roomID, action string) error) {
	var payload RoomActionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError(scope, "invalid payload")
		return
	}
	if err := fn(c.playerID, payload.RoomID, payload.Action); err != nil {
		c.sendError(scope, err.Error())
	}
}

func (h *Handler) handleAskGamesInfo(c *Client, data json.RawMessage) {
	var payload RoomIDPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("ask-games-informations", "invalid payload")
		return
	}
	snap, err := h.rooms.Snapshot(c.playerID, payload.RoomID)
	if err != nil {
		c.sendError("ask-games-informations", err.Error())
		return
	}
	c.sendEvent(game.EventGamesInfo, snap)
}

func (h *Handler) handleChallenge(c *Client, data json.RawMessage) {
	var payload ChallengePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("challenge", "invalid payload")
		return
	}
	if err := h.challenges.Challenge(c.playerID, payload.OpponentID); err != nil {
		c.sendError("challenge", err.Error())
	}
}

func (h *Handler) handleChallengeAnswer(c *Client, data json.RawMessage) {
	var payload ChallengeAnswerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("challenge-answer", "invalid payload")
		return
	}
	if err := h.challenges.Answer(payload.ChallengerID, c.playerID, payload.Accept); err != nil {
		c.sendError("challenge-answer", err.Error())
	}
}

func (h *Handler) handleConfirmChallenge(c *Client, data json.RawMessage) {
	var payload ConfirmChallengePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("confirm-challenge", "invalid payload")
		return
	}
	username := payload.Username
	if username == "" {
		username = c.username
	}
	if err := h.challenges.Confirm(c.playerID, username); err != nil {
		c.sendError("confirm-challenge", err.Error())
	}
}

func (h *Handler) handleChallengeState(c *Client, data json.RawMessage) {
	var payload ChallengeStatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("challenge-state", "invalid payload")
		return
	}
	c.sendEvent(game.EventChallengeState, h.challenges.Status(c.playerID, payload.FriendID))
}
