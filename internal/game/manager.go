package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

var (
	ErrUnknownRoom   = errors.New("room not found")
	ErrNotInRoom     = errors.New("player is not a member of this room")
	ErrInvalidAction = errors.New("invalid action")
)

// Room owns one match: the engine/loop pair, the broadcast timer handle and
// the membership bookkeeping around it.
type Room struct {
	ID        string
	Player1   PlayerInfo
	Player2   PlayerInfo
	Ranked    bool
	RecordID  int
	Loop      *Loop
	CreatedAt time.Time

	mu               sync.Mutex
	countdownStarted bool
	ended            bool
	broadcastStop    chan struct{}
}

// RoomManager is the room coordinator: it creates rooms for paired players,
// routes player intents into the right engine, broadcasts authoritative state
// at the tick rate, and performs match-end bookkeeping and delayed teardown.
type RoomManager struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	playerToRoom map[string]string

	hub   RoomHub
	store GameRecorder
	rdb   *redis.Client
	cfg   *config.Config
}

func NewRoomManager(hub RoomHub, store GameRecorder, rdb *redis.Client, cfg *config.Config) *RoomManager {
	return &RoomManager{
		rooms:        make(map[string]*Room),
		playerToRoom: make(map[string]string),
		hub:          hub,
		store:        store,
		rdb:          rdb,
		cfg:          cfg,
	}
}

// NewRoomID generates a fresh room identity.
func NewRoomID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "room_" + hex.EncodeToString(bytes)
}

// CreateRoom wires a paired match: joins both connections to the room,
// initializes the engine and loop, announces the pairing, and starts the
// fixed-rate state broadcast.
func (rm *RoomManager) CreateRoom(roomID string, player1, player2 PlayerInfo, ranked bool, recordID int) *Room {
	engine := NewEngine(player1, player2, rm.cfg.WinScore, nil)
	room := &Room{
		ID:            roomID,
		Player1:       player1,
		Player2:       player2,
		Ranked:        ranked,
		RecordID:      recordID,
		Loop:          NewLoop(engine, rm.cfg.TickRateHz),
		CreatedAt:     time.Now(),
		broadcastStop: make(chan struct{}),
	}

	rm.mu.Lock()
	rm.rooms[roomID] = room
	rm.playerToRoom[player1.ID] = roomID
	rm.playerToRoom[player2.ID] = roomID
	rm.mu.Unlock()

	rm.hub.JoinRoom(roomID, player1.ID)
	rm.hub.JoinRoom(roomID, player2.ID)

	event := EventMatchFoundStandard
	if ranked {
		event = EventMatchFoundRanked
	}
	payload := MatchFoundPayload{Player1: player1, Player2: player2, RoomID: roomID}
	rm.hub.BroadcastToRoom(roomID, event, payload)
	rm.publishEvent(map[string]interface{}{
		"type":    "match_found",
		"room_id": roomID,
		"ranked":  ranked,
		"player1": player1.ID,
		"player2": player2.ID,
	})

	log.Printf("[ROOM] Room created: %s (%s vs %s, ranked=%v)", roomID, player1.ID, player2.ID, ranked)

	go rm.runBroadcast(room)
	return room
}

// runBroadcast pushes the full state snapshot to the room at the tick rate
// and watches the loop for the terminal result. Broadcasts read whatever
// state is currently present; there is no ordering guarantee against the
// physics tick, which is fine for a display-only channel.
func (rm *RoomManager) runBroadcast(room *Room) {
	interval := time.Second / time.Duration(rm.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-room.broadcastStop:
			return
		case res := <-room.Loop.Results():
			rm.endMatch(room, res)
		case <-ticker.C:
			rm.hub.BroadcastToRoom(room.ID, EventGamesInfo, room.Loop.Engine().Snapshot())
		}
	}
}

// roomFor resolves an intent's target room and checks the sender belongs to it.
func (rm *RoomManager) roomFor(playerID, roomID string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, ErrUnknownRoom
	}
	if rm.playerToRoom[playerID] != roomID {
		return nil, ErrNotInRoom
	}
	return room, nil
}

// HandleRacket applies a racket move action (racket1-up, racket1-down,
// racket2-up, racket2-down).
func (rm *RoomManager) HandleRacket(playerID, roomID, action string) error {
	room, err := rm.roomFor(playerID, roomID)
	if err != nil {
		return err
	}

	var side Side
	var dir Direction
	switch action {
	case "racket1-up":
		side, dir = SideLeft, DirUp
	case "racket1-down":
		side, dir = SideLeft, DirDown
	case "racket2-up":
		side, dir = SideRight, DirUp
	case "racket2-down":
		side, dir = SideRight, DirDown
	default:
		return fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	room.Loop.Engine().MoveRacket(side, dir)
	return nil
}

func sideFromAction(action string) (Side, error) {
	switch action {
	case "player1":
		return SideLeft, nil
	case "player2":
		return SideRight, nil
	}
	return SideNone, fmt.Errorf("%w: %s", ErrInvalidAction, action)
}

// HandleReady marks a side ready. The moment both sides are ready the launch
// countdown starts; at its end the physics loop begins.
func (rm *RoomManager) HandleReady(playerID, roomID, action string) error {
	room, err := rm.roomFor(playerID, roomID)
	if err != nil {
		return err
	}
	side, err := sideFromAction(action)
	if err != nil {
		return err
	}

	engine := room.Loop.Engine()
	engine.SetReady(side, true)
	if !engine.BothReady() {
		return nil
	}

	room.mu.Lock()
	alreadyStarted := room.countdownStarted
	room.countdownStarted = true
	room.mu.Unlock()
	if alreadyStarted {
		return nil
	}

	go rm.runCountdown(room)
	return nil
}

// runCountdown broadcasts the pre-launch countdown once per second, then the
// -1 launch trigger, and starts the physics loop.
func (rm *RoomManager) runCountdown(room *Room) {
	for i := rm.cfg.CountdownSeconds; i >= 0; i-- {
		rm.hub.BroadcastToRoom(room.ID, EventTimerBeforeLaunch, i)
		time.Sleep(time.Second)
	}
	rm.hub.BroadcastToRoom(room.ID, EventTimerBeforeLaunch, -1)

	// A quit during the countdown window ends the match before launch; do not
	// start a physics loop that would only no-op until teardown.
	room.mu.Lock()
	ended := room.ended
	room.mu.Unlock()
	if ended || room.Loop.Engine().Result() != nil {
		log.Printf("[ROOM] Skipping loop start for room %s (match ended during countdown)", room.ID)
		return
	}

	if !room.Loop.Start() {
		log.Printf("[ROOM] Loop refused to start for room %s (players no longer ready)", room.ID)
	}
}

// HandleBaseGame flips the want-base-game toggle for the named side.
func (rm *RoomManager) HandleBaseGame(playerID, roomID, action string) error {
	room, err := rm.roomFor(playerID, roomID)
	if err != nil {
		return err
	}
	side, err := sideFromAction(action)
	if err != nil {
		return err
	}
	room.Loop.Engine().ToggleBaseGame(side)
	return nil
}

// HandleSmallRacket flips the small-racket toggle for the named side.
func (rm *RoomManager) HandleSmallRacket(playerID, roomID, action string) error {
	room, err := rm.roomFor(playerID, roomID)
	if err != nil {
		return err
	}
	side, err := sideFromAction(action)
	if err != nil {
		return err
	}
	room.Loop.Engine().ToggleSmallRacket(side)
	return nil
}

// HandleObstacle flips the obstacle toggle for the named side.
func (rm *RoomManager) HandleObstacle(playerID, roomID, action string) error {
	room, err := rm.roomFor(playerID, roomID)
	if err != nil {
		return err
	}
	side, err := sideFromAction(action)
	if err != nil {
		return err
	}
	room.Loop.Engine().ToggleObstacle(side)
	return nil
}

// Snapshot returns the current state of a room for an on-demand query.
func (rm *RoomManager) Snapshot(playerID, roomID string) (Snapshot, error) {
	room, err := rm.roomFor(playerID, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return room.Loop.Engine().Snapshot(), nil
}

// Quit forfeits the sender's live match; the opponent wins.
func (rm *RoomManager) Quit(playerID string) error {
	rm.mu.RLock()
	roomID, ok := rm.playerToRoom[playerID]
	room := rm.rooms[roomID]
	rm.mu.RUnlock()
	if !ok || room == nil {
		return ErrUnknownRoom
	}

	res, err := room.Loop.Engine().Forfeit(playerID)
	if err != nil {
		return err
	}
	if res != nil {
		rm.endMatch(room, res)
	}
	return nil
}

// Rejoin re-attaches a reconnected player to their room and returns the
// current snapshot.
func (rm *RoomManager) Rejoin(playerID, roomID string) (Snapshot, error) {
	rm.mu.Lock()
	room, ok := rm.rooms[roomID]
	if !ok {
		rm.mu.Unlock()
		return Snapshot{}, ErrUnknownRoom
	}
	if room.Player1.ID != playerID && room.Player2.ID != playerID {
		rm.mu.Unlock()
		return Snapshot{}, ErrNotInRoom
	}
	rm.playerToRoom[playerID] = roomID
	rm.mu.Unlock()

	rm.hub.JoinRoom(roomID, playerID)
	return room.Loop.Engine().Snapshot(), nil
}

// RoomOf returns the room a player currently belongs to, if any.
func (rm *RoomManager) RoomOf(playerID string) (string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	roomID, ok := rm.playerToRoom[playerID]
	return roomID, ok
}

// ActiveRooms returns the number of live rooms.
func (rm *RoomManager) ActiveRooms() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// HandleDisconnect purges a dropped connection from its room and notifies the
// remaining member. A bare disconnect does NOT forfeit the match; only an
// explicit quit does.
func (rm *RoomManager) HandleDisconnect(playerID string) {
	rm.mu.Lock()
	roomID, ok := rm.playerToRoom[playerID]
	if !ok {
		rm.mu.Unlock()
		return
	}
	delete(rm.playerToRoom, playerID)
	rm.mu.Unlock()

	rm.hub.LeaveRoom(roomID, playerID)
	rm.hub.BroadcastToRoom(roomID, EventPlayerDisconnected, playerID)
	log.Printf("[ROOM] Player %s disconnected from room %s", playerID, roomID)
}

// endMatch finalizes a terminal room exactly once: result broadcast, loop
// stop, ranked record write, final snapshot, membership purge, and delayed
// teardown so late-arriving clients can still fetch final state.
func (rm *RoomManager) endMatch(room *Room, res *Result) {
	room.mu.Lock()
	if room.ended {
		room.mu.Unlock()
		return
	}
	room.ended = true
	room.mu.Unlock()

	room.Loop.Stop()
	engine := room.Loop.Engine()

	winner := room.Player1
	if res.Winner == SideRight {
		winner = room.Player2
	}
	rm.hub.BroadcastToRoom(room.ID, EventMatchEnded, MatchEndedPayload{
		Winner:   winner.Username,
		WinnerID: winner.ID,
		Reason:   res.Reason,
	})

	scoreLeft, scoreRight := engine.Scores()
	if room.Ranked && rm.store != nil {
		// Best-effort write off the broadcast path.
		go rm.store.FinalizeGame(room.RecordID, winner.ID, room.Player1.ID, room.Player2.ID, scoreLeft, scoreRight, true)
	}

	// One final authoritative snapshot before members are detached.
	rm.hub.BroadcastToRoom(room.ID, EventGamesInfo, engine.Snapshot())

	rm.mu.Lock()
	if rm.playerToRoom[room.Player1.ID] == room.ID {
		delete(rm.playerToRoom, room.Player1.ID)
	}
	if rm.playerToRoom[room.Player2.ID] == room.ID {
		delete(rm.playerToRoom, room.Player2.ID)
	}
	rm.mu.Unlock()
	rm.hub.LeaveRoom(room.ID, room.Player1.ID)
	rm.hub.LeaveRoom(room.ID, room.Player2.ID)

	rm.publishEvent(map[string]interface{}{
		"type":        "match_ended",
		"room_id":     room.ID,
		"winner":      winner.ID,
		"reason":      string(res.Reason),
		"score_left":  scoreLeft,
		"score_right": scoreRight,
	})

	log.Printf("[ROOM] Match ended in room %s: winner=%s reason=%s score=%d-%d",
		room.ID, winner.ID, res.Reason, scoreLeft, scoreRight)

	grace := time.Duration(rm.cfg.TeardownGraceSeconds) * time.Second
	time.AfterFunc(grace, func() { rm.teardown(room) })
}

func (rm *RoomManager) teardown(room *Room) {
	room.mu.Lock()
	select {
	case <-room.broadcastStop:
	default:
		close(room.broadcastStop)
	}
	room.mu.Unlock()

	room.Loop.Stop()

	rm.mu.Lock()
	delete(rm.rooms, room.ID)
	if rm.playerToRoom[room.Player1.ID] == room.ID {
		delete(rm.playerToRoom, room.Player1.ID)
	}
	if rm.playerToRoom[room.Player2.ID] == room.ID {
		delete(rm.playerToRoom, room.Player2.ID)
	}
	rm.mu.Unlock()

	log.Printf("[ROOM] Room %s torn down", room.ID)
}

// StartRoomSweeper runs a background job that reclaims rooms whose players
// abandoned them without quitting (both sides disconnected, no terminal
// result). Without it a dropped pair would leak its timers forever.
func (rm *RoomManager) StartRoomSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[SWEEP] Room sweeper stopping")
				return
			case <-ticker.C:
				rm.sweepStaleRooms()
			}
		}
	}()
}

func (rm *RoomManager) sweepStaleRooms() {
	maxAge := time.Duration(rm.cfg.StaleRoomMaxAgeMinutes) * time.Minute
	cutoff := time.Now().Add(-maxAge)

	rm.mu.RLock()
	var stale []*Room
	for _, room := range rm.rooms {
		if room.CreatedAt.After(cutoff) {
			continue
		}
		if rm.hub.IsConnected(room.Player1.ID) || rm.hub.IsConnected(room.Player2.ID) {
			continue
		}
		stale = append(stale, room)
	}
	rm.mu.RUnlock()

	for _, room := range stale {
		log.Printf("[SWEEP] Reclaiming abandoned room %s (created %s)", room.ID, room.CreatedAt.Format(time.RFC3339))
		rm.teardown(room)
	}
}

// publishEvent pushes a match event onto the Redis match_events channel for
// external observers. Best-effort; a missing client or failed publish is
// logged and ignored.
func (rm *RoomManager) publishEvent(payload map[string]interface{}) {
	if rm.rdb == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[ROOM] Failed to marshal match event: %v", err)
		return
	}
	if err := rm.rdb.Publish(context.Background(), "match_events", b).Err(); err != nil {
		log.Printf("[ROOM] Publish match event failed: %v", err)
	}
}
