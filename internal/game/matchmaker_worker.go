package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/config"
)

// ErrAlreadyInQueue is returned when a player joins matchmaking twice.
var ErrAlreadyInQueue = errors.New("player already in matchmaking")

// MatchmakingState is the per-searching-player status pushed on the slow
// broadcast. It is ephemeral: recreated on each join, deleted on leave,
// pairing transfer or disconnect.
type MatchmakingState struct {
	Username         string `json:"username"`
	IsSearching      bool   `json:"isSearching"`
	IsRanked         bool   `json:"isRanked"`
	MatchFound       bool   `json:"matchFound"`
	OpponentID       string `json:"opponentUUID"`
	OpponentUsername string `json:"opponentUsername"`
}

// Matchmaker is the orchestrator around the queue: it registers searching
// players, runs the pairing sweep on a fixed interval, announces pairings,
// and hands each pair off to the room coordinator after the announcement
// delay.
type Matchmaker struct {
	mu     sync.Mutex
	online map[string]PlayerInfo
	states map[string]*MatchmakingState

	queue *Queue
	rooms *RoomManager
	hub   Notifier
	cfg   *config.Config
}

func NewMatchmaker(queue *Queue, rooms *RoomManager, hub Notifier, cfg *config.Config) *Matchmaker {
	return &Matchmaker{
		online: make(map[string]PlayerInfo),
		states: make(map[string]*MatchmakingState),
		queue:  queue,
		rooms:  rooms,
		hub:    hub,
		cfg:    cfg,
	}
}

// Join registers a player and adds them to the appropriate queue. A player
// already present in the online map (either queue) is rejected.
func (m *Matchmaker) Join(p PlayerInfo, ranked bool) error {
	m.mu.Lock()
	if _, exists := m.online[p.ID]; exists {
		m.mu.Unlock()
		return ErrAlreadyInQueue
	}
	m.online[p.ID] = p
	m.states[p.ID] = &MatchmakingState{
		Username:    p.Username,
		IsSearching: true,
		IsRanked:    ranked,
	}
	m.mu.Unlock()

	if ranked {
		m.queue.AddRanked(p)
	} else {
		m.queue.Add(p)
	}
	log.Printf("[MATCHMAKER] Player %s joined %s queue", p.ID, queueName(ranked))
	return nil
}

// Leave removes a player from the queues and deletes their matchmaking state.
// The client's leave variant may not match the queue the player actually sits
// in; both queues are purged so a mismatched leave cannot strand an entry.
func (m *Matchmaker) Leave(playerID string, ranked bool) {
	m.queue.Remove(playerID)
	m.queue.RemoveRanked(playerID)

	m.mu.Lock()
	delete(m.states, playerID)
	delete(m.online, playerID)
	m.mu.Unlock()

	log.Printf("[MATCHMAKER] Player %s left %s queue", playerID, queueName(ranked))
}

// HandleDisconnect purges a dropped player from both queues.
func (m *Matchmaker) HandleDisconnect(playerID string) {
	m.queue.Remove(playerID)
	m.queue.RemoveRanked(playerID)

	m.mu.Lock()
	delete(m.states, playerID)
	delete(m.online, playerID)
	m.mu.Unlock()
}

// State returns a copy of a player's current matchmaking state.
func (m *Matchmaker) State(playerID string) (MatchmakingState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[playerID]
	if !ok {
		return MatchmakingState{}, false
	}
	return *s, true
}

// IsSearching reports whether a player is currently registered.
func (m *Matchmaker) IsSearching(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.online[playerID]
	return ok
}

// Run starts the pairing sweep and the status broadcast. Both run for the
// lifetime of the process.
func (m *Matchmaker) Run(ctx context.Context) {
	sweep := time.NewTicker(time.Duration(m.cfg.MatchmakingSweepSeconds) * time.Second)
	status := time.NewTicker(time.Duration(m.cfg.StatusBroadcastMillis) * time.Millisecond)
	defer sweep.Stop()
	defer status.Stop()

	log.Printf("[MATCHMAKER] Worker started (sweep every %ds, status every %dms)",
		m.cfg.MatchmakingSweepSeconds, m.cfg.StatusBroadcastMillis)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[MATCHMAKER] Worker stopped")
			return
		case <-sweep.C:
			m.sweepQueues()
		case <-status.C:
			m.broadcastStates()
		}
	}
}

// sweepQueues drains every pairable match from both queues in one pass.
func (m *Matchmaker) sweepQueues() {
	for {
		p1, p2, ok := m.queue.Match()
		if !ok {
			break
		}
		m.announce(p1, p2, false, 0)
	}
	for {
		p1, p2, recordID, ok := m.queue.RankedMatch()
		if !ok {
			break
		}
		m.announce(p1, p2, true, recordID)
	}
}

// announce emits the match-found event to both players and schedules the
// transfer to the room coordinator after the announcement delay.
func (m *Matchmaker) announce(p1, p2 PlayerInfo, ranked bool, recordID int) {
	roomID := NewRoomID()

	m.mu.Lock()
	if s, ok := m.states[p1.ID]; ok {
		s.MatchFound = true
		s.OpponentID = p2.ID
		s.OpponentUsername = p2.Username
	}
	if s, ok := m.states[p2.ID]; ok {
		s.MatchFound = true
		s.OpponentID = p1.ID
		s.OpponentUsername = p1.Username
	}
	m.mu.Unlock()

	event := EventMatchFoundStandard
	if ranked {
		event = EventMatchFoundRanked
	}
	payload := MatchFoundPayload{Player1: p1, Player2: p2, RoomID: roomID}
	m.hub.SendToPlayer(p1.ID, event, payload)
	m.hub.SendToPlayer(p2.ID, event, payload)

	log.Printf("[MATCHMAKER] Match found: %s vs %s (ranked=%v, room=%s)", p1.ID, p2.ID, ranked, roomID)

	delay := time.Duration(m.cfg.AnnouncementDelaySecs) * time.Second
	time.AfterFunc(delay, func() { m.transfer(p1, p2, ranked, recordID, roomID) })
}

// transfer moves a pairing out of matchmaking and into the room coordinator.
// A player whose connection cannot be resolved at this point was lost
// mid-flow: log and skip the pairing, the match silently does not complete.
func (m *Matchmaker) transfer(p1, p2 PlayerInfo, ranked bool, recordID int, roomID string) {
	m.mu.Lock()
	delete(m.states, p1.ID)
	delete(m.states, p2.ID)
	delete(m.online, p1.ID)
	delete(m.online, p2.ID)
	m.mu.Unlock()

	if !m.hub.IsConnected(p1.ID) {
		log.Printf("[MATCHMAKER] Connection missing at transfer for %s; dropping pairing %s", p1.ID, roomID)
		return
	}
	if !m.hub.IsConnected(p2.ID) {
		log.Printf("[MATCHMAKER] Connection missing at transfer for %s; dropping pairing %s", p2.ID, roomID)
		return
	}

	m.rooms.CreateRoom(roomID, p1, p2, ranked, recordID)
}

// broadcastStates pushes each searching/matched player's state to their
// connection.
func (m *Matchmaker) broadcastStates() {
	m.mu.Lock()
	snapshot := make(map[string]MatchmakingState, len(m.states))
	for id, s := range m.states {
		snapshot[id] = *s
	}
	m.mu.Unlock()

	for id, s := range snapshot {
		m.hub.SendToPlayer(id, EventMatchmakingInfo, s)
	}
}

func queueName(ranked bool) string {
	if ranked {
		return "ranked"
	}
	return "casual"
}
