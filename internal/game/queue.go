package game

import (
	"sort"
	"sync"
	"time"
)

// GameRecorder persists pairing and result records. *records.Store is the
// production implementation; a nil recorder disables persistence.
type GameRecorder interface {
	CreateGame(player1ID, player2ID string, ranked bool) int
	FinalizeGame(recordID int, winnerID, player1ID, player2ID string, scoreLeft, scoreRight int, ranked bool)
}

// QueueEntry represents a player waiting in the matchmaking queue.
type QueueEntry struct {
	Player   PlayerInfo
	JoinedAt time.Time
}

// Queue holds the two waiting lists: casual (paired FIFO) and ranked (paired
// by nearest points under the adjacent-in-sorted-order heuristic). Ranked
// pairing eagerly provisions a persisted game record.
type Queue struct {
	mu     sync.Mutex
	casual []QueueEntry
	ranked []QueueEntry

	store GameRecorder
}

func NewQueue(store GameRecorder) *Queue {
	return &Queue{store: store}
}

// Add appends a player to the casual queue. Returns false on a duplicate
// identity (callers also pre-check through the orchestrator's online map).
func (q *Queue) Add(p PlayerInfo) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if containsPlayer(q.casual, p.ID) {
		return false
	}
	q.casual = append(q.casual, QueueEntry{Player: p, JoinedAt: time.Now()})
	return true
}

// AddRanked appends a player to the ranked queue.
func (q *Queue) AddRanked(p PlayerInfo) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if containsPlayer(q.ranked, p.ID) {
		return false
	}
	q.ranked = append(q.ranked, QueueEntry{Player: p, JoinedAt: time.Now()})
	return true
}

// Remove filters a player out of the casual queue; no-op when absent.
func (q *Queue) Remove(playerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.casual = removePlayer(q.casual, playerID)
}

// RemoveRanked filters a player out of the ranked queue; no-op when absent.
func (q *Queue) RemoveRanked(playerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ranked = removePlayer(q.ranked, playerID)
}

// Match pops the two earliest casual entries, if at least two are waiting.
func (q *Queue) Match() (PlayerInfo, PlayerInfo, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.casual) < 2 {
		return PlayerInfo{}, PlayerInfo{}, false
	}
	p1 := q.casual[0].Player
	p2 := q.casual[1].Player
	q.casual = q.casual[2:]
	return p1, p2, true
}

// RankedMatch sorts the ranked queue ascending by points and pops the two
// lowest entries. This is adjacent-in-sorted-order pairing, not true global
// nearest-pair matching. A persisted game record is created as a side effect
// and its id returned (0 when persistence is unavailable).
func (q *Queue) RankedMatch() (PlayerInfo, PlayerInfo, int, bool) {
	q.mu.Lock()

	if len(q.ranked) < 2 {
		q.mu.Unlock()
		return PlayerInfo{}, PlayerInfo{}, 0, false
	}

	sort.SliceStable(q.ranked, func(i, j int) bool {
		return q.ranked[i].Player.Points < q.ranked[j].Player.Points
	})
	p1 := q.ranked[0].Player
	p2 := q.ranked[1].Player
	q.ranked = q.ranked[2:]
	q.mu.Unlock()

	recordID := 0
	if q.store != nil {
		recordID = q.store.CreateGame(p1.ID, p2.ID, true)
	}
	return p1, p2, recordID, true
}

// Size returns the casual queue length.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.casual)
}

// RankedSize returns the ranked queue length.
func (q *Queue) RankedSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ranked)
}

func containsPlayer(entries []QueueEntry, playerID string) bool {
	for _, e := range entries {
		if e.Player.ID == playerID {
			return true
		}
	}
	return false
}

func removePlayer(entries []QueueEntry, playerID string) []QueueEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Player.ID != playerID {
			out = append(out, e)
		}
	}
	return out
}
