package game

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/config"
)

var (
	ErrNoSuchChallenge = errors.New("no matching challenge")
	ErrSelfChallenge   = errors.New("cannot challenge yourself")
)

// Challenge is a pending direct challenge with an expiry.
type Challenge struct {
	ChallengerID string
	OpponentID   string
	ExpiresAt    time.Time

	timer *time.Timer
}

// AcceptedChallenge tracks both sides between accept and dual confirmation.
type AcceptedChallenge struct {
	ChallengerID        string
	OpponentID          string
	ChallengerUsername  string
	OpponentUsername    string
	ChallengerConfirmed bool
	OpponentConfirmed   bool
}

// ChallengeStatus is the poll response a client uses to reconcile its UI
// after a reconnect.
type ChallengeStatus struct {
	Pending    bool   `json:"pending"`
	Accepted   bool   `json:"accepted"`
	Challenger string `json:"challengerId,omitempty"`
	Opponent   string `json:"opponentId,omitempty"`
}

// ChallengeManager runs the direct-challenge path around the queue: propose
// with TTL, accept or decline, dual ready confirmation, then hand-off to the
// room coordinator exactly like a matched pair (always non-ranked).
type ChallengeManager struct {
	mu       sync.Mutex
	pending  map[string]*Challenge         // keyed by challenger id
	accepted map[string]*AcceptedChallenge // keyed by challenger id

	rooms *RoomManager
	cfg   *config.Config
}

func NewChallengeManager(rooms *RoomManager, cfg *config.Config) *ChallengeManager {
	return &ChallengeManager{
		pending:  make(map[string]*Challenge),
		accepted: make(map[string]*AcceptedChallenge),
		rooms:    rooms,
		cfg:      cfg,
	}
}

// Challenge records a pending challenge with expiry. A challenger re-issuing
// replaces their previous pending challenge.
func (cm *ChallengeManager) Challenge(challengerID, opponentID string) error {
	if challengerID == opponentID {
		return ErrSelfChallenge
	}

	ttl := time.Duration(cm.cfg.ChallengeTTLSeconds) * time.Second

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if old, ok := cm.pending[challengerID]; ok {
		old.timer.Stop()
	}

	c := &Challenge{
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		ExpiresAt:    time.Now().Add(ttl),
	}
	c.timer = time.AfterFunc(ttl, func() { cm.expire(challengerID, opponentID) })
	cm.pending[challengerID] = c

	log.Printf("[CHALLENGE] %s challenged %s (expires in %s)", challengerID, opponentID, ttl)
	return nil
}

func (cm *ChallengeManager) expire(challengerID, opponentID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if c, ok := cm.pending[challengerID]; ok && c.OpponentID == opponentID {
		delete(cm.pending, challengerID)
		log.Printf("[CHALLENGE] Challenge %s -> %s expired unanswered", challengerID, opponentID)
	}
}

// Answer resolves a pending challenge: decline removes it, accept promotes it
// to an AcceptedChallenge awaiting both sides' confirmation. Only valid while
// the pending record still matches the given pair.
func (cm *ChallengeManager) Answer(challengerID, opponentID string, accept bool) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c, ok := cm.pending[challengerID]
	if !ok || c.OpponentID != opponentID {
		return ErrNoSuchChallenge
	}
	c.timer.Stop()
	delete(cm.pending, challengerID)

	if !accept {
		log.Printf("[CHALLENGE] %s declined challenge from %s", opponentID, challengerID)
		return nil
	}

	cm.accepted[challengerID] = &AcceptedChallenge{
		ChallengerID: challengerID,
		OpponentID:   opponentID,
	}
	log.Printf("[CHALLENGE] %s accepted challenge from %s", opponentID, challengerID)
	return nil
}

// Confirm marks the calling side ready. When both sides have confirmed the
// pair is handed off to the room coordinator as a standard (non-ranked)
// pairing and the record is deleted.
func (cm *ChallengeManager) Confirm(playerID, username string) error {
	cm.mu.Lock()

	var ac *AcceptedChallenge
	for _, cand := range cm.accepted {
		if cand.ChallengerID == playerID || cand.OpponentID == playerID {
			ac = cand
			break
		}
	}
	if ac == nil {
		cm.mu.Unlock()
		return ErrNoSuchChallenge
	}

	if ac.ChallengerID == playerID {
		ac.ChallengerConfirmed = true
		ac.ChallengerUsername = username
	} else {
		ac.OpponentConfirmed = true
		ac.OpponentUsername = username
	}

	if !ac.ChallengerConfirmed || !ac.OpponentConfirmed {
		cm.mu.Unlock()
		return nil
	}
	delete(cm.accepted, ac.ChallengerID)
	cm.mu.Unlock()

	p1 := PlayerInfo{ID: ac.ChallengerID, Username: ac.ChallengerUsername}
	p2 := PlayerInfo{ID: ac.OpponentID, Username: ac.OpponentUsername}
	log.Printf("[CHALLENGE] Both sides confirmed: %s vs %s", p1.ID, p2.ID)
	cm.rooms.CreateRoom(NewRoomID(), p1, p2, false, 0)
	return nil
}

// Status reports the pending/accepted state between two specific players, as
// seen from the asker's side.
func (cm *ChallengeManager) Status(askerID, friendID string) ChallengeStatus {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, c := range cm.pending {
		if matchesPair(c.ChallengerID, c.OpponentID, askerID, friendID) {
			return ChallengeStatus{Pending: true, Challenger: c.ChallengerID, Opponent: c.OpponentID}
		}
	}
	for _, ac := range cm.accepted {
		if matchesPair(ac.ChallengerID, ac.OpponentID, askerID, friendID) {
			return ChallengeStatus{Accepted: true, Challenger: ac.ChallengerID, Opponent: ac.OpponentID}
		}
	}
	return ChallengeStatus{}
}

// AcceptedStatus reports whether the player has an accepted challenge
// awaiting confirmation, with the counterpart's identity.
func (cm *ChallengeManager) AcceptedStatus(playerID string) ChallengeStatus {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, ac := range cm.accepted {
		if ac.ChallengerID == playerID || ac.OpponentID == playerID {
			return ChallengeStatus{Accepted: true, Challenger: ac.ChallengerID, Opponent: ac.OpponentID}
		}
	}
	return ChallengeStatus{}
}

// HandleDisconnect destroys any challenge involving the dropped player that
// has not reached dual confirmation yet.
func (cm *ChallengeManager) HandleDisconnect(playerID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for id, c := range cm.pending {
		if c.ChallengerID == playerID || c.OpponentID == playerID {
			c.timer.Stop()
			delete(cm.pending, id)
		}
	}
	for id, ac := range cm.accepted {
		if ac.ChallengerID == playerID || ac.OpponentID == playerID {
			delete(cm.accepted, id)
		}
	}
}

func matchesPair(a1, a2, b1, b2 string) bool {
	return (a1 == b1 && a2 == b2) || (a1 == b2 && a2 == b1)
}
