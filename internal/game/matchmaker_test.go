package game

import (
	"testing"
	"time"
)

func setupMatchmaker(t *testing.T) (*Matchmaker, *RoomManager, *stubHub) {
	t.Helper()
	hub := newStubHub()
	rm := NewRoomManager(hub, nil, nil, testConfig())
	mm := NewMatchmaker(NewQueue(nil), rm, hub, testConfig())
	return mm, rm, hub
}

func TestJoinRejectsDuplicate(t *testing.T) {
	mm, _, _ := setupMatchmaker(t)

	if err := mm.Join(testP1, false); err != nil {
		t.Fatalf("First join: %v", err)
	}
	if err := mm.Join(testP1, false); err != ErrAlreadyInQueue {
		t.Errorf("Duplicate join: err=%v, want ErrAlreadyInQueue", err)
	}
	// The same identity cannot sit in both queues either.
	if err := mm.Join(testP1, true); err != ErrAlreadyInQueue {
		t.Errorf("Cross-queue join: err=%v, want ErrAlreadyInQueue", err)
	}
}

func TestLeaveClearsState(t *testing.T) {
	mm, _, _ := setupMatchmaker(t)

	mm.Join(testP1, false)
	mm.Leave("p1", false)

	if mm.IsSearching("p1") {
		t.Error("Player still searching after leave")
	}
	if _, ok := mm.State("p1"); ok {
		t.Error("Matchmaking state survived leave")
	}
	if err := mm.Join(testP1, false); err != nil {
		t.Errorf("Rejoin after leave: %v", err)
	}
}

func TestSweepAnnouncesAndTransfersPairing(t *testing.T) {
	mm, rm, hub := setupMatchmaker(t)
	hub.setConnected("p1", true)
	hub.setConnected("p2", true)

	mm.Join(testP1, false)
	mm.Join(testP2, false)
	mm.sweepQueues()

	if hub.count(EventMatchFoundStandard, "p1") != 1 || hub.count(EventMatchFoundStandard, "p2") != 1 {
		t.Error("match-found not announced to both players")
	}

	// Zero announcement delay in the test config: the transfer fires almost
	// immediately after the announce.
	deadline := time.Now().Add(2 * time.Second)
	for rm.ActiveRooms() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rm.ActiveRooms() != 1 {
		t.Fatal("Pairing never transferred to a room")
	}

	if mm.IsSearching("p1") || mm.IsSearching("p2") {
		t.Error("Players still registered after transfer")
	}
}

func TestTransferDropsPairingWhenConnectionLost(t *testing.T) {
	mm, rm, hub := setupMatchmaker(t)
	hub.setConnected("p1", true)
	// p2 never connects.

	mm.Join(testP1, false)
	mm.Join(testP2, false)
	mm.sweepQueues()

	time.Sleep(100 * time.Millisecond)
	if rm.ActiveRooms() != 0 {
		t.Error("Room created despite a missing connection at transfer")
	}
	// Both identities are released so they can search again.
	if mm.IsSearching("p1") || mm.IsSearching("p2") {
		t.Error("Players still registered after dropped pairing")
	}
}

func TestRankedSweepUsesRankedQueue(t *testing.T) {
	mm, rm, hub := setupMatchmaker(t)
	hub.setConnected("p1", true)
	hub.setConnected("p2", true)

	mm.Join(PlayerInfo{ID: "p1", Username: "alice", Points: 40}, true)
	mm.Join(PlayerInfo{ID: "p2", Username: "bob", Points: 55}, true)
	mm.sweepQueues()

	if hub.count(EventMatchFoundRanked, "p1") != 1 {
		t.Error("Ranked pairing did not announce match-found-ranked")
	}
	if hub.count(EventMatchFoundStandard, "p1") != 0 {
		t.Error("Ranked pairing announced the standard event")
	}

	deadline := time.Now().Add(2 * time.Second)
	for rm.ActiveRooms() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rm.ActiveRooms() != 1 {
		t.Fatal("Ranked pairing never transferred to a room")
	}
}

func TestStateReflectsAnnouncedOpponent(t *testing.T) {
	hub := newStubHub()
	rm := NewRoomManager(hub, nil, nil, testConfig())
	cfg := testConfig()
	cfg.AnnouncementDelaySecs = 60 // keep the pairing in the announced phase
	mm := NewMatchmaker(NewQueue(nil), rm, hub, cfg)
	hub.setConnected("p1", true)
	hub.setConnected("p2", true)

	mm.Join(testP1, false)

	s, ok := mm.State("p1")
	if !ok || !s.IsSearching || s.MatchFound {
		t.Fatalf("State after join = %+v", s)
	}

	mm.Join(testP2, false)
	mm.sweepQueues()

	s, ok = mm.State("p1")
	if !ok || !s.MatchFound || s.OpponentID != "p2" || s.OpponentUsername != "bob" {
		t.Errorf("State after pairing = %+v", s)
	}
}

func TestLeaveMismatchedVariantPurgesQueues(t *testing.T) {
	mm, _, _ := setupMatchmaker(t)

	mm.Join(testP1, true)
	mm.Leave("p1", false) // wrong variant: player sits in the ranked queue

	if mm.queue.RankedSize() != 0 {
		t.Errorf("Ranked queue size = %d after mismatched leave, want 0", mm.queue.RankedSize())
	}
	if mm.IsSearching("p1") {
		t.Error("Player still registered after mismatched leave")
	}

	// A re-join must not leave the player pairable in two queues at once.
	if err := mm.Join(testP1, false); err != nil {
		t.Fatalf("Rejoin after mismatched leave: %v", err)
	}
	if mm.queue.Size() != 1 || mm.queue.RankedSize() != 0 {
		t.Errorf("Queue sizes after rejoin = casual %d / ranked %d, want 1/0",
			mm.queue.Size(), mm.queue.RankedSize())
	}
}

func TestMatchmakerDisconnectPurgesBothQueues(t *testing.T) {
	mm, _, _ := setupMatchmaker(t)

	mm.Join(testP1, false)
	mm.HandleDisconnect("p1")

	if mm.IsSearching("p1") {
		t.Error("Player still registered after disconnect")
	}
	if mm.queue.Size() != 0 {
		t.Errorf("Casual queue size = %d after disconnect", mm.queue.Size())
	}
}
