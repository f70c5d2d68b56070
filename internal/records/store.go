package records

import (
	"errors"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/playpong/backend/internal/models"
)

// Store reads user identities and writes game records. All writes are
// best-effort: a nil DB or a failed statement is logged and never propagated
// into the tick or broadcast path.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetUser looks up a user by id.
func (s *Store) GetUser(id string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("no database configured")
	}

	var u models.User
	if err := s.db.Get(&u, `SELECT id, username, points, created_at FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateGame inserts a provisional game record for a freshly formed pairing
// and returns its id. Returns 0 when no DB is configured or the insert fails.
func (s *Store) CreateGame(player1ID, player2ID string, ranked bool) int {
	if s == nil || s.db == nil {
		return 0
	}

	var id int
	err := s.db.QueryRowx(
		`INSERT INTO game_records (player1_id, player2_id, ranked, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id`,
		player1ID, player2ID, ranked).Scan(&id)
	if err != nil {
		log.Printf("[DB] Failed to create game record (%s vs %s): %v", player1ID, player2ID, err)
		return 0
	}
	return id
}

// FinalizeGame completes a game record with the final scores and winner.
// When recordID is 0 (pairing insert failed or the match was never persisted)
// a fresh completed row is written instead.
func (s *Store) FinalizeGame(recordID int, winnerID, player1ID, player2ID string, scoreLeft, scoreRight int, ranked bool) {
	if s == nil || s.db == nil {
		return
	}

	if recordID > 0 {
		_, err := s.db.Exec(
			`UPDATE game_records SET winner_id=$1, score_left=$2, score_right=$3, completed_at=NOW() WHERE id=$4`,
			winnerID, scoreLeft, scoreRight, recordID)
		if err != nil {
			log.Printf("[DB] Failed to finalize game record %d: %v", recordID, err)
		}
		return
	}

	_, err := s.db.Exec(
		`INSERT INTO game_records (player1_id, player2_id, winner_id, score_left, score_right, ranked, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		player1ID, player2ID, winnerID, scoreLeft, scoreRight, ranked)
	if err != nil {
		log.Printf("[DB] Failed to insert completed game record (%s vs %s): %v", player1ID, player2ID, err)
	}
}
