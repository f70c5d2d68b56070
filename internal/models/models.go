package models

import (
	"database/sql"
	"time"
)

// User represents a registered player (read-only from this service's
// perspective; user CRUD lives in the main application).
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Points    int       `db:"points" json:"points"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GameRecord represents a persisted match between two players.
type GameRecord struct {
	ID          int            `db:"id" json:"id"`
	Player1ID   string         `db:"player1_id" json:"player1_id"`
	Player2ID   string         `db:"player2_id" json:"player2_id"`
	WinnerID    sql.NullString `db:"winner_id" json:"winner_id,omitempty"`
	ScoreLeft   int            `db:"score_left" json:"score_left"`
	ScoreRight  int            `db:"score_right" json:"score_right"`
	Ranked      bool           `db:"ranked" json:"ranked"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}
