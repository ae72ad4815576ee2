package entity

import "time"

type SyncState string

const (
	SyncIdle     SyncState = "idle"
	SyncRunning  SyncState = "running"
	SyncFinished SyncState = "finished"
	SyncDeleted  SyncState = "deleted"
	SyncStopped  SyncState = "stopped"
)

// IsTerminal reports states after which the game is no longer polled.
func (that SyncState) IsTerminal() bool {
	return that == SyncFinished || that == SyncDeleted
}

// Snapshot is the locally cached view of one game.
type Snapshot struct {
	GameID        ObjectID  `json:"game_id"`
	State         SyncState `json:"state"`
	Game          *Game     `json:"game,omitempty"`
	Trophy        *Trophy   `json:"trophy,omitempty"`
	TrophyPending bool      `json:"trophy_pending"`
	Won           bool      `json:"won"`
	UpdatedAt     time.Time `json:"updated_at"`
}
