package entity

// MoveToken is the ledger Mark object: the right to record one move.
// It is minted to a participant, staged to the joint address and consumed on apply.
type MoveToken struct {
	ID         ObjectID `json:"id"`
	GameID     ObjectID `json:"game_id"`
	Placement  *uint8   `json:"placement,omitempty"`
	DuringTurn bool     `json:"during_turn"`
	GameOwners Address  `json:"game_owners"`
	Owner      Address  `json:"owner"`
}

func (that *MoveToken) IsStaged() bool {
	return that.Placement != nil
}

func (that *MoveToken) BelongsTo(gameID ObjectID) bool {
	return that.GameID == gameID
}
