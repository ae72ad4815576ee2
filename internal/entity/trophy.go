package entity

// Trophy is minted by the ledger to the winner of a decisive game.
type Trophy struct {
	ID       ObjectID `json:"id"`
	Winner   Address  `json:"winner"`
	Loser    Address  `json:"loser"`
	PlayedAs Marker   `json:"played_as"`
	GameID   ObjectID `json:"game_id"`
}
