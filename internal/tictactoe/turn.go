package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
)

const side = 3

// IsYourTurn is the single source of truth for turn ownership.
// X moves on even turns, O on odd ones. Finished or absent games belong to nobody.
func IsYourTurn(game *entity.Game, address entity.Address) bool {
	if game == nil || address == "" || game.IsFinished() {
		return false
	}

	return (address == game.XAddr) == (game.CurTurn%2 == 0)
}

// ActiveMarker returns the marker expected to move next.
func ActiveMarker(game *entity.Game) (entity.Marker, bool) {
	if game == nil || game.IsFinished() {
		return "", false
	}

	if game.CurTurn%2 == 0 {
		return entity.MarkerX, true
	}

	return entity.MarkerO, true
}

// PlayingAs returns the marker address plays in game.
func PlayingAs(game *entity.Game, address entity.Address) (entity.Marker, bool) {
	if game == nil {
		return "", false
	}

	return game.MarkerOf(address)
}

// PlacementToCoordinates maps a board index to the (row, col) pair the ledger expects.
// The mapping is column-major: row = index % 3, col = index / 3.
func PlacementToCoordinates(index int) (uint8, uint8, error) {
	if index < 0 || index >= entity.BoardSize {
		return 0, 0, fmt.Errorf("%w: %d", apperror.ErrOutOfRange, index)
	}

	return uint8(index % side), uint8(index / side), nil //nolint:gosec // bounded above
}

// CoordinatesToPlacement is the inverse of PlacementToCoordinates.
func CoordinatesToPlacement(row, col int) (int, error) {
	if row < 0 || row >= side || col < 0 || col >= side {
		return 0, fmt.Errorf("%w: row %d col %d", apperror.ErrOutOfRange, row, col)
	}

	return col*side + row, nil
}
