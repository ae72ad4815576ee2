package entity

import (
	"fmt"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
)

// BoardSize is the number of cells on the game board.
const BoardSize = 9

type Marker string

const (
	MarkerX Marker = "X"
	MarkerO Marker = "O"
)

// Cell is the on-ledger value of a board cell.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellX
	CellO
)

func (that Cell) String() string {
	switch that {
	case CellX:
		return string(MarkerX)
	case CellO:
		return string(MarkerO)
	default:
		return " "
	}
}

// Outcome mirrors the ledger's finished field.
type Outcome uint8

const (
	OutcomeInProgress Outcome = iota
	OutcomeXWins
	OutcomeOWins
	OutcomeDraw
)

func (that Outcome) String() string {
	switch that {
	case OutcomeInProgress:
		return "in progress"
	case OutcomeXWins:
		return "X wins"
	case OutcomeOWins:
		return "O wins"
	case OutcomeDraw:
		return "draw"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(that))
	}
}

// Valid reports whether the outcome is one the ledger can produce.
func (that Outcome) Valid() bool {
	return that <= OutcomeDraw
}

// Game is a snapshot of the shared TicTacToe object.
type Game struct {
	ID        ObjectID        `json:"id"`
	Gameboard [BoardSize]Cell `json:"gameboard"`
	CurTurn   uint64          `json:"cur_turn"`
	Finished  Outcome         `json:"finished"`
	XAddr     Address         `json:"x_addr"`
	OAddr     Address         `json:"o_addr"`
}

func (that *Game) IsFinished() bool {
	return that.Finished != OutcomeInProgress
}

func (that *Game) IsOngoing() bool {
	return that.Finished == OutcomeInProgress
}

// IsDecisive reports a finished game that has a winner.
func (that *Game) IsDecisive() bool {
	return that.Finished == OutcomeXWins || that.Finished == OutcomeOWins
}

func (that *Game) ConfirmOngoingState() error {
	if that.IsFinished() {
		return fmt.Errorf("%w: %s", apperror.ErrGameFinished, that.Finished)
	}

	return nil
}

// Winner returns the winner's address of a decisive game.
func (that *Game) Winner() (Address, bool) {
	switch that.Finished {
	case OutcomeXWins:
		return that.XAddr, true
	case OutcomeOWins:
		return that.OAddr, true
	default:
		return "", false
	}
}

func (that *Game) IsCellEmpty(index int) bool {
	if index < 0 || index >= BoardSize {
		return false
	}

	return that.Gameboard[index] == CellEmpty
}

// MarkerOf returns the marker played by address, if it is a participant.
func (that *Game) MarkerOf(address Address) (Marker, bool) {
	switch address {
	case "":
		return "", false
	case that.XAddr:
		return MarkerX, true
	case that.OAddr:
		return MarkerO, true
	default:
		return "", false
	}
}

// Opponent returns the other participant's address.
func (that *Game) Opponent(address Address) (Address, bool) {
	switch address {
	case that.XAddr:
		return that.OAddr, true
	case that.OAddr:
		return that.XAddr, true
	default:
		return "", false
	}
}
