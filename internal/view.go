package application

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/tictactoe"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/usecase"
)

// boardRows lays the board out as three table rows. Empty cells show their placement index.
func boardRows(game *entity.Game) [][]string {
	rows := make([][]string, 0, 3)

	for row := range 3 {
		cells := make([]string, 0, 3)

		for col := range 3 {
			index := row*3 + col

			switch cell := game.Gameboard[index]; cell {
			case entity.CellEmpty:
				cells = append(cells, pterm.Gray(strconv.Itoa(index)))
			case entity.CellX:
				cells = append(cells, pterm.LightCyan(cell.String()))
			default:
				cells = append(cells, pterm.LightMagenta(cell.String()))
			}
		}

		rows = append(rows, cells)
	}

	return rows
}

// statusLine is the one-line summary of snapshot as seen by viewer.
func statusLine(snapshot entity.Snapshot, viewer entity.Address) string {
	game := snapshot.Game

	switch {
	case snapshot.State == entity.SyncDeleted:
		return "game deleted"
	case game == nil:
		return "no game state yet"
	case game.Finished == entity.OutcomeDraw:
		return "draw"
	case game.IsDecisive() && snapshot.Won && snapshot.Trophy != nil:
		return "you won, trophy " + snapshot.Trophy.ID.Short()
	case game.IsDecisive() && snapshot.Won:
		return "you won, trophy pending"
	case game.IsDecisive():
		return "you lost"
	case tictactoe.IsYourTurn(game, viewer):
		return "your turn"
	default:
		if opponent, ok := game.Opponent(viewer); ok {
			return "waiting for " + opponent.Short()
		}

		return "waiting for the opponent"
	}
}

func printMatch(match usecase.Match) {
	pterm.Info.Printfln("game %s, joint address %s, playing as %s", match.GameID, match.JointAddress(), match.PlayingAs)
}

func printSnapshot(snapshot entity.Snapshot, viewer entity.Address) error {
	pterm.DefaultSection.Printfln("game %s (%s)", snapshot.GameID.Short(), snapshot.State)

	if snapshot.Game != nil {
		board, err := pterm.DefaultTable.WithBoxed().WithData(boardRows(snapshot.Game)).Srender()
		if err != nil {
			return fmt.Errorf("failed to render board: %w", err)
		}

		pterm.Println(board)
		pterm.Printfln("turn %d", snapshot.Game.CurTurn)
	}

	pterm.Info.Println(statusLine(snapshot, viewer))

	return nil
}
