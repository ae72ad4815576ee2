package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
)

const (
	GameStruct   = "TicTacToe"
	MarkStruct   = "Mark"
	TrophyStruct = "TicTacToeTrophy"
)

var ErrMalformedContent = errors.New("malformed object content")

type ContentKind string

const (
	ContentGame   ContentKind = "game"
	ContentMark   ContentKind = "mark"
	ContentTrophy ContentKind = "trophy"
	ContentOther  ContentKind = "other"
)

// Content is the decoded payload of an object. The concrete types below are the only implementations.
type Content interface {
	Kind() ContentKind
}

type GameContent struct {
	Game entity.Game
}

type MarkContent struct {
	Token entity.MoveToken
}

type TrophyContent struct {
	Trophy entity.Trophy
}

// OtherContent is any object outside the game module.
type OtherContent struct {
	Type string
}

func (GameContent) Kind() ContentKind   { return ContentGame }
func (MarkContent) Kind() ContentKind   { return ContentMark }
func (TrophyContent) Kind() ContentKind { return ContentTrophy }
func (OtherContent) Kind() ContentKind  { return ContentOther }

// Catalog knows the fully qualified struct types of the game module.
type Catalog struct {
	pkg    entity.ObjectID
	module string
}

func NewCatalog(pkg entity.ObjectID, module string) Catalog {
	return Catalog{pkg: pkg, module: module}
}

func (that Catalog) Package() entity.ObjectID {
	return that.pkg
}

func (that Catalog) Module() string {
	return that.module
}

func (that Catalog) GameType() string {
	return that.structType(GameStruct)
}

func (that Catalog) MarkType() string {
	return that.structType(MarkStruct)
}

func (that Catalog) TrophyType() string {
	return that.structType(TrophyStruct)
}

func (that Catalog) structType(name string) string {
	return fmt.Sprintf("%s::%s::%s", that.pkg, that.module, name)
}

// Decode turns the move-object fields of structType into a Content variant.
// owner is the object's current owner, recorded on move tokens.
func (that Catalog) Decode(structType string, fields json.RawMessage, owner Owner) (Content, error) {
	switch NormalizeType(structType) {
	case that.GameType():
		game, err := decodeGame(fields)
		if err != nil {
			return nil, err
		}

		return GameContent{Game: game}, nil
	case that.MarkType():
		token, err := decodeMark(fields)
		if err != nil {
			return nil, err
		}

		token.Owner = owner.Address

		return MarkContent{Token: token}, nil
	case that.TrophyType():
		trophy, err := decodeTrophy(fields)
		if err != nil {
			return nil, err
		}

		return TrophyContent{Trophy: trophy}, nil
	default:
		return OtherContent{Type: structType}, nil
	}
}

// NormalizeType pads the address part of a struct type so it compares with Catalog types.
func NormalizeType(structType string) string {
	address, rest, found := strings.Cut(structType, "::")
	if !found {
		return structType
	}

	normalized, err := entity.ParseObjectID(address)
	if err != nil {
		return structType
	}

	return normalized.String() + "::" + rest
}

type uid struct {
	ID string `json:"id"`
}

// Number accepts both JSON numbers and decimal strings, as u64 values are rendered as strings.
type Number uint64

func (that *Number) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)

	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: number %s", ErrMalformedContent, data)
	}

	*that = Number(value)

	return nil
}

// optionU8 accepts null, a bare number or the {"vec": [n]} struct rendering.
type optionU8 struct {
	value *uint8
}

func (that *optionU8) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if bytes.HasPrefix(trimmed, []byte("{")) {
		var wrapped struct {
			Vec []Number `json:"vec"`
		}

		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return fmt.Errorf("%w: option %s", ErrMalformedContent, data)
		}

		if len(wrapped.Vec) == 0 {
			return nil
		}

		return that.set(wrapped.Vec[0])
	}

	var n Number
	if err := n.UnmarshalJSON(trimmed); err != nil {
		return err
	}

	return that.set(n)
}

func (that *optionU8) set(n Number) error {
	if n > 0xff {
		return fmt.Errorf("%w: %d overflows u8", ErrMalformedContent, n)
	}

	value := uint8(n)
	that.value = &value

	return nil
}

type gameFields struct {
	ID        uid      `json:"id"`
	Gameboard []Number `json:"gameboard"`
	CurTurn   Number   `json:"cur_turn"`
	Finished  Number   `json:"finished"`
	XAddr     string   `json:"x_addr"`
	OAddr     string   `json:"o_addr"`
}

func decodeGame(raw json.RawMessage) (entity.Game, error) {
	var fields gameFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entity.Game{}, fmt.Errorf("%w: game: %w", ErrMalformedContent, err)
	}

	if len(fields.Gameboard) != entity.BoardSize {
		return entity.Game{}, fmt.Errorf("%w: gameboard has %d cells", ErrMalformedContent, len(fields.Gameboard))
	}

	finished := entity.Outcome(fields.Finished) //nolint:gosec // checked below
	if Number(finished) != fields.Finished || !finished.Valid() {
		return entity.Game{}, fmt.Errorf("%w: finished %d", ErrMalformedContent, fields.Finished)
	}

	game := entity.Game{
		CurTurn:  uint64(fields.CurTurn),
		Finished: finished,
	}

	for i, cell := range fields.Gameboard {
		if cell > Number(entity.CellO) {
			return entity.Game{}, fmt.Errorf("%w: cell %d holds %d", ErrMalformedContent, i, cell)
		}

		game.Gameboard[i] = entity.Cell(cell)
	}

	var err error
	if game.ID, err = entity.ParseObjectID(fields.ID.ID); err != nil {
		return entity.Game{}, fmt.Errorf("%w: game id: %w", ErrMalformedContent, err)
	}

	if game.XAddr, err = entity.ParseAddress(fields.XAddr); err != nil {
		return entity.Game{}, fmt.Errorf("%w: x_addr: %w", ErrMalformedContent, err)
	}

	if game.OAddr, err = entity.ParseAddress(fields.OAddr); err != nil {
		return entity.Game{}, fmt.Errorf("%w: o_addr: %w", ErrMalformedContent, err)
	}

	return game, nil
}

type markFields struct {
	ID         uid      `json:"id"`
	Placement  optionU8 `json:"placement"`
	DuringTurn bool     `json:"during_turn"`
	GameOwners string   `json:"game_owners"`
	GameID     string   `json:"game_id"`
}

func decodeMark(raw json.RawMessage) (entity.MoveToken, error) {
	var fields markFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entity.MoveToken{}, fmt.Errorf("%w: mark: %w", ErrMalformedContent, err)
	}

	token := entity.MoveToken{
		Placement:  fields.Placement.value,
		DuringTurn: fields.DuringTurn,
	}

	var err error
	if token.ID, err = entity.ParseObjectID(fields.ID.ID); err != nil {
		return entity.MoveToken{}, fmt.Errorf("%w: mark id: %w", ErrMalformedContent, err)
	}

	if token.GameID, err = entity.ParseObjectID(fields.GameID); err != nil {
		return entity.MoveToken{}, fmt.Errorf("%w: mark game_id: %w", ErrMalformedContent, err)
	}

	if fields.GameOwners != "" {
		if token.GameOwners, err = entity.ParseAddress(fields.GameOwners); err != nil {
			return entity.MoveToken{}, fmt.Errorf("%w: mark game_owners: %w", ErrMalformedContent, err)
		}
	}

	return token, nil
}

type trophyFields struct {
	ID       uid    `json:"id"`
	Winner   string `json:"winner"`
	Loser    string `json:"loser"`
	PlayedAs Number `json:"played_as"`
	GameID   string `json:"game_id"`
}

func decodeTrophy(raw json.RawMessage) (entity.Trophy, error) {
	var fields trophyFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entity.Trophy{}, fmt.Errorf("%w: trophy: %w", ErrMalformedContent, err)
	}

	var trophy entity.Trophy

	switch fields.PlayedAs {
	case Number(entity.CellX):
		trophy.PlayedAs = entity.MarkerX
	case Number(entity.CellO):
		trophy.PlayedAs = entity.MarkerO
	default:
		return entity.Trophy{}, fmt.Errorf("%w: played_as %d", ErrMalformedContent, fields.PlayedAs)
	}

	var err error
	if trophy.ID, err = entity.ParseObjectID(fields.ID.ID); err != nil {
		return entity.Trophy{}, fmt.Errorf("%w: trophy id: %w", ErrMalformedContent, err)
	}

	if trophy.GameID, err = entity.ParseObjectID(fields.GameID); err != nil {
		return entity.Trophy{}, fmt.Errorf("%w: trophy game_id: %w", ErrMalformedContent, err)
	}

	if trophy.Winner, err = entity.ParseAddress(fields.Winner); err != nil {
		return entity.Trophy{}, fmt.Errorf("%w: trophy winner: %w", ErrMalformedContent, err)
	}

	if trophy.Loser, err = entity.ParseAddress(fields.Loser); err != nil {
		return entity.Trophy{}, fmt.Errorf("%w: trophy loser: %w", ErrMalformedContent, err)
	}

	return trophy, nil
}
