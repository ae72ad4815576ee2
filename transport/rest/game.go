package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/ledger"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/usecase"
)

type gameSession interface {
	Match() usecase.Match
	Snapshot() entity.Snapshot
	Refresh(ctx context.Context) (entity.Snapshot, error)
	PlaceMark(ctx context.Context, placement int) (*usecase.MoveResult, error)
	DeleteGame(ctx context.Context) (*ledger.ExecutionResult, error)
}

type GameHandler interface {
	GetGame(ctx echo.Context) error
	RefreshGame(ctx echo.Context) error
	PlaceMark(ctx echo.Context) error
	DeleteGame(ctx echo.Context) error
}

type gameHandler struct {
	logger  *slog.Logger
	session gameSession
}

func NewGameHandler(logger *slog.Logger, session gameSession) GameHandler {
	return &gameHandler{
		logger:  logger,
		session: session,
	}
}

type matchView struct {
	GameID       entity.ObjectID `json:"game_id"`
	JointAddress entity.Address  `json:"joint_address"`
	PlayingAs    entity.Marker   `json:"playing_as"`
}

type gameResponse struct {
	Match    matchView       `json:"match"`
	Snapshot entity.Snapshot `json:"snapshot"`
}

type placeMarkRequest struct {
	Placement *int `json:"placement"`
}

type placeMarkResponse struct {
	Move     *usecase.MoveResult `json:"move"`
	Snapshot entity.Snapshot     `json:"snapshot"`
}

type deleteGameResponse struct {
	Digest   string          `json:"digest"`
	Snapshot entity.Snapshot `json:"snapshot"`
}

type errorResponse struct {
	Kind  apperror.Kind `json:"kind"`
	Error string        `json:"error"`
}

func (that *gameHandler) GetGame(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, that.view(that.session.Snapshot()))
}

func (that *gameHandler) RefreshGame(ctx echo.Context) error {
	snapshot, err := that.session.Refresh(ctx.Request().Context())
	if err != nil {
		return that.fail(ctx, "RefreshGame", err)
	}

	return ctx.JSON(http.StatusOK, that.view(snapshot))
}

func (that *gameHandler) PlaceMark(ctx echo.Context) error {
	var request placeMarkRequest
	if err := ctx.Bind(&request); err != nil {
		return that.fail(ctx, "PlaceMark", errors.Join(apperror.ErrInvalidPlacement, err))
	}

	if request.Placement == nil {
		return that.fail(ctx, "PlaceMark", apperror.ErrInvalidPlacement)
	}

	move, err := that.session.PlaceMark(ctx.Request().Context(), *request.Placement)
	if err != nil {
		return that.fail(ctx, "PlaceMark", err)
	}

	return ctx.JSON(http.StatusOK, placeMarkResponse{Move: move, Snapshot: that.session.Snapshot()})
}

func (that *gameHandler) DeleteGame(ctx echo.Context) error {
	result, err := that.session.DeleteGame(ctx.Request().Context())
	if err != nil {
		return that.fail(ctx, "DeleteGame", err)
	}

	return ctx.JSON(http.StatusOK, deleteGameResponse{Digest: result.Digest, Snapshot: that.session.Snapshot()})
}

func (that *gameHandler) view(snapshot entity.Snapshot) gameResponse {
	match := that.session.Match()

	return gameResponse{
		Match: matchView{
			GameID:       match.GameID,
			JointAddress: match.JointAddress(),
			PlayingAs:    match.PlayingAs,
		},
		Snapshot: snapshot,
	}
}

func (that *gameHandler) fail(ctx echo.Context, method string, err error) error {
	kind := apperror.KindOf(err)
	status := statusOf(kind)

	log := that.logger.With("method", method)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "kind", kind, "error", err)
	} else {
		log.Info("request refused", "kind", kind, "error", err)
	}

	return ctx.JSON(status, errorResponse{Kind: kind, Error: err.Error()})
}

func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindInvalidKey, apperror.KindInvalidPlacement:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindState, apperror.KindValidationRejected:
		return http.StatusConflict
	case apperror.KindNetwork, apperror.KindStageFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
