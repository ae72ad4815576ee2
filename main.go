package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v3"

	app "github.com/rocketscienceinc/multisig-tictactoe/internal"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/config"
	"github.com/rocketscienceinc/multisig-tictactoe/internal/tictactoe"
)

// main - is the entry point of the application. It parses the command line and runs the chosen command.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		pterm.Error.Printfln("%s: %v", apperror.KindOf(err), err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already ran
	}
}

func newCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:  "tictactoe",
		Usage: "play tic-tac-toe against one opponent through a shared multisig address",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "./config.yml",
				Usage:   "path to the config file",
				Sources: cli.EnvVars("TICTACTOE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "opponent",
				Usage: "opponent public key, overrides player.opponent-public-key",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "address",
				Usage:  "print the local address and public key",
				Action: withApp(func(_ context.Context, a *app.App, _ *cli.Command) error { return a.Address() }),
			},
			{
				Name:   "create",
				Usage:  "create a game against the opponent, playing X",
				Action: withApp(func(ctx context.Context, a *app.App, _ *cli.Command) error { return a.Create(ctx) }),
			},
			{
				Name:   "join",
				Usage:  "find the ongoing game with the opponent",
				Action: withApp(func(ctx context.Context, a *app.App, _ *cli.Command) error { return a.Join(ctx) }),
			},
			{
				Name:  "status",
				Usage: "print the game once",
				Flags: []cli.Flag{
					gameFlag(),
					&cli.BoolFlag{Name: "cached", Usage: "read the last synced snapshot from redis"},
				},
				Action: withApp(func(ctx context.Context, a *app.App, cmd *cli.Command) error {
					return a.Status(ctx, cmd.String("game"), cmd.Bool("cached"))
				}),
			},
			{
				Name:  "move",
				Usage: "place a mark by --cell or by --row and --col",
				Flags: []cli.Flag{
					gameFlag(),
					&cli.IntFlag{Name: "cell", Usage: "placement index 0..8"},
					&cli.IntFlag{Name: "row", Usage: "row 0..2"},
					&cli.IntFlag{Name: "col", Usage: "column 0..2"},
				},
				Action: withApp(func(ctx context.Context, a *app.App, cmd *cli.Command) error {
					placement, err := placementOf(cmd)
					if err != nil {
						return err
					}

					return a.Move(ctx, cmd.String("game"), placement)
				}),
			},
			{
				Name:  "watch",
				Usage: "follow the game until it is over",
				Flags: []cli.Flag{gameFlag()},
				Action: withApp(func(ctx context.Context, a *app.App, cmd *cli.Command) error {
					return a.Watch(ctx, cmd.String("game"))
				}),
			},
			{
				Name:  "delete",
				Usage: "delete a finished game",
				Flags: []cli.Flag{gameFlag()},
				Action: withApp(func(ctx context.Context, a *app.App, cmd *cli.Command) error {
					return a.Delete(ctx, cmd.String("game"))
				}),
			},
			{
				Name:  "serve",
				Usage: "keep the game synced and serve it over HTTP",
				Flags: []cli.Flag{gameFlag()},
				Action: withApp(func(ctx context.Context, a *app.App, cmd *cli.Command) error {
					return a.Serve(ctx, cmd.String("game"))
				}),
			},
		},
	}
}

func gameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "game",
		Usage: "game object id, the ongoing game with the opponent when empty",
	}
}

func placementOf(cmd *cli.Command) (int, error) {
	if cmd.IsSet("cell") {
		return cmd.Int("cell"), nil
	}

	if !cmd.IsSet("row") || !cmd.IsSet("col") {
		return 0, fmt.Errorf("%w: use --cell or both --row and --col", apperror.ErrInvalidPlacement)
	}

	return tictactoe.CoordinatesToPlacement(cmd.Int("row"), cmd.Int("col"))
}

func withApp(action func(ctx context.Context, a *app.App, cmd *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		conf, err := config.Load(cmd.String("config"))
		if err != nil {
			return err
		}

		if opponent := cmd.String("opponent"); opponent != "" {
			conf.Player.OpponentPublicKey = opponent
		}

		application := app.New(initLogger(conf), conf)
		defer application.Close()

		return action(ctx, application, cmd)
	}
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if conf.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	logger := pterm.DefaultLogger.WithLevel(ptermLevel(level))

	return slog.New(pterm.NewSlogHandler(logger))
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch level {
	case slog.LevelDebug:
		return pterm.LogLevelDebug
	case slog.LevelWarn:
		return pterm.LogLevelWarn
	case slog.LevelError:
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}
