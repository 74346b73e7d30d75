// Command gomoku plays Gomoku in the terminal against the computer, another
// person, or lets two AIs play each other.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/config"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/tui"
)

type options struct {
	board       int
	playerX     string
	playerO     string
	undo        bool
	skipWelcome bool
	timeout     int
	depth       string
	level       string
	radius      int
	jsonFile    string
	replay      string
	wait        float64
	configPath  string
	logFile     string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "gomoku",
		Short: "Play Gomoku (five in a row) in the terminal",
		Long: `Gomoku is played on a 15x15 or 19x19 board. Players alternate placing
stones and the first to line up exactly five wins.

By default you play X against the computer. Two AI players play each other
without a board UI, printing every move.`,
		Example: `  gomoku -l hard
  gomoku -b 15 -d 3:5 -x ai -o ai
  gomoku -p game.json -w 0.5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, o)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.IntVarP(&o.board, "board", "b", 19, "board size, 15 or 19")
	f.StringVarP(&o.playerX, "player-x", "x", "human", "who plays X: human or ai")
	f.StringVarP(&o.playerO, "player-o", "o", "ai", "who plays O: human or ai")
	f.BoolVarP(&o.undo, "undo", "u", false, "allow undoing the last move pair")
	f.BoolVarP(&o.skipWelcome, "skip-welcome", "s", false, "start without the rules screen")
	f.IntVarP(&o.timeout, "timeout", "t", 0, "seconds per move, 0 for none")
	f.StringVarP(&o.depth, "depth", "d", "", "AI search depth, N or X:O (1-10)")
	f.StringVarP(&o.level, "level", "l", "", "difficulty: easy, medium or hard")
	f.IntVarP(&o.radius, "radius", "r", engine.DefaultRadius, "candidate move radius (1-5)")
	f.StringVarP(&o.jsonFile, "json", "j", "", "write the game record to this file on exit")
	f.StringVarP(&o.replay, "replay", "p", "", "replay a saved game record")
	f.Float64VarP(&o.wait, "wait", "w", 0, "seconds between replay moves, 0 waits for Enter")
	f.StringVarP(&o.configPath, "config", "c", "", "config file (default: XDG gomoku/config.yaml)")
	f.StringVar(&o.logFile, "log-file", "", "write logs to this file")
	f.StringVar(&o.logLevel, "log-level", "", "TRACE, DEBUG, INFO, WARN, ERROR or FATAL")
	cmd.MarkFlagsMutuallyExclusive("depth", "level")
	return cmd
}

func run(cmd *cobra.Command, o options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cfgPath, err := config.LoadDefault(o.configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printer := tui.NewPrinter(out)

	if o.replay != "" {
		sess, err := game.Load(o.replay, game.FileLimits)
		if err != nil {
			return err
		}
		wait := time.Duration(o.wait * float64(time.Second))
		return tui.Replay(ctx, sess, printer, wait, cmd.InOrStdin(), o.replay)
	}

	settings, err := buildSettings(o, cfg, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	both := settings.X.Kind == game.AI && settings.O.Kind == game.AI
	headless := both || !isatty.IsTerminal(os.Stdout.Fd())

	logger, closer, err := newLogger(o, cfg, headless)
	if err != nil {
		return err
	}
	defer closer.Close()
	if cfgPath != "" {
		logger.Debug("config loaded", "path", cfgPath)
	}
	if d := max(aiDepth(settings.X), aiDepth(settings.O)); d >= config.DepthWarning {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: search depth %d can take a long time per move.\n", d)
	}

	sess, err := game.New(settings)
	if err != nil {
		return err
	}
	sess.SetLogger(logger)
	ctrl := game.NewController(sess)

	tt := cfg.NewTable()
	newSearcher := func(opts engine.Options) *engine.Searcher {
		return engine.NewSearcher(opts, tt, rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	base := cfg.EngineOptions(settings.X.Depth, settings.Radius)

	if headless {
		printer.Line("%s", describe(settings))
		err = tui.PlayHeadless(ctx, ctrl, newSearcher, base, printer, logger)
		if errors.Is(err, tui.ErrNeedsTerminal) {
			return errors.New("a human player needs an interactive terminal; use -x ai -o ai")
		}
	} else {
		app := tui.NewApp(tui.AppOptions{
			Controller:  ctrl,
			NewSearcher: newSearcher,
			Base:        base,
			Logger:      logger,
			Welcome:     !o.skipWelcome,
		})
		err = app.Run()
		if err == nil {
			view := ctrl.View()
			printer.Board(view.Board, lastMove(view))
			printer.Result(view.Status, view.TotalX, view.TotalO)
		}
	}
	if err != nil {
		return err
	}

	if o.jsonFile != "" {
		if err := ctrl.Save(o.jsonFile); err != nil {
			return err
		}
		printer.Line("Game saved to %s", o.jsonFile)
	}
	return nil
}

// newLogger keeps logs off the screen while the board UI owns it.
// Headless games print the board on stdout, so their logs go to stderr.
func newLogger(o options, cfg config.Config, headless bool) (*slog.Logger, io.Closer, error) {
	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	file := cfg.Log.File
	if o.logFile != "" {
		file = o.logFile
	}
	if file != "" {
		return logging.New(logging.Options{Level: level, File: file})
	}
	if !headless {
		return logging.Discard(), io.NopCloser(nil), nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(logging.NewHandler(os.Stderr, lvl, true)), io.NopCloser(nil), nil
}

// buildSettings merges flags over the config file. changed reports
// whether a flag was given on the command line.
func buildSettings(o options, cfg config.Config, changed func(string) bool) (game.Settings, error) {
	s := game.DefaultSettings()

	s.BoardSize = cfg.BoardSize
	if changed("board") {
		s.BoardSize = o.board
	}
	if s.BoardSize != 15 && s.BoardSize != 19 {
		return s, fmt.Errorf("board size must be 15 or 19, got %d", s.BoardSize)
	}

	xDepth, oDepth := cfg.Search.Depth, cfg.Search.Depth
	switch {
	case o.level != "":
		d, err := config.ParseLevel(o.level)
		if err != nil {
			return s, err
		}
		xDepth, oDepth = d, d
	case o.depth != "":
		var err error
		if xDepth, oDepth, err = config.ParseDepth(o.depth); err != nil {
			return s, err
		}
	}

	xKind, err := game.ParseKind(o.playerX)
	if err != nil {
		return s, err
	}
	oKind, err := game.ParseKind(o.playerO)
	if err != nil {
		return s, err
	}
	switch {
	case changed("player-o") && !changed("player-x") && oKind == game.Human:
		xKind = game.AI
	case changed("player-x") && !changed("player-o") && xKind == game.AI:
		oKind = game.Human
	}
	s.X = game.PlayerSettings{Kind: xKind, Depth: xDepth}
	s.O = game.PlayerSettings{Kind: oKind, Depth: oDepth}

	s.Radius = cfg.Search.Radius
	if changed("radius") {
		s.Radius = o.radius
	}
	if s.Radius < 1 || s.Radius > engine.MaxRadius {
		return s, fmt.Errorf("radius must be between 1 and %d, got %d", engine.MaxRadius, s.Radius)
	}

	s.Timeout = cfg.Timeout()
	if changed("timeout") {
		if o.timeout < 0 {
			return s, fmt.Errorf("timeout must not be negative, got %d", o.timeout)
		}
		s.Timeout = time.Duration(o.timeout) * time.Second
	}
	s.Undo = o.undo
	return s, nil
}

func aiDepth(p game.PlayerSettings) int {
	if p.Kind != game.AI {
		return 0
	}
	return p.Depth
}

func lastMove(v game.View) engine.Move {
	if n := len(v.History); n > 0 {
		return v.History[n-1].Move
	}
	return engine.NoMove
}

func describe(s game.Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "X: %s", s.X.Kind)
	if s.X.Kind == game.AI {
		fmt.Fprintf(&b, " (depth %d)", s.X.Depth)
	}
	fmt.Fprintf(&b, " | O: %s", s.O.Kind)
	if s.O.Kind == game.AI {
		fmt.Fprintf(&b, " (depth %d)", s.O.Depth)
	}
	fmt.Fprintf(&b, " | board %dx%d | radius %d", s.BoardSize, s.BoardSize, s.Radius)
	return b.String()
}
