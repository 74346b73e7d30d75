// Command gomoku-client exercises gomoku-httpd by letting it play both
// sides of whole games and reporting how long each side waited.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/client"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/tui"
)

type options struct {
	host     string
	port     int
	depth    int
	radius   int
	board    int
	jsonFile string
	verbose  bool
	games    int
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "gomoku-client",
		Short: "Play AI-vs-AI games through gomoku-httpd",
		Example: `  gomoku-client --port 9900 -d 3 -j game.json
  gomoku-client -g 8 -d 2 -b 19`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.validate(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := run(ctx, o, cmd.OutOrStdout())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.host, "host", "127.0.0.1", "daemon host")
	f.IntVar(&o.port, "port", 9900, "daemon port")
	f.IntVarP(&o.depth, "depth", "d", 2, "search depth for both sides (1-6)")
	f.IntVarP(&o.radius, "radius", "r", 2, "candidate move radius (1-4)")
	f.IntVarP(&o.board, "board", "b", 15, "board size, 15 or 19")
	f.StringVarP(&o.jsonFile, "json", "j", "", "write the final record here")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "print the board after every move")
	f.IntVarP(&o.games, "games", "g", 1, "games to play in parallel")
	f.StringVar(&o.logLevel, "log-level", "WARN", "TRACE, DEBUG, INFO, WARN or ERROR")
	return cmd
}

func (o options) validate() error {
	switch {
	case o.depth < 1 || o.depth > 6:
		return fmt.Errorf("depth must be between 1 and 6, got %d", o.depth)
	case o.radius < 1 || o.radius > 4:
		return fmt.Errorf("radius must be between 1 and 4, got %d", o.radius)
	case o.board != 15 && o.board != 19:
		return fmt.Errorf("board size must be 15 or 19, got %d", o.board)
	case o.port < 1 || o.port > 65535:
		return fmt.Errorf("invalid port %d", o.port)
	case o.games < 1:
		return fmt.Errorf("games must be at least 1, got %d", o.games)
	}
	return nil
}

func run(ctx context.Context, o options, out io.Writer) error {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(logging.NewHandler(os.Stderr, level, true))

	var mu sync.Mutex
	printer := tui.NewPrinter(out)
	opts := client.Options{
		BaseURL:   "http://" + net.JoinHostPort(o.host, strconv.Itoa(o.port)),
		BoardSize: o.board,
		Depth:     o.depth,
		Radius:    o.radius,
		Logger:    logger,
	}
	if o.verbose && o.games == 1 {
		opts.Progress = func(u client.Update) {
			mu.Lock()
			defer mu.Unlock()
			// Red board while the daemon is busy.
			printer.Rows(u.Record.BoardState, u.Busy)
			printer.Timings(u.X, u.O)
		}
	}
	c := client.New(opts)

	results := make([]*client.Result, o.games)
	g, ctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			res, err := c.Play(ctx)
			results[i] = res
			if err != nil {
				return fmt.Errorf("game %d: %w", i+1, err)
			}
			return nil
		})
	}
	playErr := g.Wait()

	for i, res := range results {
		if res == nil {
			continue
		}
		if o.games > 1 {
			printer.Line("Game %d (%s)", i+1, res.GameID)
		}
		report(printer, res)
		if o.jsonFile != "" && res.Record.Winner != "none" {
			path := recordPath(o.jsonFile, i, o.games)
			if err := res.Save(path); err != nil {
				return err
			}
			printer.Line("Game saved to %s", path)
		}
	}
	return playErr
}

func report(p *tui.Printer, res *client.Result) {
	p.Rows(res.Record.BoardState, false)
	p.Line("%s", tui.Outcome(res.Status()))
	p.Line("Total moves: %d", res.Moves)
	p.Timings(res.X, res.O)
	if summary := res.ErrorSummary(); summary != "" {
		p.Line("Server errors: %s", summary)
	}
}

// recordPath numbers the file per game when several are played.
func recordPath(path string, i, games int) string {
	if games == 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}
