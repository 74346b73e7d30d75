// Command gomoku-httpd serves the Gomoku AI over HTTP: clients post a game
// and get it back with the AI's move appended.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/config"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/server"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/store"
)

type options struct {
	bind       string
	agentPort  int
	logFile    string
	logLevel   string
	configPath string
	cacheDir   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "gomoku-httpd",
		Short: "Gomoku AI as a stateless HTTP service",
		Long: `POST a game to /gomoku/play and receive it back with the AI's move.

The daemon keeps no per-game state. Its transposition table is shared by
every request and is saved on shutdown when cache persistence is on.`,
		Example: `  gomoku-httpd -b 0.0.0.0:9900 -a 9901
  gomoku-httpd -b 9900 -L DEBUG -l /var/log/gomoku.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := run(ctx, o)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.bind, "bind", "b", "", "address to listen on, host:port or port")
	f.IntVarP(&o.agentPort, "agent-port", "a", 0, "HAProxy agent check port, 0 to disable")
	f.StringVarP(&o.logFile, "log-file", "l", "", "write logs to this file instead of stdout")
	f.StringVarP(&o.logLevel, "log-level", "L", "", "TRACE, DEBUG, INFO, WARN, ERROR or FATAL")
	f.StringVarP(&o.configPath, "config", "c", "", "config file (default: XDG gomoku/config.yaml)")
	f.StringVar(&o.cacheDir, "cache-dir", "", "directory for the persisted cache")
	_ = cmd.MarkFlagRequired("bind")
	return cmd
}

func run(ctx context.Context, o options) error {
	addr, err := server.ParseBind(o.bind)
	if err != nil {
		return err
	}
	if o.agentPort < 0 || o.agentPort > 65535 {
		return fmt.Errorf("invalid agent port %d", o.agentPort)
	}

	cfg, cfgPath, err := config.LoadDefault(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.cacheDir != "" {
		cfg.Cache.Dir = o.cacheDir
	}
	logger, closer, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("closing store failed", "error", err)
			}
		}()
	}

	live := config.NewStore(cfg)
	srv := server.New(server.Options{Config: live, Store: db, Logger: logger})
	srv.Restore()

	if cfgPath != "" {
		err := live.Watch(ctx, cfgPath, logger, func(next config.Config) {
			srv.ApplyConfig(next)
		})
		if err != nil {
			logger.Warn("config file will not be reloaded", "path", cfgPath, "error", err)
		}
	}

	logger.Info("starting gomoku-httpd", "addr", addr, "agent_port", o.agentPort,
		"max_depth", cfg.Server.MaxDepth, "max_radius", cfg.Server.MaxRadius,
		"max_searches", cfg.Server.MaxSearches, "config", cfgPath)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, addr)
	})
	if o.agentPort > 0 {
		g.Go(func() error {
			host, _, _ := net.SplitHostPort(addr)
			return srv.ServeAgent(ctx, net.JoinHostPort(host, strconv.Itoa(o.agentPort)))
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("gomoku-httpd stopped")
	return nil
}

// openStore opens the badger database when persistence is on.
func openStore(cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	if !cfg.Cache.Persist {
		return nil, nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	db, err := store.Open(store.Config{Path: dir, SyncWrites: true, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open cache store in %s: %w", dir, err)
	}
	logger.Info("cache store opened", "dir", dir)
	return db, nil
}
