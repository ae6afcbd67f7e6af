package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		// Logger is not up yet
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	if err := InitLogger(cfg.Log); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer SyncLogger()

	if err := run(cfg); err != nil {
		if errors.Is(err, ErrBind) {
			Log.Fatalw("cannot bind game port", "addr", cfg.Server.Addr, "err", err)
		}
		Log.Errorw("server stopped", "err", err)
		SyncLogger()
		os.Exit(1)
	}
}

func run(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := Listen(cfg.Server.Addr)
	if err != nil {
		return err
	}

	var journal *Analytics
	if cfg.Analytics.Path != "" {
		db, err := OpenDB(cfg.Analytics.Path)
		if err != nil {
			ln.Close()
			return err
		}
		defer db.Close()
		journal = NewAnalytics(db)
		defer journal.Stop()
	}

	metrics := &Metrics{}
	snapshots := &SnapshotStore{}
	seed := uint64(time.Now().UnixNano())
	game := NewGame(cfg, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), metrics, journal, snapshots)
	hub := NewHub(cfg.Server, game.Joins(), metrics)

	// The acceptor and HTTP server stop once the engine returns
	engineCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := hub.Serve(engineCtx, ln); err != nil {
			Log.Errorw("acceptor stopped", "err", err)
		}
	}()

	var httpServer *http.Server
	if cfg.HTTP.Addr != "" {
		httpServer = &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: SetupRoutes(engineCtx, Routes{
				Hub:        hub,
				Metrics:    metrics,
				Snapshots:  snapshots,
				Journal:    journal,
				PublicAddr: cfg.Server.PublicAddr,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			Log.Infow("http listening", "addr", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				Log.Errorw("http server failed", "err", err)
			}
		}()
	}

	Log.Infow("midway server starting",
		"addr", cfg.Server.Addr, "tick_rate", cfg.Game.TickRate,
		"map_radius", cfg.Map.Radius, "hazard", cfg.Map.Hazard)

	err = game.Run(engineCtx)
	cancel()
	if httpServer != nil {
		_ = httpServer.Close()
	}
	if errors.Is(err, context.Canceled) {
		Log.Infow("shutting down")
		return nil
	}
	return err
}
