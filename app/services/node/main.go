package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"

	"github.com/adamwoolhether/ledger/app/services/node/handlers"
	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/genesis"
	"github.com/adamwoolhether/ledger/foundation/blockchain/state"
	"github.com/adamwoolhether/ledger/foundation/blockchain/storage/badgerdb"
	"github.com/adamwoolhether/ledger/foundation/blockchain/storage/disk"
	"github.com/adamwoolhether/ledger/foundation/blockchain/storage/memory"
	"github.com/adamwoolhether/ledger/foundation/blockchain/worker"
	"github.com/adamwoolhether/ledger/foundation/events"
	"github.com/adamwoolhether/ledger/foundation/logger"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	// Construct app logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Configuration
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		Node struct {
			Storage        string        `conf:"default:disk"`
			DBPath         string        `conf:"default:zblock/ledger"`
			GenesisFile    string        `conf:"help:yaml genesis file; built in defaults when empty"`
			SelectStrategy string        `conf:"default:oldest"`
			MiningRetry    time.Duration `conf:"default:10s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "single node ledger",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}

		return fmt.Errorf("parsing config: %w", err)
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// App Starting
	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Ledger Support
	gen := genesis.Default()
	if cfg.Node.GenesisFile != "" {
		if gen, err = genesis.Load(cfg.Node.GenesisFile); err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}
	}
	log.Infow("startup", "status", "genesis", "treasury", gen.Treasury, "difficulty", gen.Difficulty)

	storage, err := openStorage(cfg.Node.Storage, cfg.Node.DBPath)
	if err != nil {
		return err
	}

	ev := logger.EventHandler(log, "00000000-0000-0000-0000-000000000000")

	st, err := state.New(state.Config{
		Genesis:        gen,
		Storage:        storage,
		SelectStrategy: cfg.Node.SelectStrategy,
		EvHandler:      ev,
		Events:         events.New(ev),
	})
	if err != nil {
		storage.Close()
		return err
	}
	defer st.Shutdown()

	// The worker registers itself with the state and is shut down with it.
	worker.Run(st, cfg.Node.MiningRetry, ev)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminal signal
	// from the OS. Signal package requires a buffered channel.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Use a buffered channel to listen for errors from listener. A buffered
	// channel is used so goroutine can exit if the error isn't collected.
	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Start Public Service
	log.Infow("startup", "status", "initializing V1 public API support")

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      handlers.PublicMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Start Private Service
	log.Infow("startup", "status", "initializing V1 private API support")

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      handlers.PrivateMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Shutdown

	// Block main waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server errors: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Ask listeners to shutdown and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("couldn't stop private service gracefully: %w", err)
		}

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("couldn't stop public service gracefully: %w", err)
		}
	}

	return nil
}

// openStorage constructs the snapshot backend named in configuration.
func openStorage(kind string, dbPath string) (database.Storage, error) {
	switch kind {
	case "disk":
		return disk.New(dbPath)
	case "badger":
		return badgerdb.New(dbPath)
	case "memory":
		return memory.New(), nil
	}

	return nil, fmt.Errorf("unknown storage %q, want disk, badger or memory", kind)
}
