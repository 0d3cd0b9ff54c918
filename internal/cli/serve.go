package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/headless"
	"github.com/roach88/wtas/internal/protocol"
	"github.com/roach88/wtas/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen     string
	Database   string
	ScriptsDir string
	SaveDir    string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// ready receives the listen address once the server is up (for testing).
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine on the headless host and accept controllers",
		Long: `Start the playback engine on the built-in headless host, paced at the
configured tick rate, and accept controller connections.

Scripts named in PlayFile are resolved inside the scripts directory.
Every finished run is recorded in the history database.

Example:
  wtas serve
  wtas serve --listen 127.0.0.1:9000 --scripts ./routes --db ./runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "controller listen address (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.ScriptsDir, "scripts", "", "scripts directory (default from config)")
	cmd.Flags().StringVar(&opts.SaveDir, "saves", "", "directory save starts are resolved against (default: scripts directory)")

	return cmd
}

// resolve applies flag overrides on top of the loaded config.
func (o *ServeOptions) resolve() (listen, db, scripts, saves string) {
	cfg := o.Config
	listen, db, scripts = cfg.Listen, cfg.Database, cfg.ScriptsDir
	if o.Listen != "" {
		listen = o.Listen
	}
	if o.Database != "" {
		db = o.Database
	}
	if o.ScriptsDir != "" {
		scripts = o.ScriptsDir
	}
	saves = scripts
	if o.SaveDir != "" {
		saves = o.SaveDir
	}
	return listen, db, scripts, saves
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)
	cfg := opts.Config
	listen, dbPath, scriptsDir, saveDir := opts.resolve()

	if info, err := os.Stat(scriptsDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scripts directory not found: %s", scriptsDir))
	}

	// Open database (create if not exists)
	slog.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ids := opts.RunIDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	game := headless.NewGame(saveDir)
	player := engine.NewPlayer(game, os.DirFS(scriptsDir),
		engine.WithRunSink(st),
		engine.WithRunIDGenerator(ids),
		engine.WithWarmupTicks(cfg.WarmupTicks),
		engine.WithInboxSize(cfg.InboxSize),
		engine.WithOutboxSize(cfg.OutboxSize),
	)
	defer player.Close()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	if err := player.Submit(ctx, protocol.SetTraceOptions{Options: cfg.Trace}); err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	server := protocol.NewServer(player, player.Events())
	loop := headless.NewLoop(player, game, headless.WithInterval(cfg.TickInterval()))

	slog.Info("engine starting", "listen", ln.Addr().String(), "scripts", scriptsDir, "db", dbPath, "tick_rate", cfg.TickRate)
	fmt.Fprintf(cmd.OutOrStdout(), "Engine listening on %s. Press Ctrl-C to stop.\n", ln.Addr())
	if opts.ready != nil {
		opts.ready <- ln.Addr().String()
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- server.Serve(ctx, ln)
	}()
	go func() {
		defer wg.Done()
		errs <- loop.Run(ctx)
	}()

	// Whichever side returns first stops the other.
	var runErr error
	for range 2 {
		if err := <-errs; err != nil && runErr == nil {
			runErr = err
		}
		cancel()
	}
	wg.Wait()

	if runErr != nil && runErr != context.Canceled && runErr != context.DeadlineExceeded {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}

	slog.Info("engine stopped gracefully")
	return nil
}
