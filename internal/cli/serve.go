package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/spf13/cobra"

	"github.com/roach88/viewsync/internal/config"
	"github.com/roach88/viewsync/internal/document"
	"github.com/roach88/viewsync/internal/engine"
	"github.com/roach88/viewsync/internal/filestore"
	"github.com/roach88/viewsync/internal/store"
	"github.com/roach88/viewsync/internal/wsserver"
)

const (
	shutdownTimeout = 5 * time.Second
	statusPath      = "/status"
)

// ServeStatus is the body of GET /status.
type ServeStatus struct {
	Session string `json:"session"`
	Title   string `json:"title"`
	Version uint64 `json:"version"`
	Peers   int    `json:"peers"`
}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Listen     string
	Document   string
	Journal    string
	OutputDir  string

	// listening, when set, is called with the bound address once the HTTP
	// listener is up.
	listening func(addr net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a document to WebSocket peers",
		Long: `Start the WebSocket server and the sync engine for one document.

Flags override values from --config. Without --doc the built-in demo
document is served. The server stops on SIGINT, SIGTERM or when a peer
sends QUIT. GET /status reports the session, document version and peer
count.

Examples:
  viewsync serve
  viewsync serve --config viewsync.yaml
  viewsync serve --listen :9000 --doc canvas.yaml --db journal.db --out ./exports`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (host:port)")
	cmd.Flags().StringVar(&opts.Document, "doc", "", "document YAML file")
	cmd.Flags().StringVar(&opts.Journal, "db", "", "SQLite journal path")
	cmd.Flags().StringVar(&opts.OutputDir, "out", "", "directory for files produced by peers")

	return cmd
}

// resolveConfig loads the config file, applies flag overrides and
// validates the result.
func (o *ServeOptions) resolveConfig() (config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if o.Listen != "" {
		cfg.Listen = o.Listen
	}
	if o.Document != "" {
		cfg.Document = o.Document
	}
	if o.Journal != "" {
		cfg.Journal = o.Journal
	}
	if o.OutputDir != "" {
		cfg.OutputDir = o.OutputDir
	}
	if err := cfg.ExpandPaths(); err != nil {
		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadDocument(path string) (*document.Document, error) {
	if path == "" {
		return document.Demo()
	}
	return document.Load(path)
}

// serveControl maps peer QUIT to stopping the server.
type serveControl struct {
	cancel context.CancelFunc
}

func (c serveControl) Terminate() {
	slog.Info("shutdown requested by peer")
	c.cancel()
}

func (c serveControl) Interrupt() {
	slog.Info("interrupt requested by peer, nothing to interrupt")
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.resolveConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	doc, err := loadDocument(cfg.Document)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}

	files, err := filestore.New(cfg.OutputDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare output directory", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	engOpts := append(cfg.EngineOptions(),
		engine.WithDrawableLookup(doc),
		engine.WithFileWriter(files),
		engine.WithProcessControl(serveControl{cancel: cancel}),
	)

	if cfg.Journal != "" {
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithJournal(st))
	}

	settings := wsserver.DefaultSettings()
	settings.SendBuffer = cfg.SendBuffer
	srv := wsserver.New(settings)

	var eng *engine.Engine
	eng = engine.NewFactory(srv, engOpts...).New(doc,
		engine.WithExecHook(func(id, expr string) {
			if err := eng.DocumentChanged(ctx, doc.Version(), engine.Async, nil); err != nil {
				slog.Error("publish edited document", "drawable_id", id, "error", err)
			}
		}),
	)
	srv.SetSink(eng)

	if err := eng.DocumentChanged(ctx, doc.Version(), engine.Async, nil); err != nil {
		return WrapExitError(ExitFailure, "failed to render document", err)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	httpSrv := &http.Server{Handler: newRouter(cfg.Path, srv, doc, eng.Session()), ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case err, ok := <-serveErr:
			if ok {
				slog.Error("http server failed", "error", err)
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("serving", "addr", ln.Addr().String(), "path", cfg.Path, "session", eng.Session(), "version", doc.Version())
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %q on ws://%s%s\n", doc.Title(), ln.Addr(), cfg.Path)
	if opts.listening != nil {
		opts.listening(ln.Addr())
	}

	runErr := eng.Run(ctx)

	eng.Close()
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	srv.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	slog.Info("server stopped", "session", eng.Session())
	return nil
}

// newRouter mounts the websocket endpoint and a read-only status endpoint.
// Handlers run off the engine goroutine and only touch thread-safe state.
func newRouter(path string, srv *wsserver.Server, doc *document.Document, session string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(path, srv.ServeHTTP)
	r.Get(statusPath, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := ServeStatus{
			Session: session,
			Title:   doc.Title(),
			Version: doc.Version(),
			Peers:   srv.NumPeers(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Warn("write status", "error", err)
		}
	})
	return r
}
