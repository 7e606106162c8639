package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/wesm/interviewlens/internal/backend"
	"github.com/wesm/interviewlens/internal/config"
	"github.com/wesm/interviewlens/internal/dashboard"
	"github.com/wesm/interviewlens/internal/importer"
	"github.com/wesm/interviewlens/internal/server"
	"github.com/wesm/interviewlens/internal/store"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	watcherDebounce = 500 * time.Millisecond
	shutdownTimeout = 5 * time.Second
	logFileName     = "interviewlens.log"
	maxLogSize      = 10 << 20
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "summary":
			runSummary(os.Args[2:])
			return
		case "import":
			runImport(os.Args[2:])
			return
		case "config":
			runConfig(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("interviewlens %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`interviewlens %s - analytics dashboard for interview practice sessions

Loads a user's practice sessions from the session API or the local
store, aggregates their scores and serves the dashboard as JSON.

Usage:
  interviewlens [flags]           Start the server (default command)
  interviewlens serve [flags]     Start the server (explicit)
  interviewlens summary [flags]   Print the all-sessions summary
  interviewlens import [path...]  Import export files into the local store
  interviewlens config [flags]    Show (or -save) the effective config
  interviewlens version           Show version information
  interviewlens help              Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8090)
  -backend string     Session API base URL (empty serves the local store)
  -timezone string    IANA timezone for displayed dates (default "UTC")
  -import-dir string  Directory of export files to import and watch
  -workers int        Concurrent session fetches (0 = auto)

Summary flags:
  -user string        User id
  -email string       User email (used when -user is empty)
  -timezone string    IANA timezone for displayed dates

Environment variables:
  INTERVIEWLENS_DATA_DIR       Data directory (database, config, log)
  INTERVIEWLENS_BACKEND_URL    Session API base URL (or VITE_API_URL)
  INTERVIEWLENS_TIMEZONE       Display timezone
  INTERVIEWLENS_IMPORT_DIR     Import directory
  INTERVIEWLENS_FETCH_WORKERS  Concurrent session fetches

Variables may also be set in a .env file in the working directory.
Data is stored in ~/.interviewlens/ by default.
`, version)
}

func runServe(args []string) {
	cfg := mustLoadConfig(args)
	setupLogFile(cfg.DataDir)
	database := mustOpenStore(cfg)
	defer database.Close()

	im := importer.New(database)
	if cfg.ImportDir != "" {
		runInitialImport(im, cfg.ImportDir)
		stopWatcher := startImportWatcher(cfg.ImportDir, im)
		defer stopWatcher()
	}

	src := newSource(cfg, database)
	if c, ok := src.(*backend.Client); ok {
		ctx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		if err := c.Ping(ctx); err != nil {
			log.Printf("warning: session API %s unreachable: %v",
				c.BaseURL(), err)
		}
		cancel()
	}

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, dashboard.NewLoader(src, cfg.FetchWorkers),
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
		server.WithStore(database),
		server.WithImporter(im),
	)

	fmt.Printf("interviewlens %s listening at http://%s:%d\n",
		version, cfg.Host, cfg.Port)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// newSource picks the session API when one is configured and
// the local store otherwise.
func newSource(cfg config.Config, database *store.DB) dashboard.Source {
	if cfg.UseBackend() {
		return backend.New(cfg.BackendURL, cfg.FetchTimeout)
	}
	return database
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("interviewlens", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: interviewlens [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	return cfg
}

func mustOpenStore(cfg config.Config) *store.DB {
	database, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	return database
}

func runInitialImport(im *importer.Importer, dir string) {
	fmt.Printf("Importing %s...\n", dir)
	totals, err := im.ImportDir(dir)
	if err != nil {
		log.Printf("warning: initial import: %v", err)
		return
	}
	fmt.Printf(
		"Import complete: %d files (%d unchanged, %d failed), "+
			"%d sessions, %d turns\n",
		totals.Files, totals.Unchanged, totals.Failed,
		totals.Sessions, totals.Turns,
	)
}

func startImportWatcher(dir string, im *importer.Importer) func() {
	onChange := func(paths []string) {
		im.ImportPaths(paths)
	}
	watcher, err := importer.NewWatcher(watcherDebounce, onChange)
	if err != nil {
		log.Printf("warning: import watcher unavailable: %v", err)
		return func() {}
	}
	n, err := watcher.WatchTree(dir)
	if err != nil {
		log.Printf("warning: watching %s: %v", dir, err)
	}
	log.Printf("watching %d directories under %s", n, dir)
	watcher.Start()
	return watcher.Stop
}

// runConfig prints the effective configuration. With -save it is
// also written to the config file.
func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	config.RegisterServeFlags(fs)
	save := fs.Bool("save", false, "Write the effective config to config.json")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *save {
		if err := cfg.Save(); err != nil {
			log.Fatalf("saving config: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Saved %s\n",
			filepath.Join(cfg.DataDir, "config.json"))
	}
	if err := writeJSON(os.Stdout, cfg); err != nil {
		log.Fatalf("writing config: %v", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupLogFile tees the standard logger into the data dir's log
// file. An oversized log is truncated first.
func setupLogFile(dataDir string) {
	path := filepath.Join(dataDir, logFileName)
	truncateLogFile(path, maxLogSize)
	f, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644,
	)
	if err != nil {
		log.Printf("warning: cannot open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

// truncateLogFile empties path when it exceeds limit bytes.
// Symlinks are left alone.
func truncateLogFile(path string, limit int64) {
	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	if info.Mode()&os.ModeSymlink != 0 || info.Size() <= limit {
		return
	}
	if err := os.Truncate(path, 0); err != nil {
		log.Printf("warning: truncating log file: %v", err)
	}
}
