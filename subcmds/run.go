// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/cryptoalerts/cli"
	"github.com/bvk/cryptoalerts/ctxutil"
	"github.com/bvk/cryptoalerts/daemonize"
	"github.com/bvk/cryptoalerts/httputil"
	"github.com/bvk/cryptoalerts/server"
	"github.com/bvk/cryptoalerts/subcmds/cmdutil"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/sglog"
)

// DaemonizeEnv identifies the background process.
const DaemonizeEnv = "CRYPTOALERTS_DAEMONIZE"

type Run struct {
	cmdutil.ServerFlags
	cmdutil.DataFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof    bool
	noTelegram bool
	noAlertLog bool

	logDir string
	debug  bool
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.noTelegram, "no-telegram", false, "when true, telegram bot is not started")
	fset.BoolVar(&c.noAlertLog, "no-alert-log", false, "when true, alert reports are not archived in the data directory")
	fset.StringVar(&c.logDir, "log-dir", "", "when non-empty, writes log files into this directory")
	fset.BoolVar(&c.debug, "debug", false, "when true, enables debug messages in the log")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the alerts daemon in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the alerts daemon. Daemon runs the enabled scanners on
their schedules and sends the alerts to all configured chat services.

Data directory (default ~/.cryptoalerts) holds the database, the config file
and the secrets file. Secrets can also be passed through CRYPTOALERTS_*
environment variables, which can be kept in a .env file in the data directory
or the home directory. A example secrets file is given below:

    {
        "taapi_secret": "xxxx",
        "cryptopanic_token": "xxxx",
        "discord": {
            "webhook_url": "https://discord.com/api/webhooks/..."
        }
    }

A scanner that is enabled in the config file fails the startup when it's
secrets are missing.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := c.DataFlags.DataDir()
	if err != nil {
		return fmt.Errorf("could not determine data directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("could not create data directory %q: %w", dataDir, err)
	}

	secrets, err := c.DataFlags.LoadSecrets()
	if err != nil {
		return err
	}
	cfg, err := c.DataFlags.LoadConfig()
	if err != nil {
		return err
	}

	if ip := net.ParseIP(c.IP); ip == nil {
		return fmt.Errorf("invalid ip address")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port number")
	}
	addr := &net.TCPAddr{
		IP:   net.ParseIP(c.IP),
		Port: c.Port,
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context, child *os.Process) (bool, error) {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return true, fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, err
		}
		if pid := string(data); pid != fmt.Sprintf("%d", child.Pid) {
			return c.restart, fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return false, nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, DaemonizeEnv, "cryptoalerts", check); err != nil {
			return err
		}
	}

	if len(c.logDir) != 0 || c.background {
		logDir := c.logDir
		if len(logDir) == 0 {
			logDir = filepath.Join(dataDir, "logs")
		}
		backend, err := newLogBackend(logDir, c.debug)
		if err != nil {
			return err
		}
		defer backend.Close()
		slog.SetDefault(slog.New(backend.Handler()))
	} else if c.debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	slog.Info("starting cryptoalerts", "data-dir", dataDir, "watchlist", cfg.Watchlist)

	lockPath := filepath.Join(dataDir, "cryptoalerts.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(filepath.Join(dataDir, "db")).WithLogger(nil)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, cmdutil.IsGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	sopts := &server.Options{
		NoTelegram: c.noTelegram,
	}
	if !c.noAlertLog {
		sopts.AlertLogDir = filepath.Join(dataDir, "alerts")
	}
	alerts, err := server.New(ctx, secrets, cfg, db, sopts)
	if err != nil {
		return err
	}
	defer alerts.Close()

	handlers := alerts.HandlerMap()
	for k, v := range handlers {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range handlers {
			s.RemoveHandler(k)
		}
	}()

	if err := alerts.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := alerts.Stop(context.Background()); err != nil {
			slog.Warn("could not stop the scanners (ignored)", "err", err)
		}
	}()

	slog.Info("started cryptoalerts server", "addr", addr, "scanners", alerts.Scanners())
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	<-ctx.Done()
	slog.Info("cryptoalerts server is shutting down")
	return nil
}

// newLogBackend creates the log files backend. Log level of the backend is
// independent of the slog default level, so debug messages are enabled on
// the backend itself.
func newLogBackend(logDir string, debug bool) (*sglog.Backend, error) {
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	backend := sglog.NewBackend(&sglog.Options{
		Name:                 "cryptoalerts",
		LogDirs:              []string{logDir},
		LogFileMaxSize:       100 << 20,
		LogFileReuseDuration: time.Hour,
	})
	if debug {
		backend.SetLevel(slog.LevelDebug)
	}
	return backend, nil
}
