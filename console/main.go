// cellbench-console is the operator's terminal dashboard for the
// battery test bench: a live station grid fed from the bench server's
// websocket feed, with manual stop control over REST. It keeps exactly
// one connection per session and recovers from server restarts and
// network blips on its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"cellbench/backend/libs/clock"
	"cellbench/backend/libs/logging"
	"cellbench/console/internal/benchapi"
	"cellbench/console/internal/livesync"
	"cellbench/console/internal/tui"
)

const defaultStationCount = 12

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		server   string
		stations int
		token    string
		logFile  string
		refresh  time.Duration
	)

	flags := pflag.NewFlagSet("cellbench-console", pflag.ContinueOnError)
	flags.StringVar(&server, "server", "http://localhost:8000", "bench server base URL")
	flags.IntVar(&stations, "stations", 0, "station count override (0 = ask the server)")
	flags.StringVar(&token, "token", "", "bearer token for the control endpoints")
	flags.StringVar(&logFile, "log-file", "", "write JSON logs to this file (logging is off without it)")
	flags.DurationVar(&refresh, "refresh", 500*time.Millisecond, "dashboard refresh interval")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// Logging goes to a file or nowhere: the TUI owns the terminal.
	logger := zap.NewNop()
	if logFile != "" {
		fileLogger, err := logging.NewFileLogger(logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger = fileLogger
		defer logger.Sync() // best-effort flush
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []benchapi.Option{benchapi.WithTimeout(10 * time.Second)}
	if token != "" {
		opts = append(opts, benchapi.WithToken(token))
	}
	api := benchapi.New(server, opts...)

	if stations <= 0 {
		countCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		count, err := api.StationCount(countCtx)
		cancel()
		if err != nil {
			logger.Warn("station count fetch failed, using default",
				zap.Int("default", defaultStationCount), zap.Error(err))
			count = defaultStationCount
		}
		stations = count
	}

	liveURL, err := livesync.LiveURL(server)
	if err != nil {
		return err
	}

	store := livesync.NewStore(stations)
	client := livesync.NewClient(liveURL, store, clock.New(), logger)

	clientCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		client.Run(clientCtx)
	}()

	program := tea.NewProgram(tui.New(store, api, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()

	// Tear the feed down before leaving so no timer or socket outlives
	// the session.
	cancel()
	<-clientDone

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
