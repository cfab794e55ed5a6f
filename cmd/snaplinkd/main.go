package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/config"
	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
	"github.com/makwanagautam41/SnapLink-sub001/internal/reaper"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-version") {
		fmt.Printf("snaplinkd version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "reaper":
		runReaper(os.Args[2:])
	case "reap":
		runReap(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "version":
		fmt.Printf("snaplinkd version %s (built %s, commit %s)\n", version, buildTime, gitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: snaplinkd <command> [options]

Commands:
  reaper      Run the story and account reapers on their schedules
  reap        Run one tick of a single reaper and exit
  status      Print how many records each reaper would process now
  version     Print version information

Run 'snaplinkd <command> --help' for more information on a command.`)
}

// commonFlags are shared by every subcommand that loads configuration.
type commonFlags struct {
	configPath *string
	logLevel   *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "Path to configuration file (default: $SNAPLINK_CONFIG)"),
		logLevel:   fs.String("log-level", "", "Override log level (debug, info, warn, error)"),
	}
}

func loadConfig(f commonFlags, validate bool) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case *f.configPath != "" && validate:
		cfg, err = config.LoadFromPath(*f.configPath)
	case *f.configPath != "":
		cfg, err = config.LoadFromPathNoValidate(*f.configPath)
	case validate:
		cfg, err = config.Load()
	default:
		cfg, err = config.LoadNoValidate()
	}
	if err != nil {
		return nil, err
	}
	if *f.logLevel != "" {
		cfg.Observability.LogLevel = *f.logLevel
	}
	return cfg, nil
}

func runReaper(args []string) {
	fs := flag.NewFlagSet("reaper", flag.ExitOnError)
	common := addCommonFlags(fs)
	healthAddr := fs.String("health-addr", "", "Override health endpoint address (e.g., :9090)")

	fs.Usage = func() {
		fmt.Println(`Usage: snaplinkd reaper [options]

Run the story and account reapers until SIGINT or SIGTERM.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig(common, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *healthAddr != "" {
		cfg.Observability.HealthAddr = *healthAddr
	}

	logger := logging.Configure(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	daemon, err := NewDaemon(ctx, DaemonOptions{
		Config:    cfg,
		Logger:    logger,
		Version:   version,
		GitCommit: gitCommit,
		BuildTime: buildTime,
	})
	if err != nil {
		logger.Errorf("failed to create reaper", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- daemon.Start(ctx)
	}()

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Infof("received shutdown signal", map[string]any{"signal": sig.String()})
	case err := <-errCh:
		if err != nil {
			logger.Errorf("reaper error", map[string]any{"error": err.Error()})
			exitCode = 1
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Reaper.ShutdownTimeout)
	defer shutdownCancel()

	if err := daemon.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown error", map[string]any{"error": err.Error()})
		exitCode = 1
	}
	os.Exit(exitCode)
}

func runReap(args []string) {
	fs := flag.NewFlagSet("reap", flag.ExitOnError)
	common := addCommonFlags(fs)
	name := fs.String("reaper", "", "Reaper to run: stories or accounts")

	fs.Usage = func() {
		fmt.Println(`Usage: snaplinkd reap --reaper stories|accounts [options]

Run exactly one tick of a reaper and exit. The exit status is non-zero
when the tick fails as a whole (query or notification failure); per-record
failures are logged and do not change the exit status.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *name != reaper.NameStories && *name != reaper.NameAccounts {
		fmt.Fprintf(os.Stderr, "--reaper must be %q or %q\n", reaper.NameStories, reaper.NameAccounts)
		os.Exit(2)
	}

	cfg, err := loadConfig(common, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Configure(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon, err := NewDaemon(ctx, DaemonOptions{Config: cfg, Logger: logger, Version: version})
	if err != nil {
		logger.Errorf("failed to create reaper", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	err = daemon.RunOnce(ctx, *name)
	_ = daemon.Close()
	if err != nil {
		logger.Errorf("tick failed", map[string]any{"reaper": *name, "error": err.Error()})
		os.Exit(1)
	}
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	common := addCommonFlags(fs)
	timeout := fs.Duration("timeout", 30*time.Second, "Timeout for the eligibility queries")

	fs.Usage = func() {
		fmt.Println(`Usage: snaplinkd status [options]

Print how many records each reaper would process if it ran now.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig(common, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Configure(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	daemon, err := NewDaemon(ctx, DaemonOptions{Config: cfg, Logger: logger, Version: version})
	if err != nil {
		logger.Errorf("failed to create reaper", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer daemon.Close()

	if err := printStatus(os.Stdout, daemon.Status(ctx)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// printStatus writes one row per reaper. It returns an error if any count
// failed, after printing every row.
func printStatus(w io.Writer, statuses []Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REAPER\tENABLED\tELIGIBLE\tNEXT RUN")

	var errs []error
	for _, st := range statuses {
		eligible := fmt.Sprint(st.Eligible)
		if st.Err != nil {
			eligible = "error"
			errs = append(errs, fmt.Errorf("%s: %w", st.Reaper, st.Err))
		}
		next := "-"
		if st.Enabled && !st.Next.IsZero() {
			next = st.Next.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", st.Reaper, st.Enabled, eligible, next)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
