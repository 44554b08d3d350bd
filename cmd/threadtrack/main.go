package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/leonletto/threadtrack/internal/cli"
	"github.com/leonletto/threadtrack/internal/identity"
	"github.com/leonletto/threadtrack/internal/logx"
	"github.com/leonletto/threadtrack/internal/tracker"
	"github.com/leonletto/threadtrack/internal/types"
)

var (
	// Build info (set via ldflags).
	Version = "dev"
	Build   = "unknown"
)

// historyLimit is the number of rows --history prints.
const historyLimit = 20

type rootFlags struct {
	url      string
	manual   bool
	list     bool
	deleteID int
	history  bool
	interval int
	force    bool
	config   string
	dataDir  string
	verbose  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "threadtrack (--url <url> | --manual <board> <thread-id> | --list | --delete <id> | --history)",
		Short: "Track imageboard threads and get notified about new replies",
		Long: `threadtrack watches imageboard threads through the read-only JSON API
and raises a desktop notification for every new reply.

Tracked threads are kept in a small registry under the data directory.
Threads without new posts for 24 hours are dropped automatically.`,
		Example: `  threadtrack --url https://boards.4chan.org/g/thread/555
  threadtrack --manual g 555 --interval 60
  threadtrack --list
  threadtrack --delete 3 --force`,
		Args: func(cmd *cobra.Command, args []string) error {
			if f.manual {
				if len(args) != 2 {
					return fmt.Errorf("--manual needs exactly two arguments: <board> <thread-id>")
				}
				return nil
			}
			return cobra.NoArgs(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.url, "url", "u", "", "Track the thread at this URL and monitor it")
	cmd.Flags().BoolVarP(&f.manual, "manual", "m", false, "Track <board> <thread-id> given as arguments and monitor it")
	cmd.Flags().BoolVarP(&f.list, "list", "l", false, "List tracked threads")
	cmd.Flags().IntVarP(&f.deleteID, "delete", "d", 0, "Stop tracking the thread with this tracking id")
	cmd.Flags().BoolVar(&f.history, "history", false, "Show recent notifications")
	cmd.Flags().IntVarP(&f.interval, "interval", "i", 0, "Check interval in seconds (default from config, 120)")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Skip the confirmation prompt for --delete")
	cmd.Flags().StringVar(&f.config, "config", "", "Config file (default <user config dir>/threadtrack/config.yaml)")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory for the registry and history (or THREADTRACK_DATA_DIR)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Debug logging")

	actions := []string{"url", "manual", "list", "delete", "history"}
	cmd.MarkFlagsMutuallyExclusive(actions...)
	cmd.MarkFlagsOneRequired(actions...)

	cmd.Version = Version
	cmd.SetVersionTemplate("threadtrack v{{.Version}} (build: " + Build + ", " + goruntime.Version() + ")\n")
	return cmd
}

func run(cmd *cobra.Command, f *rootFlags, args []string) error {
	a, err := newApp(f, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	var actionErr error
	switch {
	case f.list:
		_, _ = fmt.Fprint(out, cli.FormatList(a.tracker.List(), time.Now()))
	case f.history:
		actionErr = showHistory(cmd, a, out)
	case cmd.Flags().Changed("delete"):
		actionErr = removeThread(cmd, a, f, out)
	default:
		actionErr = trackThread(cmd, a, f, args, out)
	}

	// The sweep runs on every invocation, including failed ones.
	n, err := a.tracker.Expire()
	if err != nil {
		a.log.Warn("expiry sweep failed", logx.Err(err))
	}
	_, _ = fmt.Fprint(out, cli.FormatExpired(n))

	return actionErr
}

func trackThread(cmd *cobra.Command, a *app, f *rootFlags, args []string, out io.Writer) error {
	var (
		ref identity.Ref
		err error
	)
	if f.manual {
		ref, err = identity.Manual(args[0], args[1])
	} else {
		ref, err = identity.ParseURL(f.url)
	}
	if err != nil {
		return err
	}

	interval := a.cfg.IntervalSeconds()
	if cmd.Flags().Changed("interval") {
		if f.interval < 1 {
			return fmt.Errorf("--interval must be at least 1 second, got %d", f.interval)
		}
		interval = f.interval
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	res, err := a.tracker.Add(ctx, ref, interval)
	switch {
	case errors.Is(err, types.ErrThreadNotFound):
		_, _ = fmt.Fprintf(out, "Could not fetch thread %s - it may not exist\n", ref.Key())
		return nil
	case ctx.Err() != nil:
		return nil
	case err != nil:
		a.log.Error("add thread failed", logx.String("thread", ref.Key().String()), logx.Err(err))
		_, _ = fmt.Fprintf(out, "Could not fetch thread %s: %v\n", ref.Key(), err)
		return nil
	case res.AlreadyTracked:
		_, _ = fmt.Fprint(out, cli.FormatAlreadyTracked(res.Record))
	default:
		_, _ = fmt.Fprint(out, cli.FormatAdded(res.Record))
	}

	return a.monitor(ctx, res.Record, out)
}

func removeThread(cmd *cobra.Command, a *app, f *rootFlags, out io.Writer) error {
	confirm := func(rec types.ThreadRecord) bool {
		_, _ = fmt.Fprint(out, cli.FormatRemoveDetails(rec))
		return cli.Confirm(cmd.InOrStdin(), out, cli.RemovePrompt)
	}

	rec, err := a.tracker.Remove(f.deleteID, f.force, confirm)
	switch {
	case errors.Is(err, tracker.ErrNoSuchID):
		_, _ = fmt.Fprintf(out, "No thread found with ID %s\n", cli.FormatTrackingID(f.deleteID))
		return nil
	case errors.Is(err, tracker.ErrCanceled):
		_, _ = fmt.Fprintln(out, "Cancelled")
		return nil
	case err != nil:
		return fmt.Errorf("remove thread: %w", err)
	}
	_, _ = fmt.Fprint(out, cli.FormatRemoved(rec))
	return nil
}

func showHistory(cmd *cobra.Command, a *app, out io.Writer) error {
	if !a.cfg.History.Enabled {
		_, _ = fmt.Fprintln(out, "Notification history is disabled")
		return nil
	}
	h, err := a.openHistory()
	if err != nil {
		return err
	}
	entries, err := h.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	_, _ = fmt.Fprint(out, cli.FormatHistory(entries, time.Now()))
	return nil
}
