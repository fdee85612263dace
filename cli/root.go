// ABOUTME: Root cobra command and the per-invocation application handle
// ABOUTME: Builds the app container before each command and closes it afterwards
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/app"
	"github.com/harperreed/leadlab/config"
	"github.com/harperreed/leadlab/logging"
	"github.com/harperreed/leadlab/router"
	"github.com/harperreed/leadlab/tui"
)

var ErrNotLoggedIn = errors.New("not logged in: run 'leadlab login' first")

// runtime is shared by every command of one invocation.
type runtime struct {
	opts      app.Options
	overrides config.Overrides
	json      bool
	yes       bool
	restored  bool
	app       *app.App
	logFile   io.Closer
	stdin     *bufio.Reader
}

// Execute runs the command tree against os.Args until it finishes or
// the process is interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root, rt := newRoot(version, app.Options{})
	return rt.execute(ctx, root)
}

// NewRootCommand builds the command tree. A non-nil opts.Config skips
// flag and environment loading.
func NewRootCommand(version string, opts app.Options) *cobra.Command {
	root, _ := newRoot(version, opts)
	return root
}

// execute also closes the app when a command fails, since cobra skips
// post-run hooks on error.
func (rt *runtime) execute(ctx context.Context, root *cobra.Command) error {
	defer rt.close()
	return root.ExecuteContext(ctx)
}

func newRoot(version string, opts app.Options) (*cobra.Command, *runtime) {
	rt := &runtime{opts: opts}

	root := &cobra.Command{
		Use:           "leadlab",
		Short:         "LeadLab CRM in the terminal",
		Long:          "LeadLab: leads, deals, tasks, calendar, email and quotes from a terminal UI or scripts.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "version", "completion":
				return nil
			}
			return rt.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runTUI(cmd.Context(), "")
		},
	}
	root.SetVersionTemplate("leadlab version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&rt.overrides.APIURL, "api-url", "", "Backend API base URL (default $LEADLAB_API_URL)")
	flags.StringVar(&rt.overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&rt.overrides.LogFormat, "log-format", "", "Log format: text, json, logfmt")
	flags.StringVar(&rt.overrides.EnvFile, "env-file", "", "Load environment from this file instead of .env")
	flags.BoolVar(&rt.json, "json", false, "Print machine-readable JSON")
	flags.BoolVarP(&rt.yes, "yes", "y", false, "Skip delete confirmations")

	root.AddCommand(
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newSignupCommand(rt),
		newStatusCommand(rt),
		newLeadsCommand(rt),
		newDealsCommand(rt),
		newTasksCommand(rt),
		newEventsCommand(rt),
		newEmailCommand(rt),
		newProductsCommand(rt),
		newQuotesCommand(rt),
		newNotificationsCommand(rt),
		newCalendlyCommand(rt),
		newUsersCommand(rt),
		newStagesCommand(rt),
		newOrgCommand(rt),
		newVizCommand(rt),
		newTUICommand(rt),
		newMCPCommand(rt, version),
	)
	return root, rt
}

// open builds the application. The TUI owns the terminal, so it logs to
// the log file instead of stderr.
func (rt *runtime) open(cmd *cobra.Command) error {
	opts := rt.opts
	if opts.Config == nil {
		cfg, err := config.Load(rt.overrides)
		if err != nil {
			return err
		}
		opts.Config = cfg
	}
	if opts.LogOutput == nil {
		opts.LogOutput = cmd.ErrOrStderr()
		if ownsTerminal(cmd) {
			f, err := logging.OpenFile(opts.Config.LogFile)
			if err != nil {
				return err
			}
			rt.logFile = f
			opts.LogOutput = f
		}
	}

	a, err := app.New(opts)
	if err != nil {
		rt.close()
		return err
	}
	rt.app = a
	return nil
}

func (rt *runtime) close() {
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			rt.app.Logger.Warn("failed to close storage", "err", err)
		}
		rt.app = nil
	}
	if rt.logFile != nil {
		_ = rt.logFile.Close()
		rt.logFile = nil
	}
}

func ownsTerminal(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

// session restores the saved login and fails when there is none.
func (rt *runtime) session(ctx context.Context) (*app.App, error) {
	if !rt.restored {
		rt.app.Restore(ctx)
		rt.restored = true
	}
	if !rt.app.Auth.Snapshot().IsAuthenticated() {
		return nil, ErrNotLoggedIn
	}
	return rt.app, nil
}

// admin is session plus the admin check the shell applies to /admin routes.
func (rt *runtime) admin(ctx context.Context) (*app.App, error) {
	a, err := rt.session(ctx)
	if err != nil {
		return nil, err
	}
	if !a.Auth.Snapshot().IsAdmin() {
		return nil, errors.New("admin access required")
	}
	return a, nil
}

func (rt *runtime) runTUI(ctx context.Context, start string) error {
	if start != "" {
		if _, _, ok := router.Match(router.Parse(start).Path); !ok {
			return fmt.Errorf("unknown screen %q", start)
		}
	}
	return tui.Run(ctx, rt.app, start)
}

func newTUICommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [PATH]",
		Short: "Open the terminal UI, optionally at a screen such as /deals",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := ""
			if len(args) == 1 {
				start = args[0]
			}
			return rt.runTUI(cmd.Context(), start)
		},
	}
}

// exitCode maps an error to a process status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrNotLoggedIn) {
		return 2
	}
	return 1
}

// Main runs the CLI and exits with a status that reflects the error.
func Main(version string) {
	err := Execute(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}
