package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// AppFactory builds a ready App; each command owns and closes its App.
type AppFactory func(ctx context.Context) (*App, error)

func (a *App) getStatus() string {
	var parts []string
	if m := a.mode(); m != "" {
		parts = append(parts, string(m))
	}
	if ids, err := a.service.Pending(context.Background()); err == nil && len(ids) > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", len(ids)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Root runs the REPL over in. The prompt and banner are shown only when in
// is an interactive terminal.
func (a *App) Root(ctx context.Context, in io.Reader) {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isTerminal(int(f.Fd()))
	}
	if interactive {
		printlnFn("Welcome to fieldreport (type 'help' for commands)")
	}
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(in), interactive)
}

// NewRootCommand creates the fieldreport command tree. Configuration flags
// are owned by the config package, so unknown flags and stray arguments are
// tolerated here.
func NewRootCommand(factory AppFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldreport",
		Short: "Compose and submit field reports, online or offline",
		Long: `fieldreport composes structured field reports and submits them to a
collection endpoint. Entries are kept as drafts while being edited, and
submissions that cannot be delivered are queued locally and retried.

Configuration flags (-c, -e, -m, -d, -i, -s, -t, -g, -l) apply to every command.`,
		RunE: withApp(factory, runForm),
	}
	tolerant(root)

	form := &cobra.Command{
		Use:   "form",
		Short: "Start the interactive form (default)",
		RunE:  withApp(factory, runForm),
	}
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List queued submissions",
		RunE: withApp(factory, func(cmd *cobra.Command, a *App) error {
			return a.Pending(cmd.Context())
		}),
	}
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Retry queued submissions once",
		RunE: withApp(factory, func(cmd *cobra.Command, a *App) error {
			return a.Sweep(cmd.Context())
		}),
	}
	draft := &cobra.Command{
		Use:   "draft",
		Short: "Show the saved draft",
		RunE: withApp(factory, func(cmd *cobra.Command, a *App) error {
			if !a.Resume(cmd.Context()) {
				printlnFn("No saved draft")
				return nil
			}
			return a.Show(cmd.Context())
		}),
	}
	repair := &cobra.Command{
		Use:   "repair",
		Short: "Check and repair the local queue",
		RunE: withApp(factory, func(cmd *cobra.Command, a *App) error {
			return a.Repair(cmd.Context())
		}),
	}

	for _, c := range []*cobra.Command{form, pending, sweep, draft, repair} {
		tolerant(c)
		root.AddCommand(c)
	}
	return root
}

func tolerant(c *cobra.Command) {
	c.Args = cobra.ArbitraryArgs
	c.FParseErrWhitelist = cobra.FParseErrWhitelist{UnknownFlags: true}
	c.SilenceUsage = true
}

func runForm(cmd *cobra.Command, a *App) error {
	return a.Run(cmd.Context(), cmd.InOrStdin())
}

func withApp(factory AppFactory, fn func(cmd *cobra.Command, a *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if cmd.Context() == nil {
			cmd.SetContext(context.Background())
		}
		a, err := factory(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a)
	}
}
