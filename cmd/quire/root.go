package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dshills/quire/internal/app"
	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/tab"
	"github.com/dshills/quire/internal/vfs"
	"github.com/dshills/quire/internal/window"
	"github.com/spf13/cobra"
)

// defaultPrefix is the installation prefix searched for system plugins.
const defaultPrefix = "/usr"

// newRootCmd creates the root quire command with all subcommands registered.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quire [FILES...]",
		Short:         "Quire editor core",
		Long:          "Quire opens, saves, converts and prints text documents and manages editor plugins and sessions.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          runOpen,
	}

	root.PersistentFlags().String("config-dir", "", "directory holding settings, metadata, plugins and sessions")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("encoding", "", "character encoding of the files to open (detected when empty)")

	root.AddCommand(
		newPrintCmd(),
		newConvertCmd(),
		newPluginsCmd(),
		newSessionCmd(),
	)

	return root
}

// runOpen loads every file into one window and reports how each tab ended
// up.
func runOpen(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "")
	if err != nil {
		return err
	}
	defer a.Shutdown()

	enc, err := encodingFlag(cmd)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		a.NewWindow(window.Config{}).NewTab()
	} else {
		a.OpenURIs(uris(args), enc, 0, false)
	}
	if err := a.WaitIdle(cmd.Context()); err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), a.Tabs())
}

// openApp creates the application from the global flags. documentsDir
// overrides where print output goes.
func openApp(cmd *cobra.Command, documentsDir string) (*app.App, error) {
	flags := cmd.Root().PersistentFlags()

	configDir, _ := flags.GetString("config-dir")
	if configDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		configDir = filepath.Join(dir, "quire")
	}

	level, _ := flags.GetString("log-level")
	log := logging.NewLogger(logging.LoggerConfig{
		Level:  logging.ParseLogLevel(level),
		Output: cmd.ErrOrStderr(),
	})
	logging.SetLogger(log)

	a, err := app.New(app.Options{
		ConfigDir:    configDir,
		Prefix:       defaultPrefix,
		DocumentsDir: documentsDir,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

func encodingFlag(cmd *cobra.Command) (*encoding.Encoding, error) {
	charset, _ := cmd.Root().PersistentFlags().GetString("encoding")
	if charset == "" {
		return nil, nil
	}
	return encoding.FromCharset(charset)
}

func uris(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = vfs.URIFromPath(p)
	}
	return out
}

// report writes one line per tab: its name, state and the message of the
// panel it shows, if any.
func report(out io.Writer, tabs []*tab.Tab) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, t := range tabs {
		msg := ""
		if p := t.Panel(); p != nil {
			msg = p.Message
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", displayName(t), t.State(), msg)
	}
	return w.Flush()
}

// failed returns an error naming the tab when it did not end up in the
// normal state.
func failed(op string, t *tab.Tab) error {
	if t.State() == tab.StateNormal && (t.Panel() == nil || t.Panel().Kind == tab.PanelFileAlreadyOpen) {
		return nil
	}
	msg := t.State().String()
	if p := t.Panel(); p != nil {
		msg = p.Message
	}
	return fmt.Errorf("%s %s: %s", op, displayName(t), msg)
}

// displayName names a tab by the location it failed to load when its
// document is still untitled.
func displayName(t *tab.Tab) string {
	if p := t.Panel(); p != nil && p.URI != "" && t.Document().IsUntitled() {
		return vfs.ShortName(p.URI)
	}
	return t.Name()
}
