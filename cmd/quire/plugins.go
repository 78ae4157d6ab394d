package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage plugins",
		Long:  "List the installed plugins and change which of them load at startup.",
	}

	cmd.AddCommand(
		newPluginsListCmd(),
		newPluginsEnableCmd(),
		newPluginsDisableCmd(),
	)

	return cmd
}

func newPluginsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, "")
			if err != nil {
				return err
			}
			defer a.Shutdown()

			active := a.Settings().Get().Plugins.Active
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODULE\tNAME\tLOADER\tENABLED\tAVAILABLE")
			for _, info := range a.Plugins().Plugins() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n",
					info.ModuleName(), info.Name(), info.LoaderID(),
					slices.Contains(active, info.ModuleName()), info.IsAvailable())
			}
			return w.Flush()
		},
	}
}

func newPluginsEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable NAME",
		Short: "Load a plugin at startup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, "")
			if err != nil {
				return err
			}
			defer a.Shutdown()

			// Only loaded plugins are written back to the active list.
			a.Plugins().ActivePluginsChanged()
			if err := a.EnablePlugin(args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Enabled plugin %q\n", args[0])
			return err
		},
	}
}

func newPluginsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable NAME",
		Short: "Stop loading a plugin at startup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, "")
			if err != nil {
				return err
			}
			defer a.Shutdown()

			a.Plugins().ActivePluginsChanged()
			if err := a.DisablePlugin(args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Disabled plugin %q\n", args[0])
			return err
		},
	}
}
