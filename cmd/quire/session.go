package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Save and restore sessions",
		Long:  "Write the open windows and documents to a session file, or reopen the ones a session file lists.",
	}

	cmd.AddCommand(
		newSessionSaveCmd(),
		newSessionRestoreCmd(),
	)

	return cmd
}

func newSessionSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save PATH [FILES...]",
		Short: "Open FILES in a window and save the session to PATH",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, "")
			if err != nil {
				return err
			}
			defer a.Shutdown()

			enc, err := encodingFlag(cmd)
			if err != nil {
				return err
			}
			if files := args[1:]; len(files) > 0 {
				a.OpenURIs(uris(files), enc, 0, false)
				if err := a.WaitIdle(cmd.Context()); err != nil {
					return err
				}
			}
			if err := a.SaveSession(args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %d windows to %s\n", len(a.Windows()), args[0])
			return err
		},
	}
}

func newSessionRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore PATH",
		Short: "Reopen the windows and documents saved in PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, "")
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if _, err := a.RestoreSession(args[0]); err != nil {
				return err
			}
			if err := a.WaitIdle(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range a.Windows() {
				fmt.Fprintf(out, "%s\n", w.Role())
				if err := report(out, w.Tabs()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
