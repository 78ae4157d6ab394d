package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dshills/quire/internal/tab"
	"github.com/spf13/cobra"
)

func newPrintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print FILE...",
		Short: "Print documents to files",
		Long:  "Paginate each document with the stored page setup and render it to <output-dir>/<name>.txt.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPrint,
	}

	cmd.Flags().StringP("output-dir", "o", "", "directory receiving the output (defaults to ~/Documents)")

	return cmd
}

func runPrint(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	a, err := openApp(cmd, outDir)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	enc, err := encodingFlag(cmd)
	if err != nil {
		return err
	}
	tabs := a.OpenURIs(uris(args), enc, 0, false)
	if err := a.WaitIdle(cmd.Context()); err != nil {
		return err
	}

	var errs []error
	var printed []*tab.Tab
	for _, t := range tabs {
		if err := failed("open", t); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := t.Print(); err != nil {
			errs = append(errs, fmt.Errorf("print %s: %w", t.Name(), err))
			continue
		}
		printed = append(printed, t)
	}
	if err := a.WaitIdle(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, t := range printed {
		fmt.Fprintf(out, "%s -> %s\n", t.Name(), t.PrintSettings().OutputURI)
	}
	return errors.Join(errs...)
}
