package main

import (
	"fmt"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/vfs"
	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert --to ENC FILE",
		Short: "Save a document under another character encoding",
		Long:  "Load FILE, detecting its encoding unless --encoding is given, and save it again encoded as ENC.",
		Args:  cobra.ExactArgs(1),
		RunE:  runConvert,
	}

	cmd.Flags().String("to", "", "target character encoding, for example ISO-8859-15")
	cmd.Flags().StringP("output", "o", "", "write to this file instead of replacing FILE")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	charset, _ := cmd.Flags().GetString("to")
	target, err := encoding.FromCharset(charset)
	if err != nil {
		return err
	}
	from, err := encodingFlag(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, "")
	if err != nil {
		return err
	}
	defer a.Shutdown()

	t := a.OpenURIs(uris(args), from, 0, false)[0]
	if err := a.WaitIdle(cmd.Context()); err != nil {
		return err
	}
	if err := failed("open", t); err != nil {
		return err
	}

	dest := t.URI()
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		dest = vfs.URIFromPath(output)
	}
	doc := t.Document()
	source := doc.Encoding()
	t.SaveAs(dest, target, doc.NewlineType())
	if err := a.WaitIdle(cmd.Context()); err != nil {
		return err
	}
	if err := failed("save", t); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", t.Name(), source.Charset(), target.Charset())
	return nil
}
