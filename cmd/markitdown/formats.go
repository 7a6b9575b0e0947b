package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tsawler/markitdown"
	"github.com/tsawler/markitdown/format"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported formats and converters",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FORMAT\tMIME TYPE\tEXTENSIONS")
	for _, f := range format.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f, f.MIME(), strings.Join(f.Extensions(), " "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CONVERTER\tPRIORITY\t")
	for _, r := range markitdown.New().Converters() {
		fmt.Fprintf(w, "%s\t%g\t\n", r.Converter.Name(), r.Priority)
	}
	return w.Flush()
}
