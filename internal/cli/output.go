package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// outputFormat reads the resolved --output flag from any command in the tree.
func outputFormat(cmd *cobra.Command) string {
	return cmd.Root().PersistentFlags().Lookup("output").Value.String()
}

// render writes payload as indented JSON when --output json is set, otherwise
// it writes the text produced by textFn.
func render(cmd *cobra.Command, w io.Writer, payload any, textFn func(io.Writer)) error {
	if outputFormat(cmd) == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	textFn(w)
	return nil
}

// line is a fmt.Fprintf helper that swallows the write error, for text
// rendering where the underlying writer is stdout.
func line(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
