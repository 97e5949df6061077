package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/bayesnet/pkg/bayesnet/netfile"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <input>",
		Short: "Parse and validate an input file without answering queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := netfile.ParseFile(args[0])
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "variables: %d\n", file.Network.Len())
			fmt.Fprintf(out, "queries:   %d\n", len(file.Queries))
			fmt.Fprintf(out, "max depth: %d\n", file.Network.MaxDepth())
			fmt.Fprintf(out, "order:     %s\n", file.Network)
			return nil
		},
	}
}
