package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("bayesnet failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bayesnet",
		Short: "Exact inference over discrete Bayesian networks",
		Long: `bayesnet reads a network description with its queries and answers every
query exactly, by enumeration (1), variable elimination (2) or variable
elimination in a computed order (3).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}
