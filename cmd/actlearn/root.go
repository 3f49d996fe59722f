package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "actlearn",
		Short: "Incremental relational action-model learner",
		Long: `actlearn learns STRIPS-like action rules from interaction with an
unknown domain: it executes experiments chosen by a Bayesian explorer,
revises a first-order rule set on every observation, and keeps the model
consistent with everything it has seen.`,
		SilenceUsage: true,
	}

	root.AddCommand(newLearnCmd())
	root.AddCommand(newShowCmd())

	return root
}
