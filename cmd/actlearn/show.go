package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/actlearn/pkg/actlearn/store/sqlite"
)

func newShowCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List recorded runs and their final statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "actlearn.db", "SQLite database to read")

	return cmd
}

func runShow(ctx context.Context, dbPath string) error {
	st, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}

	for _, run := range runs {
		steps, err := st.StepsForRun(ctx, run.ID)
		if err != nil {
			return err
		}

		revisions := 0
		var last float64 = -1
		for _, s := range steps {
			if s.Revised {
				revisions++
			}
			if s.VarDist >= 0 {
				last = s.VarDist
			}
		}

		fmt.Printf("%s  domain=%s seed=%d steps=%d revisions=%d final_var_dist=%.3f\n",
			run.ID, run.Domain, run.Seed, len(steps), revisions, last)
	}

	return nil
}
