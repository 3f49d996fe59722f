package main

import (
	"context"
	"crypto/rand"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/actlearn/pkg/actlearn"
	"github.com/cognicore/actlearn/pkg/actlearn/config"
	"github.com/cognicore/actlearn/pkg/actlearn/domains"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/store"
	"github.com/cognicore/actlearn/pkg/actlearn/store/memstore"
	"github.com/cognicore/actlearn/pkg/actlearn/store/sqlite"
	"github.com/cognicore/actlearn/pkg/actlearn/trace"
)

type learnFlags struct {
	domainPath  string
	problemPath string
	configPath  string
	dbPath      string
	motivation  string
	blocks      int
	piles       int
	seed        int64
	verbose     bool
}

func newLearnCmd() *cobra.Command {
	flags := learnFlags{}

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Run the learning experiment loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLearn(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.domainPath, "domain", "", "YAML domain file (default: built-in blocksworld)")
	cmd.Flags().StringVar(&flags.problemPath, "problem", "", "YAML problem file (default: random blocksworld states)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "SQLite database for run statistics (default: in-memory)")
	cmd.Flags().StringVar(&flags.motivation, "motivation", "", "motivation trace JSON output path")
	cmd.Flags().IntVar(&flags.blocks, "blocks", 3, "blocks in the built-in blocksworld")
	cmd.Flags().IntVar(&flags.piles, "piles", 3, "floor positions in the built-in blocksworld")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "random seed (0 uses the config seed, or the clock when that is 0 too)")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "debug logging")

	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runLearn(ctx context.Context, flags learnFlags) error {
	logger, err := newLogger(flags.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := config.Default()
	if flags.configPath != "" {
		cfg, err = config.Load(flags.configPath)
		if err != nil {
			return err
		}
	}

	seed := flags.seed
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := mathrand.New(mathrand.NewSource(seed))

	var domain *logic.Domain
	domainName := "blocksworld"
	if flags.domainPath != "" {
		domain, err = domains.LoadDomain(flags.domainPath)
		if err != nil {
			return err
		}
		domainName = flags.domainPath
	} else {
		domain = domains.Blocksworld(flags.piles)
	}

	var instances []logic.Term
	var goal logic.Goal
	randomStates := true
	var initial logic.State
	if flags.problemPath != "" {
		problem, err := domains.LoadProblem(flags.problemPath, domain)
		if err != nil {
			return err
		}
		instances = problem.Instances
		goal = problem.Goal
		initial = problem.InitialState
		randomStates = false
	} else {
		instances = domains.BlocksworldInstances(flags.blocks)
	}

	var st store.Store
	if flags.dbPath != "" {
		st, err = sqlite.Open(ctx, flags.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
	} else {
		st = memstore.New()
	}
	defer st.Close()

	var motivation *trace.MotivationWriter
	switch {
	case flags.motivation != "":
		motivation = trace.NewMotivationWriter(flags.motivation)
		cfg.BayesianExplorer.SaveMotivationTrace = true
	case cfg.BayesianExplorer.SaveMotivationTrace:
		motivation = trace.NewMotivationWriter(cfg.BayesianExplorer.MotivationTraceFileName + ".json")
	}

	learner := actlearn.New(actlearn.Options{
		Domain:     domain,
		Config:     cfg,
		Rand:       rng,
		Logger:     logger,
		Motivation: motivation,
	})
	learner.Init(instances, goal)

	entropy := ulid.Monotonic(rand.Reader, 0)

	for run := 0; run < cfg.IRALe.Runs; run++ {
		runID := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
		if err := st.CreateRun(ctx, store.Run{
			ID:        runID,
			Domain:    domainName,
			Seed:      seed,
			StartedAt: time.Now(),
		}); err != nil {
			return err
		}

		state := initial
		if randomStates {
			state = domains.RandomBlocksworldState(rng, domain, instances)
		}
		domain.SetResetState(state)
		learner.Reset()

		logger.Info("run started", zap.String("run", runID), zap.Int("index", run),
			zap.Int("steps", cfg.IRALe.Steps), zap.Int64("seed", seed))

		revisedSinceLastEval := true
		varDist := -1.0

		for step := 1; step <= cfg.IRALe.Steps; step++ {
			action := learner.NextAction(state)
			if action.Zero() {
				continue
			}

			newState, authorized := domain.TryAction(state, instances, action, false)
			tr := logic.Trace{State: state, Action: action, Authorized: authorized, NewState: newState}

			revised, err := learner.Observe(tr)
			if err != nil {
				return fmt.Errorf("step %d: %w", step, err)
			}
			if revised {
				revisedSinceLastEval = true
			}

			stats := store.StepStats{
				RunID:           runID,
				Step:            step,
				CounterExamples: learner.CounterExampleCount(),
				Specificity:     learner.MeanSpecificity(),
				RevisionProb:    -1,
				Revised:         revised,
				VarDist:         -1,
				RuleDist:        learner.VarDistance(domain),
				PlanDist:        -1,
			}

			if step%cfg.IRALe.TestDomainEvery == 0 {
				if revisedSinceLastEval || !cfg.IRALe.TestOnlyWhenKnowledgeModified {
					varDist = learner.VarDistance(domain)
					revisedSinceLastEval = false
				}
				stats.VarDist = varDist

				snapshot, err := learner.SnapshotJSON()
				if err == nil {
					if err := st.SaveSnapshot(ctx, store.Snapshot{RunID: runID, Step: step, Rules: snapshot}); err != nil {
						logger.Warn("save snapshot", zap.Error(err))
					}
				}
			}

			if err := st.AppendStep(ctx, stats); err != nil {
				logger.Warn("append step", zap.Error(err))
			}

			state = newState

			if step%100 == 0 {
				logger.Info("progress",
					zap.Int("step", step),
					zap.Int("rules", len(learner.Rules())),
					zap.Int("counterExamples", learner.CounterExampleCount()),
					zap.Float64("uncertainty", learner.AverageUncertainty()))
			}
		}

		for _, r := range learner.Rules() {
			fmt.Println(r)
			fmt.Println()
		}
	}

	if motivation != nil {
		if err := motivation.Flush(); err != nil {
			logger.Warn("flush motivation trace", zap.Error(err))
		}
	}

	return nil
}
