// Package config holds the learner configuration: one record enumerating
// every tunable, loaded from YAML and validated at start-up.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/actlearn/pkg/actlearn/internalerr"
)

// ExplorerConfig tunes the Bayesian explorer's rollout.
type ExplorerConfig struct {
	Random               bool    `yaml:"random"`
	UseStagnation        bool    `yaml:"use_stagnation"`
	StagnationThreshold  int     `yaml:"stagnation_threshold"`
	UsePassthrough       bool    `yaml:"use_passthrough"`
	PassthroughThreshold float64 `yaml:"passthrough_threshold"`

	Gamma                float64 `yaml:"gamma"`
	StartPu              float64 `yaml:"start_pu"`
	ExplorationTimeLimit float64 `yaml:"exploration_time_limit"`
	MetaProbability      float64 `yaml:"meta_probability"`
	BaseResetProb        float64 `yaml:"base_reset_prob"`
	FactRemovalDiscount  float64 `yaml:"fact_removal_discount"`
	RandomDiscount       float64 `yaml:"random_discount"`
	FocusSpecificRules   float64 `yaml:"focus_specific_rules"`

	EstimatedRulesPerAction int `yaml:"estimated_rules_per_action"`
	RandomPlans             int `yaml:"random_plans"`
	RandomExperiments       int `yaml:"random_experiments"`
	RandomActionTrials      int `yaml:"random_action_trials"`
	PlanDepth               int `yaml:"plan_depth"`

	SaveMotivationTrace     bool   `yaml:"save_motivation_trace"`
	MotivationTraceFileName string `yaml:"motivation_trace_file_name"`
}

// LGGExplorerConfig tunes the anticipated-generalisation explorer.
type LGGExplorerConfig struct {
	Epsilon float64 `yaml:"epsilon"`
}

// DriverConfig tunes the experiment driver.
type DriverConfig struct {
	Runs                          int  `yaml:"runs"`
	Steps                         int  `yaml:"steps"`
	ResetStateAfterStagnation     bool `yaml:"reset_state_after_stagnation"`
	ResetStateAfter               int  `yaml:"reset_state_after"`
	TestDomainEvery               int  `yaml:"test_domain_every"`
	TestOnlyWhenKnowledgeModified bool `yaml:"test_only_when_knowledge_modified"`
	AlwaysGeneralizeConstants     bool `yaml:"always_generalize_constants"`
	GeneralizationTrials          int  `yaml:"generalization_trials"`
	LeastGeneral                  bool `yaml:"least_general"`
	UseBayesianExplorer           bool `yaml:"use_bayesian_explorer"`
}

// Config is the full learner configuration.
type Config struct {
	Seed        int64   `yaml:"seed"`
	CdPrecision float64 `yaml:"cd_precision"`
	TimeLimit   float64 `yaml:"time_limit"`
	TraceRing   int     `yaml:"trace_ring"`

	BayesianExplorer ExplorerConfig    `yaml:"bayesian_explorer"`
	IRALeExplorer    LGGExplorerConfig `yaml:"irale_explorer"`
	IRALe            DriverConfig      `yaml:"irale"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		CdPrecision: 1e-3,
		TimeLimit:   10,
		TraceRing:   5000,
		BayesianExplorer: ExplorerConfig{
			UseStagnation:           true,
			StagnationThreshold:     30,
			UsePassthrough:          true,
			PassthroughThreshold:    0.95,
			Gamma:                   0.9,
			StartPu:                 0.5,
			ExplorationTimeLimit:    1.0,
			MetaProbability:         0.1,
			BaseResetProb:           0.5,
			FactRemovalDiscount:     0.9,
			RandomDiscount:          0.9,
			FocusSpecificRules:      0.25,
			EstimatedRulesPerAction: 3,
			RandomPlans:             20,
			RandomExperiments:       10,
			RandomActionTrials:      20,
			PlanDepth:               3,
			MotivationTraceFileName: "motivation",
		},
		IRALeExplorer: LGGExplorerConfig{Epsilon: 0.7},
		IRALe: DriverConfig{
			Runs:                          1,
			Steps:                         1200,
			ResetStateAfter:               30,
			TestDomainEvery:               30,
			TestOnlyWhenKnowledgeModified: true,
			GeneralizationTrials:          3,
			UseBayesianExplorer:           true,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the learner cannot run with.
func (c Config) Validate() error {
	check := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, what)
		}
		return nil
	}

	probs := map[string]float64{
		"bayesian_explorer.start_pu":              c.BayesianExplorer.StartPu,
		"bayesian_explorer.gamma":                 c.BayesianExplorer.Gamma,
		"bayesian_explorer.meta_probability":      c.BayesianExplorer.MetaProbability,
		"bayesian_explorer.base_reset_prob":       c.BayesianExplorer.BaseResetProb,
		"bayesian_explorer.fact_removal_discount": c.BayesianExplorer.FactRemovalDiscount,
		"bayesian_explorer.random_discount":       c.BayesianExplorer.RandomDiscount,
		"bayesian_explorer.focus_specific_rules":  c.BayesianExplorer.FocusSpecificRules,
		"irale_explorer.epsilon":                  c.IRALeExplorer.Epsilon,
	}
	for name, v := range probs {
		if err := check(v >= 0 && v <= 1, name+" must be a probability"); err != nil {
			return err
		}
	}

	if err := check(c.BayesianExplorer.StartPu > 0, "bayesian_explorer.start_pu must be positive"); err != nil {
		return err
	}
	if err := check(c.CdPrecision > 0, "cd_precision must be positive"); err != nil {
		return err
	}
	if err := check(c.BayesianExplorer.EstimatedRulesPerAction > 0, "bayesian_explorer.estimated_rules_per_action must be positive"); err != nil {
		return err
	}
	if err := check(c.BayesianExplorer.PlanDepth > 0, "bayesian_explorer.plan_depth must be positive"); err != nil {
		return err
	}
	if err := check(c.IRALe.Runs > 0 && c.IRALe.Steps > 0, "irale.runs and irale.steps must be positive"); err != nil {
		return err
	}
	if err := check(c.IRALe.GeneralizationTrials > 0, "irale.generalization_trials must be positive"); err != nil {
		return err
	}
	if err := check(c.IRALe.TestDomainEvery > 0, "irale.test_domain_every must be positive"); err != nil {
		return err
	}
	return nil
}
