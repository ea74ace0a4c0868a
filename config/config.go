package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/pbnjay/memory"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

const maxDefaultHashMB = 16384

type Config struct {
	Puzzle       Puzzle `yaml:"puzzle"`
	Engine       Engine `yaml:"engine"`
	Output       Output `yaml:"output"`
	SkipBadGames bool   `yaml:"skip_bad_games"`
	MetricsAddr  string `yaml:"metrics_addr,omitempty"`
}

// Puzzle holds the thresholds and search budgets used to judge positions.
// Budgets are engine nodes.
type Puzzle struct {
	StrongThreshold  int     `yaml:"strong_threshold"`
	WeakThreshold    int     `yaml:"weak_threshold"`
	InitialBudget    int     `yaml:"initial_budget"`
	BudgetMultiplier float64 `yaml:"budget_multiplier"`
	BudgetCeiling    int     `yaml:"budget_ceiling"`
	MaxPV            int     `yaml:"max_pv"`
}

type Engine struct {
	Command       string `yaml:"command"`
	Dir           string `yaml:"dir,omitempty"`
	Threads       int    `yaml:"threads"`
	HashMB        int    `yaml:"hash_mb"`
	SyzygyPath    string `yaml:"syzygy_path,omitempty"`
	StartAttempts uint   `yaml:"start_attempts"`
}

type Output struct {
	Annotate bool `yaml:"annotate"`
}

func Default() Config {
	return Config{
		Puzzle: DefaultPuzzle(),
		Engine: Engine{
			Command:       "stockfish",
			StartAttempts: 3,
		},
		SkipBadGames: true,
	}
}

func DefaultPuzzle() Puzzle {
	return Puzzle{
		StrongThreshold:  280,
		WeakThreshold:    100,
		InitialBudget:    1_000_000,
		BudgetMultiplier: 1.4,
		BudgetCeiling:    40_000_000,
		MaxPV:            2,
	}
}

// Load reads a YAML config file over the defaults. An empty filename returns the defaults.
func Load(filename string) (Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("read config '%s': %w", filename, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config '%s': %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config '%s': %w", filename, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Puzzle.Validate(); err != nil {
		return err
	}
	if c.Engine.Threads < 0 || c.Engine.HashMB < 0 {
		return fmt.Errorf("%w: engine threads and hash_mb must not be negative", ErrInvalid)
	}
	return nil
}

func (p Puzzle) Validate() error {
	switch {
	case p.StrongThreshold < 0 || p.WeakThreshold < 0:
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalid)
	case p.WeakThreshold > p.StrongThreshold:
		return fmt.Errorf("%w: weak_threshold %d is above strong_threshold %d", ErrInvalid, p.WeakThreshold, p.StrongThreshold)
	case p.InitialBudget <= 0:
		return fmt.Errorf("%w: initial_budget must be positive", ErrInvalid)
	case p.BudgetMultiplier <= 1:
		return fmt.Errorf("%w: budget_multiplier must be greater than 1", ErrInvalid)
	case p.BudgetCeiling < p.InitialBudget:
		return fmt.Errorf("%w: budget_ceiling %d is below initial_budget %d", ErrInvalid, p.BudgetCeiling, p.InitialBudget)
	case p.MaxPV < 2:
		return fmt.Errorf("%w: max_pv must be at least 2", ErrInvalid)
	}
	return nil
}

// Budgets returns the verification schedule: InitialBudget, then each budget
// times BudgetMultiplier, while it does not exceed BudgetCeiling.
func (p Puzzle) Budgets() []int {
	var budgets []int
	for b := float64(p.InitialBudget); b <= float64(p.BudgetCeiling); b *= p.BudgetMultiplier {
		n := int(math.Round(b))
		if len(budgets) != 0 && n <= budgets[len(budgets)-1] {
			n = budgets[len(budgets)-1] + 1
		}
		if n > p.BudgetCeiling {
			break
		}
		budgets = append(budgets, n)
	}
	return budgets
}

// EngineThreads returns the configured thread count, or the number of CPUs.
func (e Engine) EngineThreads() int {
	if e.Threads > 0 {
		return e.Threads
	}
	return runtime.NumCPU()
}

// EngineHashMB returns the configured hash size, or a quarter of system memory.
func (e Engine) EngineHashMB() int {
	if e.HashMB > 0 {
		return e.HashMB
	}
	mb := int(memory.TotalMemory() / 4 / (1024 * 1024))
	if mb <= 0 {
		return 16
	}
	return min(mb, maxDefaultHashMB)
}
