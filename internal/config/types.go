package config

import "time"

// Config is the top-level configuration carrier for adpilot.
type Config struct {
	App       AppConfig       `toml:"app"`
	Platform  PlatformConfig  `toml:"platform"`
	Advisor   AdvisorConfig   `toml:"advisor"`
	Optimizer OptimizerConfig `toml:"optimizer"`
	Scoring   ScoringConfig   `toml:"scoring"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	HTTPAddr  string `toml:"http_addr"`
	LogPath   string `toml:"log_path"`
	StatePath string `toml:"state_path"`
}

// PlatformConfig describes the external ad platform API.
type PlatformConfig struct {
	Name               string `toml:"name"` // "facebook" | "tiktok"
	APIURL             string `toml:"api_url"`
	APIVersion         string `toml:"api_version"`
	AccessToken        string `toml:"access_token"`
	AccountID          string `toml:"account_id"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// AdvisorConfig describes the LLM advisory model endpoint.
type AdvisorConfig struct {
	Enabled        bool              `toml:"enabled"`
	BaseURL        string            `toml:"base_url"`
	APIKey         string            `toml:"api_key"`
	Model          string            `toml:"model"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	MaxRetries     int               `toml:"max_retries"`
	ExtraHeaders   map[string]string `toml:"extra_headers"`
	MinSpendUSD    float64           `toml:"min_spend_usd"`
	StalenessHours int               `toml:"staleness_hours"`
}

// Staleness returns the re-analysis window as a duration.
func (a AdvisorConfig) Staleness() time.Duration {
	if a.StalenessHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(a.StalenessHours) * time.Hour
}

// Timeout returns the advisor call deadline.
func (a AdvisorConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// OptimizerConfig controls sweep cadence, batch concurrency and the decision
// thresholds used by the policy chain.
type OptimizerConfig struct {
	SweepInterval      string           `toml:"sweep_interval"`
	SweepOffsetSeconds int              `toml:"sweep_offset_seconds"`
	RunImmediately     bool             `toml:"run_immediately"`
	MaxConcurrency     int              `toml:"max_concurrency"`
	WindowDays         int              `toml:"window_days"`
	EntityTypes        []string         `toml:"entity_types"`
	Thresholds         ThresholdsConfig `toml:"thresholds"`
}

// ThresholdsConfig carries the policy chain's dollar and ratio cutoffs. The
// shipped defaults mirror long-standing operator practice; tenants may override
// any of them per deployment.
type ThresholdsConfig struct {
	StopLossSpendUSD  float64 `toml:"stop_loss_spend_usd"`
	StopLossROAS      float64 `toml:"stop_loss_roas"`
	ScaleMinSpendUSD  float64 `toml:"scale_min_spend_usd"`
	ScaleUpRatio      float64 `toml:"scale_up_ratio"`
	ScaleDownRatio    float64 `toml:"scale_down_ratio"`
	ScaleUpFactor     float64 `toml:"scale_up_factor"`
	ScaleDownFactor   float64 `toml:"scale_down_factor"`
	BudgetFloorUSD    float64 `toml:"budget_floor_usd"`
	DefaultTargetROAS float64 `toml:"default_target_roas"`
}

// StageConfig is one lifecycle bucket of the scoring model, selected by spend.
type StageConfig struct {
	Name     string             `toml:"name" yaml:"name"`
	MinSpend float64            `toml:"min_spend" yaml:"min_spend"`
	MaxSpend float64            `toml:"max_spend" yaml:"max_spend"`
	Weights  map[string]float64 `toml:"weights" yaml:"weights"`
}

// Contains reports whether spend falls in the stage's [min, max) range.
func (s StageConfig) Contains(spend float64) bool {
	return spend >= s.MinSpend && spend < s.MaxSpend
}

// PlatformProfile tunes scoring per ad platform: EMA smoothing window for
// momentum and an optional single-weight boost applied before renormalization.
type PlatformProfile struct {
	EMAPeriod   int     `toml:"ema_period" yaml:"ema_period"`
	BoostStage  string  `toml:"boost_stage" yaml:"boost_stage"`
	BoostMetric string  `toml:"boost_metric" yaml:"boost_metric"`
	BoostFactor float64 `toml:"boost_factor" yaml:"boost_factor"`
}

// ScoringConfig is the per-agent scoring model definition.
type ScoringConfig struct {
	StagesPath          string                     `toml:"stages_path" yaml:"stages_path"`
	Stages              []StageConfig              `toml:"stages" yaml:"stages"`
	Baselines           map[string]float64         `toml:"baselines" yaml:"baselines"`
	MomentumSensitivity float64                    `toml:"momentum_sensitivity" yaml:"momentum_sensitivity"`
	Platforms           map[string]PlatformProfile `toml:"platforms" yaml:"platforms"`
}

// Profile returns the platform profile for name, or a zero profile.
func (s ScoringConfig) Profile(name string) PlatformProfile {
	if s.Platforms == nil {
		return PlatformProfile{}
	}
	return s.Platforms[name]
}
