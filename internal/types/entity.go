package types

import "time"

// EntityType identifies the level of the ad hierarchy an entity lives at.
type EntityType string

const (
	EntityCampaign EntityType = "campaign"
	EntityAdSet    EntityType = "adset"
	EntityAd       EntityType = "ad"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCampaign, EntityAdSet, EntityAd:
		return true
	}
	return false
}

// HasBudget reports whether the platform accepts budget mutations at this level.
// Individual ads inherit their ad set's budget and cannot be adjusted directly.
func (t EntityType) HasBudget() bool {
	return t == EntityCampaign || t == EntityAdSet
}

// Trend is the coarse direction label the metrics pipeline attaches to a summary.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// DayMetrics holds one day of raw metrics inside a summary window.
type DayMetrics struct {
	Date          string  `json:"date"`
	Spend         float64 `json:"spend"`
	PurchaseValue float64 `json:"purchase_value"`
	Impressions   int64   `json:"impressions"`
	Clicks        int64   `json:"clicks"`
	ROAS          float64 `json:"roas"`
	CTR           float64 `json:"ctr"`
	CPC           float64 `json:"cpc"`
	CPM           float64 `json:"cpm"`
}

// EntitySummary is the aggregated, already-corrected view of an entity's recent
// performance. It is produced upstream and treated as an immutable snapshot for
// one evaluation cycle.
type EntitySummary struct {
	EntityID      string       `json:"entity_id"`
	EntityType    EntityType   `json:"entity_type"`
	AccountID     string       `json:"account_id"`
	Spend         float64      `json:"spend"`
	PurchaseValue float64      `json:"purchase_value"`
	ROAS          float64      `json:"roas"`
	CPC           float64      `json:"cpc"`
	CTR           float64      `json:"ctr"`
	Trend         Trend        `json:"trend"`
	Last7Days     []DayMetrics `json:"last_7_days"`
}

// MetricSeries extracts the per-day series for a named metric, oldest first.
// Unknown metric names yield nil so callers can skip them without special cases.
func (s EntitySummary) MetricSeries(metric string) []float64 {
	if len(s.Last7Days) == 0 {
		return nil
	}
	out := make([]float64, 0, len(s.Last7Days))
	for _, d := range s.Last7Days {
		switch metric {
		case MetricSpend:
			out = append(out, d.Spend)
		case MetricROAS:
			out = append(out, d.ROAS)
		case MetricCTR:
			out = append(out, d.CTR)
		case MetricCPC:
			out = append(out, d.CPC)
		case MetricCPM:
			out = append(out, d.CPM)
		default:
			return nil
		}
	}
	return out
}

// Canonical metric names shared by scoring config, baselines and summaries.
const (
	MetricSpend = "spend"
	MetricROAS  = "roas"
	MetricCTR   = "ctr"
	MetricCPC   = "cpc"
	MetricCPM   = "cpm"
)

// ObservableMetric reports whether a metric name can be read off an
// EntitySummary. Only observable metrics may carry scoring weight.
func ObservableMetric(name string) bool {
	switch name {
	case MetricSpend, MetricROAS, MetricCTR, MetricCPC, MetricCPM:
		return true
	}
	return false
}

// Strategy is the coarse stance the advisor recommends.
type Strategy string

const (
	StrategyGrowth   Strategy = "GROWTH"
	StrategyProfit   Strategy = "PROFIT"
	StrategyMaintain Strategy = "MAINTAIN"
)

// AISuggestion is the advisor's persisted annotation on an entity. It informs
// operators and future evaluations but never drives an automated action.
type AISuggestion struct {
	Analysis                  string    `json:"analysis"`
	Strategy                  Strategy  `json:"strategy"`
	SuggestedTargetROAS       *float64  `json:"suggested_target_roas,omitempty"`
	SuggestedBudgetMultiplier *float64  `json:"suggested_budget_multiplier,omitempty"`
	Reasoning                 string    `json:"reasoning"`
	UpdatedAt                 time.Time `json:"updated_at"`
}
