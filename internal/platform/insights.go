package platform

import (
	"context"
	"fmt"
	"net/url"

	"adpilot/internal/types"

	"github.com/tidwall/gjson"
)

// InsightsSource reads the platform's insights edge and maps the per-day rows
// into an EntitySummary. The rows are assumed to be post-correction: any
// delayed-attribution adjustment has already run upstream.
type InsightsSource struct {
	client *GraphClient
}

func NewInsightsSource(client *GraphClient) *InsightsSource {
	return &InsightsSource{client: client}
}

// GetEntitySummary aggregates the last windowDays of insights for the entity.
func (s *InsightsSource) GetEntitySummary(ctx context.Context, entityType types.EntityType, entityID string, windowDays int) (*types.EntitySummary, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	q := url.Values{}
	q.Set("fields", "spend,impressions,clicks,ctr,cpc,cpm,purchase_roas,action_values")
	q.Set("time_increment", "1")
	q.Set("date_preset", fmt.Sprintf("last_%dd", windowDays))
	body, err := s.client.get(ctx, entityID+"/insights", q)
	if err != nil {
		return nil, err
	}

	summary := &types.EntitySummary{
		EntityID:   entityID,
		EntityType: entityType,
		AccountID:  s.client.accountID,
	}
	var clicks, impressions int64
	gjson.GetBytes(body, "data").ForEach(func(_, row gjson.Result) bool {
		day := types.DayMetrics{
			Date:          row.Get("date_start").String(),
			Spend:         row.Get("spend").Float(),
			Impressions:   row.Get("impressions").Int(),
			Clicks:        row.Get("clicks").Int(),
			CTR:           row.Get("ctr").Float() / 100, // platform reports percent
			CPC:           row.Get("cpc").Float(),
			CPM:           row.Get("cpm").Float(),
			PurchaseValue: purchaseValue(row),
		}
		if day.Spend > 0 {
			day.ROAS = day.PurchaseValue / day.Spend
		}
		summary.Last7Days = append(summary.Last7Days, day)
		summary.Spend += day.Spend
		summary.PurchaseValue += day.PurchaseValue
		clicks += day.Clicks
		impressions += day.Impressions
		return true
	})

	if summary.Spend > 0 {
		summary.ROAS = summary.PurchaseValue / summary.Spend
	}
	if impressions > 0 {
		summary.CTR = float64(clicks) / float64(impressions)
	}
	if clicks > 0 {
		summary.CPC = summary.Spend / float64(clicks)
	}
	summary.Trend = classifyTrend(summary.Last7Days)
	return summary, nil
}

// purchaseValue prefers the purchase entry of action_values and falls back to
// purchase_roas * spend when only the ratio is reported.
func purchaseValue(row gjson.Result) float64 {
	value := 0.0
	row.Get("action_values").ForEach(func(_, av gjson.Result) bool {
		if at := av.Get("action_type").String(); at == "purchase" || at == "offsite_conversion.fb_pixel_purchase" {
			value = av.Get("value").Float()
			return false
		}
		return true
	})
	if value > 0 {
		return value
	}
	roas := 0.0
	row.Get("purchase_roas").ForEach(func(_, pr gjson.Result) bool {
		roas = pr.Get("value").Float()
		return false
	})
	return roas * row.Get("spend").Float()
}

// classifyTrend compares the back half of the window against the front half
// on ROAS, with a 10% dead band mapping to stable.
func classifyTrend(days []types.DayMetrics) types.Trend {
	if len(days) < 4 {
		return types.TrendStable
	}
	mid := len(days) / 2
	front := avgROAS(days[:mid])
	back := avgROAS(days[mid:])
	switch {
	case front == 0 && back == 0:
		return types.TrendStable
	case front == 0:
		return types.TrendUp
	case back >= front*1.1:
		return types.TrendUp
	case back <= front*0.9:
		return types.TrendDown
	default:
		return types.TrendStable
	}
}

func avgROAS(days []types.DayMetrics) float64 {
	if len(days) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range days {
		sum += d.ROAS
	}
	return sum / float64(len(days))
}
