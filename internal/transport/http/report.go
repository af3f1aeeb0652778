package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"adpilot/internal/platform"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// getReport renders a self-contained HTML chart of the entity's recent daily
// performance with the current score in the header, for quick audits without
// a separate dashboard.
func (h *handlers) getReport(c *gin.Context) {
	entityType, entityID, ok := entityParams(c)
	if !ok {
		return
	}
	summary, err := h.metrics.GetEntitySummary(c.Request.Context(), entityType, entityID, h.windowDays)
	if err != nil {
		if errors.Is(err, platform.ErrEntityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entity not found on platform"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	score := h.scoring.Evaluate(*summary)

	dates := make([]string, 0, len(summary.Last7Days))
	spend := make([]opts.LineData, 0, len(summary.Last7Days))
	value := make([]opts.LineData, 0, len(summary.Last7Days))
	roas := make([]opts.LineData, 0, len(summary.Last7Days))
	for _, d := range summary.Last7Days {
		dates = append(dates, d.Date)
		spend = append(spend, opts.LineData{Value: d.Spend})
		value = append(value, opts.LineData{Value: d.PurchaseValue})
		roas = append(roas, opts.LineData{Value: d.ROAS})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s %s | score %.1f (%s)", entityType, entityID, score.FinalScore, score.Stage),
			Subtitle: fmt.Sprintf("7d spend $%.2f, purchase value $%.2f, roas %.2f, trend %s",
				summary.Spend, summary.PurchaseValue, summary.ROAS, summary.Trend),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Bottom: "0"}),
	)
	line.SetXAxis(dates).
		AddSeries("spend", spend).
		AddSeries("purchase value", value).
		AddSeries("roas", roas)

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
