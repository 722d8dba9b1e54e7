package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	chart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"greenhouse/internal/viewer"
)

// ChartHandler renders the dashboard charts server-side as PNGs, scoped to
// the same filter params as the JSON API. An empty (or too small to plot)
// selection answers 204 so the page can show its own empty state.
type ChartHandler struct {
	Dataset          *viewer.Dataset
	DistributionBins int
	Logger           *zap.Logger
}

func (h *ChartHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/charts")
	group.GET("/timeseries.png", h.timeseries)
	group.GET("/distribution.png", h.distribution)
}

func (h *ChartHandler) timeseries(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	metric := c.Query("metric")
	if metric == "" {
		Error(c, http.StatusBadRequest, "metric is required", nil)
		return
	}

	points := viewer.TimeSeries(h.Dataset.Select(f), metric)
	if len(points) < 2 {
		c.Status(http.StatusNoContent)
		return
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.TS
		ys[i] = p.Value
	}

	ch := chart.Chart{
		Title:      metric,
		Width:      900,
		Height:     360,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Name: "scaled value"},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    metric,
				XValues: xs,
				YValues: ys,
			},
		},
	}

	c.Header("Content-Type", "image/png")
	if err := ch.Render(chart.PNG, c.Writer); err != nil {
		h.Logger.Error("render timeseries chart", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}

func (h *ChartHandler) distribution(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}

	bins := viewer.Distribution(h.Dataset.Select(f), h.DistributionBins)
	if len(bins) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	bars := make([]chart.Value, len(bins))
	for i, b := range bins {
		label := ""
		if i%5 == 0 {
			label = fmt.Sprintf("%.0f", b.Lo)
		}
		bars[i] = chart.Value{Value: float64(b.Count), Label: label}
	}

	ch := chart.BarChart{
		Title:      "Distribution of scaled values",
		Width:      900,
		Height:     360,
		BarWidth:   20,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		Bars:       bars,
	}

	c.Header("Content-Type", "image/png")
	if err := ch.Render(chart.PNG, c.Writer); err != nil {
		h.Logger.Error("render distribution chart", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}
