package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenhouse/internal/viewer"
)

// DashboardHandler serves the JSON API behind the viewer page. Every
// endpoint re-derives its response from the filtered subset of the
// in-memory dataset; an empty subset is answered with empty=true, never
// with an error.
type DashboardHandler struct {
	Dataset          *viewer.Dataset
	DistributionBins int
	Logger           *zap.Logger
}

func (h *DashboardHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/meta", h.meta)
	group.GET("/summary", h.summary)
	group.GET("/timeseries", h.timeseries)
	group.GET("/distribution", h.distribution)
	group.GET("/outliers", h.outliers)
	group.GET("/findings", h.findings)
	group.GET("/run", h.run)
}

// parseFilter reads the common filter query params: metrics and devices as
// comma-separated lists (empty = all), from/to as RFC3339 timestamps.
func parseFilter(c *gin.Context) (viewer.Filter, bool) {
	f := viewer.Filter{
		Metrics: splitList(c.Query("metrics")),
		Devices: splitList(c.Query("devices")),
	}
	for _, bound := range []struct {
		param string
		dst   **time.Time
	}{
		{"from", &f.From},
		{"to", &f.To},
	} {
		raw := c.Query(bound.param)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid "+bound.param+": expected RFC3339 timestamp", nil)
			return viewer.Filter{}, false
		}
		ts = ts.UTC()
		*bound.dst = &ts
	}
	return f, true
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *DashboardHandler) meta(c *gin.Context) {
	Ok(c, h.Dataset.Meta(), nil)
}

func (h *DashboardHandler) summary(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	rows := h.Dataset.Select(f)
	Ok(c, viewer.Summarize(rows), nil)
}

func (h *DashboardHandler) timeseries(c *gin.Context) {
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
	Ok(c, points, map[string]any{"metric": metric, "empty": len(points) == 0})
}

func (h *DashboardHandler) distribution(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	bins := viewer.Distribution(h.Dataset.Select(f), h.DistributionBins)
	Ok(c, bins, map[string]any{"empty": len(bins) == 0})
}

func (h *DashboardHandler) outliers(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	rows := viewer.OutlierByMetric(h.Dataset.Select(f))
	Ok(c, rows, map[string]any{"empty": len(rows) == 0})
}

func (h *DashboardHandler) findings(c *gin.Context) {
	Ok(c, h.Dataset.Findings(), nil)
}

func (h *DashboardHandler) run(c *gin.Context) {
	run := h.Dataset.Run()
	if run == nil {
		Error(c, http.StatusNotFound, "no pipeline run persisted in artifact", nil)
		return
	}
	Ok(c, run, nil)
}
