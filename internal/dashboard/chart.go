package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Luca-vn/coinhub/internal/series"
	"github.com/Luca-vn/coinhub/logger"
)

// handleChart renders the minute price/volume history for one asset. The
// no-data and insufficient-data cases get explicit messages so an empty
// chart is never mistaken for a rendering bug.
func (s *Server) handleChart(c *gin.Context) {
	asset := strings.ToUpper(strings.TrimSpace(c.Param("asset")))
	if asset == "" {
		c.String(http.StatusBadRequest, "missing asset")
		return
	}

	window, err := s.windows.Window(series.PriceVolume1m, asset, s.cfg.ChartPoints)
	switch {
	case errors.Is(err, series.ErrNoData):
		c.String(http.StatusOK, "No data for %s", asset)
		return
	case errors.Is(err, series.ErrInsufficientData):
		c.String(http.StatusOK, "Insufficient data for %s, try again later", asset)
		return
	case err != nil:
		s.log.WithComponent("dashboard").WithError(err).WithFields(logger.Fields{
			"asset": asset,
		}).Warn("failed to read chart window")
		c.String(http.StatusInternalServerError, "Error loading chart for %s", asset)
		return
	}

	labels := make([]string, len(window))
	prices := make([]opts.LineData, len(window))
	volumes := make([]opts.LineData, len(window))
	for i, obs := range window {
		// Stored timestamps are UTC; conversion is display-only.
		labels[i] = obs.Timestamp.In(s.displayLoc).Format("15:04:05")
		price, _ := obs.Value("price")
		volume, _ := obs.Value("volume")
		prices[i] = opts.LineData{Value: price}
		volumes[i] = opts.LineData{Value: volume}
	}

	page := components.NewPage()
	page.AddCharts(
		s.lineChart(fmt.Sprintf("%s price (1m)", asset), "Price", labels, prices),
		s.lineChart(fmt.Sprintf("%s volume (1m)", asset), "Volume", labels, volumes),
	)

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(c.Writer); err != nil {
		s.log.WithComponent("dashboard").WithError(err).Warn("failed to render chart page")
	}
}

func (s *Server) lineChart(title, seriesName string, labels []string, data []opts.LineData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("timezone %s", s.displayLoc.String()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "category",
			AxisLabel: &opts.AxisLabel{
				Rotate: 45,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "400px",
		}),
	)
	line.SetXAxis(labels)
	line.AddSeries(seriesName, data, charts.WithLineChartOpts(opts.LineChart{
		Smooth:     opts.Bool(true),
		ShowSymbol: opts.Bool(false),
	}))
	return line
}
