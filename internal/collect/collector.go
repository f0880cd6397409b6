package collect

import (
	"context"
	"time"

	"github.com/Luca-vn/coinhub/internal/market"
	"github.com/Luca-vn/coinhub/internal/series"
	"github.com/Luca-vn/coinhub/logger"
)

// Collector assembles observations for one asset from the metric source.
// Each base metric is fetched at most once per call; every family that can
// be derived from the successful fetches is returned, and a failed fetch
// makes only the families that need it absent. A failure never blocks
// sibling families or sibling assets.
type Collector struct {
	source  market.Source
	timeout time.Duration
	log     *logger.Log
}

func NewCollector(source market.Source, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Collector{
		source:  source,
		timeout: timeout,
		log:     logger.GetLogger(),
	}
}

// CollectCoarse gathers the slow-cadence families for one asset, stamped
// with the sweep time. Absent families are simply missing from the map.
func (c *Collector) CollectCoarse(ctx context.Context, asset string, at time.Time) map[*series.Family]series.Observation {
	longAcc, haveLongAcc := c.fetch(ctx, asset, market.MetricLongAccount)
	ratio, haveRatio := c.fetch(ctx, asset, market.MetricLongShortRatio)
	contracts, haveOI := c.fetch(ctx, asset, market.MetricOpenInterest)
	price, havePrice := c.fetch(ctx, asset, market.MetricLastPrice)

	out := make(map[*series.Family]series.Observation, len(series.CoarseFamilies))

	if haveLongAcc && haveRatio {
		out[series.LongShort] = series.Observation{
			Timestamp: at,
			Asset:     asset,
			Values: map[string]float64{
				"long_account":     longAcc,
				"short_account":    market.ShortAccount(longAcc),
				"long_short_ratio": ratio,
			},
		}
	}

	var oiUSD float64
	if haveOI && havePrice {
		oiUSD = market.OpenInterestUSD(contracts, price)
		out[series.OpenInterest] = series.Observation{
			Timestamp: at,
			Asset:     asset,
			Values: map[string]float64{
				"oi_usd":       oiUSD,
				"oi_contracts": contracts,
			},
		}
	}

	if haveOI && havePrice && haveRatio {
		volLong, volShort := market.VolumeSplit(oiUSD, ratio)
		out[series.Volume] = series.Observation{
			Timestamp: at,
			Asset:     asset,
			Values: map[string]float64{
				"volume_long":  volLong,
				"volume_short": volShort,
			},
		}
	}

	if havePrice {
		avgLong, avgShort := market.AvgPrices(price)
		out[series.AvgPrice] = series.Observation{
			Timestamp: at,
			Asset:     asset,
			Values: map[string]float64{
				"avg_price_long":  avgLong,
				"avg_price_short": avgShort,
			},
		}
	}

	return out
}

// CollectFine gathers the per-minute price/volume observation for one asset.
// The bool result reports whether the full row could be assembled.
func (c *Collector) CollectFine(ctx context.Context, asset string, at time.Time) (series.Observation, bool) {
	price, havePrice := c.fetch(ctx, asset, market.MetricLastPrice)
	volume, haveVolume := c.fetch(ctx, asset, market.MetricVolume)
	if !havePrice || !haveVolume {
		return series.Observation{}, false
	}
	return series.Observation{
		Timestamp: at,
		Asset:     asset,
		Values: map[string]float64{
			"price":  price,
			"volume": volume,
		},
	}, true
}

func (c *Collector) fetch(ctx context.Context, asset string, metric market.Metric) (float64, bool) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.source.Fetch(callCtx, asset, metric)
	if err != nil {
		c.log.WithComponent("collector").WithError(err).WithFields(logger.Fields{
			"asset":  asset,
			"metric": string(metric),
			"kind":   string(market.FailureKindOf(err)),
		}).Warn("metric fetch failed")
		return 0, false
	}
	return v, true
}
