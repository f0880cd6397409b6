package market

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"github.com/Luca-vn/coinhub/config"
	"github.com/Luca-vn/coinhub/logger"
)

// binanceInvalidSymbol is the API error code Binance returns for a symbol it
// does not list.
const binanceInvalidSymbol = -1121

// BinanceSource fetches positioning data from Binance futures and price data
// from Binance spot. All outbound calls share one token-bucket limiter so a
// sweep over many assets stays inside the venue's request weight budget.
type BinanceSource struct {
	futures *futures.Client
	spot    *binance.Client
	limiter *rate.Limiter
	quote   string
	period  string
	log     *logger.Log
}

// NewBinanceSource builds a source from configuration. Public market data
// endpoints need no credentials.
func NewBinanceSource(cfg config.BinanceSourceConfig) *BinanceSource {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &BinanceSource{
		futures: futures.NewClient("", ""),
		spot:    binance.NewClient("", ""),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		quote:   strings.ToUpper(cfg.Quote),
		period:  cfg.Period,
		log:     logger.GetLogger(),
	}
}

// Fetch implements Source for the metrics coinhub tracks.
func (s *BinanceSource) Fetch(ctx context.Context, asset string, metric Metric) (float64, error) {
	if strings.TrimSpace(asset) == "" {
		return 0, newSourceError(FailureMissing, asset, metric, fmt.Errorf("empty asset symbol"))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, newSourceError(FailureUnreachable, asset, metric, err)
	}

	symbol := strings.ToUpper(asset) + s.quote

	switch metric {
	case MetricLongAccount:
		res, err := s.futures.NewTopLongShortAccountRatioService().
			Symbol(symbol).Period(s.period).Do(ctx)
		if err != nil {
			return 0, s.classify(asset, metric, err)
		}
		if len(res) == 0 {
			return 0, newSourceError(FailureMissing, asset, metric, nil)
		}
		return s.parse(asset, metric, res[len(res)-1].LongAccount)

	case MetricLongShortRatio:
		res, err := s.futures.NewLongShortRatioService().
			Symbol(symbol).Period(s.period).Do(ctx)
		if err != nil {
			return 0, s.classify(asset, metric, err)
		}
		if len(res) == 0 {
			return 0, newSourceError(FailureMissing, asset, metric, nil)
		}
		return s.parse(asset, metric, res[len(res)-1].LongShortRatio)

	case MetricOpenInterest:
		res, err := s.futures.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
		if err != nil {
			return 0, s.classify(asset, metric, err)
		}
		return s.parse(asset, metric, res.OpenInterest)

	case MetricLastPrice:
		res, err := s.spot.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return 0, s.classify(asset, metric, err)
		}
		if len(res) == 0 {
			return 0, newSourceError(FailureMissing, asset, metric, nil)
		}
		return s.parse(asset, metric, res[0].Price)

	case MetricVolume:
		res, err := s.spot.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		if err != nil {
			return 0, s.classify(asset, metric, err)
		}
		if len(res) == 0 {
			return 0, newSourceError(FailureMissing, asset, metric, nil)
		}
		return s.parse(asset, metric, res[0].Volume)
	}

	return 0, newSourceError(FailureMissing, asset, metric, fmt.Errorf("unknown metric %q", metric))
}

func (s *BinanceSource) parse(asset string, metric Metric, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, newSourceError(FailureMalformed, asset, metric, err)
	}
	return v, nil
}

// classify maps SDK errors onto the failure taxonomy. An API rejection for an
// unlisted symbol is data that is missing, not a venue outage.
func (s *BinanceSource) classify(asset string, metric Metric, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == binanceInvalidSymbol {
			return newSourceError(FailureMissing, asset, metric, err)
		}
		return newSourceError(FailureUnreachable, asset, metric, err)
	}
	return newSourceError(FailureUnreachable, asset, metric, err)
}
