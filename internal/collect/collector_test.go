package collect

import (
	"context"
	"testing"
	"time"

	"github.com/Luca-vn/coinhub/internal/market"
	"github.com/Luca-vn/coinhub/internal/series"
)

// stubSource serves canned values per (asset, metric) and fails everything
// listed in errs.
type stubSource struct {
	values map[string]map[market.Metric]float64
	errs   map[string]map[market.Metric]error
}

func (s *stubSource) Fetch(_ context.Context, asset string, metric market.Metric) (float64, error) {
	if errsForAsset, ok := s.errs[asset]; ok {
		if err, ok := errsForAsset[metric]; ok {
			return 0, err
		}
	}
	if valuesForAsset, ok := s.values[asset]; ok {
		if v, ok := valuesForAsset[metric]; ok {
			return v, nil
		}
	}
	return 0, &market.SourceError{Kind: market.FailureMissing, Asset: asset, Metric: metric}
}

func allMetrics(longAcc, ratio, oi, price, volume float64) map[market.Metric]float64 {
	return map[market.Metric]float64{
		market.MetricLongAccount:    longAcc,
		market.MetricLongShortRatio: ratio,
		market.MetricOpenInterest:   oi,
		market.MetricLastPrice:      price,
		market.MetricVolume:         volume,
	}
}

func TestCollectCoarseAllFamilies(t *testing.T) {
	src := &stubSource{values: map[string]map[market.Metric]float64{
		"BTC": allMetrics(60, 2.0, 10, 100, 50),
	}}
	collector := NewCollector(src, time.Second)
	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	results := collector.CollectCoarse(context.Background(), "BTC", at)
	if len(results) != len(series.CoarseFamilies) {
		t.Fatalf("expected %d families, got %d", len(series.CoarseFamilies), len(results))
	}

	ls := results[series.LongShort]
	if v, _ := ls.Value("short_account"); v != 40 {
		t.Fatalf("short_account = %v, want 40", v)
	}
	oi := results[series.OpenInterest]
	if v, _ := oi.Value("oi_usd"); v != 1000 {
		t.Fatalf("oi_usd = %v, want 1000", v)
	}
	vol := results[series.Volume]
	if v, _ := vol.Value("volume_long"); v != 666.666667 {
		t.Fatalf("volume_long = %v, want 666.666667", v)
	}
	avg := results[series.AvgPrice]
	if v, _ := avg.Value("avg_price_short"); v != 99 {
		t.Fatalf("avg_price_short = %v, want 99", v)
	}
	if !oi.Timestamp.Equal(at) {
		t.Fatalf("observation timestamp = %v, want sweep time %v", oi.Timestamp, at)
	}
}

func TestCollectCoarseOpenInterestFailureIsolated(t *testing.T) {
	src := &stubSource{
		values: map[string]map[market.Metric]float64{
			"BTC": allMetrics(60, 2.0, 10, 100, 50),
		},
		errs: map[string]map[market.Metric]error{
			"BTC": {market.MetricOpenInterest: &market.SourceError{
				Kind: market.FailureUnreachable, Asset: "BTC", Metric: market.MetricOpenInterest,
			}},
		},
	}
	collector := NewCollector(src, time.Second)

	results := collector.CollectCoarse(context.Background(), "BTC", time.Now().UTC())
	if _, ok := results[series.LongShort]; !ok {
		t.Fatal("longshort must survive an open-interest failure")
	}
	if _, ok := results[series.AvgPrice]; !ok {
		t.Fatal("avg_price needs only the price and must survive")
	}
	if _, ok := results[series.OpenInterest]; ok {
		t.Fatal("open_interest must be absent, never zero-filled")
	}
	if _, ok := results[series.Volume]; ok {
		t.Fatal("volume depends on open interest and must be absent")
	}
}

func TestCollectCoarseRatioFailure(t *testing.T) {
	src := &stubSource{
		values: map[string]map[market.Metric]float64{
			"BTC": allMetrics(60, 0, 10, 100, 50),
		},
		errs: map[string]map[market.Metric]error{
			"BTC": {market.MetricLongShortRatio: &market.SourceError{
				Kind: market.FailureMissing, Asset: "BTC", Metric: market.MetricLongShortRatio,
			}},
		},
	}
	collector := NewCollector(src, time.Second)

	results := collector.CollectCoarse(context.Background(), "BTC", time.Now().UTC())
	if _, ok := results[series.LongShort]; ok {
		t.Fatal("longshort requires the ratio")
	}
	if _, ok := results[series.Volume]; ok {
		t.Fatal("volume requires the ratio")
	}
	if _, ok := results[series.OpenInterest]; !ok {
		t.Fatal("open_interest is independent of the ratio")
	}
}

func TestCollectFine(t *testing.T) {
	src := &stubSource{values: map[string]map[market.Metric]float64{
		"BTC": allMetrics(0, 0, 0, 100, 50),
	}}
	collector := NewCollector(src, time.Second)

	obs, ok := collector.CollectFine(context.Background(), "BTC", time.Now().UTC())
	if !ok {
		t.Fatal("expected fine observation")
	}
	if v, _ := obs.Value("price"); v != 100 {
		t.Fatalf("price = %v, want 100", v)
	}

	if _, ok := collector.CollectFine(context.Background(), "ETH", time.Now().UTC()); ok {
		t.Fatal("fine row must be absent when a fetch fails")
	}
}
