package market

import (
	"context"
	"errors"
	"fmt"
)

// Metric names one base figure a Source can fetch for an asset. Derived
// figures (ratios, USD notionals, synthetic fair values) are computed from
// these without extra calls, see derive.go.
type Metric string

const (
	// MetricLongAccount is the top-trader long account percentage (0-100).
	MetricLongAccount Metric = "long_account"
	// MetricLongShortRatio is the global accounts long/short ratio.
	MetricLongShortRatio Metric = "long_short_ratio"
	// MetricOpenInterest is the outstanding futures open interest in contracts.
	MetricOpenInterest Metric = "open_interest"
	// MetricLastPrice is the most recent spot trade price.
	MetricLastPrice Metric = "last_price"
	// MetricVolume is the 24h rolling base-asset volume.
	MetricVolume Metric = "volume"
)

// Source fetches one named metric for one asset from an upstream venue.
// Implementations perform no retries and no local mutation; a failed call is
// simply retried by the next cadence tick.
type Source interface {
	Fetch(ctx context.Context, asset string, metric Metric) (float64, error)
}

// FailureKind classifies why a fetch failed. All kinds are non-fatal to a
// sweep: the caller moves on to the next asset or metric.
type FailureKind string

const (
	// FailureUnreachable covers network and transport errors.
	FailureUnreachable FailureKind = "unreachable"
	// FailureMalformed covers responses whose shape or values cannot be parsed.
	FailureMalformed FailureKind = "malformed"
	// FailureMissing means the venue has no data for this symbol.
	FailureMissing FailureKind = "missing"
)

// SourceError is the typed failure returned by Source implementations.
type SourceError struct {
	Kind   FailureKind
	Asset  string
	Metric Metric
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s for %s: %s: %v", e.Metric, e.Asset, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s for %s: %s", e.Metric, e.Asset, e.Kind)
}

func (e *SourceError) Unwrap() error { return e.Err }

func newSourceError(kind FailureKind, asset string, metric Metric, err error) *SourceError {
	return &SourceError{Kind: kind, Asset: asset, Metric: metric, Err: err}
}

// FailureKindOf reports the failure kind carried by err, or an empty kind
// when err is not a SourceError.
func FailureKindOf(err error) FailureKind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
