package market

import "math"

// Round6 rounds to 6 decimal places, half away from zero. Logged volume and
// fair-value figures must reproduce byte for byte across runs, so the rule
// is fixed here rather than left to the caller.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// ShortAccount derives the short account percentage from the long one.
func ShortAccount(longAccount float64) float64 {
	return 100.0 - longAccount
}

// LongRatio converts a long/short ratio r into the long share r/(1+r).
func LongRatio(longShortRatio float64) float64 {
	return longShortRatio / (1 + longShortRatio)
}

// ShortRatio is the complement of LongRatio.
func ShortRatio(longShortRatio float64) float64 {
	return 1 - LongRatio(longShortRatio)
}

// OpenInterestUSD converts contracts outstanding to a USD notional.
func OpenInterestUSD(contracts, lastPrice float64) float64 {
	return contracts * lastPrice
}

// VolumeSplit apportions an open-interest notional between longs and shorts
// by the long/short ratio, rounded to 6 decimals.
func VolumeSplit(openInterestUSD, longShortRatio float64) (volumeLong, volumeShort float64) {
	lr := LongRatio(longShortRatio)
	return Round6(openInterestUSD * lr), Round6(openInterestUSD * (1 - lr))
}

// AvgPrices returns synthetic long/short fair-value estimates around the
// last price. These are not upstream figures.
func AvgPrices(lastPrice float64) (avgLong, avgShort float64) {
	return Round6(lastPrice * 1.01), Round6(lastPrice * 0.99)
}
