package market

import (
	"math"
	"testing"
)

func TestShortAccount(t *testing.T) {
	if got := ShortAccount(62.5); got != 37.5 {
		t.Fatalf("ShortAccount(62.5) = %v, want 37.5", got)
	}
}

func TestLongShortRatioSplit(t *testing.T) {
	// ratio 2.0 means two longs per short
	lr := LongRatio(2.0)
	sr := ShortRatio(2.0)
	if math.Abs(lr-2.0/3.0) > 1e-12 {
		t.Fatalf("LongRatio(2.0) = %v, want 2/3", lr)
	}
	if math.Abs(lr+sr-1.0) > 1e-12 {
		t.Fatalf("ratios must sum to 1, got %v", lr+sr)
	}
}

func TestVolumeSplitRounding(t *testing.T) {
	volLong, volShort := VolumeSplit(1000, 2.0)
	if volLong != 666.666667 {
		t.Fatalf("volume_long = %v, want 666.666667", volLong)
	}
	if volShort != 333.333333 {
		t.Fatalf("volume_short = %v, want 333.333333", volShort)
	}
}

func TestOpenInterestUSD(t *testing.T) {
	if got := OpenInterestUSD(150, 2.5); got != 375 {
		t.Fatalf("OpenInterestUSD(150, 2.5) = %v, want 375", got)
	}
}

func TestAvgPrices(t *testing.T) {
	avgLong, avgShort := AvgPrices(100)
	if avgLong != 101 || avgShort != 99 {
		t.Fatalf("AvgPrices(100) = (%v, %v), want (101, 99)", avgLong, avgShort)
	}
}

func TestRound6HalfAwayFromZero(t *testing.T) {
	cases := map[float64]float64{
		0.0000005:  0.000001,
		-0.0000005: -0.000001,
		1.2345674:  1.234567,
		1.2345675:  1.234568,
	}
	for in, want := range cases {
		if got := Round6(in); got != want {
			t.Fatalf("Round6(%v) = %v, want %v", in, got, want)
		}
	}
}
