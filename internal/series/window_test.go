package series

import (
	"errors"
	"testing"
	"time"
)

func seedMinutes(t *testing.T, store *Store, asset string, n int) time.Time {
	t.Helper()
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		mustAppend(t, store, PriceVolume1m, obsAt(base.Add(time.Duration(i)*time.Minute), asset, map[string]float64{
			"price": float64(100 + i), "volume": float64(i),
		}))
	}
	return base
}

func TestWindowBoundsAndOrder(t *testing.T) {
	store := NewStore(t.TempDir())
	seedMinutes(t, store, "BTC", 90)

	window, err := NewWindowReader(store).Window(PriceVolume1m, "BTC", 60)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 60 {
		t.Fatalf("expected 60 entries, got %d", len(window))
	}
	for i := 1; i < len(window); i++ {
		if window[i].Timestamp.Before(window[i-1].Timestamp) {
			t.Fatalf("window not ascending at %d", i)
		}
	}
	// Tail of 90 rows: prices 130..189.
	if v, _ := window[0].Value("price"); v != 130 {
		t.Fatalf("window start price = %v, want 130", v)
	}
	if v, _ := window[len(window)-1].Value("price"); v != 189 {
		t.Fatalf("window end price = %v, want 189", v)
	}
}

func TestWindowDefaultLimit(t *testing.T) {
	store := NewStore(t.TempDir())
	seedMinutes(t, store, "BTC", 75)

	window, err := NewWindowReader(store).Window(PriceVolume1m, "BTC", 0)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != DefaultWindowLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultWindowLimit, len(window))
	}
}

func TestWindowFiltersAsset(t *testing.T) {
	store := NewStore(t.TempDir())
	seedMinutes(t, store, "BTC", 10)
	seedMinutes(t, store, "ETH", 10)

	window, err := NewWindowReader(store).Window(PriceVolume1m, "BTC", 60)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	for _, obs := range window {
		if obs.Asset != "BTC" {
			t.Fatalf("window leaked asset %q", obs.Asset)
		}
	}
}

func TestWindowSortsOutOfOrderRows(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	for _, offset := range []int{2, 0, 1} {
		mustAppend(t, store, PriceVolume1m, obsAt(base.Add(time.Duration(offset)*time.Minute), "BTC", map[string]float64{
			"price": float64(offset), "volume": 1,
		}))
	}

	window, err := NewWindowReader(store).Window(PriceVolume1m, "BTC", 60)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	for i, obs := range window {
		if v, _ := obs.Value("price"); v != float64(i) {
			t.Fatalf("position %d holds price %v, want %d", i, v, i)
		}
	}
}

func TestWindowInsufficientData(t *testing.T) {
	store := NewStore(t.TempDir())
	seedMinutes(t, store, "BTC", 2)

	_, err := NewWindowReader(store).Window(PriceVolume1m, "BTC", 60)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 2 rows, got %v", err)
	}
}

func TestWindowNoData(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := NewWindowReader(store).Window(PriceVolume1m, "BTC", 60)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
