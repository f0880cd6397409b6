package series

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func obsAt(ts time.Time, asset string, values map[string]float64) Observation {
	return Observation{Timestamp: ts, Asset: asset, Values: values}
}

func TestAppendCreatesHeaderOnce(t *testing.T) {
	store := NewStore(t.TempDir())
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		err := store.Append(LongShort, obsAt(ts.Add(time.Duration(i)*time.Hour), "BTC", map[string]float64{
			"long_account":     60,
			"short_account":    40,
			"long_short_ratio": 1.5,
		}))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "longshort_history.csv"))
	if err != nil {
		t.Fatalf("read partition: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "timestamp,asset,long_account,short_account,long_short_ratio" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "2026-08-28 10:00:00,BTC,60,40,1.5" {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}

func TestAppendNeverRewritesExistingHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume_history.csv")
	// Pre-existing partitions keep whatever header they already carry.
	if err := os.WriteFile(path, []byte("timestamp,asset,volume_long,volume_short\n"), 0o644); err != nil {
		t.Fatalf("seed partition: %v", err)
	}

	store := NewStore(dir)
	err := store.Append(Volume, obsAt(time.Now().UTC(), "ETH", map[string]float64{
		"volume_long":  1,
		"volume_short": 2,
	}))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "timestamp,asset") != 1 {
		t.Fatalf("header written twice:\n%s", data)
	}
}

func TestAppendRefusesPartialRow(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Append(OpenInterest, obsAt(time.Now().UTC(), "BTC", map[string]float64{
		"oi_usd": 1000,
	}))
	if err == nil {
		t.Fatal("expected error for observation missing oi_contracts")
	}
	if _, statErr := os.Stat(filepath.Join(store.Root(), "oi_history.csv")); !os.IsNotExist(statErr) {
		t.Fatal("partial row must not create a partition")
	}
}

func TestAppendPerAssetPartition(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Append(PriceVolume1m, obsAt(time.Now().UTC(), "BTC", map[string]float64{
		"price":  100,
		"volume": 50,
	}))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "btc_1m.csv")); err != nil {
		t.Fatalf("expected per-asset partition btc_1m.csv: %v", err)
	}
}

func TestAppendStorageUnavailable(t *testing.T) {
	dir := t.TempDir()
	// A file where the partition root should be makes every append fail.
	blocked := filepath.Join(dir, "root")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed blocker: %v", err)
	}

	store := NewStore(blocked)
	err := store.Append(AvgPrice, obsAt(time.Now().UTC(), "BTC", map[string]float64{
		"avg_price_long":  101,
		"avg_price_short": 99,
	}))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestLoadPartitionSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oi_history.csv")
	content := strings.Join([]string{
		"timestamp,asset,oi_usd,oi_contracts",
		"2026-08-28 10:00:00,BTC,1000,10",
		"not-a-timestamp,BTC,1,1",
		"2026-08-28 11:00:00,BTC,notanumber,10",
		"2026-08-28 11:00:00,BTC,2000",
		"2026-08-28 12:00:00,ETH,500,5",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed partition: %v", err)
	}

	store := NewStore(dir)
	rows, err := store.loadPartition(OpenInterest, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 valid rows, got %d", len(rows))
	}
	if rows[0].Asset != "BTC" || rows[1].Asset != "ETH" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestLoadPartitionMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())
	rows, err := store.loadPartition(Volume, filepath.Join(store.Root(), "volume_history.csv"))
	if err != nil {
		t.Fatalf("missing partition must not error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
