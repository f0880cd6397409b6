package dashboard

import (
	"fmt"

	"github.com/Luca-vn/coinhub/internal/series"
)

// absent is the sentinel rendered for any metric without a stored value.
// Absence is decided here, at the display boundary; the store never holds
// placeholder rows.
const absent = "-"

// Row is one dashboard table line: every coarse family's latest value for
// one asset, formatted to fixed precision or the absent sentinel.
type Row struct {
	Asset          string
	LongAccount    string
	ShortAccount   string
	LongShortRatio string
	OIUSD          string
	OIContracts    string
	VolumeLong     string
	VolumeShort    string
	AvgPriceLong   string
	AvgPriceShort  string
}

// buildRows assembles one row per tracked asset, in tracked order. The
// snapshots may disagree on freshness across families; combining a stale
// open interest with fresher positioning data is accepted.
func buildRows(assets []string, longshort, oi, volume, avgprice map[string]series.Observation) []Row {
	rows := make([]Row, 0, len(assets))
	for _, asset := range assets {
		rows = append(rows, Row{
			Asset:          asset,
			LongAccount:    cell(longshort, asset, "long_account", 2, "%"),
			ShortAccount:   cell(longshort, asset, "short_account", 2, "%"),
			LongShortRatio: cell(longshort, asset, "long_short_ratio", 2, ""),
			OIUSD:          cell(oi, asset, "oi_usd", 2, ""),
			OIContracts:    cell(oi, asset, "oi_contracts", 4, ""),
			VolumeLong:     cell(volume, asset, "volume_long", 2, ""),
			VolumeShort:    cell(volume, asset, "volume_short", 2, ""),
			AvgPriceLong:   cell(avgprice, asset, "avg_price_long", 4, ""),
			AvgPriceShort:  cell(avgprice, asset, "avg_price_short", 4, ""),
		})
	}
	return rows
}

func cell(snap map[string]series.Observation, asset, field string, prec int, suffix string) string {
	obs, ok := snap[asset]
	if !ok {
		return absent
	}
	v, ok := obs.Value(field)
	if !ok {
		return absent
	}
	return fmt.Sprintf("%.*f%s", prec, v, suffix)
}
