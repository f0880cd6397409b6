package series

import (
	"strings"
	"time"
)

// TimestampLayout is the fixed-width, zero-padded timestamp format used in
// every partition. Values are always UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Family is a named group of related numeric fields sharing one cadence and
// one storage partition. The field list is fixed for the life of a
// partition; an existing partition file is assumed to carry a compatible
// header and is never rewritten.
type Family struct {
	Name     string
	Fields   []string
	file     string
	PerAsset bool
}

// Metric families tracked by coinhub. CoarseFamilies are swept together on
// the slow cadence; PriceVolume1m is swept per minute into one partition per
// asset.
var (
	LongShort = &Family{
		Name:   "longshort",
		Fields: []string{"long_account", "short_account", "long_short_ratio"},
		file:   "longshort_history.csv",
	}
	OpenInterest = &Family{
		Name:   "open_interest",
		Fields: []string{"oi_usd", "oi_contracts"},
		file:   "oi_history.csv",
	}
	Volume = &Family{
		Name:   "volume",
		Fields: []string{"volume_long", "volume_short"},
		file:   "volume_history.csv",
	}
	AvgPrice = &Family{
		Name:   "avg_price",
		Fields: []string{"avg_price_long", "avg_price_short"},
		file:   "avgprice_history.csv",
	}
	PriceVolume1m = &Family{
		Name:     "price_volume_1m",
		Fields:   []string{"price", "volume"},
		PerAsset: true,
	}
)

var CoarseFamilies = []*Family{LongShort, OpenInterest, Volume, AvgPrice}

// ByName resolves a family name as used in chart and dashboard requests.
func ByName(name string) *Family {
	for _, fam := range append(CoarseFamilies, PriceVolume1m) {
		if fam.Name == name {
			return fam
		}
	}
	return nil
}

// PartitionFile returns the file name of the partition holding observations
// for the given asset. Shared families ignore the asset.
func (f *Family) PartitionFile(asset string) string {
	if f.PerAsset {
		return strings.ToLower(asset) + "_1m.csv"
	}
	return f.file
}

// partitionGlob matches every partition file belonging to the family.
func (f *Family) partitionGlob() string {
	if f.PerAsset {
		return "*_1m.csv"
	}
	return f.file
}

// Header is the fixed first line written when a partition is created.
func (f *Family) Header() string {
	return "timestamp,asset," + strings.Join(f.Fields, ",")
}

// Observation is one full row for a family: the sweep timestamp, the asset
// and a value per family field. Rows are written whole or not at all.
type Observation struct {
	Timestamp time.Time
	Asset     string
	Values    map[string]float64
}

// Value returns the named field value and whether it is present.
func (o Observation) Value(field string) (float64, bool) {
	v, ok := o.Values[field]
	return v, ok
}
