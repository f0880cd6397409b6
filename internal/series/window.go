package series

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoData means the asset has no partition or no rows at all.
	ErrNoData = errors.New("no data")
	// ErrInsufficientData means rows exist but too few to chart honestly.
	ErrInsufficientData = errors.New("insufficient data")
)

const (
	// DefaultWindowLimit is the tail size when the caller passes limit <= 0.
	DefaultWindowLimit = 60
	// minWindowRows is the smallest series worth returning; below this the
	// chart would be a misleading two-point line.
	minWindowRows = 3
)

// WindowReader extracts a bounded, time-ordered tail of one family's history
// for a single asset.
type WindowReader struct {
	store *Store
}

func NewWindowReader(store *Store) *WindowReader {
	return &WindowReader{store: store}
}

// Window returns at most limit observations for the asset, ascending by
// timestamp. Rows arrive in append order, which a slow upstream call can
// push out of timestamp order, so the sort is by timestamp and stable to
// preserve last-row-wins on ties.
func (r *WindowReader) Window(fam *Family, asset string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = DefaultWindowLimit
	}

	path := filepath.Join(r.store.Root(), fam.PartitionFile(asset))
	rows, err := r.store.loadPartition(fam, path)
	if err != nil {
		return nil, err
	}

	filtered := rows[:0:0]
	for _, obs := range rows {
		if strings.EqualFold(obs.Asset, asset) {
			filtered = append(filtered, obs)
		}
	}

	if len(filtered) == 0 {
		return nil, ErrNoData
	}
	if len(filtered) < minWindowRows {
		return nil, ErrInsufficientData
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}
