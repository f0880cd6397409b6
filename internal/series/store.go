package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Luca-vn/coinhub/logger"
)

// ErrStorageUnavailable wraps any failure to create, open or write a
// partition. The affected row is dropped, never retried.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Store appends observations to CSV partitions under one root directory.
// Each partition has at most one writer goroutine at any time (the cadence
// that owns it); readers only ever scan, so appends need no locking.
type Store struct {
	root string
	log  *logger.Log
}

func NewStore(root string) *Store {
	return &Store{root: root, log: logger.GetLogger()}
}

// Root returns the partition root directory.
func (s *Store) Root() string { return s.root }

// Append writes one observation to the family's partition, creating the
// partition with its header on first write. Every family field must be
// present; a partial row is refused rather than padded.
func (s *Store) Append(fam *Family, obs Observation) error {
	if obs.Asset == "" {
		return fmt.Errorf("append to %s: empty asset", fam.Name)
	}

	row := make([]string, 0, len(fam.Fields)+2)
	row = append(row, obs.Timestamp.UTC().Format(TimestampLayout), obs.Asset)
	for _, field := range fam.Fields {
		v, ok := obs.Values[field]
		if !ok {
			return fmt.Errorf("append to %s: observation for %s is missing field %s", fam.Name, obs.Asset, field)
		}
		row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: create storage root %s: %v", ErrStorageUnavailable, s.root, err)
	}

	path := filepath.Join(s.root, fam.PartitionFile(obs.Asset))
	line := joinRow(row)

	f, created, err := openPartition(path)
	if err != nil {
		return fmt.Errorf("%w: open partition %s: %v", ErrStorageUnavailable, path, err)
	}
	defer f.Close()

	if created {
		if _, err := f.WriteString(fam.Header() + "\n"); err != nil {
			return fmt.Errorf("%w: write header to %s: %v", ErrStorageUnavailable, path, err)
		}
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("%w: append to %s: %v", ErrStorageUnavailable, path, err)
	}
	return nil
}

// openPartition opens the partition for appending and reports whether it was
// created by this call, so the header is written exactly once.
func openPartition(path string) (*os.File, bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return f, true, nil
	}
	if !os.IsExist(err) {
		return nil, false, err
	}
	f, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, err
	}
	return f, false, nil
}

// Fields never contain commas or quotes, so the row is plain joined text.
func joinRow(row []string) string {
	out := row[0]
	for _, col := range row[1:] {
		out += "," + col
	}
	return out
}

// loadPartition parses one partition file into observations in arrival
// order. Malformed rows are skipped, not fatal. A missing file yields no
// observations and no error.
func (s *Store) loadPartition(fam *Family, path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open partition %s: %v", ErrStorageUnavailable, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []Observation
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A torn trailing line from an in-flight append lands here.
			s.log.WithComponent("series_store").WithError(err).
				WithFields(logger.Fields{"partition": path}).Debug("skipping unreadable row")
			continue
		}
		obs, ok := parseRow(fam, record)
		if !ok {
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

// partitionPaths lists every partition file the family currently has.
func (s *Store) partitionPaths(fam *Family) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.root, fam.partitionGlob()))
	if err != nil {
		return nil, fmt.Errorf("%w: list partitions for %s: %v", ErrStorageUnavailable, fam.Name, err)
	}
	return paths, nil
}

func parseRow(fam *Family, record []string) (Observation, bool) {
	if len(record) != len(fam.Fields)+2 {
		return Observation{}, false
	}
	if record[0] == "timestamp" {
		return Observation{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, record[0], time.UTC)
	if err != nil {
		return Observation{}, false
	}
	if record[1] == "" {
		return Observation{}, false
	}
	values := make(map[string]float64, len(fam.Fields))
	for i, field := range fam.Fields {
		v, err := strconv.ParseFloat(record[i+2], 64)
		if err != nil {
			return Observation{}, false
		}
		values[field] = v
	}
	return Observation{Timestamp: ts, Asset: record[1], Values: values}, true
}
