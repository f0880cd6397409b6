package series

// SnapshotReader reconstructs the most recent observation per asset for one
// family. Nothing is cached: every call rescans the partition, so a reader
// may legitimately see a newer latest value on its next request.
type SnapshotReader struct {
	store *Store
}

func NewSnapshotReader(store *Store) *SnapshotReader {
	return &SnapshotReader{store: store}
}

// Latest returns the observation with the greatest timestamp per asset.
// Ties keep the last-seen row in store order, matching the historical
// last-row-wins behavior of the CSV files. An absent partition yields an
// empty map, not an error; assets never observed have no entry.
func (r *SnapshotReader) Latest(fam *Family) (map[string]Observation, error) {
	paths, err := r.store.partitionPaths(fam)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]Observation)
	for _, path := range paths {
		rows, err := r.store.loadPartition(fam, path)
		if err != nil {
			return nil, err
		}
		for _, obs := range rows {
			cur, seen := latest[obs.Asset]
			if !seen || !obs.Timestamp.Before(cur.Timestamp) {
				latest[obs.Asset] = obs
			}
		}
	}
	return latest, nil
}
