package migrate

// RowGroup is every parsed row sharing one natural key, in arrival order.
type RowGroup struct {
	Key  int64
	Rows []Row
}

// Group partitions rows by natural key. Both the groups and the rows
// within each group keep first-seen order. No sorting is applied, so the
// transformer's primary-row fallback ("first row in the group") is
// sensitive to the order the extractor produced.
func Group(rows []Row, key func(Row) int64) []RowGroup {
	index := make(map[int64]int, len(rows))
	var groups []RowGroup

	for _, row := range rows {
		k := key(row)
		if i, ok := index[k]; ok {
			groups[i].Rows = append(groups[i].Rows, row)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, RowGroup{Key: k, Rows: []Row{row}})
	}
	return groups
}

// chunk splits records into fixed-size batches, preserving order.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 || size <= 0 {
		return nil
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}
