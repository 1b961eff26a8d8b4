package domain

// DefaultReferenceFormat is the canonical cover format. A row in this
// format decides which group member supplies the artwork's scalar fields.
const DefaultReferenceFormat = 85

// formatDims maps known cover format IDs to their pixel dimensions.
// Formats missing from this table produce variants with nil dimensions.
var formatDims = map[int][2]int{
	60: {120, 160},
	72: {240, 320},
	85: {600, 800},
	90: {900, 1200},
	97: {1200, 1600},
}

// FormatDims returns the pixel dimensions of a known format.
// ok is false for unrecognized format IDs.
func FormatDims(formatID int) (width, height int, ok bool) {
	d, ok := formatDims[formatID]
	if !ok {
		return 0, 0, false
	}
	return d[0], d[1], true
}

// KnownFormat reports whether formatID appears in the dimension table.
func KnownFormat(formatID int) bool {
	_, ok := formatDims[formatID]
	return ok
}
