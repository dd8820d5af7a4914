package tracker

// StoredIndex maps a position in the newest-first workout list back to the
// index in the oldest-first stored list. The second result is false when
// displayed is out of range.
func StoredIndex(displayed, length int) (int, bool) {
	if displayed < 0 || displayed >= length {
		return 0, false
	}
	return length - 1 - displayed, true
}
