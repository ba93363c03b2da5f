package dashboard

// Scored is a record that can be deduplicated by identifier.
type Scored interface {
	RecordID() string
	Completeness() int
}

// Dedupe collapses records sharing an identifier into one, keeping the position
// of the first occurrence. On a duplicate the record with the strictly higher
// completeness wins; ties keep the first seen.
func Dedupe[T Scored](records []T) []T {
	out := make([]T, 0, len(records))
	index := make(map[string]int, len(records))
	for _, record := range records {
		id := record.RecordID()
		pos, seen := index[id]
		if !seen {
			index[id] = len(out)
			out = append(out, record)
			continue
		}
		if record.Completeness() > out[pos].Completeness() {
			out[pos] = record
		}
	}
	return out
}
