package internal

// Deduplicator collapses session rows sharing an id
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate keeps one row per session id. A repeated id keeps the position
// of its first row and the fields of its last one. Rows without an id are
// dropped.
func (d *Deduplicator) Deduplicate(sessions []SessionSummary) []SessionSummary {
	index := make(map[string]int, len(sessions))
	unique := make([]SessionSummary, 0, len(sessions))

	for _, s := range sessions {
		if s.ID == "" {
			continue
		}
		if i, ok := index[s.ID]; ok {
			unique[i] = s
			continue
		}
		index[s.ID] = len(unique)
		unique = append(unique, s)
	}

	return unique
}
