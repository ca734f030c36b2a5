package mainydb

// CollectionStats is the result of Collection.Stats (§4.8's "stats"
// collection-level metadata operation), grounded in the teacher's
// TableStats/TotalSize/TotalAlloc shape but computed directly from the
// in-memory Collection/Index structures rather than from a bbolt bucket's
// page-allocation counters, since this engine has no mmapped backing store
// to report allocation stats for.
type CollectionStats struct {
	Documents int
	Indexes   int
	IndexRows int
}

func (cs CollectionStats) TotalIndexed() int { return cs.IndexRows }

// Stats reports document and index counts for c.
func (c *Collection) Stats() CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := CollectionStats{Documents: len(c.docs), Indexes: len(c.indexes)}
	for _, ix := range c.indexes {
		for _, e := range ix.entries {
			st.IndexRows += len(e.ids)
		}
	}
	return st
}

// loggableDoc renders d for structured log attributes without pulling in
// encoding/json or reflect — Document already knows how to stringify itself.
func loggableDoc(d *Document) string {
	if d == nil {
		return "<none>"
	}
	return d.String()
}
