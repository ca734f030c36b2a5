package mainydb

import (
	"fmt"
	"strings"
)

// DumpFlags selects what Database.Dump includes, grounded in the teacher's
// DumpTableHeaders/DumpRows/DumpStats/DumpIndices bitmask idiom.
type DumpFlags uint64

const (
	DumpCollHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats
	DumpIndices
	DumpIndexRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders db's collections as text, for debugging and the CLI's `dump`
// command.
func (db *Database) Dump(f DumpFlags) string {
	var w strings.Builder
	db.mu.Lock()
	names := make([]string, 0, len(db.colls))
	for name := range db.colls {
		names = append(names, name)
	}
	db.mu.Unlock()
	for _, name := range names {
		db.Collection(name).dump(&w, f)
	}
	return w.String()
}

func (c *Collection) dump(w *strings.Builder, f DumpFlags) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := CollectionStats{Documents: len(c.docs), Indexes: len(c.indexes)}
	for _, ix := range c.indexes {
		for _, e := range ix.entries {
			st.IndexRows += len(e.ids)
		}
	}

	if f.Contains(DumpCollHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d docs)\n", c.name, st.Documents)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: indexes=%d index_rows=%d\n", c.name, st.Indexes, st.IndexRows)
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(w, dumpSep2)
		}
		for i, d := range c.docs {
			fmt.Fprintf(w, "%s.%d = %s\n", c.name, i+1, loggableDoc(d))
		}
	}
	if f.Contains(DumpIndices) {
		for _, ix := range c.indexes {
			c.dumpIndex(w, ix, f)
		}
	}
}

func (c *Collection) dumpIndex(w *strings.Builder, ix *Index, f DumpFlags) {
	fmt.Fprintln(w, dumpSep2)
	fmt.Fprintf(w, "%s.i.%s (%d keys)%s\n", c.name, ix.Spec.Name, len(ix.entries), map[bool]string{true: " UNIQUE"}[ix.Spec.Unique])
	if !f.Contains(DumpIndexRows) {
		return
	}
	for i, e := range ix.entries {
		fmt.Fprintf(w, "%s.i.%s.%d: %s => %v\n", c.name, ix.Spec.Name, i+1, tupleString(e.tuple), e.ids)
	}
}

func tupleString(tuple []Value) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
