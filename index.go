package mainydb

import "sort"

// IndexKey is one (field_path, direction) pair of an index definition (§3).
type IndexKey struct {
	Path Path
	Dir  int // +1 or -1
}

// IndexSpec describes an index's shape, independent of its built contents.
type IndexSpec struct {
	Name   string
	Keys   []IndexKey
	Unique bool
}

// indexEntry is one row of an index's sorted multimap: a key tuple mapped to
// the set of document ids sharing that tuple.
type indexEntry struct {
	tuple []Value
	ids   []ObjectID
}

// Index is a built secondary index: an ordered map from key tuple to the set
// of _ids with that tuple, kept sorted by tuple order so range scans and
// sort-pushdown can binary-search into it (teacher's memBucket sorted-slice
// idiom, generalized from byte keys to Value tuples).
type Index struct {
	Spec    IndexSpec
	entries []indexEntry
}

func newIndex(spec IndexSpec) *Index {
	return &Index{Spec: spec}
}

// keyTupleFor computes the key tuple for doc: a missing field contributes
// null at that position (§3).
func (ix *Index) keyTupleFor(doc *Document) []Value {
	tuple := make([]Value, len(ix.Spec.Keys))
	root := Doc(doc)
	for i, k := range ix.Spec.Keys {
		v := ResolvePath(root, k.Path)
		if v.IsAbsent() {
			v = Null()
		}
		tuple[i] = v
	}
	return tuple
}

// compareTuples compares position-by-position over the first min(len(a),
// len(b)) components with per-key direction applied. A shorter b acts as a
// prefix probe: the planner passes partial tuples when only a prefix of the
// index's keys is constrained.
func (ix *Index) compareTuples(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c := Compare(a[i], b[i])
		if ix.Spec.Keys[i].Dir < 0 {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// search returns the position of the first entry whose tuple is >= tuple
// under prefix comparison, and whether that entry's prefix matches tuple
// exactly. A full-length tuple behaves as an exact-match probe.
func (ix *Index) search(tuple []Value) (int, bool) {
	lo, hi := 0, len(ix.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if ix.compareTuples(ix.entries[mid].tuple, tuple) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(ix.entries) && tuplePrefixEqual(ix.entries[lo].tuple, tuple) {
		return lo, true
	}
	return lo, false
}

// tuplePrefixEqual reports whether full's first len(prefix) components equal
// prefix under query comparison.
func tuplePrefixEqual(full, prefix []Value) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i := range prefix {
		if !StructEqual(full[i], prefix[i]) && Compare(full[i], prefix[i]) != 0 {
			return false
		}
	}
	return true
}

func tuplesEqual(a, b []Value) bool {
	return len(a) == len(b) && tuplePrefixEqual(a, b)
}

// insert adds id under doc's key tuple, enforcing uniqueness. On violation
// the index is left unchanged and duplicateKeyf is returned.
func (ix *Index) insert(doc *Document, id ObjectID) error {
	tuple := ix.keyTupleFor(doc)
	i, found := ix.search(tuple)
	if found {
		if ix.Spec.Unique {
			return duplicateKeyf("", ix.Spec.Name, nil, "duplicate key for index %q", ix.Spec.Name)
		}
		ix.entries[i].ids = append(ix.entries[i].ids, id)
		return nil
	}
	entry := indexEntry{tuple: tuple, ids: []ObjectID{id}}
	ix.entries = append(ix.entries, indexEntry{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = entry
	return nil
}

// remove removes id from doc's key tuple bucket, dropping the bucket if it
// becomes empty.
func (ix *Index) remove(doc *Document, id ObjectID) {
	tuple := ix.keyTupleFor(doc)
	i, found := ix.search(tuple)
	if !found {
		return
	}
	ids := ix.entries[i].ids
	for j, existing := range ids {
		if existing == id {
			ids = append(ids[:j], ids[j+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
		return
	}
	ix.entries[i].ids = ids
}

// update moves id from oldDoc's tuple to newDoc's tuple if they differ.
func (ix *Index) update(oldDoc, newDoc *Document, id ObjectID) error {
	oldTuple := ix.keyTupleFor(oldDoc)
	newTuple := ix.keyTupleFor(newDoc)
	if tuplesEqual(oldTuple, newTuple) {
		return nil
	}
	ix.remove(oldDoc, id)
	if err := ix.insert(newDoc, id); err != nil {
		// Roll back: reinsert under the old tuple so the index stays in
		// one-to-one correspondence with the collection (§7 rollback rule).
		_ = ix.insert(oldDoc, id)
		return err
	}
	return nil
}

// build scans docs and populates the index from scratch, aborting (leaving
// the index empty) if a uniqueness violation is found (§4.5).
func (ix *Index) build(docs []*Document, ids []ObjectID) error {
	ix.entries = nil
	for i, doc := range docs {
		if err := ix.insert(doc, ids[i]); err != nil {
			ix.entries = nil
			return err
		}
	}
	return nil
}

// idsForTuple returns the ids stored under tuple, in index iteration order.
// A partial tuple (shorter than the index's key count) matches every entry
// sharing that prefix, so an equality probe on a compound index's first key
// collects all entries under it.
func (ix *Index) idsForTuple(tuple []Value) []ObjectID {
	i, found := ix.search(tuple)
	if !found {
		return nil
	}
	var out []ObjectID
	for ; i < len(ix.entries) && tuplePrefixEqual(ix.entries[i].tuple, tuple); i++ {
		out = append(out, ix.entries[i].ids...)
	}
	return out
}

// idsInRange returns ids for all entries whose first-key value falls within
// [lo, hi] (either bound optional), honoring the index's first key direction,
// in index iteration order. Used by the planner for range scans.
func (ix *Index) idsInRange(lo, hi *Value, loIncl, hiIncl bool) []ObjectID {
	var out []ObjectID
	for _, e := range ix.entries {
		v := e.tuple[0]
		if lo != nil {
			c := Compare(v, *lo)
			if ix.Spec.Keys[0].Dir < 0 {
				c = -c
			}
			if c < 0 || (c == 0 && !loIncl) {
				continue
			}
		}
		if hi != nil {
			c := Compare(v, *hi)
			if ix.Spec.Keys[0].Dir < 0 {
				c = -c
			}
			if c > 0 || (c == 0 && !hiIncl) {
				continue
			}
		}
		out = append(out, e.ids...)
	}
	return out
}

// allIDsOrdered returns every id in index iteration order, for sort pushdown
// over an unfiltered or residual-only scan.
func (ix *Index) allIDsOrdered() []ObjectID {
	var out []ObjectID
	for _, e := range ix.entries {
		out = append(out, e.ids...)
	}
	return out
}

// matchesKeyPrefix reports whether sortKeys (from a caller's requested sort)
// is a prefix of ix's keys with matching directions, enabling sort pushdown.
func (ix *Index) matchesKeyPrefix(sortKeys []IndexKey) bool {
	if len(sortKeys) > len(ix.Spec.Keys) {
		return false
	}
	for i, sk := range sortKeys {
		if sk.Path.String() != ix.Spec.Keys[i].Path.String() || sk.Dir != ix.Spec.Keys[i].Dir {
			return false
		}
	}
	return true
}

// sortIndexesByName sorts ixs in place by index name.
func sortIndexesByName(ixs []*Index) {
	sort.Slice(ixs, func(i, j int) bool { return ixs[i].Spec.Name < ixs[j].Spec.Name })
}
