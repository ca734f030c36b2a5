package mainydb

import "context"

// Cursor iterates a snapshot of matching document ids captured at creation
// time (§5): the *set* of ids is fixed at creation under a read lock, but
// each document's contents are resolved live at yield time under a short
// read lock, so later updates are observed and later deletes cause that id
// to be skipped without error.
type Cursor struct {
	ctx      context.Context
	coll     *Collection
	ids      []ObjectID
	residual Predicate
	pos      int
	cur      *Document
	err      error

	projection func(*Document) *Document
	sortKeys   []IndexKey
	sorted     bool
	skip, limit int
	hasLimit   bool

	planIndex   *Index
	planOrdered bool
}

func newCursor(ctx context.Context, coll *Collection, ids []ObjectID, plan *AccessPlan) *Cursor {
	cur := &Cursor{ctx: ctx, coll: coll, ids: ids}
	if plan != nil {
		cur.residual = plan.Residual
		cur.planIndex = plan.index
		cur.planOrdered = plan.ordered
	}
	return cur
}

// Sort requests a sort by keys. When the planner's chosen index already
// yielded ids in a matching order — keys is a prefix of the index's keys
// with matching directions — the in-memory sort is skipped (sort pushdown,
// §4.6).
func (cur *Cursor) Sort(keys []IndexKey) *Cursor {
	cur.sortKeys = keys
	return cur
}

// Skip and Limit apply after projection and sort, per §4.8's logical
// ordering: projection, sort, skip, limit.
func (cur *Cursor) Skip(n int) *Cursor  { cur.skip = n; return cur }
func (cur *Cursor) Limit(n int) *Cursor { cur.limit = n; cur.hasLimit = true; return cur }

// Project sets a post-fetch transform (used internally by find's projection
// argument); find_one and aggregate's $project stage are independent paths
// and do not go through this.
func (cur *Cursor) Project(fn func(*Document) *Document) *Cursor {
	cur.projection = fn
	return cur
}

func (cur *Cursor) materializeSorted() {
	if cur.sorted || len(cur.sortKeys) == 0 {
		return
	}
	if cur.planOrdered && cur.planIndex != nil && cur.planIndex.matchesKeyPrefix(cur.sortKeys) {
		cur.sorted = true // ids are already in index iteration order
		return
	}
	docs := make([]*Document, 0, len(cur.ids))
	liveIDs := make([]ObjectID, 0, len(cur.ids))
	for _, id := range cur.ids {
		if d, ok := cur.coll.liveDoc(id); ok {
			docs = append(docs, d)
			liveIDs = append(liveIDs, id)
		}
	}
	stableSortDocuments(docs, cur.sortKeys)
	ids := make([]ObjectID, len(docs))
	for i, d := range docs {
		id, _ := d.ObjectID()
		ids[i] = id
	}
	cur.ids = ids
	cur.sorted = true
}

// Next advances the cursor, applying the residual predicate, skip, and limit.
// It returns false at end of stream, on cancellation, or once limit is
// reached.
func (cur *Cursor) Next() bool {
	cur.materializeSorted()
	for {
		if cur.ctx != nil {
			if err := cur.ctx.Err(); err != nil {
				return false
			}
		}
		if cur.hasLimit && cur.limit <= 0 {
			return false
		}
		if cur.pos >= len(cur.ids) {
			return false
		}
		id := cur.ids[cur.pos]
		cur.pos++
		doc, ok := cur.coll.liveDoc(id)
		if !ok {
			continue // deleted after snapshot: skip without error
		}
		if cur.residual != nil && !cur.residual(doc) {
			continue
		}
		if cur.skip > 0 {
			cur.skip--
			continue
		}
		if cur.hasLimit {
			cur.limit--
		}
		if cur.projection != nil {
			doc = cur.projection(doc)
		}
		decoded, err := cur.coll.encryption().OnRead(doc)
		if err != nil {
			cur.err = err
			return false
		}
		cur.cur = decoded
		return true
	}
}

func (cur *Cursor) Doc() *Document { return cur.cur }

// Err reports a read-hook failure that terminated iteration early; nil after
// a normal end of stream.
func (cur *Cursor) Err() error { return cur.err }

// ToList drains the cursor into a slice.
func (cur *Cursor) ToList() []*Document {
	var out []*Document
	for cur.Next() {
		out = append(out, cur.Doc())
	}
	return out
}

func (cur *Cursor) Close() {}

// liveDoc resolves id to a copy of its current document under a short read
// lock (§5's "short read lock" yield-time resolution).
func (c *Collection) liveDoc(id ObjectID) (*Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.docs[i].Clone(), true
}
