package mainydb

import (
	"context"
	"sync"
)

// Root is the live in-memory object graph for a Store: the set of databases,
// guarded by a single root lock per the lock hierarchy in §5 (root lock,
// then per-collection read-write lock, acquired in that order and never
// reversed).
type Root struct {
	store *Store
	mu    sync.RWMutex
	dbs   map[string]*Database
}

func newRoot(store *Store) *Root {
	return &Root{store: store, dbs: map[string]*Database{}}
}

// Database returns the named database, creating it if it does not exist yet.
// Any lookup registers the name, a read as well as a write.
func (r *Root) Database(name string) *Database {
	r.mu.RLock()
	if db, ok := r.dbs[name]; ok {
		r.mu.RUnlock()
		return db
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.dbs[name]; ok {
		return db
	}
	db := &Database{name: name, root: r, colls: map[string]*Collection{}}
	r.dbs[name] = db
	return db
}

// toDoc snapshots the hierarchy for a checkpoint. It takes the root lock
// exclusively and then each database/collection lock in turn while that
// collection's documents are copied, so each collection's snapshot is
// consistent. Writes to a collection are blocked only while that collection
// is copied, not for the whole checkpoint.
func (r *Root) toDoc() *rootDoc {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd := &rootDoc{version: formatVersion}
	for name, db := range r.dbs {
		rd.dbs = append(rd.dbs, db.toDoc(name))
	}
	return rd
}

func rootFromDoc(store *Store, rd *rootDoc) (*Root, error) {
	r := newRoot(store)
	for _, dbd := range rd.dbs {
		db := &Database{name: dbd.name, root: r, colls: map[string]*Collection{}}
		for _, cd := range dbd.colls {
			coll, err := collectionFromDoc(db, cd)
			if err != nil {
				return nil, err
			}
			db.colls[cd.name] = coll
		}
		r.dbs[dbd.name] = db
	}
	return r, nil
}

// Database is a named mapping from collection name to collection (§3).
type Database struct {
	name  string
	root  *Root
	mu    sync.Mutex
	colls map[string]*Collection

	// hookMu guards the hook fields on its own so hook lookup never has to
	// touch db.mu while a collection lock is held (the checkpoint acquires
	// db.mu before collection locks; reversing that order here would allow
	// a deadlock).
	hookMu     sync.Mutex
	encHooks   EncryptionHooks // database-wide default, nil if unset
	mediaHooks MediaHooks
}

// SetEncryptionHooks attaches database-wide encryption hooks; collections
// without their own hooks inherit these.
func (db *Database) SetEncryptionHooks(h EncryptionHooks) {
	db.hookMu.Lock()
	defer db.hookMu.Unlock()
	db.encHooks = h
}

// SetMediaHooks attaches database-wide media hooks.
func (db *Database) SetMediaHooks(h MediaHooks) {
	db.hookMu.Lock()
	defer db.hookMu.Unlock()
	db.mediaHooks = h
}

func (db *Database) encryptionHooks() EncryptionHooks {
	db.hookMu.Lock()
	defer db.hookMu.Unlock()
	return db.encHooks
}

func (db *Database) media() MediaHooks {
	db.hookMu.Lock()
	defer db.hookMu.Unlock()
	return db.mediaHooks
}

func (db *Database) Name() string { return db.name }

// Collection returns (creating lazily if needed) the named collection.
func (db *Database) Collection(name string) *Collection {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c, ok := db.colls[name]; ok {
		return c
	}
	c := newCollection(db, name)
	db.colls[name] = c
	return c
}

// lookupCollection returns an existing collection without creating one, or
// nil. It is $lookup's "from" resolver: a join against a name that was never
// registered behaves like an empty collection instead of registering a new
// one. (Collection, by contrast, registers the name on any call.)
func (db *Database) lookupCollection(name string) *Collection {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.colls[name]
}

func (db *Database) dropCollection(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.colls[name]; !ok {
		return false
	}
	delete(db.colls, name)
	return true
}

func (db *Database) renameCollection(oldName, newName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.colls[oldName]
	if !ok {
		return notFoundf(oldName, "collection")
	}
	if _, exists := db.colls[newName]; exists {
		return badQueryf("collection %q already exists", newName)
	}
	c.name = newName
	delete(db.colls, oldName)
	db.colls[newName] = c
	return nil
}

func (db *Database) toDoc(name string) namedDBDoc {
	db.mu.Lock()
	defer db.mu.Unlock()
	nd := namedDBDoc{name: name}
	for cname, c := range db.colls {
		nd.colls = append(nd.colls, c.toDoc(cname))
	}
	return nd
}

// Collection is a named ordered sequence of documents plus its secondary
// indexes (§3), guarded by its own read-write lock (§5's second lock level).
type Collection struct {
	db   *Database
	name string

	mu      sync.RWMutex
	docs    []*Document   // insertion order, for unindexed scans
	byID    map[ObjectID]int
	indexes []*Index

	encHooks   EncryptionHooks // nil means inherit from the database
	mediaHooks MediaHooks
}

// SetEncryptionHooks attaches encryption hooks to this collection (§6's
// per-collection transform). OnWrite runs post-update, pre-index; OnRead
// runs at cursor yield time.
func (c *Collection) SetEncryptionHooks(h EncryptionHooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encHooks = h
}

// SetMediaHooks attaches media hooks to this collection.
func (c *Collection) SetMediaHooks(h MediaHooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mediaHooks = h
}

// encryptionLocked resolves the effective encryption hooks; callers must
// hold c.mu (either mode). Falls back to the database default, then to the
// no-op pass-through.
func (c *Collection) encryptionLocked() EncryptionHooks {
	if c.encHooks != nil {
		return c.encHooks
	}
	if h := c.db.encryptionHooks(); h != nil {
		return h
	}
	return DefaultEncryptionHooks
}

func (c *Collection) encryption() EncryptionHooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encryptionLocked()
}

func (c *Collection) mediaLocked() MediaHooks {
	if c.mediaHooks != nil {
		return c.mediaHooks
	}
	return c.db.media()
}

func (c *Collection) media() MediaHooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mediaLocked()
}

func newCollection(db *Database, name string) *Collection {
	c := &Collection{db: db, name: name, byID: map[ObjectID]int{}}
	c.indexes = append(c.indexes, newIndex(IndexSpec{Name: "_id_", Keys: []IndexKey{{Path: ParsePath("_id"), Dir: 1}}, Unique: true}))
	return c
}

func collectionFromDoc(db *Database, cd namedCollDoc) (*Collection, error) {
	c := &Collection{db: db, name: cd.name, byID: map[ObjectID]int{}}
	c.docs = cd.docs
	for i, d := range c.docs {
		id, ok := d.ObjectID()
		if !ok {
			return nil, corruptFilef(nil, "document %d in %q has no _id", i, cd.name)
		}
		c.byID[id] = i
	}
	hasIDIndex := false
	for _, spec := range cd.indexes {
		if spec.Name == "_id_" {
			hasIDIndex = true
		}
		ix := newIndex(spec)
		if err := ix.build(c.docs, idsOf(c.docs)); err != nil {
			return nil, err
		}
		c.indexes = append(c.indexes, ix)
	}
	if !hasIDIndex {
		ix := newIndex(IndexSpec{Name: "_id_", Keys: []IndexKey{{Path: ParsePath("_id"), Dir: 1}}, Unique: true})
		if err := ix.build(c.docs, idsOf(c.docs)); err != nil {
			return nil, err
		}
		c.indexes = append([]*Index{ix}, c.indexes...)
	}
	return c, nil
}

func idsOf(docs []*Document) []ObjectID {
	out := make([]ObjectID, len(docs))
	for i, d := range docs {
		id, _ := d.ObjectID()
		out[i] = id
	}
	return out
}

func (c *Collection) toDoc(name string) namedCollDoc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nd := namedCollDoc{name: name, docs: make([]*Document, len(c.docs))}
	for i, d := range c.docs {
		nd.docs[i] = d.Clone()
	}
	for _, ix := range c.indexes {
		nd.indexes = append(nd.indexes, ix.Spec)
	}
	return nd
}

func (c *Collection) Name() string { return c.name }

// snapshotDocsLocked returns the live document slice; callers must hold at
// least c.mu.RLock(). Used by $lookup's join step.
func (c *Collection) snapshotDocsLocked() []*Document {
	return c.docs
}

func (c *Collection) findIndex(name string) *Index {
	for _, ix := range c.indexes {
		if ix.Spec.Name == name {
			return ix
		}
	}
	return nil
}

// noteWrite records a journaled mutation with the store. It must be called
// AFTER c.mu is released: the checkpoint the store may trigger re-acquires
// every collection lock while snapshotting.
func (c *Collection) noteWrite() {
	if c.db != nil && c.db.root != nil && c.db.root.store != nil {
		c.db.root.store.noteOp()
	}
}

// InsertOneResult is the outcome of a single insert.
type InsertOneResult struct {
	InsertedID ObjectID
}

// InsertOne validates doc against unique indexes and appends it, generating
// an _id if absent (§4.8).
func (c *Collection) InsertOne(doc *Document) (InsertOneResult, error) {
	c.mu.Lock()
	id, err := c.insertLocked(doc)
	c.mu.Unlock()
	if err != nil {
		return InsertOneResult{}, err
	}
	c.noteWrite()
	return InsertOneResult{InsertedID: id}, nil
}

func (c *Collection) insertLocked(doc *Document) (ObjectID, error) {
	fresh := doc.Clone()
	if h := c.mediaLocked(); h != nil {
		for _, key := range fresh.Keys() {
			v, _ := fresh.Get(key)
			if raw, ok := h.DetectOnWrite(key, v); ok {
				fresh.Set(key, Binary(raw))
			}
		}
	}
	transformed, err := c.encryptionLocked().OnWrite(fresh)
	if err != nil {
		return "", err
	}
	fresh = transformed
	id, hasID := fresh.ObjectID()
	if !hasID {
		id = NewObjectID()
		fresh.Set("_id", ObjectIDValue(id))
	}
	if _, exists := c.byID[id]; exists {
		return "", duplicateKeyf(c.name, "_id_", nil, "duplicate _id %s", id)
	}
	added := make([]*Index, 0, len(c.indexes))
	for _, ix := range c.indexes {
		if err := ix.insert(fresh, id); err != nil {
			for _, done := range added {
				done.remove(fresh, id)
			}
			return "", err
		}
		added = append(added, ix)
	}
	c.byID[id] = len(c.docs)
	c.docs = append(c.docs, fresh)
	return id, nil
}

// BulkOutcome is one op's result within InsertMany/BulkWrite.
type BulkOutcome struct {
	InsertedID ObjectID
	Err        error
}

// InsertMany inserts docs in order. When ordered, it stops at the first
// error; when unordered it continues and reports per-op outcomes (§4.8).
func (c *Collection) InsertMany(docs []*Document, ordered bool) ([]BulkOutcome, error) {
	c.mu.Lock()
	outcomes := make([]BulkOutcome, 0, len(docs))
	var firstErr error
	for _, d := range docs {
		id, err := c.insertLocked(d)
		outcomes = append(outcomes, BulkOutcome{InsertedID: id, Err: err})
		if err != nil && ordered {
			firstErr = err
			break
		}
	}
	c.mu.Unlock()
	c.noteWrite()
	return outcomes, firstErr
}

// Find plans filter, iterates matching live documents honoring the cursor
// snapshot semantics of §5, and returns a Cursor.
func (c *Collection) Find(ctx context.Context, filter *Document) (*Cursor, error) {
	c.mu.RLock()
	plan, err := Plan(c, filter)
	if err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	var fullScan []ObjectID
	if plan.ids == nil {
		fullScan = make([]ObjectID, len(c.docs))
		for i, d := range c.docs {
			id, _ := d.ObjectID()
			fullScan[i] = id
		}
	}
	candidates := plan.candidateIDs(fullScan)
	snapshot := make([]ObjectID, len(candidates))
	copy(snapshot, candidates)
	c.mu.RUnlock()

	if trace := c.db.root.store.opts.PlanTrace; trace != nil {
		trace(c.name, plan.IndexName)
	}
	return newCursor(ctx, c, snapshot, plan), nil
}

// FindOne returns the first matching live document, or ErrNotFound.
func (c *Collection) FindOne(ctx context.Context, filter *Document) (*Document, error) {
	cur, err := c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return cur.Doc(), nil
}

// MediaEager resolves a stored binary field of doc through the media hooks
// for a single-document read: decoded bytes, cache-backed. The second result
// is false when no media hooks are attached or the field is not binary.
func (c *Collection) MediaEager(doc *Document, field string) (MediaValue, bool) {
	return c.mediaValue(doc, field, true)
}

// MediaDeferred returns the lazy decode handle streaming scans hand out
// instead of decoding inline (Design Note 9's Eager/Deferred pair).
func (c *Collection) MediaDeferred(doc *Document, field string) (MediaValue, bool) {
	return c.mediaValue(doc, field, false)
}

func (c *Collection) mediaValue(doc *Document, field string, eager bool) (MediaValue, bool) {
	h := c.media()
	if h == nil {
		return MediaValue{}, false
	}
	raw, ok := ResolvePath(Doc(doc), ParsePath(field)).AsBinary()
	if !ok {
		return MediaValue{}, false
	}
	id, _ := doc.ObjectID()
	if eager {
		return h.DecodeEager(c.name, field, id, raw), true
	}
	return h.DecodeDeferred(c.name, field, id, raw), true
}

// UpdateResult reports the effect of an update/replace/delete call.
type UpdateResult struct {
	Matched    int
	Modified   int
	UpsertedID ObjectID
	Upserted   bool
}

// UpdateOne applies update to the first matching document. If upsert is
// true and nothing matches, a seed document is built from filter's equality
// constraints and inserted (§4.8).
func (c *Collection) UpdateOne(filter, update *Document, upsert bool) (UpdateResult, error) {
	return c.updateImpl(filter, update, upsert, false, applyUpdateAdapter)
}

// ReplaceOne replaces the first matching document's contents (preserving
// _id) with replacement.
func (c *Collection) ReplaceOne(filter, replacement *Document, upsert bool) (UpdateResult, error) {
	return c.updateImpl(filter, replacement, upsert, false, applyReplaceAdapter)
}

// UpdateMany applies update to every matching document.
func (c *Collection) UpdateMany(filter, update *Document) (UpdateResult, error) {
	return c.updateImpl(filter, update, false, true, applyUpdateAdapter)
}

func applyUpdateAdapter(doc, update *Document) (bool, error) { return ApplyUpdate(doc, update) }
func applyReplaceAdapter(doc, update *Document) (bool, error) { return applyReplace(doc, update) }

func (c *Collection) updateImpl(filter, update *Document, upsert, many bool, apply func(doc, update *Document) (bool, error)) (UpdateResult, error) {
	result, err := c.updateExec(filter, update, upsert, many, apply)
	if result.Matched > 0 || result.Upserted {
		c.noteWrite()
	}
	return result, err
}

func (c *Collection) updateExec(filter, update *Document, upsert, many bool, apply func(doc, update *Document) (bool, error)) (UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pred, err := CompileFilter(filter)
	if err != nil {
		return UpdateResult{}, err
	}

	var result UpdateResult
	for i, doc := range c.docs {
		if !pred(doc) {
			continue
		}
		result.Matched++
		before := doc.Clone()
		changed, err := apply(doc, update)
		if err != nil {
			*doc = *before
			return result, err
		}
		if changed {
			// Hook runs pre-index so indexes see the stored (transformed)
			// shape, keeping plaintext-equal values indexable (§9).
			after, herr := c.encryptionLocked().OnWrite(doc)
			if herr != nil {
				*doc = *before
				return result, herr
			}
			if after != doc {
				*doc = *after
			}
			if err := c.reindexLocked(before, doc); err != nil {
				*doc = *before
				return result, err
			}
			result.Modified++
			c.docs[i] = doc
		}
		if !many {
			return result, nil
		}
	}
	if result.Matched == 0 && upsert {
		seed := seedFromFilter(filter)
		if _, err := apply(seed, update); err != nil {
			return result, err
		}
		id, err := c.insertLocked(seed)
		if err != nil {
			return result, err
		}
		result.Upserted = true
		result.UpsertedID = id
	}
	return result, nil
}

// reindexLocked updates every index after doc changed from before to its
// current (mutated in place) contents, rolling back on a uniqueness
// violation by restoring before's indexed state (§7's rollback rule).
func (c *Collection) reindexLocked(before, after *Document) error {
	id, _ := after.ObjectID()
	for i, ix := range c.indexes {
		if err := ix.update(before, after, id); err != nil {
			for _, done := range c.indexes[:i] {
				_ = done.update(after, before, id)
			}
			return err
		}
	}
	return nil
}

// seedFromFilter builds an upsert seed document from filter's top-level
// equality constraints (§4.8's "construct a seed document from the filter's
// equality constraints").
func seedFromFilter(filter *Document) *Document {
	seed := NewDocument()
	constraints, _ := gatherConstraints(filter)
	for _, fc := range constraints {
		if fc.eq != nil {
			v := Doc(seed)
			_ = SetPath(&v, fc.path, fc.eq.Clone())
		}
	}
	return seed
}

// DeleteOne removes the first matching document.
func (c *Collection) DeleteOne(filter *Document) (int, error) {
	return c.deleteImpl(filter, false)
}

// DeleteMany removes every matching document.
func (c *Collection) DeleteMany(filter *Document) (int, error) {
	return c.deleteImpl(filter, true)
}

func (c *Collection) deleteImpl(filter *Document, many bool) (int, error) {
	deleted, err := c.deleteExec(filter, many)
	if deleted > 0 {
		c.noteWrite()
	}
	return deleted, err
}

func (c *Collection) deleteExec(filter *Document, many bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pred, err := CompileFilter(filter)
	if err != nil {
		return 0, err
	}

	deleted := 0
	kept := c.docs[:0:0]
	for _, doc := range c.docs {
		if pred(doc) && (many || deleted == 0) {
			id, _ := doc.ObjectID()
			for _, ix := range c.indexes {
				ix.remove(doc, id)
			}
			delete(c.byID, id)
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	for i, d := range c.docs {
		id, _ := d.ObjectID()
		c.byID[id] = i
	}
	return deleted, nil
}

// BulkWriteOp is one operation in a BulkWrite call.
type BulkWriteOp struct {
	InsertDoc        *Document
	UpdateFilter     *Document
	UpdateDoc        *Document
	UpdateMany       bool
	ReplaceFilter    *Document
	ReplaceDoc       *Document
	DeleteFilter     *Document
	DeleteMany       bool
}

// BulkWrite executes ops sequentially (§4.8): ordered stops on first error;
// unordered continues and aggregates errors into outcomes.
func (c *Collection) BulkWrite(ops []BulkWriteOp, ordered bool) ([]error, error) {
	outcomes := make([]error, len(ops))
	for i, op := range ops {
		var err error
		switch {
		case op.InsertDoc != nil:
			_, err = c.InsertOne(op.InsertDoc)
		case op.UpdateDoc != nil:
			if op.UpdateMany {
				_, err = c.UpdateMany(op.UpdateFilter, op.UpdateDoc)
			} else {
				_, err = c.UpdateOne(op.UpdateFilter, op.UpdateDoc, false)
			}
		case op.ReplaceDoc != nil:
			_, err = c.ReplaceOne(op.ReplaceFilter, op.ReplaceDoc, false)
		case op.DeleteFilter != nil:
			if op.DeleteMany {
				_, err = c.DeleteMany(op.DeleteFilter)
			} else {
				_, err = c.DeleteOne(op.DeleteFilter)
			}
		}
		outcomes[i] = err
		if err != nil && ordered {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// Distinct returns the set of distinct values at field across documents
// matching filter, in first-seen order (§4.8). Arrays contribute their
// elements.
func (c *Collection) Distinct(filter *Document, field string) ([]Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pred, err := CompileFilter(filter)
	if err != nil {
		return nil, err
	}
	path := ParsePath(field)
	var out []Value
	for _, doc := range c.docs {
		if !pred(doc) {
			continue
		}
		v := ResolvePath(Doc(doc), path)
		if v.IsAbsent() {
			continue
		}
		if arr, ok := v.AsArray(); ok {
			for _, el := range arr {
				out = appendDistinct(out, el)
			}
			continue
		}
		out = appendDistinct(out, v)
	}
	return out, nil
}

func appendDistinct(out []Value, v Value) []Value {
	for _, existing := range out {
		if valueQueryEqual(existing, v) {
			return out
		}
	}
	return append(out, v)
}

// CountDocuments returns a filter-honest count, not a metadata shortcut
// (§4.8).
func (c *Collection) CountDocuments(filter *Document) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pred, err := CompileFilter(filter)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, doc := range c.docs {
		if pred(doc) {
			n++
		}
	}
	return n, nil
}

// Aggregate compiles and runs pipeline over a snapshot of the collection's
// current documents.
func (c *Collection) Aggregate(ctx context.Context, pipeline []*Document) ([]*Document, error) {
	c.mu.RLock()
	stages, err := CompilePipeline(c, pipeline)
	if err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	snapshot := make([]*Document, len(c.docs))
	for i, d := range c.docs {
		snapshot[i] = d.Clone()
	}
	c.mu.RUnlock()

	return RunPipeline(ctx, stages, snapshot)
}

// CreateIndex builds and registers a new index (§4.5). Building aborts
// (leaving no partial index) on a uniqueness violation.
func (c *Collection) CreateIndex(spec IndexSpec) error {
	err := func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.findIndex(spec.Name) != nil {
			return badQueryf("index %q already exists", spec.Name)
		}
		ix := newIndex(spec)
		ids := make([]ObjectID, len(c.docs))
		for i, d := range c.docs {
			ids[i], _ = d.ObjectID()
		}
		if err := ix.build(c.docs, ids); err != nil {
			return err
		}
		c.indexes = append(c.indexes, ix)
		return nil
	}()
	if err != nil {
		return err
	}
	c.noteWrite()
	return nil
}

// DropIndex removes a named index.
func (c *Collection) DropIndex(name string) error {
	err := func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if name == "_id_" {
			return badQueryf("cannot drop the _id_ index")
		}
		for i, ix := range c.indexes {
			if ix.Spec.Name == name {
				c.indexes = append(c.indexes[:i], c.indexes[i+1:]...)
				return nil
			}
		}
		return notFoundf(name, "index")
	}()
	if err != nil {
		return err
	}
	c.noteWrite()
	return nil
}

// DropIndexes removes every index except the implicit _id_ index.
func (c *Collection) DropIndexes() error {
	c.mu.Lock()
	kept := c.indexes[:0:0]
	for _, ix := range c.indexes {
		if ix.Spec.Name == "_id_" {
			kept = append(kept, ix)
		}
	}
	c.indexes = kept
	c.mu.Unlock()
	c.noteWrite()
	return nil
}

// Drop removes the collection from its database.
func (c *Collection) Drop() error {
	if !c.db.dropCollection(c.name) {
		return notFoundf(c.name, "collection")
	}
	c.db.root.store.noteOp()
	return nil
}

// Rename renames the collection within its database.
func (c *Collection) Rename(newName string) error {
	if err := c.db.renameCollection(c.name, newName); err != nil {
		return err
	}
	c.db.root.store.noteOp()
	return nil
}
