package mainydb

import (
	"context"
	"sort"
)

// cancelCheckEvery bounds how many rows a blocking stage ($group, $sort)
// processes between cancellation checks (§5).
const cancelCheckEvery = 1024

// aggStage is one compiled pipeline stage: a transform from an input
// document slice to an output sequence delivered through the emit callback
// (§4.7). RunPipeline collects each stage's whole output into a slice before
// the next stage runs, so stages are not lazy and every stage, streaming ones
// (match/project/addFields/unwind) included, holds its full input in memory.
type aggStage func(ctx context.Context, in []*Document, emit func(*Document) error) error

// CompilePipeline compiles an ordered list of stage documents into a runnable
// pipeline. Each stage document must have exactly one top-level key, the
// stage operator.
func CompilePipeline(coll *Collection, stages []*Document) ([]aggStage, error) {
	out := make([]aggStage, len(stages))
	for i, sd := range stages {
		if sd.Len() != 1 {
			return nil, badPipelinef("stage %d: must have exactly one operator", i)
		}
		var name string
		var arg Value
		sd.Range(func(k string, v Value) bool { name, arg = k, v; return false })
		stage, err := compileStage(coll, name, arg)
		if err != nil {
			return nil, err
		}
		out[i] = stage
	}
	return out, nil
}

// RunPipeline executes stages over the initial document slice (already a
// live snapshot, per the cursor semantics of §5), checking ctx for
// cancellation between stage boundaries.
func RunPipeline(ctx context.Context, stages []aggStage, initial []*Document) ([]*Document, error) {
	cur := initial
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, cancelledf()
		}
		var next []*Document
		err := stage(ctx, cur, func(d *Document) error {
			next = append(next, d)
			return nil
		})
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func compileStage(coll *Collection, name string, arg Value) (aggStage, error) {
	switch name {
	case "$match":
		filterDoc, ok := arg.AsDocument()
		if !ok {
			return nil, badPipelinef("$match requires a filter document")
		}
		pred, err := CompileFilter(filterDoc)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
			for _, d := range in {
				if pred(d) {
					if err := emit(d); err != nil {
						return err
					}
				}
			}
			return nil
		}, nil
	case "$project":
		return compileProject(arg)
	case "$addFields":
		return compileAddFields(arg)
	case "$group":
		return compileGroup(arg)
	case "$sort":
		return compileAggSort(arg)
	case "$limit":
		n, ok := arg.AsInt()
		if !ok || n < 0 {
			return nil, badPipelinef("$limit requires a non-negative integer")
		}
		return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
			for i, d := range in {
				if int64(i) >= n {
					break
				}
				if err := emit(d); err != nil {
					return err
				}
			}
			return nil
		}, nil
	case "$skip":
		n, ok := arg.AsInt()
		if !ok || n < 0 {
			return nil, badPipelinef("$skip requires a non-negative integer")
		}
		return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
			for i, d := range in {
				if int64(i) < n {
					continue
				}
				if err := emit(d); err != nil {
					return err
				}
			}
			return nil
		}, nil
	case "$unwind":
		field, ok := arg.AsString()
		if !ok {
			return nil, badPipelinef("$unwind requires a field reference string")
		}
		path := ParsePath(stripDollar(field))
		return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
			for _, d := range in {
				v := ResolvePath(Doc(d), path)
				arr, ok := v.AsArray()
				if !ok || len(arr) == 0 {
					continue
				}
				for _, el := range arr {
					cp := d.Clone()
					cpv := Doc(cp)
					if err := SetPath(&cpv, path, el); err != nil {
						return err
					}
					if err := emit(cp); err != nil {
						return err
					}
				}
			}
			return nil
		}, nil
	case "$count":
		field, ok := arg.AsString()
		if !ok {
			return nil, badPipelinef("$count requires a field name string")
		}
		return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
			out := NewDocument()
			out.Set(field, Int(int64(len(in))))
			return emit(out)
		}, nil
	case "$lookup":
		return compileLookup(coll, arg)
	default:
		return nil, badPipelinef("unknown pipeline stage %q", name)
	}
}

func stripDollar(s string) string {
	if len(s) > 0 && s[0] == '$' {
		return s[1:]
	}
	return s
}

func compileProject(arg Value) (aggStage, error) {
	spec, ok := arg.AsDocument()
	if !ok {
		return nil, badPipelinef("$project requires a document")
	}
	type projField struct {
		key     string
		include bool
		expr    Expr
	}
	var fields []projField
	idIncluded := true
	inclusionMode := false
	var err error
	spec.Range(func(key string, v Value) bool {
		if key == "_id" {
			if n, ok := v.AsInt(); ok && n == 0 {
				idIncluded = false
			}
			return true
		}
		if n, ok := v.AsInt(); ok {
			inclusionMode = inclusionMode || n != 0
			fields = append(fields, projField{key: key, include: n != 0})
			return true
		}
		if b, ok := v.AsBool(); ok {
			inclusionMode = inclusionMode || b
			fields = append(fields, projField{key: key, include: b})
			return true
		}
		var e Expr
		e, err = CompileExpr(v)
		if err != nil {
			return false
		}
		inclusionMode = true
		fields = append(fields, projField{key: key, include: true, expr: e})
		return true
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
		for _, d := range in {
			out := NewDocument()
			if idIncluded {
				if id, ok := d.Get("_id"); ok {
					out.Set("_id", id)
				}
			}
			if inclusionMode {
				for _, f := range fields {
					if !f.include {
						continue
					}
					if f.expr != nil {
						v, err := f.expr(d)
						if err != nil {
							return err
						}
						out.Set(f.key, v)
						continue
					}
					if v, ok := d.Get(f.key); ok {
						out.Set(f.key, v)
					}
				}
			} else {
				excluded := map[string]bool{}
				for _, f := range fields {
					excluded[f.key] = true
				}
				d.Range(func(k string, v Value) bool {
					if k == "_id" || excluded[k] {
						return true
					}
					out.Set(k, v)
					return true
				})
			}
			if err := emit(out); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func compileAddFields(arg Value) (aggStage, error) {
	spec, ok := arg.AsDocument()
	if !ok {
		return nil, badPipelinef("$addFields requires a document")
	}
	type addField struct {
		key  string
		expr Expr
	}
	var fields []addField
	var err error
	spec.Range(func(key string, v Value) bool {
		var e Expr
		e, err = CompileExpr(v)
		if err != nil {
			return false
		}
		fields = append(fields, addField{key, e})
		return true
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
		for _, d := range in {
			out := d.Clone()
			for _, f := range fields {
				v, err := f.expr(out)
				if err != nil {
					return err
				}
				outv := Doc(out)
				if err := SetPath(&outv, ParsePath(f.key), v); err != nil {
					return err
				}
			}
			if err := emit(out); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

type accumKind int

const (
	accSum accumKind = iota
	accAvg
	accMin
	accMax
	accFirst
	accLast
	accPush
	accAddToSet
)

func parseAccumKind(op string) (accumKind, bool) {
	switch op {
	case "$sum":
		return accSum, true
	case "$avg":
		return accAvg, true
	case "$min":
		return accMin, true
	case "$max":
		return accMax, true
	case "$first":
		return accFirst, true
	case "$last":
		return accLast, true
	case "$push":
		return accPush, true
	case "$addToSet":
		return accAddToSet, true
	default:
		return 0, false
	}
}

type groupField struct {
	key  string
	kind accumKind
	expr Expr
}

type groupState struct {
	count   int
	sum     float64
	sumIsInt bool
	minmax  *Value
	first   *Value
	last    Value
	arr     []Value
}

func compileGroup(arg Value) (aggStage, error) {
	spec, ok := arg.AsDocument()
	if !ok {
		return nil, badPipelinef("$group requires a document")
	}
	idExprVal, ok := spec.Get("_id")
	if !ok {
		return nil, badPipelinef("$group requires an _id expression")
	}
	idExpr, err := CompileExpr(idExprVal)
	if err != nil {
		return nil, err
	}
	var fields []groupField
	spec.Range(func(key string, v Value) bool {
		if key == "_id" {
			return true
		}
		opDoc, ok := v.AsDocument()
		if !ok || opDoc.Len() != 1 {
			err = badPipelinef("$group field %q must be a single-accumulator document", key)
			return false
		}
		var opName string
		var opArg Value
		opDoc.Range(func(k string, av Value) bool { opName, opArg = k, av; return false })
		kind, ok := parseAccumKind(opName)
		if !ok {
			err = badPipelinef("unknown accumulator %q", opName)
			return false
		}
		e, e2 := CompileExpr(opArg)
		if e2 != nil {
			err = e2
			return false
		}
		fields = append(fields, groupField{key: key, kind: kind, expr: e})
		return true
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
		order := []string{}
		groups := map[string]map[string]*groupState{}
		idVals := map[string]Value{}
		for i, d := range in {
			if i%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return cancelledf()
				}
			}
			idv, err := idExpr(d)
			if err != nil {
				return err
			}
			key := idv.String() + "/" + idv.Kind().String()
			states, exists := groups[key]
			if !exists {
				states = map[string]*groupState{}
				for _, f := range fields {
					states[f.key] = &groupState{sumIsInt: true}
				}
				groups[key] = states
				idVals[key] = idv
				order = append(order, key)
			}
			for _, f := range fields {
				v, err := f.expr(d)
				if err != nil {
					return err
				}
				accumulate(states[f.key], f.kind, v)
			}
		}
		for _, key := range order {
			out := NewDocument()
			out.Set("_id", idVals[key])
			states := groups[key]
			for _, f := range fields {
				out.Set(f.key, finalizeAccum(states[f.key], f.kind))
			}
			if err := emit(out); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func accumulate(st *groupState, kind accumKind, v Value) {
	switch kind {
	case accSum:
		if v.IsNumeric() {
			st.sum += v.Numeric()
			if v.Kind() != KindInt {
				st.sumIsInt = false
			}
		}
	case accAvg:
		if v.IsNumeric() {
			st.sum += v.Numeric()
			st.count++
		}
	case accMin:
		if st.minmax == nil || Compare(v, *st.minmax) < 0 {
			cp := v
			st.minmax = &cp
		}
	case accMax:
		if st.minmax == nil || Compare(v, *st.minmax) > 0 {
			cp := v
			st.minmax = &cp
		}
	case accFirst:
		if st.first == nil {
			cp := v
			st.first = &cp
		}
	case accLast:
		st.last = v
	case accPush:
		st.arr = append(st.arr, v)
	case accAddToSet:
		for _, e := range st.arr {
			if valueQueryEqual(e, v) {
				return
			}
		}
		st.arr = append(st.arr, v)
	}
}

func finalizeAccum(st *groupState, kind accumKind) Value {
	switch kind {
	case accSum:
		if st.sumIsInt {
			return Int(int64(st.sum))
		}
		return Float(st.sum)
	case accAvg:
		if st.count == 0 {
			return Null()
		}
		return Float(st.sum / float64(st.count))
	case accMin, accMax:
		if st.minmax == nil {
			return Null()
		}
		return *st.minmax
	case accFirst:
		if st.first == nil {
			return Null()
		}
		return *st.first
	case accLast:
		return st.last
	case accPush, accAddToSet:
		return Array(st.arr)
	default:
		return Null()
	}
}

func compileAggSort(arg Value) (aggStage, error) {
	spec, ok := arg.AsDocument()
	if !ok {
		return nil, badPipelinef("$sort requires a document")
	}
	keys, err := sortKeysFromDoc(spec)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
		sorted := make([]*Document, len(in))
		copy(sorted, in)
		stableSortDocuments(sorted, keys)
		for i, d := range sorted {
			if i%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return cancelledf()
				}
			}
			if err := emit(d); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func sortKeysFromDoc(spec *Document) ([]IndexKey, error) {
	var keys []IndexKey
	var err error
	spec.Range(func(field string, dirVal Value) bool {
		dir, ok := dirVal.AsInt()
		if !ok || (dir != 1 && dir != -1) {
			err = badPipelinef("sort direction for %q must be 1 or -1", field)
			return false
		}
		keys = append(keys, IndexKey{Path: ParsePath(field), Dir: int(dir)})
		return true
	})
	return keys, err
}

func stableSortDocuments(docs []*Document, keys []IndexKey) {
	less := func(i, j int) bool {
		for _, k := range keys {
			av := ResolvePath(Doc(docs[i]), k.Path)
			bv := ResolvePath(Doc(docs[j]), k.Path)
			c := Compare(av, bv)
			if k.Dir < 0 {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	}
	sort.SliceStable(docs, less)
}

func compileLookup(coll *Collection, arg Value) (aggStage, error) {
	spec, ok := arg.AsDocument()
	if !ok {
		return nil, badPipelinef("$lookup requires a document")
	}
	fromV, _ := spec.Get("from")
	localV, _ := spec.Get("localField")
	foreignV, _ := spec.Get("foreignField")
	asV, _ := spec.Get("as")
	from, ok1 := fromV.AsString()
	local, ok2 := localV.AsString()
	foreign, ok3 := foreignV.AsString()
	as, ok4 := asV.AsString()
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, badPipelinef("$lookup requires from, localField, foreignField, as strings")
	}
	localPath := ParsePath(local)
	return func(ctx context.Context, in []*Document, emit func(*Document) error) error {
		// The source collection's lock is not held here: Aggregate releases
		// it before calling RunPipeline. Per §5 we take the foreign
		// collection's read lock only for this join step. A "from" name
		// that was never registered joins as an empty foreign set.
		var foreignDocs []*Document
		if foreignColl := coll.db.lookupCollection(from); foreignColl != nil {
			foreignColl.mu.RLock()
			foreignDocs = foreignColl.snapshotDocsLocked()
			foreignColl.mu.RUnlock()
		}

		foreignPath := ParsePath(foreign)
		for _, d := range in {
			localVal := ResolvePath(Doc(d), localPath)
			var matches []Value
			for _, fd := range foreignDocs {
				fv := ResolvePath(Doc(fd), foreignPath)
				if valueQueryEqual(localVal, fv) {
					matches = append(matches, Doc(fd.Clone()))
				}
			}
			out := d.Clone()
			out.Set(as, Array(matches))
			if err := emit(out); err != nil {
				return err
			}
		}
		return nil
	}, nil
}
