package mainydb

import "strings"

// fieldConstraint summarizes the index-usable shape of a single top-level
// field condition, gathered from the filter document (§4.6 step 1) before
// the filter is compiled into an opaque closure. Plain Predicates can't be
// introspected, so the planner works off the filter document directly.
type fieldConstraint struct {
	path      Path
	eq        *Value  // set by a bare literal or $eq
	in        []Value // set by $in
	gt, gte   *Value
	lt, lte   *Value
	usable    bool // false if the field has any non-range/eq/in operator
}

// gatherConstraints extracts per-field constraints from filter's top-level
// entries, skipping logical operators entirely (conservative: $or is only
// usable when every branch is independently usable against the SAME index,
// which is rare enough in practice that we just fall back to full scan for
// any filter containing $or/$nor at the top level — see Plan).
func gatherConstraints(filter *Document) ([]fieldConstraint, bool /*hasOr*/) {
	var out []fieldConstraint
	hasOr := false
	filter.Range(func(key string, val Value) bool {
		if strings.HasPrefix(key, "$") {
			if key == "$or" || key == "$nor" {
				hasOr = true
			}
			return true
		}
		out = append(out, fieldConstraintOf(key, val))
		return true
	})
	return out, hasOr
}

func fieldConstraintOf(field string, cond Value) fieldConstraint {
	fc := fieldConstraint{path: ParsePath(field), usable: true}
	condDoc, isOpDoc := cond.AsDocument()
	if !isOpDoc || !looksLikeOperatorDoc(condDoc) {
		v := cond
		fc.eq = &v
		return fc
	}
	condDoc.Range(func(op string, arg Value) bool {
		switch op {
		case "$eq":
			v := arg
			fc.eq = &v
		case "$in":
			arr, ok := arg.AsArray()
			if !ok {
				fc.usable = false
				return false
			}
			fc.in = arr
		case "$gt":
			v := arg
			fc.gt = &v
		case "$gte":
			v := arg
			fc.gte = &v
		case "$lt":
			v := arg
			fc.lt = &v
		case "$lte":
			v := arg
			fc.lte = &v
		default:
			fc.usable = false
			return false
		}
		return true
	})
	return fc
}

func (fc fieldConstraint) isRange() bool {
	return fc.usable && fc.eq == nil && fc.in == nil && (fc.gt != nil || fc.gte != nil || fc.lt != nil || fc.lte != nil)
}

// AccessPlan is the planner's output: an access path plus the residual
// predicate that must still be checked against every candidate document.
type AccessPlan struct {
	IndexName string // "" means full collection scan
	ids       func() []ObjectID
	Residual  Predicate
	usedIndex bool

	// index and ordered support sort pushdown (§4.6): when the chosen
	// access path yields ids in the index's iteration order, a caller sort
	// whose keys prefix-match the index's keys can be skipped entirely.
	index   *Index
	ordered bool
}

// Plan selects an access path for filter over coll's indexes, and builds the
// residual predicate — the full compiled filter, since no index fully
// satisfies it (§4.6 step 3).
func Plan(coll *Collection, filter *Document) (*AccessPlan, error) {
	residual, err := CompileFilter(filter)
	if err != nil {
		return nil, err
	}
	constraints, hasOr := gatherConstraints(filter)
	if hasOr || len(constraints) == 0 {
		return &AccessPlan{Residual: residual}, nil
	}

	var best *Index
	bestScore := -1
	var bestConstraint fieldConstraint
	for _, ix := range coll.indexes {
		fc, ok := matchIndexPrefix(ix, constraints)
		if !ok {
			continue
		}
		score := scoreMatch(ix, fc)
		if score > bestScore {
			bestScore = score
			best = ix
			bestConstraint = fc
		}
	}
	if best == nil {
		return &AccessPlan{Residual: residual}, nil
	}

	plan := &AccessPlan{IndexName: best.Spec.Name, Residual: residual, usedIndex: true, index: best}
	switch {
	case bestConstraint.in != nil:
		plan.ids = func() []ObjectID {
			var out []ObjectID
			seen := map[ObjectID]bool{}
			for _, v := range bestConstraint.in {
				for _, id := range best.idsForTuple([]Value{v}) {
					if !seen[id] {
						seen[id] = true
						out = append(out, id)
					}
				}
			}
			return out
		}
	case bestConstraint.eq != nil:
		eqv := *bestConstraint.eq
		plan.ordered = true
		plan.ids = func() []ObjectID { return best.idsForTuple([]Value{eqv}) }
	default:
		lo, loIncl := rangeLowerBound(bestConstraint)
		hi, hiIncl := rangeUpperBound(bestConstraint)
		plan.ordered = true
		plan.ids = func() []ObjectID { return best.idsInRange(lo, hi, loIncl, hiIncl) }
	}
	return plan, nil
}

func rangeLowerBound(fc fieldConstraint) (*Value, bool) {
	if fc.gte != nil {
		return fc.gte, true
	}
	if fc.gt != nil {
		return fc.gt, false
	}
	return nil, false
}

func rangeUpperBound(fc fieldConstraint) (*Value, bool) {
	if fc.lte != nil {
		return fc.lte, true
	}
	if fc.lt != nil {
		return fc.lt, false
	}
	return nil, false
}

// matchIndexPrefix reports whether ix's first key is covered by one of
// constraints (equality, $in, or a range), matching §4.6's "single field"
// access-path rule: only the index's first key is used to choose an access
// path; remaining keys (and the rest of the filter) are residual.
func matchIndexPrefix(ix *Index, constraints []fieldConstraint) (fieldConstraint, bool) {
	if len(ix.Spec.Keys) == 0 {
		return fieldConstraint{}, false
	}
	firstPath := ix.Spec.Keys[0].Path.String()
	for _, fc := range constraints {
		if !fc.usable {
			continue
		}
		if fc.path.String() != firstPath {
			continue
		}
		if fc.eq != nil || fc.in != nil || fc.isRange() {
			return fc, true
		}
	}
	return fieldConstraint{}, false
}

// scoreMatch ranks candidate access paths per §4.6 step 2: equality on every
// key of the index (a single-key index) scores highest, then a range on the
// first key, then equality or $in on the first key of a compound index. Only
// the first key's constraint is scored; equality constraints on a compound
// index's later keys do not raise its score.
func scoreMatch(ix *Index, fc fieldConstraint) int {
	switch {
	case fc.eq != nil && len(ix.Spec.Keys) == 1:
		return 3
	case fc.isRange():
		return 2
	case fc.eq != nil:
		return 1
	case fc.in != nil:
		return 1
	default:
		return 0
	}
}

// candidateIDs returns the ordered list of ids that pass the
// access path (full scan order, or index order) -- NOT yet filtered by the
// residual predicate; callers combine this with a live document lookup and
// Residual check.
func (p *AccessPlan) candidateIDs(fullScanOrder []ObjectID) []ObjectID {
	if p.ids == nil {
		return fullScanOrder
	}
	return p.ids()
}
