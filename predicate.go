package mainydb

import "strings"

// Predicate is a compiled filter: a closure over a document, matching §4.3's
// "compilation produces a closure over an abstract document cursor returning
// boolean" requirement. Evaluation never errors; type mismatches evaluate to
// false, matching MongoDB convention.
type Predicate func(d *Document) bool

// CompileFilter compiles a filter document into a Predicate. It returns
// BadQuery on unknown operators or malformed shapes; it never returns an
// error for things that are merely unsatisfiable (handled inside Predicate).
func CompileFilter(filter *Document) (Predicate, error) {
	return compileAnd(filter)
}

// compileAnd builds the implicit conjunction of a filter document's
// top-level entries: each key is either a logical operator or a field path.
func compileAnd(filter *Document) (Predicate, error) {
	var preds []Predicate
	var err error
	filter.Range(func(key string, val Value) bool {
		var p Predicate
		if strings.HasPrefix(key, "$") {
			p, err = compileLogical(key, val)
		} else {
			p, err = compileFieldCondition(key, val)
		}
		if err != nil {
			return false
		}
		preds = append(preds, p)
		return true
	})
	if err != nil {
		return nil, err
	}
	return andAll(preds), nil
}

func andAll(preds []Predicate) Predicate {
	return func(d *Document) bool {
		for _, p := range preds {
			if !p(d) {
				return false
			}
		}
		return true
	}
}

func compileLogical(op string, val Value) (Predicate, error) {
	switch op {
	case "$and", "$or", "$nor":
		arr, ok := val.AsArray()
		if !ok {
			return nil, badQueryf("%s requires an array of filters", op)
		}
		subs := make([]Predicate, len(arr))
		for i, sv := range arr {
			sd, ok := sv.AsDocument()
			if !ok {
				return nil, badQueryf("%s: element %d is not a filter document", op, i)
			}
			p, err := compileAnd(sd)
			if err != nil {
				return nil, err
			}
			subs[i] = p
		}
		switch op {
		case "$and":
			return andAll(subs), nil
		case "$or":
			return func(d *Document) bool {
				for _, p := range subs {
					if p(d) {
						return true
					}
				}
				return false
			}, nil
		default: // $nor
			return func(d *Document) bool {
				for _, p := range subs {
					if p(d) {
						return false
					}
				}
				return true
			}, nil
		}
	case "$not":
		// $not negates a single operator document, not the overall filter
		// (§4.3); it only has a field to apply that negation to when nested
		// inside a field condition, so it is handled in compileValueOp and
		// rejected here at the top level.
		return nil, badQueryf("$not must be nested within a field condition")
	default:
		return nil, badQueryf("unknown logical operator %q", op)
	}
}

// compileFieldCondition compiles a single `field: condition` entry, where
// condition is either a literal (equality) or a document of operators
// (possibly including $not).
func compileFieldCondition(field string, cond Value) (Predicate, error) {
	path := ParsePath(field)
	condDoc, isOpDoc := cond.AsDocument()
	if !isOpDoc || !looksLikeOperatorDoc(condDoc) {
		return fieldPredicate(path, eqValueOp(cond)), nil
	}
	var ops []valueOp
	var err error
	condDoc.Range(func(op string, arg Value) bool {
		vop, e := compileValueOp(op, arg)
		if e != nil {
			err = e
			return false
		}
		ops = append(ops, vop)
		return true
	})
	if err != nil {
		return nil, err
	}
	return fieldPredicate(path, andValueOps(ops)), nil
}

func looksLikeOperatorDoc(d *Document) bool {
	if d.Len() == 0 {
		return false
	}
	allOps := true
	d.Range(func(key string, _ Value) bool {
		if !strings.HasPrefix(key, "$") {
			allOps = false
			return false
		}
		return true
	})
	return allOps
}

// valueOp matches a single resolved Value (or, per the implicit
// array-traversal rule, is invoked once per array element by fieldPredicate).
type valueOp func(v Value) bool

func andValueOps(ops []valueOp) valueOp {
	return func(v Value) bool {
		for _, op := range ops {
			if !op(v) {
				return false
			}
		}
		return true
	}
}

func eqValueOp(want Value) valueOp {
	return func(v Value) bool { return valueQueryEqual(v, want) }
}

// fieldPredicate resolves path within the document and applies op, honoring
// the implicit array-traversal rule (§4.3): if the resolved value is an
// array, op is tried against the array itself and against each element.
func fieldPredicate(path Path, op valueOp) Predicate {
	return func(d *Document) bool {
		v := ResolvePath(Doc(d), path)
		if op(v) {
			return true
		}
		if arr, ok := v.AsArray(); ok {
			for _, el := range arr {
				if op(el) {
					return true
				}
			}
		}
		return false
	}
}

func compileValueOp(op string, arg Value) (valueOp, error) {
	switch op {
	case "$eq":
		return eqValueOp(arg), nil
	case "$ne":
		inner := eqValueOp(arg)
		return func(v Value) bool { return !inner(v) }, nil
	case "$gt":
		return comparisonOp(arg, func(c int) bool { return c > 0 }), nil
	case "$gte":
		return comparisonOp(arg, func(c int) bool { return c >= 0 }), nil
	case "$lt":
		return comparisonOp(arg, func(c int) bool { return c < 0 }), nil
	case "$lte":
		return comparisonOp(arg, func(c int) bool { return c <= 0 }), nil
	case "$in":
		vals, ok := arg.AsArray()
		if !ok {
			return nil, badQueryf("$in requires an array")
		}
		return func(v Value) bool {
			for _, want := range vals {
				if valueQueryEqual(v, want) {
					return true
				}
			}
			return false
		}, nil
	case "$nin":
		vals, ok := arg.AsArray()
		if !ok {
			return nil, badQueryf("$nin requires an array")
		}
		return func(v Value) bool {
			for _, want := range vals {
				if valueQueryEqual(v, want) {
					return false
				}
			}
			return true
		}, nil
	case "$all":
		vals, ok := arg.AsArray()
		if !ok {
			return nil, badQueryf("$all requires an array")
		}
		return func(v Value) bool {
			arr, ok := v.AsArray()
			if !ok {
				return false
			}
			for _, want := range vals {
				found := false
				for _, el := range arr {
					if valueQueryEqual(el, want) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		}, nil
	case "$size":
		n, ok := arg.AsInt()
		if !ok {
			return nil, badQueryf("$size requires an integer")
		}
		return func(v Value) bool {
			arr, ok := v.AsArray()
			return ok && int64(len(arr)) == n
		}, nil
	case "$elemMatch":
		sub, ok := arg.AsDocument()
		if !ok {
			return nil, badQueryf("$elemMatch requires a document")
		}
		elemPred, err := compileElemMatch(sub)
		if err != nil {
			return nil, err
		}
		return func(v Value) bool {
			arr, ok := v.AsArray()
			if !ok {
				return false
			}
			for _, el := range arr {
				if elemPred(el) {
					return true
				}
			}
			return false
		}, nil
	case "$not":
		sub, ok := arg.AsDocument()
		if !ok {
			return nil, badQueryf("$not requires an operator document")
		}
		var subOps []valueOp
		var err error
		sub.Range(func(subOp string, subArg Value) bool {
			vop, e := compileValueOp(subOp, subArg)
			if e != nil {
				err = e
				return false
			}
			subOps = append(subOps, vop)
			return true
		})
		if err != nil {
			return nil, err
		}
		inner := andValueOps(subOps)
		return func(v Value) bool { return !inner(v) }, nil
	default:
		return nil, badQueryf("unknown operator %q", op)
	}
}

func comparisonOp(arg Value, test func(c int) bool) valueOp {
	return func(v Value) bool {
		if v.IsAbsent() {
			return false
		}
		return test(Compare(v, arg))
	}
}

// compileElemMatch compiles $elemMatch's sub-predicate. If sub looks like a
// document of field-paths (any key without a "$" prefix), each array
// element is treated as a document and matched with compileAnd. Otherwise
// sub is treated as a set of value-operators applied to the element itself,
// and the implicit array-traversal collapse is disabled for this nesting.
func compileElemMatch(sub *Document) (valueOp, error) {
	if !looksLikeOperatorDoc(sub) {
		docPred, err := compileAnd(sub)
		if err != nil {
			return nil, err
		}
		return func(v Value) bool {
			d, ok := v.AsDocument()
			if !ok {
				return false
			}
			return docPred(d)
		}, nil
	}
	var ops []valueOp
	var err error
	sub.Range(func(op string, arg Value) bool {
		vop, e := compileValueOp(op, arg)
		if e != nil {
			err = e
			return false
		}
		ops = append(ops, vop)
		return true
	})
	if err != nil {
		return nil, err
	}
	combined := andValueOps(ops)
	return func(v Value) bool { return combined(v) }, nil
}

// valueQueryEqual is query equality (§3): cross-type numeric equality (1 ==
// 1.0), plus document/array structural equality, distinct from StructEqual's
// tag-preserving relation used for round-trip tests.
func valueQueryEqual(a, b Value) bool {
	if a.IsAbsent() || b.IsAbsent() {
		return a.IsAbsent() == b.IsAbsent()
	}
	if a.IsNumeric() && b.IsNumeric() {
		return a.Numeric() == b.Numeric()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindArray:
		arrA, _ := a.AsArray()
		arrB, _ := b.AsArray()
		if len(arrA) != len(arrB) {
			return false
		}
		for i := range arrA {
			if !valueQueryEqual(arrA[i], arrB[i]) {
				return false
			}
		}
		return true
	case KindDocument:
		da, _ := a.AsDocument()
		db, _ := b.AsDocument()
		if da.Len() != db.Len() {
			return false
		}
		eq := true
		da.Range(func(k string, v Value) bool {
			bv, ok := db.Get(k)
			if !ok || !valueQueryEqual(v, bv) {
				eq = false
				return false
			}
			return true
		})
		return eq
	default:
		return StructEqual(a, b)
	}
}
