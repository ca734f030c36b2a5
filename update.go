package mainydb

import (
	"strings"
	"time"
)

// ApplyUpdate applies an update document to doc in place, returning whether
// anything actually changed (so callers can report matched=1, modified=0 on
// a no-op, per §4.4 and the testable property). doc's "_id" field is never
// touched; an update attempting to change it is BadUpdate.
func ApplyUpdate(doc *Document, update *Document) (bool, error) {
	isOperatorDoc := false
	isReplacement := false
	update.Range(func(key string, _ Value) bool {
		if strings.HasPrefix(key, "$") {
			isOperatorDoc = true
		} else {
			isReplacement = true
		}
		return true
	})
	if isOperatorDoc && isReplacement {
		return false, badUpdatef("update document mixes operators and replacement fields")
	}
	if isReplacement {
		return applyReplace(doc, update)
	}
	return applyOperators(doc, update)
}

func applyReplace(doc *Document, replacement *Document) (bool, error) {
	id, hadID := doc.Get("_id")
	if rid, ok := replacement.Get("_id"); ok && hadID && !valueQueryEqual(rid, id) {
		return false, badUpdatef("replacement document may not change _id")
	}
	fresh := replacement.Clone()
	if hadID {
		fresh.Set("_id", id)
	}
	changed := !doc.StructEqual(fresh)
	*doc = *fresh
	return changed, nil
}

func applyOperators(doc *Document, update *Document) (bool, error) {
	changed := false
	var err error
	update.Range(func(op string, arg Value) bool {
		argDoc, ok := arg.AsDocument()
		if !ok {
			err = badUpdatef("%s requires a document of path:value pairs", op)
			return false
		}
		fn, ok := updateOps[op]
		if !ok {
			err = badUpdatef("unknown update operator %q", op)
			return false
		}
		var c bool
		c, err = fn(doc, argDoc)
		changed = changed || c
		return err == nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

type updateOpFn func(doc *Document, arg *Document) (bool, error)

var updateOps = map[string]updateOpFn{
	"$set":         opSet,
	"$unset":       opUnset,
	"$inc":         opIncMul(false),
	"$mul":         opIncMul(true),
	"$min":         opMinMax(-1),
	"$max":         opMinMax(1),
	"$rename":      opRename,
	"$currentDate": opCurrentDate,
	"$push":        opPush,
	"$pop":         opPop,
	"$pull":        opPull,
	"$pullAll":     opPullAll,
	"$addToSet":    opAddToSet,
}

func forbidID(path Path) error {
	if path.head() == "_id" {
		return badUpdatef("_id is immutable")
	}
	return nil
}

func opSet(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, val Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		root := Doc(doc)
		cur := ResolvePath(root, path)
		if !cur.IsAbsent() && StructEqual(cur, val) {
			return true
		}
		if err = SetPath(&root, path, val.Clone()); err != nil {
			return false
		}
		changed = true
		return true
	})
	return changed, err
}

func opUnset(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, _ Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		root := Doc(doc)
		if UnsetPath(&root, path) {
			changed = true
		}
		return true
	})
	return changed, err
}

// opIncMul builds $inc (mul=false) or $mul (mul=true): numeric ops whose
// missing-path behavior differs (§4.4: $inc seeds with the operand, $mul
// seeds with 0 of the operand's type).
func opIncMul(mul bool) updateOpFn {
	return func(doc *Document, arg *Document) (bool, error) {
		changed := false
		var err error
		arg.Range(func(field string, operand Value) bool {
			path := ParsePath(field)
			if err = forbidID(path); err != nil {
				return false
			}
			if !operand.IsNumeric() {
				err = badUpdatef("%s operand at %q must be numeric", opName(mul), field)
				return false
			}
			root := Doc(doc)
			cur := ResolvePath(root, path)
			var result Value
			if cur.IsAbsent() {
				if mul {
					result = zeroLike(operand)
				} else {
					result = operand
				}
			} else if !cur.IsNumeric() {
				err = badUpdatef("%s: value at %q is not numeric", opName(mul), field)
				return false
			} else {
				result = combineNumeric(cur, operand, mul)
			}
			if !cur.IsAbsent() && StructEqual(cur, result) {
				return true // e.g. $inc by 0: a no-op, like opSet's equal-value case
			}
			if err = SetPath(&root, path, result); err != nil {
				return false
			}
			changed = true
			return true
		})
		return changed, err
	}
}

func opName(mul bool) string {
	if mul {
		return "$mul"
	}
	return "$inc"
}

func zeroLike(operand Value) Value {
	if _, ok := operand.AsFloat(); ok {
		return Float(0)
	}
	return Int(0)
}

// combineNumeric adds or multiplies two numeric values, staying in Int when
// both operands are Int, otherwise promoting to Float.
func combineNumeric(a, b Value, mul bool) Value {
	ai, aIsInt := a.AsInt()
	bi, bIsInt := b.AsInt()
	if aIsInt && bIsInt {
		if mul {
			return Int(ai * bi)
		}
		return Int(ai + bi)
	}
	if mul {
		return Float(a.Numeric() * b.Numeric())
	}
	return Float(a.Numeric() + b.Numeric())
}

// opMinMax builds $min (dir=-1: assign iff operand < current) or $max
// (dir=+1: assign iff operand > current); missing path always assigns.
func opMinMax(dir int) updateOpFn {
	return func(doc *Document, arg *Document) (bool, error) {
		changed := false
		var err error
		arg.Range(func(field string, operand Value) bool {
			path := ParsePath(field)
			if err = forbidID(path); err != nil {
				return false
			}
			root := Doc(doc)
			cur := ResolvePath(root, path)
			assign := cur.IsAbsent()
			if !assign {
				c := Compare(operand, cur)
				assign = (dir < 0 && c < 0) || (dir > 0 && c > 0)
			}
			if !assign {
				return true
			}
			if err = SetPath(&root, path, operand.Clone()); err != nil {
				return false
			}
			changed = true
			return true
		})
		return changed, err
	}
}

func opRename(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, toVal Value) bool {
		from := ParsePath(field)
		toField, ok := toVal.AsString()
		if !ok {
			err = badUpdatef("$rename target for %q must be a string", field)
			return false
		}
		to := ParsePath(toField)
		if e := forbidID(from); e != nil {
			err = e
			return false
		}
		if e := forbidID(to); e != nil {
			err = e
			return false
		}
		root := Doc(doc)
		v := ResolvePath(root, from)
		if v.IsAbsent() {
			return true
		}
		UnsetPath(&root, from)
		if err = SetPath(&root, to, v); err != nil {
			return false
		}
		changed = true
		return true
	})
	return changed, err
}

func opCurrentDate(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	now := currentTime()
	arg.Range(func(field string, _ Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		root := Doc(doc)
		if err = SetPath(&root, path, Timestamp(now)); err != nil {
			return false
		}
		changed = true
		return true
	})
	return changed, err
}

// currentTime is a seam so tests can't flake on wall-clock granularity; it
// calls time.Now() in production.
var currentTime = func() time.Time { return time.Now() }

func opPush(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, val Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		root := Doc(doc)
		cur := ResolvePath(root, path)
		var arr []Value
		switch {
		case cur.IsAbsent():
			arr = nil
		case cur.kind == KindArray:
			arr, _ = cur.AsArray()
		default:
			err = badUpdatef("$push: value at %q is not an array", field)
			return false
		}
		arr = append(arr, val.Clone())
		if err = SetPath(&root, path, Array(arr)); err != nil {
			return false
		}
		changed = true
		return true
	})
	return changed, err
}

func opPop(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, dirVal Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		dir, ok := dirVal.AsInt()
		if !ok {
			err = badUpdatef("$pop direction at %q must be an integer", field)
			return false
		}
		root := Doc(doc)
		cur := ResolvePath(root, path)
		arr, ok := cur.AsArray()
		if !ok || len(arr) == 0 {
			return true
		}
		if dir < 0 {
			arr = arr[1:]
		} else {
			arr = arr[:len(arr)-1]
		}
		if err = SetPath(&root, path, Array(arr)); err != nil {
			return false
		}
		changed = true
		return true
	})
	return changed, err
}

func opPull(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, operand Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		root := Doc(doc)
		cur := ResolvePath(root, path)
		arr, ok := cur.AsArray()
		if !ok {
			return true
		}
		var match func(Value) bool
		if opDoc, ok := operand.AsDocument(); ok && looksLikeOperatorDoc(opDoc) {
			var ops []valueOp
			opDoc.Range(func(op string, a Value) bool {
				vop, e := compileValueOp(op, a)
				if e != nil {
					err = e
					return false
				}
				ops = append(ops, vop)
				return true
			})
			if err != nil {
				return false
			}
			combined := andValueOps(ops)
			match = combined
		} else {
			match = func(v Value) bool { return valueQueryEqual(v, operand) }
		}
		out := arr[:0:0]
		for _, el := range arr {
			if !match(el) {
				out = append(out, el)
			}
		}
		if len(out) != len(arr) {
			changed = true
		}
		if err = SetPath(&root, path, Array(out)); err != nil {
			return false
		}
		return true
	})
	return changed, err
}

func opPullAll(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, operand Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		removeVals, ok := operand.AsArray()
		if !ok {
			err = badUpdatef("$pullAll operand at %q must be an array", field)
			return false
		}
		root := Doc(doc)
		cur := ResolvePath(root, path)
		arr, ok := cur.AsArray()
		if !ok {
			return true
		}
		out := arr[:0:0]
		for _, el := range arr {
			keep := true
			for _, rv := range removeVals {
				if valueQueryEqual(el, rv) {
					keep = false
					break
				}
			}
			if keep {
				out = append(out, el)
			}
		}
		if len(out) != len(arr) {
			changed = true
		}
		if err = SetPath(&root, path, Array(out)); err != nil {
			return false
		}
		return true
	})
	return changed, err
}

func opAddToSet(doc *Document, arg *Document) (bool, error) {
	changed := false
	var err error
	arg.Range(func(field string, val Value) bool {
		path := ParsePath(field)
		if err = forbidID(path); err != nil {
			return false
		}
		root := Doc(doc)
		cur := ResolvePath(root, path)
		var arr []Value
		switch {
		case cur.IsAbsent():
			arr = nil
		case cur.kind == KindArray:
			arr, _ = cur.AsArray()
		default:
			err = badUpdatef("$addToSet: value at %q is not an array", field)
			return false
		}
		for _, el := range arr {
			if valueQueryEqual(el, val) {
				return true
			}
		}
		arr = append(arr, val.Clone())
		if err = SetPath(&root, path, Array(arr)); err != nil {
			return false
		}
		changed = true
		return true
	})
	return changed, err
}
