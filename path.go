package mainydb

import (
	"strconv"
	"strings"
)

// Path is a parsed dotted path (spec §4.2), e.g. "address.coordinates.lat".
type Path struct {
	segs []string
}

// ParsePath splits a dotted path string into segments. Empty segments (from
// a leading, trailing, or doubled dot) are kept as empty-string segments;
// ParsePath never fails.
func ParsePath(s string) Path {
	return Path{segs: strings.Split(s, ".")}
}

func (p Path) String() string { return strings.Join(p.segs, ".") }

func (p Path) Len() int { return len(p.segs) }

func (p Path) head() string { return p.segs[0] }
func (p Path) tail() Path   { return Path{segs: p.segs[1:]} }

// segmentIndex reports whether seg is a valid array index (a non-negative
// base-10 integer with no leading zero other than "0" itself), per §4.2's
// "numeric path components index into arrays" rule.
func segmentIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	if seg != "0" && seg[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ResolvePath reads the value at path within v, returning the absent marker
// if any segment is missing, if a numeric segment indexes an array out of
// range, if a non-numeric segment is applied to an array, or if any segment
// is applied to a scalar. A numeric segment applied to a document is an
// ordinary key lookup.
func ResolvePath(v Value, path Path) Value {
	for path.Len() > 0 {
		seg := path.head()
		path = path.tail()
		if idx, ok := segmentIndex(seg); ok && v.kind == KindArray {
			if idx < 0 || idx >= len(v.arr) {
				return absentValue()
			}
			v = v.arr[idx]
			continue
		}
		if v.kind != KindDocument {
			return absentValue()
		}
		next, ok := v.doc.Get(seg)
		if !ok {
			return absentValue()
		}
		v = next
	}
	return v
}

// SetPath writes value at path within *root, creating missing intermediate
// documents (never arrays — §4.2's tie-break: a missing intermediate segment
// always becomes a Document, even when the segment looks numeric) and
// replacing any existing non-container value that blocks the path.
// *root must be a KindDocument value (or will be replaced with one if it is
// currently absent/null at the top).
func SetPath(root *Value, path Path, value Value) error {
	if path.Len() == 0 {
		return badUpdatef("empty path")
	}
	return setPathDoc(ensureDocValue(root), path, value)
}

func ensureDocValue(v *Value) *Document {
	if v.kind != KindDocument {
		*v = Doc(NewDocument())
	}
	return v.doc
}

func setPathDoc(d *Document, path Path, value Value) error {
	seg := path.head()
	if path.Len() == 1 {
		d.Set(seg, value)
		return nil
	}
	rest := path.tail()
	cur, ok := d.Get(seg)
	if !ok {
		cur = Doc(NewDocument())
	}
	switch cur.kind {
	case KindDocument:
		if err := setPathDoc(cur.doc, rest, value); err != nil {
			return err
		}
		d.Set(seg, cur)
		return nil
	case KindArray:
		idx, isIdx := segmentIndex(rest.head())
		if !isIdx {
			return badUpdatef("cannot create field %q in array at %q", rest.head(), seg)
		}
		arr := cur.arr
		if idx >= len(arr) {
			grown := make([]Value, idx+1)
			copy(grown, arr)
			for i := len(arr); i < idx; i++ {
				grown[i] = Null()
			}
			arr = grown
		}
		if rest.Len() == 1 {
			arr[idx] = value
		} else {
			el := arr[idx]
			if el.kind != KindDocument {
				el = Doc(NewDocument())
			}
			if err := setPathDoc(el.doc, rest.tail(), value); err != nil {
				return err
			}
			arr[idx] = el
		}
		cur.arr = arr
		d.Set(seg, cur)
		return nil
	default:
		fresh := Doc(NewDocument())
		if err := setPathDoc(fresh.doc, rest, value); err != nil {
			return err
		}
		d.Set(seg, fresh)
		return nil
	}
}

// UnsetPath removes the value at path, reporting whether anything was
// removed. It never creates intermediate structure.
func UnsetPath(root *Value, path Path) bool {
	if root.kind != KindDocument || path.Len() == 0 {
		return false
	}
	return unsetPathDoc(root.doc, path)
}

func unsetPathDoc(d *Document, path Path) bool {
	seg := path.head()
	if path.Len() == 1 {
		return d.Delete(seg)
	}
	cur, ok := d.Get(seg)
	if !ok {
		return false
	}
	rest := path.tail()
	switch cur.kind {
	case KindDocument:
		changed := unsetPathDoc(cur.doc, rest)
		if changed {
			d.Set(seg, cur)
		}
		return changed
	case KindArray:
		idx, isIdx := segmentIndex(rest.head())
		if !isIdx || idx < 0 || idx >= len(cur.arr) {
			return false
		}
		if rest.Len() == 1 {
			cur.arr[idx] = Null()
		} else {
			el := cur.arr[idx]
			if el.kind != KindDocument {
				return false
			}
			if !unsetPathDoc(el.doc, rest.tail()) {
				return false
			}
			cur.arr[idx] = el
		}
		d.Set(seg, cur)
		return true
	default:
		return false
	}
}
