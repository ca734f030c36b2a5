package mainydb

import "testing"

func compileOrFatal(t *testing.T, filter *Document) Predicate {
	t.Helper()
	p, err := CompileFilter(filter)
	mustNotErr(t, err)
	return p
}

func TestPredicateEqualityLiteral(t *testing.T) {
	p := compileOrFatal(t, docOf("age", Int(30)))
	if !p(docOf("age", Int(30))) {
		t.Fatal("expected match on equal age")
	}
	if p(docOf("age", Int(31))) {
		t.Fatal("expected no match on different age")
	}
}

func TestPredicateCrossTypeNumericEquality(t *testing.T) {
	p := compileOrFatal(t, docOf("age", Int(30)))
	if !p(docOf("age", Float(30.0))) {
		t.Fatal("int literal 30 should match stored float 30.0")
	}
}

func TestPredicateComparisonOperators(t *testing.T) {
	p := compileOrFatal(t, docOf("age", Doc(docOf("$gte", Int(18), "$lt", Int(65)))))
	if !p(docOf("age", Int(18))) {
		t.Fatal("18 should satisfy $gte 18")
	}
	if p(docOf("age", Int(65))) {
		t.Fatal("65 should not satisfy $lt 65")
	}
	if p(docOf("age", Int(10))) {
		t.Fatal("10 should not satisfy $gte 18")
	}
}

func TestPredicateInNin(t *testing.T) {
	pin := compileOrFatal(t, docOf("status", Doc(docOf("$in", Array([]Value{String("a"), String("b")})))))
	if !pin(docOf("status", String("a"))) {
		t.Fatal("expected $in match")
	}
	if pin(docOf("status", String("z"))) {
		t.Fatal("expected $in non-match")
	}

	pnin := compileOrFatal(t, docOf("status", Doc(docOf("$nin", Array([]Value{String("a")})))))
	if !pnin(docOf("status", String("z"))) {
		t.Fatal("expected $nin match")
	}
	if pnin(docOf("status", String("a"))) {
		t.Fatal("expected $nin non-match")
	}
}

func TestPredicateImplicitArrayTraversal(t *testing.T) {
	p := compileOrFatal(t, docOf("tags", String("x")))
	doc := docOf("tags", Array([]Value{String("a"), String("x")}))
	if !p(doc) {
		t.Fatal("equality against a field should match if any array element equals the literal")
	}
}

func TestPredicateAllAndSize(t *testing.T) {
	pAll := compileOrFatal(t, docOf("tags", Doc(docOf("$all", Array([]Value{String("a"), String("b")})))))
	if !pAll(docOf("tags", Array([]Value{String("a"), String("b"), String("c")}))) {
		t.Fatal("expected $all match (superset)")
	}
	if pAll(docOf("tags", Array([]Value{String("a")}))) {
		t.Fatal("expected $all non-match (missing element)")
	}

	pSize := compileOrFatal(t, docOf("tags", Doc(docOf("$size", Int(2)))))
	if !pSize(docOf("tags", Array([]Value{String("a"), String("b")}))) {
		t.Fatal("expected $size match")
	}
	if pSize(docOf("tags", Array([]Value{String("a")}))) {
		t.Fatal("expected $size non-match")
	}
}

func TestPredicateElemMatchDisablesImplicitCollapse(t *testing.T) {
	p := compileOrFatal(t, docOf("items", Doc(docOf("$elemMatch", Doc(docOf("qty", Doc(docOf("$gt", Int(5)))))))))
	matching := docOf("items", Array([]Value{Doc(docOf("qty", Int(10))), Doc(docOf("qty", Int(1)))}))
	if !p(matching) {
		t.Fatal("expected $elemMatch to find the matching element")
	}
	nonMatching := docOf("items", Array([]Value{Doc(docOf("qty", Int(1)))}))
	if p(nonMatching) {
		t.Fatal("expected $elemMatch non-match when no element qualifies")
	}
}

func TestPredicateAndOrNor(t *testing.T) {
	and := compileOrFatal(t, docOf("$and", Array([]Value{
		Doc(docOf("a", Int(1))),
		Doc(docOf("b", Int(2))),
	})))
	if !and(docOf("a", Int(1), "b", Int(2))) {
		t.Fatal("expected $and match")
	}
	if and(docOf("a", Int(1), "b", Int(3))) {
		t.Fatal("expected $and non-match")
	}

	or := compileOrFatal(t, docOf("$or", Array([]Value{
		Doc(docOf("a", Int(1))),
		Doc(docOf("a", Int(2))),
	})))
	if !or(docOf("a", Int(2))) {
		t.Fatal("expected $or match")
	}
	if or(docOf("a", Int(3))) {
		t.Fatal("expected $or non-match")
	}

	nor := compileOrFatal(t, docOf("$nor", Array([]Value{
		Doc(docOf("a", Int(1))),
		Doc(docOf("a", Int(2))),
	})))
	if !nor(docOf("a", Int(3))) {
		t.Fatal("expected $nor match when neither branch matches")
	}
	if nor(docOf("a", Int(1))) {
		t.Fatal("expected $nor non-match when a branch matches")
	}
}

func TestPredicateNotNestedInFieldCondition(t *testing.T) {
	p := compileOrFatal(t, docOf("age", Doc(docOf("$not", Doc(docOf("$gt", Int(18)))))))
	if !p(docOf("age", Int(10))) {
		t.Fatal("10 should satisfy $not $gt 18")
	}
	if p(docOf("age", Int(30))) {
		t.Fatal("30 should not satisfy $not $gt 18")
	}
}

func TestPredicateTopLevelNotRejected(t *testing.T) {
	_, err := CompileFilter(docOf("$not", Doc(docOf("a", Int(1)))))
	if err == nil {
		t.Fatal("expected BadQuery for top-level $not")
	}
	if kind, ok := KindOf(err); !ok || kind != KindBadQuery {
		t.Fatalf("expected KindBadQuery, got %v", err)
	}
}

func TestPredicateUnknownOperatorIsBadQuery(t *testing.T) {
	_, err := CompileFilter(docOf("age", Doc(docOf("$bogus", Int(1)))))
	if err == nil {
		t.Fatal("expected error for unknown operator")
	}
	if kind, ok := KindOf(err); !ok || kind != KindBadQuery {
		t.Fatalf("expected KindBadQuery, got %v", err)
	}
}

func TestPredicateNestedPathField(t *testing.T) {
	p := compileOrFatal(t, docOf("address.city", String("NYC")))
	if !p(docOf("address", Doc(docOf("city", String("NYC"))))) {
		t.Fatal("expected dotted-path field match")
	}
}
