package mainydb

import (
	"context"
	"path/filepath"
	"testing"
)

func openTracedClient(t *testing.T, traces *[]string) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traced.mdb")
	cl, err := Open(path, Options{
		IsTesting: true,
		PlanTrace: func(coll, index string) {
			*traces = append(*traces, coll+"/"+index)
		},
	})
	mustNotErr(t, err)
	t.Cleanup(func() { cl.Close() })
	return cl
}

func TestPlannerRangeScanWithSortPushdown(t *testing.T) {
	var traces []string
	cl := openTracedClient(t, &traces)
	coll := cl.Collection("app", "nums")
	for i := 0; i < 100; i++ {
		_, err := coll.InsertOne(docOf("n", Int(int64(i))))
		mustNotErr(t, err)
	}
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name: "n_1",
		Keys: []IndexKey{{Path: ParsePath("n"), Dir: 1}},
	}))

	traces = traces[:0]
	cur, err := coll.Find(context.Background(), docOf("n", Doc(docOf("$gte", Int(10), "$lt", Int(15)))))
	mustNotErr(t, err)
	docs := cur.Sort([]IndexKey{{Path: ParsePath("n"), Dir: 1}}).ToList()

	if len(docs) != 5 {
		t.Fatalf("got %d docs, wanted 5", len(docs))
	}
	for i, want := range []int64{10, 11, 12, 13, 14} {
		v, _ := docs[i].Get("n")
		if n, _ := v.AsInt(); n != want {
			t.Fatalf("docs[%d].n = %v, wanted %d", i, v, want)
		}
	}
	if len(traces) != 1 || traces[0] != "nums/n_1" {
		t.Fatalf("planner traces = %v, wanted the n_1 index (no full scan)", traces)
	}
}

func TestPlannerSelectsUniqueIndexForEquality(t *testing.T) {
	var traces []string
	cl := openTracedClient(t, &traces)
	coll := cl.Collection("app", "users")
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name:   "email_1",
		Keys:   []IndexKey{{Path: ParsePath("email"), Dir: 1}},
		Unique: true,
	}))
	_, err := coll.InsertOne(docOf("email", String("a@x"), "age", Int(3)))
	mustNotErr(t, err)

	traces = traces[:0]
	doc, err := coll.FindOne(context.Background(), docOf("email", String("a@x")))
	mustNotErr(t, err)
	if doc == nil {
		t.Fatal("expected a match")
	}
	if len(traces) != 1 || traces[0] != "users/email_1" {
		t.Fatalf("planner traces = %v, wanted the email_1 index", traces)
	}
}

func TestPlannerOrFallsBackToScan(t *testing.T) {
	var traces []string
	cl := openTracedClient(t, &traces)
	coll := cl.Collection("app", "users")
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name: "a_1",
		Keys: []IndexKey{{Path: ParsePath("a"), Dir: 1}},
	}))
	_, err := coll.InsertOne(docOf("a", Int(1)))
	mustNotErr(t, err)

	traces = traces[:0]
	cur, err := coll.Find(context.Background(), docOf("$or", Array([]Value{
		Doc(docOf("a", Int(1))),
		Doc(docOf("b", Int(2))),
	})))
	mustNotErr(t, err)
	if got := len(cur.ToList()); got != 1 {
		t.Fatalf("got %d docs, wanted 1", got)
	}
	if len(traces) != 1 || traces[0] != "users/" {
		t.Fatalf("planner traces = %v, wanted a full scan for $or", traces)
	}
}

func TestPlannerInUsesIndex(t *testing.T) {
	var traces []string
	cl := openTracedClient(t, &traces)
	coll := cl.Collection("app", "nums")
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name: "n_1",
		Keys: []IndexKey{{Path: ParsePath("n"), Dir: 1}},
	}))
	for i := 0; i < 10; i++ {
		_, err := coll.InsertOne(docOf("n", Int(int64(i))))
		mustNotErr(t, err)
	}

	traces = traces[:0]
	cur, err := coll.Find(context.Background(), docOf("n", Doc(docOf("$in", Array([]Value{Int(2), Int(7)})))))
	mustNotErr(t, err)
	if got := len(cur.ToList()); got != 2 {
		t.Fatalf("got %d docs, wanted 2", got)
	}
	if len(traces) != 1 || traces[0] != "nums/n_1" {
		t.Fatalf("planner traces = %v, wanted the n_1 index", traces)
	}
}

func TestPlannerResidualFiltersIndexCandidates(t *testing.T) {
	// The index satisfies only part of the filter; the residual predicate
	// must still reject candidates that fail the rest.
	var traces []string
	cl := openTracedClient(t, &traces)
	coll := cl.Collection("app", "people")
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name: "city_1",
		Keys: []IndexKey{{Path: ParsePath("city"), Dir: 1}},
	}))
	_, err := coll.InsertOne(docOf("city", String("NYC"), "age", Int(30)))
	mustNotErr(t, err)
	_, err = coll.InsertOne(docOf("city", String("NYC"), "age", Int(20)))
	mustNotErr(t, err)

	cur, err := coll.Find(context.Background(), docOf("city", String("NYC"), "age", Doc(docOf("$gt", Int(25)))))
	mustNotErr(t, err)
	docs := cur.ToList()
	if len(docs) != 1 {
		t.Fatalf("got %d docs, wanted 1 (residual must filter)", len(docs))
	}
	v, _ := docs[0].Get("age")
	if n, _ := v.AsInt(); n != 30 {
		t.Fatalf("age = %v, wanted 30", v)
	}
}

func TestPlannerDeterministicChoice(t *testing.T) {
	cl := openTestClient(t)
	coll := cl.Collection("app", "things")
	mustNotErr(t, coll.CreateIndex(IndexSpec{Name: "a_1", Keys: []IndexKey{{Path: ParsePath("a"), Dir: 1}}}))
	mustNotErr(t, coll.CreateIndex(IndexSpec{Name: "b_1", Keys: []IndexKey{{Path: ParsePath("b"), Dir: 1}}}))

	filter := docOf("a", Int(1), "b", Doc(docOf("$gt", Int(0))))
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	first, err := Plan(coll, filter)
	mustNotErr(t, err)
	for i := 0; i < 5; i++ {
		again, err := Plan(coll, filter)
		mustNotErr(t, err)
		if again.IndexName != first.IndexName {
			t.Fatalf("plan changed between runs: %q then %q", first.IndexName, again.IndexName)
		}
	}
	// Equality beats range in the selectivity scoring.
	if first.IndexName != "a_1" {
		t.Fatalf("chose %q, wanted the equality index a_1", first.IndexName)
	}
}

func TestPlannerEqualityOnCompoundIndexFirstKey(t *testing.T) {
	var traces []string
	cl := openTracedClient(t, &traces)
	coll := cl.Collection("app", "events")
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name: "kind_1_ts_1",
		Keys: []IndexKey{
			{Path: ParsePath("kind"), Dir: 1},
			{Path: ParsePath("ts"), Dir: 1},
		},
	}))
	insertAll(t, coll,
		docOf("kind", String("click"), "ts", Int(3)),
		docOf("kind", String("view"), "ts", Int(1)),
		docOf("kind", String("click"), "ts", Int(1)),
		docOf("kind", String("click"), "ts", Int(2)),
	)

	traces = traces[:0]
	cur, err := coll.Find(context.Background(), docOf("kind", String("click")))
	mustNotErr(t, err)
	docs := cur.ToList()
	if len(docs) != 3 {
		t.Fatalf("got %d docs, wanted 3", len(docs))
	}
	for _, d := range docs {
		v, _ := d.Get("kind")
		if s, _ := v.AsString(); s != "click" {
			t.Fatalf("got kind %v, wanted click", v)
		}
	}
	if len(traces) != 1 || traces[0] != "events/kind_1_ts_1" {
		t.Fatalf("planner traces = %v, wanted the compound index", traces)
	}
}

func TestPlannerInOnCompoundIndexFirstKey(t *testing.T) {
	var traces []string
	cl := openTracedClient(t, &traces)
	coll := cl.Collection("app", "events")
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name: "kind_1_ts_1",
		Keys: []IndexKey{
			{Path: ParsePath("kind"), Dir: 1},
			{Path: ParsePath("ts"), Dir: 1},
		},
	}))
	insertAll(t, coll,
		docOf("kind", String("click"), "ts", Int(1)),
		docOf("kind", String("view"), "ts", Int(2)),
		docOf("kind", String("scroll"), "ts", Int(3)),
	)

	traces = traces[:0]
	cur, err := coll.Find(context.Background(), docOf("kind", Doc(docOf("$in", Array([]Value{String("click"), String("view")})))))
	mustNotErr(t, err)
	if got := len(cur.ToList()); got != 2 {
		t.Fatalf("got %d docs, wanted 2", got)
	}
	if len(traces) != 1 || traces[0] != "events/kind_1_ts_1" {
		t.Fatalf("planner traces = %v, wanted the compound index", traces)
	}
}
