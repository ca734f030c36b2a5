package mainydb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRoundTripPreservesAllValueKinds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundtrip.mdb")
	cl, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)

	ts := time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC)
	original := docOf(
		"null", Null(),
		"bool", Bool(true),
		"int", Int(42),
		"float", Float(42.0), // same magnitude as the int: tag must survive
		"string", String("héllo"),
		"ts", Timestamp(ts),
		"oid", ObjectIDValue(NewObjectID()),
		"bin", Binary([]byte{0, 1, 2, 255}),
		"arr", Array([]Value{Int(1), Float(1), String("x")}),
		"doc", Doc(docOf("nested", Doc(docOf("deep", Int(9))))),
	)
	res, err := cl.Collection("app", "kinds").InsertOne(original)
	mustNotErr(t, err)
	mustNotErr(t, cl.Close())

	cl2, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)
	defer cl2.Close()
	got, err := cl2.Collection("app", "kinds").FindOne(context.Background(), docOf("_id", ObjectIDValue(res.InsertedID)))
	mustNotErr(t, err)

	for _, key := range original.Keys() {
		wantV, _ := original.Get(key)
		gotV, ok := got.Get(key)
		if !ok {
			t.Fatalf("field %q lost in round trip", key)
		}
		if !StructEqual(gotV, wantV) {
			t.Fatalf("field %q: got %v (%v), wanted %v (%v)", key, gotV, gotV.Kind(), wantV, wantV.Kind())
		}
	}
	intV, _ := got.Get("int")
	floatV, _ := got.Get("float")
	if intV.Kind() != KindInt || floatV.Kind() != KindFloat {
		t.Fatalf("numeric tags not preserved: int=%v float=%v", intV.Kind(), floatV.Kind())
	}
}

func TestRoundTripPreservesIndexes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "indexes.mdb")
	cl, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)
	coll := cl.Collection("app", "users")
	mustNotErr(t, coll.CreateIndex(IndexSpec{
		Name:   "email_1",
		Keys:   []IndexKey{{Path: ParsePath("email"), Dir: 1}},
		Unique: true,
	}))
	_, err = coll.InsertOne(docOf("email", String("a@x")))
	mustNotErr(t, err)
	mustNotErr(t, cl.Close())

	cl2, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)
	defer cl2.Close()
	coll2 := cl2.Collection("app", "users")
	st := coll2.Stats()
	if st.Indexes != 2 {
		t.Fatalf("got %d indexes after reload, wanted 2 (_id_ + email_1)", st.Indexes)
	}
	// The rebuilt unique index still enforces uniqueness.
	_, err = coll2.InsertOne(docOf("email", String("a@x")))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected DuplicateKey after reload, got %v", err)
	}
}

func TestCheckpointCrashAtomicity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crash.mdb")
	cl, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)

	docs := make([]*Document, 500)
	for i := range docs {
		docs[i] = docOf("n", Int(int64(i)))
	}
	_, err = cl.Collection("app", "events").InsertMany(docs, true)
	mustNotErr(t, err)
	mustNotErr(t, cl.Close())

	good := requireFileBytes(t, path)

	// Truncate after the header: reopen must fail CorruptFile.
	mustNotErr(t, os.WriteFile(path, good[:headerSize], 0o644))
	_, err = Open(path, Options{IsTesting: true})
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected CorruptFile on truncated file, got %v", err)
	}

	// Restoring the pre-truncation bytes yields exactly 500 docs.
	mustNotErr(t, os.WriteFile(path, good, 0o644))
	cl2, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)
	defer cl2.Close()
	n, err := cl2.Collection("app", "events").CountDocuments(NewDocument())
	mustNotErr(t, err)
	if n != 500 {
		t.Fatalf("count = %d after restore, wanted 500", n)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "badmagic.mdb")
	mustNotErr(t, os.WriteFile(path, []byte("NOTMYDB\x00aaaaaaaaaaaaaaaa"), 0o644))
	_, err := Open(path, Options{IsTesting: true})
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected CorruptFile, got %v", err)
	}
}

func TestLoadRejectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flip.mdb")
	cl, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)
	_, err = cl.Collection("app", "c").InsertOne(docOf("a", Int(1)))
	mustNotErr(t, err)
	mustNotErr(t, cl.Close())

	b := requireFileBytes(t, path)
	b[len(b)/2] ^= 0xFF
	mustNotErr(t, os.WriteFile(path, b, 0o644))
	_, err = Open(path, Options{IsTesting: true})
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected CorruptFile on flipped byte, got %v", err)
	}
}

func TestCheckpointOpsPolicyTriggersWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.mdb")
	cl, err := Open(path, Options{IsTesting: true, CheckpointOps: 2})
	mustNotErr(t, err)
	defer cl.Close()
	coll := cl.Collection("app", "c")
	_, err = coll.InsertOne(docOf("a", Int(1)))
	mustNotErr(t, err)
	_, err = coll.InsertOne(docOf("a", Int(2)))
	mustNotErr(t, err)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected the op-count policy to have checkpointed the file: %v", err)
	}
}

func TestCloseCheckpointsAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "close.mdb")
	cl, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)
	_, err = cl.Collection("db1", "c1").InsertOne(docOf("k", String("v")))
	mustNotErr(t, err)
	mustNotErr(t, cl.Close())
	mustNotErr(t, cl.Close()) // idempotent

	cl2, err := Open(path, Options{IsTesting: true})
	mustNotErr(t, err)
	defer cl2.Close()
	doc, err := cl2.Collection("db1", "c1").FindOne(context.Background(), docOf("k", String("v")))
	mustNotErr(t, err)
	if doc == nil {
		t.Fatal("document lost across close/reopen")
	}
}
