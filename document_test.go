package mainydb

import "testing"

func TestDocumentSetPreservesOrderOnOverwrite(t *testing.T) {
	d := NewDocument()
	d.Set("a", Int(1))
	d.Set("b", Int(2))
	d.Set("a", Int(99))
	if got := d.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Keys() = %v, wanted [a b] (overwrite must not move the key)", got)
	}
	v, _ := d.Get("a")
	if n, _ := v.AsInt(); n != 99 {
		t.Fatalf("a = %v, wanted 99", v)
	}
}

func TestDocumentDelete(t *testing.T) {
	d := docOf("a", Int(1), "b", Int(2))
	if !d.Delete("a") {
		t.Fatal("Delete(a) should report true")
	}
	if d.Delete("a") {
		t.Fatal("second Delete(a) should report false")
	}
	if _, ok := d.Get("a"); ok {
		t.Fatal("a should be gone")
	}
	if d.Len() != 1 {
		t.Fatalf("Len() = %d, wanted 1", d.Len())
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	d := docOf("nested", Doc(docOf("x", Int(1))))
	cp := d.Clone()
	nested, _ := cp.Get("nested")
	nestedDoc, _ := nested.AsDocument()
	nestedDoc.Set("x", Int(999))

	origNested, _ := d.Get("nested")
	origNestedDoc, _ := origNested.AsDocument()
	v, _ := origNestedDoc.Get("x")
	if n, _ := v.AsInt(); n != 1 {
		t.Fatalf("mutating clone leaked into original: x = %v, wanted 1", v)
	}
}

func TestDocumentObjectID(t *testing.T) {
	d := docOf("_id", ObjectIDValue(ObjectID("abc123")))
	id, ok := d.ObjectID()
	if !ok || id != "abc123" {
		t.Fatalf("ObjectID() = (%v, %v), wanted (abc123, true)", id, ok)
	}
	missing := NewDocument()
	if _, ok := missing.ObjectID(); ok {
		t.Fatal("ObjectID() on a document without _id should report false")
	}
}

func TestDocumentStructEqualFieldOrderSensitive(t *testing.T) {
	a := docOf("x", Int(1), "y", Int(2))
	b := docOf("y", Int(2), "x", Int(1))
	if a.StructEqual(b) {
		t.Fatal("differently-ordered documents should not be StructEqual")
	}
	c := docOf("x", Int(1), "y", Int(2))
	if !a.StructEqual(c) {
		t.Fatal("identically-ordered documents should be StructEqual")
	}
}
