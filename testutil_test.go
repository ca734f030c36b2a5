package mainydb

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// openTestClient opens a fresh Client backed by a temp file, with IsTesting
// set so checkpoints skip fsync the way the teacher's db_test.go setup does.
func openTestClient(t testing.TB) *Client {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.mdb")
	cl, err := Open(path, Options{IsTesting: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cl.Close() })
	return cl
}

func deepEqual[T any](t testing.TB, got, want T) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, wanted %#v", got, want)
	}
}

// docOf is a test-only literal builder: docOf("a", Int(1), "b", String("x")).
func docOf(kv ...any) *Document {
	return DocumentOf(kv...)
}

func mustNotErr(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func requireFileBytes(t testing.TB, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return b
}
