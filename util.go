package mainydb

// nonNil panics on a nil pointer that should never occur outside a
// programmer error (closed handle, uninitialized Store) — the teacher's
// must/ensure/nonNil convention for invariant violations, scoped down to
// the one shape this engine actually needs since every other failure path
// already returns a typed error across the public API.
func nonNil[T any](v *T) *T {
	if v == nil {
		panic("mainydb: unexpected nil")
	}
	return v
}
