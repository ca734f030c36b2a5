package mainydb

import (
	"sync"
	"time"
)

// EncryptionHooks is a thin per-collection/per-database hook surface; the
// core engine knows nothing about hashing or cipher internals, only that a
// document may be transformed before it is written and after it is read
// (§6's encryption hook, supplemented per SPEC_FULL §13). OnWrite runs
// post-update, pre-index (so indexed fields see the post-transform value,
// matching the original's hash-style fields being "compared as structured
// hash records" rather than plaintext).
type EncryptionHooks interface {
	OnWrite(doc *Document) (*Document, error)
	OnRead(doc *Document) (*Document, error)
}

// noopEncryptionHooks is the default pass-through implementation.
type noopEncryptionHooks struct{}

func (noopEncryptionHooks) OnWrite(doc *Document) (*Document, error) { return doc, nil }
func (noopEncryptionHooks) OnRead(doc *Document) (*Document, error)  { return doc, nil }

// DefaultEncryptionHooks is the no-op hook set used when a collection has no
// hooks attached.
var DefaultEncryptionHooks EncryptionHooks = noopEncryptionHooks{}

// KeyManager holds symmetric keys used to derive per-field ciphers;
// EncryptionHooks implementations may consult one. No KDF or external key
// storage is implemented here (non-goal: no network/external key service) —
// this is just the lookup surface.
type KeyManager interface {
	Key(field string) ([]byte, bool)
}

// StaticKeyManager is a KeyManager backed by an in-memory map, sufficient for
// tests and for callers who manage key material themselves.
type StaticKeyManager struct {
	keys map[string][]byte
}

func NewStaticKeyManager(keys map[string][]byte) *StaticKeyManager {
	return &StaticKeyManager{keys: keys}
}

func (km *StaticKeyManager) Key(field string) ([]byte, bool) {
	k, ok := km.keys[field]
	return k, ok
}

// MediaValue is what MediaHooks yields for a binary field: Eager carries the
// decoded bytes directly (used by find_one), Deferred carries a thunk that
// decodes lazily on first access (used by find's streaming scan), per
// Design Note 9's two-variant decoder value.
type MediaValue struct {
	eager    []byte
	haveEager bool
	deferred func() ([]byte, error)
}

func EagerMedia(b []byte) MediaValue { return MediaValue{eager: b, haveEager: true} }
func DeferredMedia(thunk func() ([]byte, error)) MediaValue {
	return MediaValue{deferred: thunk}
}

func (m MediaValue) Resolve() ([]byte, error) {
	if m.haveEager {
		return m.eager, nil
	}
	if m.deferred != nil {
		return m.deferred()
	}
	return nil, nil
}

// MediaHooks auto-detects and decodes media fields per §6: on write, a byte
// array is stored as typed binary; a string ending in a recognized image
// suffix and resolving to a readable file is read-and-encoded. On read
// (find_one) it yields raw bytes eagerly; on scan (find) it yields a
// deferred decoder thunk.
type MediaHooks interface {
	// DetectOnWrite inspects a field value during insert and returns
	// (binary payload, true) if it should be stored as a media field.
	DetectOnWrite(field string, v Value) ([]byte, bool)
	// DecodeEager resolves a stored media field to its decoded bytes for
	// find_one.
	DecodeEager(coll, field string, id ObjectID, raw []byte) MediaValue
	// DecodeDeferred resolves a stored media field to a deferred thunk for
	// find's streaming scan.
	DecodeDeferred(coll, field string, id ObjectID, raw []byte) MediaValue
}

const mediaCacheTTL = 2 * time.Hour

type mediaCacheKey struct {
	coll  string
	id    ObjectID
	field string
}

type mediaCacheEntry struct {
	bytes   []byte
	expires time.Time
}

// mediaCache is the process-wide (collection, id, field) -> decoded bytes
// cache with a 2-hour TTL described in §6.
type mediaCache struct {
	mu      sync.Mutex
	entries map[mediaCacheKey]mediaCacheEntry
	now     func() time.Time
}

func newMediaCache() *mediaCache {
	return &mediaCache{entries: map[mediaCacheKey]mediaCacheEntry{}, now: time.Now}
}

func (mc *mediaCache) get(coll, field string, id ObjectID) ([]byte, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	key := mediaCacheKey{coll, id, field}
	e, ok := mc.entries[key]
	if !ok || mc.now().After(e.expires) {
		delete(mc.entries, key)
		return nil, false
	}
	return e.bytes, true
}

func (mc *mediaCache) put(coll, field string, id ObjectID, b []byte) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries[mediaCacheKey{coll, id, field}] = mediaCacheEntry{bytes: b, expires: mc.now().Add(mediaCacheTTL)}
}

// DefaultMediaHooks is a minimal MediaHooks implementation whose decode
// step is a pass-through (no actual image decoding, per spec's scoping of
// the blob codec's internals as out of scope): it treats any stored Binary
// value as already-decoded bytes and caches them.
type DefaultMediaHooks struct {
	cache *mediaCache
}

func NewDefaultMediaHooks() *DefaultMediaHooks {
	return &DefaultMediaHooks{cache: newMediaCache()}
}

func (h *DefaultMediaHooks) DetectOnWrite(field string, v Value) ([]byte, bool) {
	b, ok := v.AsBinary()
	return b, ok
}

func (h *DefaultMediaHooks) DecodeEager(coll, field string, id ObjectID, raw []byte) MediaValue {
	if cached, ok := h.cache.get(coll, field, id); ok {
		return EagerMedia(cached)
	}
	h.cache.put(coll, field, id, raw)
	return EagerMedia(raw)
}

func (h *DefaultMediaHooks) DecodeDeferred(coll, field string, id ObjectID, raw []byte) MediaValue {
	return DeferredMedia(func() ([]byte, error) {
		if cached, ok := h.cache.get(coll, field, id); ok {
			return cached, nil
		}
		h.cache.put(coll, field, id, raw)
		return raw, nil
	})
}
