package mainydb

import (
	"strings"
	"sync"
)

// Client is the attribute-style façade over a Store: reaching into databases
// and collections "as if they were properties" (Design Note 9) reduces here
// to Database/Collection lookup-or-create by name; the surface syntax some
// callers expect (dynamic attribute access) is their own language's
// concern, not this engine's.
type Client struct {
	store *Store

	mu         sync.Mutex
	closed     bool
	keyManager KeyManager
}

// checkOpen panics on use of a Client after Close: a closed handle is a
// programmer error, not a caller-visible error kind (§7 only classifies
// failures reachable through normal operation).
func (cl *Client) checkOpen() {
	cl.mu.Lock()
	closed := cl.closed
	cl.mu.Unlock()
	if closed {
		panic("mainydb: use of Client after Close")
	}
}

// NewClient wraps an opened Store in the attribute-style façade.
func NewClient(store *Store) *Client {
	return &Client{store: store}
}

// Open opens (or creates) the file at path and returns a ready Client.
func Open(path string, opts Options) (*Client, error) {
	store, err := OpenStore(path, opts)
	if err != nil {
		return nil, err
	}
	return NewClient(store), nil
}

func (cl *Client) Database(name string) *Database {
	cl.checkOpen()
	return cl.store.Root().Database(name)
}

func (cl *Client) Collection(dbName, collName string) *Collection {
	return cl.Database(dbName).Collection(collName)
}

// SetEncryptionHooks attaches hooks to a single collection ("db.coll") or an
// entire database ("db"); collection-specific hooks win over database-wide
// ones at lookup time.
func (cl *Client) SetEncryptionHooks(scope string, hooks EncryptionHooks) {
	cl.checkOpen()
	if dbName, collName, ok := strings.Cut(scope, "."); ok {
		cl.Collection(dbName, collName).SetEncryptionHooks(hooks)
		return
	}
	cl.Database(scope).SetEncryptionHooks(hooks)
}

// SetMediaHooks attaches media hooks to a collection ("db.coll") or database
// ("db") scope.
func (cl *Client) SetMediaHooks(scope string, h MediaHooks) {
	cl.checkOpen()
	if dbName, collName, ok := strings.Cut(scope, "."); ok {
		cl.Collection(dbName, collName).SetMediaHooks(h)
		return
	}
	cl.Database(scope).SetMediaHooks(h)
}

// SetKeyManager installs the key lookup surface consulted by cipher-style
// EncryptionHooks implementations.
func (cl *Client) SetKeyManager(km KeyManager) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.keyManager = km
}

// KeyManager returns the installed key manager, or nil.
func (cl *Client) KeyManager() KeyManager {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.keyManager
}

// Checkpoint forces an immediate checkpoint.
func (cl *Client) Checkpoint() error {
	cl.checkOpen()
	return cl.store.Checkpoint()
}

// Close performs a final blocking checkpoint and releases the store. Close
// is idempotent: a second call is a no-op rather than a panic.
func (cl *Client) Close() error {
	cl.mu.Lock()
	if cl.closed {
		cl.mu.Unlock()
		return nil
	}
	cl.closed = true
	cl.mu.Unlock()
	return cl.store.Close()
}
