package mainydb

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// fileMagic and formatVersion identify the on-disk container (§6).
var fileMagic = [8]byte{'M', 'A', 'I', 'N', 'Y', 'D', 'B', 0}

const formatVersion uint32 = 1
const headerSize = 8 + 4 + 4

// Options configures a Store, mirroring the teacher's edb.Options shape
// (Logf/Verbose/IsTesting) generalized with the checkpoint-policy knobs
// spec §4.1 calls for.
type Options struct {
	Logf      func(format string, args ...any)
	Logger    *slog.Logger
	Verbose   bool
	IsTesting bool

	// CheckpointOps triggers a checkpoint after this many journaled
	// mutations since the last one (default 1000).
	CheckpointOps int
	// CheckpointInterval triggers a checkpoint after this much wall time
	// since the last one (default 30s).
	CheckpointInterval time.Duration

	// PlanTrace, if set, is called once per planned find with the
	// collection name and the chosen index name ("" for a full scan).
	PlanTrace func(coll, index string)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) checkpointOps() int {
	if o.CheckpointOps > 0 {
		return o.CheckpointOps
	}
	return 1000
}

func (o Options) checkpointInterval() time.Duration {
	if o.CheckpointInterval > 0 {
		return o.CheckpointInterval
	}
	return 30 * time.Second
}

// rootDoc is the persisted shape of the whole store (§6): format version plus
// the database hierarchy. It is distinct from Root (the live in-memory
// object graph with locks) the way the teacher keeps bucket-layout structs
// separate from the live Tx/Table types.
type rootDoc struct {
	version uint32
	dbs     []namedDBDoc
}

type namedDBDoc struct {
	name string
	colls []namedCollDoc
}

type namedCollDoc struct {
	name    string
	options collOptionsDoc
	docs    []*Document
	indexes []IndexSpec
}

type collOptionsDoc struct {
	// reserved for future per-collection options (capped size, TTL, ...);
	// empty today but kept as a distinct type so the on-disk shape can grow
	// without a version bump.
}

// Store owns the authoritative in-memory Root and persists it to a single
// file, following the teacher's checkpoint-replace discipline (§4.1): writes
// land in memory immediately and are counted toward the checkpoint policy
// (only the count is kept, not the operations themselves); a checkpoint
// serializes the whole root to a temp file and renames it over the target.
type Store struct {
	path string
	opts Options

	mu sync.Mutex // guards journalOps/lastCheckpoint bookkeeping below

	root *Root

	journalOps     int
	lastCheckpoint time.Time
}

// OpenStore loads path if it exists, or creates a fresh empty root
// otherwise. Most callers should use the higher-level Open, which wraps the
// returned Store in a Client.
func OpenStore(path string, opts Options) (*Store, error) {
	s := &Store{path: path, opts: opts, lastCheckpoint: time.Now()}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, ioErrorf(err, "stat %s", path)
		}
		s.root = newRoot(s)
		return s, nil
	}
	root, err := s.load()
	if err != nil {
		return nil, err
	}
	s.root = root
	return s, nil
}

func (s *Store) logf(format string, args ...any) {
	if s.opts.Logf != nil {
		s.opts.Logf(format, args...)
		return
	}
	s.opts.logger().Debug(fmt.Sprintf(format, args...))
}

// Root returns the store's live in-memory root. A nil root means the Store
// was not produced by OpenStore (programmer error, not a caller-visible
// failure), hence the panic rather than an error return.
func (s *Store) Root() *Root { return nonNil(s.root) }

func (s *Store) load() (*Root, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, ioErrorf(err, "reading %s", s.path)
	}
	if len(data) < headerSize {
		return nil, corruptFilef(nil, "file too short: %d bytes", len(data))
	}
	var magic [8]byte
	copy(magic[:], data[:8])
	if magic != fileMagic {
		return nil, corruptFilef(nil, "bad magic")
	}
	version := binary.LittleEndian.Uint32(data[8:12])
	if version != formatVersion {
		return nil, corruptFilef(nil, "unsupported format version %d", version)
	}
	body := data[headerSize:]
	if len(body) < 8 {
		return nil, corruptFilef(nil, "body too short for checksum trailer")
	}
	payload, trailer := body[:len(body)-8], body[len(body)-8:]
	want := binary.LittleEndian.Uint64(trailer)
	got := xxhash.Sum64(payload)
	if got != want {
		return nil, corruptFilef(nil, "checksum mismatch: file corrupt")
	}
	var rd rootDoc
	if err := unmarshalRoot(payload, &rd); err != nil {
		return nil, err
	}
	return rootFromDoc(s, &rd)
}

// Checkpoint serializes the current root to a temp file and atomically
// renames it over the store's path (§4.1's "checkpoint-replace"), then
// truncates the journal counters. Checkpoint errors do not touch in-memory
// state; the caller is told via the returned error, matching §7's "Checkpoint
// errors do not abort the caller's operation" rule for the async paths.
func (s *Store) Checkpoint() error {
	rd := s.root.toDoc()

	payload, err := marshalRoot(rd)
	if err != nil {
		return err
	}
	defer putEncodeBuf(payload[:0])

	buf := make([]byte, 0, headerSize+len(payload)+8)
	buf = append(buf, fileMagic[:]...)
	var verBuf [4]byte
	binary.LittleEndian.PutUint32(verBuf[:], formatVersion)
	buf = append(buf, verBuf[:]...)
	buf = append(buf, 0, 0, 0, 0) // reserved
	buf = append(buf, payload...)
	var sumBuf [8]byte
	binary.LittleEndian.PutUint64(sumBuf[:], xxhash.Sum64(payload))
	buf = append(buf, sumBuf[:]...)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".mainydb-*.tmp")
	if err != nil {
		return ioErrorf(err, "creating temp checkpoint file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ioErrorf(err, "writing temp checkpoint file")
	}
	if !s.opts.IsTesting {
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return ioErrorf(err, "syncing temp checkpoint file")
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ioErrorf(err, "closing temp checkpoint file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return ioErrorf(err, "renaming checkpoint into place")
	}

	s.mu.Lock()
	s.journalOps = 0
	s.lastCheckpoint = time.Now()
	s.mu.Unlock()
	s.logf("mainydb: checkpoint complete, %d bytes", len(buf))
	return nil
}

// noteOp counts one mutation and triggers a checkpoint if the
// op-count or time-interval policy fires (§4.1's write policy).
func (s *Store) noteOp() {
	s.mu.Lock()
	s.journalOps++
	due := s.journalOps >= s.opts.checkpointOps() || time.Since(s.lastCheckpoint) >= s.opts.checkpointInterval()
	s.mu.Unlock()
	if due {
		if err := s.Checkpoint(); err != nil {
			s.logf("mainydb: background checkpoint failed: %v", err)
		}
	}
}

// Close performs a final blocking checkpoint (§4.1: "Close is a blocking
// checkpoint").
func (s *Store) Close() error {
	return s.Checkpoint()
}
