/*
Package mainydb implements an embedded, single-file document database with a
MongoDB-like surface: named databases of named collections of schema-free
documents, with a query predicate language, field-level update operators,
secondary indexes, and a multi-stage aggregation pipeline.

We implement:

1. Databases and Collections, a two-level namespace of schema-free documents.

2. Indexes, ordered secondary indexes over dotted field paths, with optional
uniqueness, maintained transactionally alongside collection mutations.

3. A Predicate Engine compiling MongoDB-style filter documents into match
functions, and a Planner choosing between a full scan and an index probe.

4. An Update Engine applying operator documents ($set, $inc, $push, ...) to a
single document with copy-on-write semantics.

5. An Aggregation Engine executing pipelines stage by stage, collecting each
stage's output before the next stage runs.

# Technical Details

**Single file.**
All persistent state — every database, collection, document and index — lives
in one file. Mutations apply to an in-memory root synchronously; persistence is
a periodic checkpoint: serialize the whole root to a temp file, sync, and
atomically rename over the target. This gives crash-atomicity at checkpoint
granularity without write-ahead-log replay.

## Binary encoding

**File**: 8-byte magic, 4-byte little-endian format version, 4-byte reserved,
then the body.

**Body**: the root document, encoded value-by-value as tag byte + payload
(msgpack-encoded payload), followed by an 8-byte xxhash64 checksum of the
preceding bytes.

**Value**: one byte kind tag, then a msgpack-encoded payload whose shape
depends on the tag — a document's payload is a flat array of alternating
key/value pairs (preserving field order), not a msgpack map (which would not).
*/
package mainydb
