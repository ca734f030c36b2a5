package mainydb

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// ObjectID is the primary-key value type for documents (spec §3, §4.1): a
// 128-bit random value rendered as 32-char hex, per §6. We generate the
// random 16 bytes with uuid.New() rather than rolling our own rand.Read
// call, then hex-encode them ourselves instead of using uuid's dashed
// string form, to land on the spec's exact on-disk representation.
type ObjectID string

// NewObjectID generates a fresh ObjectID.
func NewObjectID() ObjectID {
	id := uuid.New()
	return ObjectID(hex.EncodeToString(id[:]))
}

func (id ObjectID) String() string { return string(id) }

func (id ObjectID) IsZero() bool { return id == "" }
