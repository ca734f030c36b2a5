package mainydb

import "sync"

// encodeBufPool holds reusable byte buffers for checkpoint encoding; a
// checkpoint serializes the whole root, so reusing the backing array across
// checkpoints avoids repeated large allocations.
var encodeBufPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 65536)
	},
}

func getEncodeBuf() []byte {
	return encodeBufPool.Get().([]byte)[:0]
}

func putEncodeBuf(b []byte) {
	encodeBufPool.Put(b) //nolint:staticcheck // reused as-is, capacity matters not length
}
