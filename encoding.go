package mainydb

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Tag bytes for the on-disk envelope (§6: "tag byte + payload"). These are
// the wire identity of a Value's Kind; they must never be renumbered once
// written, since old files would silently decode into the wrong Kind.
const (
	tagNull      byte = 0
	tagBool      byte = 1
	tagInt       byte = 2
	tagFloat     byte = 3
	tagString    byte = 4
	tagTimestamp byte = 5
	tagObjectID  byte = 6
	tagBinary    byte = 7
	tagArray     byte = 8
	tagDocument  byte = 9
)

var kindToTag = map[Kind]byte{
	KindNull: tagNull, KindBool: tagBool, KindInt: tagInt, KindFloat: tagFloat,
	KindString: tagString, KindTimestamp: tagTimestamp, KindObjectID: tagObjectID,
	KindBinary: tagBinary, KindArray: tagArray, KindDocument: tagDocument,
}

// EncodeMsgpack implements msgpack.CustomEncoder, writing the tag byte
// followed by the payload encoded with msgpack's own type-appropriate
// primitives (EncodeInt64, EncodeFloat64, ...), so the envelope matches §6's
// "tag byte then payload" format while still running through the library's
// encoder rather than a hand-rolled one.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	tag, ok := kindToTag[v.kind]
	if !ok {
		return badUpdatef("cannot encode value of kind %v", v.kind)
	}
	if err := enc.EncodeUint8(tag); err != nil {
		return err
	}
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindInt:
		return enc.EncodeInt64(v.i)
	case KindFloat:
		return enc.EncodeFloat64(v.f)
	case KindString, KindObjectID:
		return enc.EncodeString(v.s)
	case KindTimestamp:
		return enc.EncodeTime(v.t)
	case KindBinary:
		return enc.EncodeBytes(v.bin)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, el := range v.arr {
			if err := el.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindDocument:
		return v.doc.EncodeMsgpack(enc)
	default:
		return badUpdatef("cannot encode value of kind %v", v.kind)
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder, the mirror of EncodeMsgpack.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := dec.DecodeUint8()
	if err != nil {
		return corruptFilef(err, "reading value tag")
	}
	switch tag {
	case tagNull:
		*v = Null()
		return nil
	case tagBool:
		b, err := dec.DecodeBool()
		if err != nil {
			return corruptFilef(err, "decoding bool value")
		}
		*v = Bool(b)
		return nil
	case tagInt:
		i, err := dec.DecodeInt64()
		if err != nil {
			return corruptFilef(err, "decoding int value")
		}
		*v = Int(i)
		return nil
	case tagFloat:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return corruptFilef(err, "decoding float value")
		}
		*v = Float(f)
		return nil
	case tagString:
		s, err := dec.DecodeString()
		if err != nil {
			return corruptFilef(err, "decoding string value")
		}
		*v = String(s)
		return nil
	case tagObjectID:
		s, err := dec.DecodeString()
		if err != nil {
			return corruptFilef(err, "decoding objectId value")
		}
		*v = ObjectIDValue(ObjectID(s))
		return nil
	case tagTimestamp:
		t, err := dec.DecodeTime()
		if err != nil {
			return corruptFilef(err, "decoding timestamp value")
		}
		*v = Timestamp(t)
		return nil
	case tagBinary:
		b, err := dec.DecodeBytes()
		if err != nil {
			return corruptFilef(err, "decoding binary value")
		}
		*v = Binary(b)
		return nil
	case tagArray:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return corruptFilef(err, "decoding array length")
		}
		arr := make([]Value, 0, max(n, 0))
		for i := 0; i < n; i++ {
			var el Value
			if err := el.DecodeMsgpack(dec); err != nil {
				return err
			}
			arr = append(arr, el)
		}
		*v = Array(arr)
		return nil
	case tagDocument:
		d := NewDocument()
		if err := d.DecodeMsgpack(dec); err != nil {
			return err
		}
		*v = Doc(d)
		return nil
	default:
		return corruptFilef(nil, "unknown value tag %d", tag)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// EncodeMsgpack encodes a Document as a flat key/value-pair array (§6: "not a
// msgpack map"), so field order survives the round trip exactly as inserted.
func (d *Document) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(d.fields) * 2); err != nil {
		return err
	}
	for _, f := range d.fields {
		if err := enc.EncodeString(f.key); err != nil {
			return err
		}
		if err := f.val.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return corruptFilef(err, "decoding document length")
	}
	if n%2 != 0 {
		return corruptFilef(nil, "document array length %d is not even", n)
	}
	d.fields = make([]docField, 0, n/2)
	for i := 0; i < n/2; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return corruptFilef(err, "decoding document key")
		}
		var val Value
		if err := val.DecodeMsgpack(dec); err != nil {
			return err
		}
		d.fields = append(d.fields, docField{key, val})
	}
	return nil
}

// EncodeMsgpack for rootDoc and its nested shapes is written by hand rather
// than relying on msgpack's struct reflection, so unexported fields (such as
// Path's segs) round-trip exactly like Value/Document do.

func (rd *rootDoc) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeUint32(rd.version); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(rd.dbs)); err != nil {
		return err
	}
	for _, db := range rd.dbs {
		if err := db.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func (rd *rootDoc) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeUint32()
	if err != nil {
		return corruptFilef(err, "decoding root version")
	}
	rd.version = v
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return corruptFilef(err, "decoding db count")
	}
	rd.dbs = make([]namedDBDoc, n)
	for i := range rd.dbs {
		if err := rd.dbs[i].DecodeMsgpack(dec); err != nil {
			return err
		}
	}
	return nil
}

func (nd *namedDBDoc) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeString(nd.name); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(nd.colls)); err != nil {
		return err
	}
	for _, c := range nd.colls {
		if err := c.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func (nd *namedDBDoc) DecodeMsgpack(dec *msgpack.Decoder) error {
	name, err := dec.DecodeString()
	if err != nil {
		return corruptFilef(err, "decoding db name")
	}
	nd.name = name
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return corruptFilef(err, "decoding collection count")
	}
	nd.colls = make([]namedCollDoc, n)
	for i := range nd.colls {
		if err := nd.colls[i].DecodeMsgpack(dec); err != nil {
			return err
		}
	}
	return nil
}

func (nc *namedCollDoc) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeString(nc.name); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(nc.docs)); err != nil {
		return err
	}
	for _, d := range nc.docs {
		if err := d.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	if err := enc.EncodeArrayLen(len(nc.indexes)); err != nil {
		return err
	}
	for _, ix := range nc.indexes {
		if err := encodeIndexSpec(enc, ix); err != nil {
			return err
		}
	}
	return nil
}

func (nc *namedCollDoc) DecodeMsgpack(dec *msgpack.Decoder) error {
	name, err := dec.DecodeString()
	if err != nil {
		return corruptFilef(err, "decoding collection name")
	}
	nc.name = name
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return corruptFilef(err, "decoding document count")
	}
	nc.docs = make([]*Document, n)
	for i := range nc.docs {
		d := NewDocument()
		if err := d.DecodeMsgpack(dec); err != nil {
			return err
		}
		nc.docs[i] = d
	}
	m, err := dec.DecodeArrayLen()
	if err != nil {
		return corruptFilef(err, "decoding index count")
	}
	nc.indexes = make([]IndexSpec, m)
	for i := range nc.indexes {
		spec, err := decodeIndexSpec(dec)
		if err != nil {
			return err
		}
		nc.indexes[i] = spec
	}
	return nil
}

func encodeIndexSpec(enc *msgpack.Encoder, spec IndexSpec) error {
	if err := enc.EncodeString(spec.Name); err != nil {
		return err
	}
	if err := enc.EncodeBool(spec.Unique); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(spec.Keys)); err != nil {
		return err
	}
	for _, k := range spec.Keys {
		if err := enc.EncodeString(k.Path.String()); err != nil {
			return err
		}
		if err := enc.EncodeInt(int64(k.Dir)); err != nil {
			return err
		}
	}
	return nil
}

func decodeIndexSpec(dec *msgpack.Decoder) (IndexSpec, error) {
	name, err := dec.DecodeString()
	if err != nil {
		return IndexSpec{}, corruptFilef(err, "decoding index name")
	}
	unique, err := dec.DecodeBool()
	if err != nil {
		return IndexSpec{}, corruptFilef(err, "decoding index uniqueness")
	}
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return IndexSpec{}, corruptFilef(err, "decoding index key count")
	}
	keys := make([]IndexKey, n)
	for i := range keys {
		p, err := dec.DecodeString()
		if err != nil {
			return IndexSpec{}, corruptFilef(err, "decoding index key path")
		}
		dir, err := dec.DecodeInt()
		if err != nil {
			return IndexSpec{}, corruptFilef(err, "decoding index key direction")
		}
		keys[i] = IndexKey{Path: ParsePath(p), Dir: int(dir)}
	}
	return IndexSpec{Name: name, Unique: unique, Keys: keys}, nil
}

// marshalRoot encodes root using a pooled encoder, the way the teacher's
// encodingMethod.EncodeValue reused msgpack.GetEncoder/PutEncoder rather
// than allocating a fresh encoder per checkpoint.
func marshalRoot(root *rootDoc) ([]byte, error) {
	buf := getEncodeBuf()
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.ResetDict(&bb, nil)
	err := root.EncodeMsgpack(enc)
	msgpack.PutEncoder(enc)
	if err != nil {
		putEncodeBuf(bb.Buf[:0])
		return nil, err
	}
	return bb.Buf, nil
}

func unmarshalRoot(buf []byte, root *rootDoc) error {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	err := root.DecodeMsgpack(dec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return corruptFilef(err, "decoding checkpoint body")
	}
	return nil
}
