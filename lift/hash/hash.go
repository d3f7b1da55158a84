// Package hash computes canonical content hashes of completed
// transforms. Two runs producing the same emission (same definitions,
// same rewritten body) produce the same hash, which the registry and
// artifact layers use for change detection and verification.
package hash

import (
	"crypto/sha256"

	"github.com/chazu/hoist/lift"
)

// HashVersion is the first byte of every serialization. Bump on any
// format change so stale hashes never compare equal.
const HashVersion = 0x01

// Sum computes the SHA-256 content hash of a transform result. The
// hash covers the root name, every hoisted definition in emission
// order (name, signature, captures, layout size, body), and the
// rewritten root body.
func Sum(res *lift.Result) [32]byte {
	defs, body := lift.Emit(res)
	return SumDefs(res.Root, defs, body)
}

// SumDefs hashes an emission directly. Callers that reconstruct
// definitions from storage (rather than holding a live Result) use
// this to verify content; defs must be in emission order and closure
// definitions need only Layout.Size populated.
func SumDefs(root string, defs []lift.HoistedDef, body string) [32]byte {
	return sha256.Sum256(serialize(root, defs, body))
}

// serialize produces the canonical byte form that is hashed.
func serialize(root string, defs []lift.HoistedDef, body string) []byte {
	s := &serializer{buf: make([]byte, 0, 512)}
	s.writeByte(HashVersion)
	s.writeString(root)
	s.writeUint32(uint32(len(defs)))
	for i := range defs {
		s.serializeDef(&defs[i])
	}
	s.writeString(body)
	return s.buf
}

// ---------------------------------------------------------------------------
// Deterministic binary serialization.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (uint32=4B)
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans: single byte (0/1)
//   - Lists: uint32 count + elements inline
// ---------------------------------------------------------------------------

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeUint32(v uint32) {
	s.buf = append(s.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writePairs(pairs []lift.Param) {
	s.writeUint32(uint32(len(pairs)))
	for _, p := range pairs {
		s.writeString(p.Type)
		s.writeString(p.Name)
	}
}

const (
	tagFunction = 0x10
	tagClosure  = 0x11
)

func (s *serializer) serializeDef(d *lift.HoistedDef) {
	if d.IsClosure() {
		s.writeByte(tagClosure)
	} else {
		s.writeByte(tagFunction)
	}
	s.writeString(d.Name)
	s.writeString(d.ReturnType)
	s.writePairs(d.Params)
	s.writeBool(d.Variadic)
	if d.IsClosure() {
		s.writePairs(d.Captures)
		s.writeUint32(uint32(d.Layout.Size))
	}
	s.writeString(d.Body)
}
