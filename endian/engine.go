// Package endian provides the byte order engine used to encode container records.
//
// The CSO header and index are always little-endian on disk, independent of the
// host byte order. EndianEngine combines binary.ByteOrder with
// binary.AppendByteOrder so encoders can either fill a fixed-size slice in place
// or append to a growing buffer:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint32(buf, entry)
//
// The returned engines are stateless and safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// It is satisfied by binary.LittleEndian and binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine, the only byte order
// the container format uses.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}
