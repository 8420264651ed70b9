package msgpack

// This file names the single-byte MessagePack format prefixes. The naming
// mirrors the Format* constants used by other from-scratch encoders in the
// wild (other_examples/ba58a6bc_wapc-tinygo-msgpack, which tags every
// leading byte with a Format-prefixed name) rather than the historical
// m-prefixed names, purely because it reads better in switch statements
// that span this whole file.

const (
	formatPositiveFixIntMax = 0x7f
	formatNegativeFixIntMin = 0xe0

	formatFixMap    = 0x80
	formatFixMapMax = 0x8f

	formatFixArray    = 0x90
	formatFixArrayMax = 0x9f

	formatFixStr    = 0xa0
	formatFixStrMax = 0xbf

	formatNil     = 0xc0
	formatFalse   = 0xc2
	formatTrue    = 0xc3
	formatBin8    = 0xc4
	formatBin16   = 0xc5
	formatBin32   = 0xc6
	formatExt8    = 0xc7
	formatExt16   = 0xc8
	formatExt32   = 0xc9
	formatFloat32 = 0xca
	formatFloat64 = 0xcb
	formatUint8   = 0xcc
	formatUint16  = 0xcd
	formatUint32  = 0xce
	formatUint64  = 0xcf
	formatInt8    = 0xd0
	formatInt16   = 0xd1
	formatInt32   = 0xd2
	formatInt64   = 0xd3

	formatFixExt1  = 0xd4
	formatFixExt2  = 0xd5
	formatFixExt4  = 0xd6
	formatFixExt8  = 0xd7
	formatFixExt16 = 0xd8

	formatStr8  = 0xd9
	formatStr16 = 0xda
	formatStr32 = 0xdb

	formatArray16 = 0xdc
	formatArray32 = 0xdd

	formatMap16 = 0xde
	formatMap32 = 0xdf
)

// extTimestamp is the reserved extension type for the msgpack "timestamp"
// extension, always written with a negative type code.
const extTimestamp = -1

// isPositiveFixInt reports whether b is a positive fixint.
func isPositiveFixInt(b byte) bool { return b&0x80 == 0 }

// isNegativeFixInt reports whether b is a negative fixint.
func isNegativeFixInt(b byte) bool { return b&0xe0 == 0xe0 }

// isFixStr reports whether b is a fixstr header.
func isFixStr(b byte) bool { return b&0xe0 == formatFixStr }

// isFixArray reports whether b is a fixarray header.
func isFixArray(b byte) bool { return b&0xf0 == formatFixArray }

// isFixMap reports whether b is a fixmap header.
func isFixMap(b byte) bool { return b&0xf0 == formatFixMap }
