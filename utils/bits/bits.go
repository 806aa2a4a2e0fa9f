package bits

// Package bits implements a bit-granular stream Reader and Writer over a plain
// byte slice. It exists so that sub-byte quantities, such as boolean flags and
// the 1-3 bit size tags of the canonical encoding, do not each burn a whole
// byte on the wire. Bits are packed LSB-first within every byte.

type (
	// Array holds the byte slice backing a bitstream.
	Array struct {
		Bytes []byte
	}

	// Writer appends bits to an Array, tracking where the next bit lands
	// inside the last byte.
	Writer struct {
		*Array
		bitOffset int // next bit position inside Bytes[len-1], 0..7
	}

	// Reader consumes bits from an Array, tracking both the byte index and
	// the bit position inside it.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int // next bit position inside Bytes[byteOffset], 0..7
	}
)

// NewWriter makes a bitstream writer over the given array.
func NewWriter(arr *Array) *Writer {
	return &Writer{
		Array: arr,
	}
}

// NewReader makes a bitstream reader over the given array.
func NewReader(arr *Array) *Reader {
	return &Reader{
		Array: arr,
	}
}

func (a *Writer) byteBitsFree() int {
	return 8 - a.bitOffset
}

// writeIntoLastByte ORs the bits of v into the active byte, shifted into the
// free positions.
func (a *Writer) writeIntoLastByte(v uint) {
	a.Bytes[len(a.Bytes)-1] |= byte(v << a.bitOffset)
}

// zeroTopByteBits masks v so that only the bits fitting the remaining space of
// the current byte survive.
func zeroTopByteBits(v uint, bits int) uint {
	mask := uint(0xff) >> bits
	return v & mask
}

// Write appends the lowest 'bits' bits of v to the stream.
// Write(3, 0b101) emits three bits.
func (a *Writer) Write(bits int, v uint) {
	// Starting a fresh byte: append a zero byte to fill.
	if a.bitOffset == 0 {
		a.Bytes = append(a.Bytes, byte(0))
	}

	free := a.byteBitsFree()

	if bits <= free {
		// Everything fits into the current byte.
		toWrite := bits
		a.writeIntoLastByte(v)

		if toWrite == free {
			// Byte filled exactly, the next Write appends a new one.
			a.bitOffset = 0
		} else {
			a.bitOffset += toWrite
		}
	} else {
		// Spills over. Fill the current byte, then recurse with the rest.
		toWrite := free
		clear := a.bitOffset

		a.writeIntoLastByte(zeroTopByteBits(v, clear))
		a.bitOffset = 0

		a.Write(bits-toWrite, v>>toWrite)
	}
}

func (a *Reader) byteBitsFree() int {
	return 8 - a.bitOffset
}

// Read consumes 'bits' bits and returns them as an integer, advancing the
// cursor. Bits written first come back in the low positions.
func (a *Reader) Read(bits int) (v uint) {
	if bits == 0 {
		return 0
	}

	free := a.byteBitsFree()

	if bits <= free {
		// The whole request sits inside the current byte. Mask off the high
		// bits that belong to later reads, then shift the cursor offset away.
		toRead := bits
		clear := 8 - (a.bitOffset + toRead)

		v = zeroTopByteBits(uint(a.Bytes[a.byteOffset]), clear) >> a.bitOffset

		if toRead == free {
			a.bitOffset = 0
			a.byteOffset++
		} else {
			a.bitOffset += toRead
		}
	} else {
		// Spans a byte boundary. Take what is left here, recurse for the
		// rest, and splice the two parts together.
		toRead := free

		v = uint(a.Bytes[a.byteOffset]) >> a.bitOffset

		a.bitOffset = 0
		a.byteOffset++

		rest := a.Read(bits - toRead)
		v |= rest << toRead
	}
	return
}

// View reads 'bits' bits without advancing the cursor.
func (a *Reader) View(bits int) (v uint) {
	cp := *a
	cpp := &cp
	return cpp.Read(bits)
}

// NonReadBytes returns the number of bytes not fully consumed yet.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

// NonReadBits returns the number of unread bits remaining.
func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
