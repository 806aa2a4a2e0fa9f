package fast

// buffer.go carries minimal byte buffer helpers for the serialization hot path.
//
// bytes.Buffer and bufio are heavier than what linear encoding needs. The
// Writer here only appends to a slice, and the Reader only advances an integer
// cursor. Neither performs bounds checking: reading past the end panics, which
// is acceptable because callers wrap decoding in a recover (see the cser
// package adapters) and encoding always writes within what it allocated.

type Reader struct {
	// buf is the data being consumed.
	buf []byte
	// offset is the read cursor.
	offset int
}

type Writer struct {
	// buf accumulates the written bytes.
	buf []byte
}

// NewReader wraps the given slice for sequential consumption.
func NewReader(bb []byte) *Reader {
	return &Reader{
		buf:    bb,
		offset: 0,
	}
}

// NewWriter wraps the given slice and appends to it.
// Callers usually pass make([]byte, 0, capacity) to pre-size the buffer.
func NewWriter(bb []byte) *Writer {
	return &Writer{
		buf: bb,
	}
}

// WriteByte appends one byte.
func (b *Writer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

// Write appends a whole slice.
func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

// Read consumes the next n bytes and returns them.
//
// The returned slice aliases the underlying buffer, so the caller must copy
// before mutating it. Panics if fewer than n bytes remain.
func (b *Reader) Read(n int) []byte {
	res := b.buf[b.offset : b.offset+n]
	b.offset += n
	return res
}

// ReadByte consumes one byte. Panics if the buffer is exhausted.
func (b *Reader) ReadByte() byte {
	res := b.buf[b.offset]
	b.offset++
	return res
}

// Position returns how many bytes have been consumed so far.
func (b *Reader) Position() int {
	return b.offset
}

// Bytes returns the whole underlying buffer of the Reader.
func (b *Reader) Bytes() []byte {
	return b.buf
}

// Bytes returns the accumulated content of the Writer.
func (b *Writer) Bytes() []byte {
	return b.buf
}

// Empty reports whether the Reader has consumed every byte.
func (b *Reader) Empty() bool {
	return len(b.buf) == b.offset
}
