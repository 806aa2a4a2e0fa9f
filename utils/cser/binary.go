package cser

import (
	"github.com/TalentifyApp/go-talentify-sale/utils/bits"
	"github.com/TalentifyApp/go-talentify-sale/utils/fast"
)

// binary.go defines the container format that merges the two streams into one
// byte slice and splits them apart again.
//
// Wire layout:
//
//	[ body bytes ][ bit-stream bytes ][ reversed varint: len(bit-stream) ]
//
// The length suffix is written in reverse byte order so a decoder can parse it
// by scanning backwards from the end without knowing its width in advance.

// MarshalBinaryAdapter runs the given encoding callback against a fresh Writer
// and packs both streams into a single slice.
func MarshalBinaryAdapter(marshalCser func(*Writer) error) ([]byte, error) {
	w := NewWriter()

	err := marshalCser(w)
	if err != nil {
		return nil, err
	}

	return binaryFromCSER(w.BitsW.Array, w.BytesW.Bytes())
}

// binaryFromCSER appends the bit-stream bytes after the body and terminates
// the slice with the reversed length suffix.
func binaryFromCSER(bbits *bits.Array, bbytes []byte) (raw []byte, err error) {
	bodyBytes := fast.NewWriter(bbytes)
	bodyBytes.Write(bbits.Bytes)

	sizeWriter := fast.NewWriter(make([]byte, 0, 4))
	writeUint64Compact(sizeWriter, uint64(len(bbits.Bytes)))
	bodyBytes.Write(reversed(sizeWriter.Bytes()))

	return bodyBytes.Bytes(), nil
}

// binaryToCSER splits a packed slice back into its bit and byte streams,
// working backwards from the length suffix.
func binaryToCSER(raw []byte) (bbits *bits.Array, bbytes []byte, err error) {
	// A 64-bit varint spans at most 9 bytes. Un-reverse the tail and decode
	// the bit-stream length from it.
	bitsSizeBuf := reversed(tail(raw, 9))
	bitsSizeReader := fast.NewReader(bitsSizeBuf)
	bitsSize := readUint64Compact(bitsSizeReader)

	// Drop the suffix, leaving [body][bit-stream].
	raw = raw[:len(raw)-bitsSizeReader.Position()]

	if uint64(len(raw)) < bitsSize {
		err = ErrMalformedEncoding
		return
	}

	bbits = &bits.Array{Bytes: raw[uint64(len(raw))-bitsSize:]}
	bbytes = raw[:uint64(len(raw))-bitsSize]
	return
}

// UnmarshalBinaryAdapter splits the raw slice and runs the given decoding
// callback over it. Out-of-bounds reads inside the callback surface as
// ErrMalformedEncoding rather than a panic.
func UnmarshalBinaryAdapter(raw []byte, unmarshalCser func(reader *Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrMalformedEncoding
		}
	}()

	bbits, bbytes, err := binaryToCSER(raw)
	if err != nil {
		return err
	}

	bodyReader := &Reader{
		BitsR:  bits.NewReader(bbits),
		BytesR: fast.NewReader(bbytes),
	}

	err = unmarshalCser(bodyReader)
	if err != nil {
		return err
	}

	// Canonical encodings leave no slack: every byte and every bit must have
	// been consumed, and trailing pad bits must be zero.
	if bodyReader.BitsR.NonReadBytes() > 1 {
		return ErrNonCanonicalEncoding
	}
	tail := bodyReader.BitsR.Read(bodyReader.BitsR.NonReadBits())
	if tail != 0 {
		return ErrNonCanonicalEncoding
	}
	if !bodyReader.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}

	return nil
}

// tail returns the last cap bytes of b, or all of b when it is shorter.
func tail(b []byte, cap int) []byte {
	if len(b) > cap {
		return b[len(b)-cap:]
	}
	return b
}

// reversed returns a new slice with the bytes of b in reverse order.
func reversed(b []byte) []byte {
	reversed := make([]byte, len(b))
	for i, v := range b {
		reversed[len(b)-1-i] = v
	}
	return reversed
}
