// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Astram developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

var littleEndian = binary.LittleEndian

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// messageError creates a MessageError given a function name and description.
func messageError(f, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc}
}

// MessageError describes an issue encountered while encoding or decoding a
// wire message that isn't covered by a CodecError. It uses a plain
// "func: description" wire error convention.
type MessageError struct {
	Func        string
	Description string
}

func (e *MessageError) Error() string {
	if e.Func != "" {
		return e.Func + ": " + e.Description
	}
	return e.Description
}

// CodecErrorKind enumerates the categorized codec failure reasons a
// wire decode can report.
type CodecErrorKind int

// Codec error kinds.
const (
	CodecTooShort CodecErrorKind = iota
	CodecTooLong
	CodecInvalidTag
	CodecOversizedField
)

func (k CodecErrorKind) String() string {
	switch k {
	case CodecTooShort:
		return "TooShort"
	case CodecTooLong:
		return "TooLong"
	case CodecInvalidTag:
		return "InvalidTag"
	case CodecOversizedField:
		return "OversizedField"
	default:
		return "Unknown"
	}
}

// CodecError is the tagged error variant for canonical-serialization
// failures, the Codec category of the node's error taxonomy.
type CodecError struct {
	Kind CodecErrorKind
	Msg  string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec error (%s): %s", e.Kind, e.Msg)
}

func newCodecError(kind CodecErrorKind, msg string) *CodecError {
	return &CodecError{Kind: kind, Msg: msg}
}

// binaryFreeList is a pool of byte slices used to avoid the overhead of
// repeatedly allocating small buffers when reading and writing fixed-width
// integers off the wire.
type binaryFreeList struct {
	pool sync.Pool
}

func (l *binaryFreeList) Borrow() []byte {
	buf, ok := l.pool.Get().(*[8]byte)
	if !ok {
		var b [8]byte
		buf = &b
	}
	return buf[:]
}

func (l *binaryFreeList) Return(buf []byte) {
	if cap(buf) < 8 {
		return
	}
	var b [8]byte
	copy(b[:], buf[:8])
	l.pool.Put(&b)
}

func (l *binaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (l *binaryFreeList) Uint16(r io.Reader, bo binary.ByteOrder) (uint16, error) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return 0, err
	}
	return bo.Uint16(buf[:2]), nil
}

func (l *binaryFreeList) Uint32(r io.Reader, bo binary.ByteOrder) (uint32, error) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return 0, err
	}
	return bo.Uint32(buf[:4]), nil
}

func (l *binaryFreeList) Uint64(r io.Reader, bo binary.ByteOrder) (uint64, error) {
	buf := l.Borrow()
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return 0, err
	}
	return bo.Uint64(buf[:8]), nil
}

func (l *binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf[:1])
	return err
}

func (l *binaryFreeList) PutUint16(w io.Writer, bo binary.ByteOrder, val uint16) error {
	buf := l.Borrow()
	defer l.Return(buf)
	bo.PutUint16(buf[:2], val)
	_, err := w.Write(buf[:2])
	return err
}

func (l *binaryFreeList) PutUint32(w io.Writer, bo binary.ByteOrder, val uint32) error {
	buf := l.Borrow()
	defer l.Return(buf)
	bo.PutUint32(buf[:4], val)
	_, err := w.Write(buf[:4])
	return err
}

func (l *binaryFreeList) PutUint64(w io.Writer, bo binary.ByteOrder, val uint64) error {
	buf := l.Borrow()
	defer l.Return(buf)
	bo.PutUint64(buf[:8], val)
	_, err := w.Write(buf[:8])
	return err
}

var binarySerializer = binaryFreeList{}

// ReadVarIntBuf reads a variable length integer from r using buf as scratch
// space and returns it as a uint64. buf must be nil or at least 8 bytes.
//
// The canonical codec encodes a varint as:
//   - 0x00-0xfc:       the value itself, 1 byte
//   - 0xfd + uint16le: values needing 3 bytes
//   - 0xfe + uint32le: values needing 5 bytes
//   - 0xff + uint64le: values needing 9 bytes
//
// Non-minimal encodings (e.g. 0xfd used to encode a value <= 0xfc) are
// rejected as CodecInvalidTag, preserving the deterministic round-trip
// invariant `encode(decode(x)) == x`.
func ReadVarIntBuf(r io.Reader, pver uint32, buf []byte) (uint64, error) {
	if buf == nil {
		buf = binarySerializer.Borrow()
		defer binarySerializer.Return(buf)
	}

	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	discriminant := buf[0]

	var rv uint64
	switch discriminant {
	case 0xff:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, err
		}
		rv = littleEndian.Uint64(buf[:8])
		if rv <= 0xffffffff {
			return 0, newCodecError(CodecInvalidTag, "non-minimal varint encoding")
		}
	case 0xfe:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint32(buf[:4]))
		if rv <= 0xffff {
			return 0, newCodecError(CodecInvalidTag, "non-minimal varint encoding")
		}
	case 0xfd:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint16(buf[:2]))
		if rv <= 0xfc {
			return 0, newCodecError(CodecInvalidTag, "non-minimal varint encoding")
		}
	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// ReadVarInt is the buffer-free convenience wrapper around ReadVarIntBuf.
func ReadVarInt(r io.Reader, pver uint32) (uint64, error) {
	return ReadVarIntBuf(r, pver, nil)
}

// WriteVarIntBuf writes val to w using the minimal varint encoding, using buf
// as scratch space. buf must be nil or at least 8 bytes.
func WriteVarIntBuf(w io.Writer, pver uint32, val uint64, buf []byte) error {
	if buf == nil {
		buf = binarySerializer.Borrow()
		defer binarySerializer.Return(buf)
	}

	if val < 0xfd {
		buf[0] = uint8(val)
		_, err := w.Write(buf[:1])
		return err
	}
	if val <= 0xffff {
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:3], uint16(val))
		_, err := w.Write(buf[:3])
		return err
	}
	if val <= 0xffffffff {
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:5], uint32(val))
		_, err := w.Write(buf[:5])
		return err
	}
	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:9], val)
	_, err := w.Write(buf[:9])
	return err
}

// WriteVarInt is the buffer-free convenience wrapper around WriteVarIntBuf.
func WriteVarInt(w io.Writer, pver uint32, val uint64) error {
	return WriteVarIntBuf(w, pver, val, nil)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array, rejecting any encoded
// length greater than maxAllowed as CodecOversizedField.
func ReadVarBytes(r io.Reader, pver uint32, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	if count > uint64(maxAllowed) {
		return nil, newCodecError(CodecOversizedField,
			fmt.Sprintf("%s is larger than the max allowed size [count %d, max %d]",
				fieldName, count, maxAllowed))
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes writes a length-prefixed byte array to w using the varint
// codec for the length prefix.
func WriteVarBytes(w io.Writer, pver uint32, data []byte) error {
	if err := WriteVarInt(w, pver, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadVarString reads a variable length string, rejecting lengths greater
// than MaxVarStringLength.
func ReadVarString(r io.Reader, pver uint32) (string, error) {
	b, err := ReadVarBytes(r, pver, MaxVarStringLength, "variable length string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteVarString writes a length-prefixed string to w.
func WriteVarString(w io.Writer, pver uint32, s string) error {
	return WriteVarBytes(w, pver, []byte(s))
}

// MaxVarStringLength is the maximum length a wire-encoded string (such as a
// user agent or network address label) is permitted to have.
const MaxVarStringLength = 256

// RandomUint64 returns a cryptographically random uint64, used to generate
// ping nonces and handshake identifiers.
func RandomUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(b[:]), nil
}
