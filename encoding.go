package mctp

import "encoding/binary"

// le is the byte order for every multi-byte field MCTP and SMBus define on
// the wire. Single-byte fields dominate; this only matters for byte_count
// and future multi-byte bodies.
var le = binary.LittleEndian

// ByteReader provides sequential little-endian reads over a fixed buffer,
// returning a *ParseError instead of panicking when a read runs past the end.
type ByteReader struct {
	data []byte
	pos  int
}

// NewByteReader wraps data for sequential reading.
func NewByteReader(data []byte) *ByteReader {
	return &ByteReader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *ByteReader) Remaining() int {
	return len(r.data) - r.pos
}

// Position returns the current read offset.
func (r *ByteReader) Position() int {
	return r.pos
}

// ReadByte reads a single byte and advances position.
func (r *ByteReader) ReadByte() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, newInvalidPayloadSize(r.pos+1, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads n bytes and advances position.
func (r *ByteReader) ReadBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, newInvalidPayloadSize(r.pos+n, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadUint16 reads a little-endian uint16.
func (r *ByteReader) ReadUint16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return le.Uint16(b), nil
}

// ByteWriter accumulates a byte buffer with little-endian writes.
type ByteWriter struct {
	data []byte
}

// NewByteWriter creates a ByteWriter with the given initial capacity.
func NewByteWriter(capacity int) *ByteWriter {
	return &ByteWriter{data: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated buffer.
func (w *ByteWriter) Bytes() []byte {
	return w.data
}

// Len returns the number of bytes written so far.
func (w *ByteWriter) Len() int {
	return len(w.data)
}

// WriteByte appends a single byte.
func (w *ByteWriter) WriteByte(b byte) {
	w.data = append(w.data, b)
}

// WriteBytes appends raw bytes.
func (w *ByteWriter) WriteBytes(b []byte) {
	w.data = append(w.data, b...)
}

// WriteUint16 appends a little-endian uint16.
func (w *ByteWriter) WriteUint16(v uint16) {
	var buf [2]byte
	le.PutUint16(buf[:], v)
	w.data = append(w.data, buf[:]...)
}
