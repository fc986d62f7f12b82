package binary

import (
	"encoding/binary"
	"math"
)

// AppendU64 appends v as unsigned LEB128.
func AppendU64(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// AppendS64 appends v as signed LEB128.
func AppendS64(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// Writer accumulates an encoded module or section.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the written bytes. The slice aliases the writer.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) WriteBytes(data []byte) { w.buf = append(w.buf, data...) }

func (w *Writer) WriteU32(v uint32) { w.buf = AppendU64(w.buf, uint64(v)) }

func (w *Writer) WriteU64(v uint64) { w.buf = AppendU64(w.buf, v) }

func (w *Writer) WriteS32(v int32) { w.buf = AppendS64(w.buf, int64(v)) }

func (w *Writer) WriteS64(v int64) { w.buf = AppendS64(w.buf, v) }

// WriteF32 writes the IEEE 754 bits of v, little-endian.
func (w *Writer) WriteF32(v float32) { w.WriteU32LE(math.Float32bits(v)) }

// WriteF64 writes the IEEE 754 bits of v, little-endian.
func (w *Writer) WriteF64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

// WriteName writes a length-prefixed UTF-8 name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteU32LE writes v as four little-endian bytes.
func (w *Writer) WriteU32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}
