package binary

import (
	"errors"
	"io"
	"math"
	"testing"
)

func TestWriterReader_U32(t *testing.T) {
	tests := []uint32{0, 1, 127, 128, 255, 624485, math.MaxUint32}

	for _, v := range tests {
		w := NewWriter()
		w.WriteU32(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadU32()
		if err != nil {
			t.Fatalf("ReadU32(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("ReadU32 = %d, want %d", got, v)
		}
		if r.Len() != 0 {
			t.Errorf("%d bytes left after %d", r.Len(), v)
		}
	}
}

func TestWriterReader_S64(t *testing.T) {
	tests := []int64{0, 1, -1, 63, 64, -64, -65, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64}

	for _, v := range tests {
		w := NewWriter()
		w.WriteS64(v)
		got, err := NewReader(w.Bytes()).ReadS64()
		if err != nil {
			t.Fatalf("ReadS64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("ReadS64 = %d, want %d", got, v)
		}
	}
}

func TestWriter_KnownEncodings(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  []byte
	}{
		{"u32 624485", func(w *Writer) { w.WriteU32(624485) }, []byte{0xE5, 0x8E, 0x26}},
		{"s32 -2", func(w *Writer) { w.WriteS32(-2) }, []byte{0x7E}},
		{"s32 -123456", func(w *Writer) { w.WriteS32(-123456) }, []byte{0xC0, 0xBB, 0x78}},
		{"s32 64", func(w *Writer) { w.WriteS32(64) }, []byte{0xC0, 0x00}},
		{"name", func(w *Writer) { w.WriteName("fn") }, []byte{0x02, 'f', 'n'}},
		{"empty name", func(w *Writer) { w.WriteName("") }, []byte{0x00}},
		{"u32le", func(w *Writer) { w.WriteU32LE(0x6D736100) }, []byte{0x00, 0x61, 0x73, 0x6D}},
		{"f32 1", func(w *Writer) { w.WriteF32(1) }, []byte{0x00, 0x00, 0x80, 0x3F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			tt.write(w)
			got := w.Bytes()
			if len(got) != len(tt.want) {
				t.Fatalf("got %x, want %x", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %x, want %x", got, tt.want)
				}
			}
		})
	}
}

func TestAppend_MatchesWriter(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"u64 624485", AppendU64(nil, 624485), []byte{0xE5, 0x8E, 0x26}},
		{"u64 max u32", AppendU64(nil, math.MaxUint32), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
		{"s64 -2", AppendS64(nil, -2), []byte{0x7E}},
		{"s64 -123456", AppendS64(nil, -123456), []byte{0xC0, 0xBB, 0x78}},
		{"s64 64", AppendS64(nil, 64), []byte{0xC0, 0x00}},
		{"appends after prefix", AppendU64([]byte{0x41}, 128), []byte{0x41, 0x80, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.got) != string(tt.want) {
				t.Fatalf("got %x, want %x", tt.got, tt.want)
			}
		})
	}

	for _, v := range []int64{0, 1, -1, 63, -64, 64, -65, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64} {
		w := NewWriter()
		w.WriteS64(v)
		if string(w.Bytes()) != string(AppendS64(nil, v)) {
			t.Fatalf("s64 %d: writer %x, append %x", v, w.Bytes(), AppendS64(nil, v))
		}
	}
}

func TestReader_Errors(t *testing.T) {
	t.Run("eof", func(t *testing.T) {
		_, err := NewReader(nil).ReadByte()
		if !errors.Is(err, io.EOF) {
			t.Errorf("err = %v, want EOF", err)
		}
	})

	t.Run("u32 overflow", func(t *testing.T) {
		_, err := NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}).ReadU32()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("err = %v, want overflow", err)
		}
	})

	t.Run("short bytes", func(t *testing.T) {
		_, err := NewReader([]byte{1, 2}).ReadBytes(3)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("err = %v, want unexpected EOF", err)
		}
	})

	t.Run("invalid utf8 name", func(t *testing.T) {
		_, err := NewReader([]byte{0x01, 0xFF}).ReadName()
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestParseError(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, _ = r.ReadByte()
	err := r.WrapError("import section", io.EOF)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("expected ParseError")
	}
	if pe.Position != 1 || pe.Section != "import section" {
		t.Errorf("ParseError = %+v", pe)
	}
	if !errors.Is(err, io.EOF) {
		t.Error("ParseError should unwrap to cause")
	}
}
