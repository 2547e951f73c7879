package stream

import (
	"encoding/binary"
	stderrors "errors"
	"io"

	"github.com/kbukum/primesieve/errors"
)

// RecordSize is the width in bytes of one record on a byte transport.
const RecordSize = 8

// Encoder writes fixed-width records to an io.Writer.
type Encoder struct {
	w   io.Writer
	buf [RecordSize]byte
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v as one little-endian record.
func (e *Encoder) Encode(v int64) error {
	binary.LittleEndian.PutUint64(e.buf[:], uint64(v))
	n, err := e.w.Write(e.buf[:])
	if err != nil {
		return err
	}
	if n != RecordSize {
		return io.ErrShortWrite
	}
	return nil
}

// Decoder reads fixed-width records from an io.Reader.
type Decoder struct {
	r   io.Reader
	buf [RecordSize]byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads one record. A clean end of input before the first byte of a
// record is end-of-stream and returns (0, false, nil). Input ending inside a
// record returns a FRAMING_ERROR.
func (d *Decoder) Decode() (int64, bool, error) {
	n, err := io.ReadFull(d.r, d.buf[:])
	switch {
	case err == nil:
		return int64(binary.LittleEndian.Uint64(d.buf[:])), true, nil
	case n == 0 && stderrors.Is(err, io.EOF):
		return 0, false, nil
	case stderrors.Is(err, io.ErrUnexpectedEOF):
		return 0, false, errors.Framing(n, RecordSize)
	default:
		return 0, false, err
	}
}
