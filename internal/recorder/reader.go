package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"main/internal/sim"
)

var ErrChecksumMismatch = errors.New("session log checksum mismatch")

// Reader decodes session log records sequentially.
type Reader struct {
	r      *bufio.Reader
	record [recordSize]byte
}

// NewReader wraps an io.Reader with session log decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next recorded event. It returns io.EOF at a clean
// end of stream and ErrTruncatedRecord when the stream ends mid-record.
func (r *Reader) Next() (sim.Event, error) {
	n, err := io.ReadFull(r.r, r.record[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return sim.Event{}, io.EOF
		}
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return sim.Event{}, ErrTruncatedRecord
		}
		return sim.Event{}, err
	}

	body := r.record[:recordBodySize]
	expected := binary.LittleEndian.Uint32(r.record[recordBodySize:])
	if checksum(body) != expected {
		return sim.Event{}, ErrChecksumMismatch
	}
	return decodeEvent(body)
}
