package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/sim"
)

// Session logs hold fixed-size event records: every simulator operation
// is one record, so a session can be replayed deterministically against
// a fresh book.
const (
	recordVersion  uint16 = 1
	recordBodySize        = 48
	recordCRCSize         = 4
	recordSize            = recordBodySize + recordCRCSize
)

const flagExternal uint16 = 1 << 0

var (
	recordMagic = [4]byte{'S', 'I', 'M', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic         = errors.New("session log invalid magic")
	ErrUnsupportedRecordVer = errors.New("session log unsupported record version")
	ErrTruncatedRecord      = errors.New("session log truncated record")
)

func encodeEvent(dst []byte, ev sim.Event) {
	_ = dst[recordBodySize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	dst[6] = byte(ev.Op)
	dst[7] = ev.Side

	var flags uint16
	if ev.External {
		flags |= flagExternal
	}
	binary.LittleEndian.PutUint16(dst[8:10], flags)
	binary.LittleEndian.PutUint16(dst[10:12], uint16(ev.LevelIndex))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(ev.Trades))
	binary.LittleEndian.PutUint64(dst[16:24], ev.Seq)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(ev.Price))
	binary.LittleEndian.PutUint64(dst[32:40], uint64(ev.Volume))
	binary.LittleEndian.PutUint64(dst[40:48], uint64(ev.TsMillis))
}

func decodeEvent(src []byte) (sim.Event, error) {
	if len(src) < recordBodySize {
		return sim.Event{}, ErrTruncatedRecord
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return sim.Event{}, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return sim.Event{}, ErrUnsupportedRecordVer
	}
	flags := binary.LittleEndian.Uint16(src[8:10])
	return sim.Event{
		Op:         enum.Op(src[6]),
		Side:       src[7],
		External:   flags&flagExternal != 0,
		LevelIndex: int(binary.LittleEndian.Uint16(src[10:12])),
		Trades:     int(binary.LittleEndian.Uint32(src[12:16])),
		Seq:        binary.LittleEndian.Uint64(src[16:24]),
		Price:      model.Price(binary.LittleEndian.Uint64(src[24:32])),
		Volume:     model.Quantity(binary.LittleEndian.Uint64(src[32:40])),
		TsMillis:   int64(binary.LittleEndian.Uint64(src[40:48])),
	}, nil
}

func checksum(body []byte) uint32 {
	return crc32.Checksum(body, crcTable)
}
