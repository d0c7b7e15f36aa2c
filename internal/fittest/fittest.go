// Package fittest assembles small FIT streams and containers for tests.
package fittest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/tormoder/fit/dyncrc16"
)

// FIT base types used by the builder.
const (
	Enum   uint8 = 0x00
	Uint8  uint8 = 0x02
	Uint16 uint8 = 0x84
	Uint32 uint8 = 0x86
	String uint8 = 0x07
)

const (
	headerSize      = 14
	protocolVersion = 0x20
	profileVersion  = 2132
)

// Field describes one field in a definition message.
type Field struct {
	Num  uint8
	Base uint8
	Size uint8 // optional, derived from Base when zero
}

func (f Field) size() uint8 {
	if f.Size != 0 {
		return f.Size
	}
	switch f.Base {
	case Uint16:
		return 2
	case Uint32:
		return 4
	default:
		return 1
	}
}

// Builder writes definition and data records into a FIT stream.
type Builder struct {
	data bytes.Buffer
	defs map[uint8][]Field
}

// NewBuilder returns an empty stream builder.
func NewBuilder() *Builder {
	return &Builder{defs: make(map[uint8][]Field)}
}

// Define writes a definition message binding local to global.
func (b *Builder) Define(local uint8, global uint16, fields ...Field) *Builder {
	b.data.WriteByte(0x40 | (local & 0x0F))
	b.data.WriteByte(0) // reserved
	b.data.WriteByte(0) // little endian
	_ = binary.Write(&b.data, binary.LittleEndian, global)
	b.data.WriteByte(uint8(len(fields)))
	for _, f := range fields {
		b.data.Write([]byte{f.Num, f.size(), f.Base})
	}
	b.defs[local] = fields
	return b
}

// Data writes a data message for local with one value per defined field.
func (b *Builder) Data(local uint8, values ...uint64) *Builder {
	b.data.WriteByte(local & 0x0F)
	b.writeValues(local, values)
	return b
}

// Compressed writes a compressed-timestamp data message for local (0-3).
func (b *Builder) Compressed(local uint8, offset uint8, values ...uint64) *Builder {
	b.data.WriteByte(0x80 | (local&0x03)<<5 | (offset & 0x1F))
	b.writeValues(local, values)
	return b
}

// Raw appends arbitrary bytes to the data section.
func (b *Builder) Raw(p []byte) *Builder {
	b.data.Write(p)
	return b
}

func (b *Builder) writeValues(local uint8, values []uint64) {
	fields, ok := b.defs[local]
	if !ok {
		panic(fmt.Sprintf("fittest: no definition for local message %d", local))
	}
	if len(values) != len(fields) {
		panic(fmt.Sprintf("fittest: local message %d has %d fields, got %d values", local, len(fields), len(values)))
	}
	for i, f := range fields {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, values[i])
		b.data.Write(buf[:f.size()])
	}
}

// Bytes returns the complete stream: header with CRC, records and file CRC.
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	header := make([]byte, headerSize)
	header[0] = headerSize
	header[1] = protocolVersion
	binary.LittleEndian.PutUint16(header[2:4], profileVersion)
	binary.LittleEndian.PutUint32(header[4:8], uint32(b.data.Len()))
	copy(header[8:12], ".FIT")
	binary.LittleEndian.PutUint16(header[12:14], dyncrc16.Checksum(header[:12]))
	out.Write(header)
	out.Write(b.data.Bytes())

	crc := make([]byte, 2)
	binary.LittleEndian.PutUint16(crc, dyncrc16.Checksum(out.Bytes()))
	out.Write(crc)
	return out.Bytes()
}

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

// Timestamp converts t to seconds since the FIT epoch.
func Timestamp(t time.Time) uint64 {
	return uint64(t.Sub(fitEpoch) / time.Second)
}

// Activity describes a synthetic activity stream.
type Activity struct {
	Start     time.Time // session start, UTC; zero omits the session
	UTCOffset time.Duration
	Sport     uint8
	SubSport  uint8
	VO2Max    []uint32 // raw field 7 values, one record 140 each
}

// Stream builds a FIT activity stream containing file_id, an optional
// session and activity message, and one record 140 per raw VO2 Max value.
func (a Activity) Stream() []byte {
	b := NewBuilder()
	b.Define(0, 0,
		Field{Num: 0, Base: Enum},
		Field{Num: 1, Base: Uint16},
		Field{Num: 4, Base: Uint32},
	)
	created := uint64(0xFFFFFFFF)
	if !a.Start.IsZero() {
		created = Timestamp(a.Start)
	}
	b.Data(0, 4, 1, created)

	b.Define(1, 140,
		Field{Num: 253, Base: Uint32},
		Field{Num: 7, Base: Uint32},
	)
	for i, raw := range a.VO2Max {
		ts := uint64(0)
		if !a.Start.IsZero() {
			ts = Timestamp(a.Start) + uint64(i)
		}
		b.Data(1, ts, uint64(raw))
	}

	if !a.Start.IsZero() {
		b.Define(2, 18,
			Field{Num: 253, Base: Uint32},
			Field{Num: 2, Base: Uint32},
			Field{Num: 5, Base: Enum},
			Field{Num: 6, Base: Enum},
		)
		b.Data(2, Timestamp(a.Start)+3600, Timestamp(a.Start), uint64(a.Sport), uint64(a.SubSport))

		end := Timestamp(a.Start) + 3600
		local := uint64(int64(end) + int64(a.UTCOffset/time.Second))
		b.Define(3, 34,
			Field{Num: 253, Base: Uint32},
			Field{Num: 5, Base: Uint32},
		)
		b.Data(3, end, local)
	}
	return b.Bytes()
}

// VO2MaxStream builds a minimal stream with one record 140 per raw value.
func VO2MaxStream(raws ...uint32) []byte {
	return Activity{VO2Max: raws}.Stream()
}

// Zip wraps the named entries into a zip archive, in the given order.
func Zip(entries ...Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Entry is one file inside a zip archive built by Zip.
type Entry struct {
	Name string
	Data []byte
}

// Gzip compresses data as a single gzip member.
func Gzip(data []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
