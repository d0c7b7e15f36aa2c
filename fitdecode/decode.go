// Package fitdecode turns a bare FIT stream into typed records keyed by
// global message number and field number.
package fitdecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tormoder/fit/dyncrc16"

	vo2trend "github.com/lucasjlepore/vo2-trend"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14

	fieldTimestamp uint8 = 253
)

var errTruncated = errors.New("record truncated")

type fieldDef struct {
	num  uint8
	size uint8
	base baseType
}

type definition struct {
	global    uint16
	arch      binary.ByteOrder
	fields    []fieldDef
	devFields []uint8 // sizes only; developer data is skipped
}

type decoder struct {
	data          []byte
	pos           int
	defs          map[uint8]definition
	lastTimestamp uint32
	lastOffset    uint32
	records       []vo2trend.TypedRecord
	warnings      []string
}

var _ vo2trend.DecodeFunc = Decode

// Decode parses stream into data records. Definition messages are consumed
// but not returned. Fields holding their invalid sentinel are omitted.
//
// A stream without a valid header is an error. CRC mismatches, trailing
// bytes and a record that cannot be read are reported as warnings, and every
// record decoded before the problem is still returned.
func Decode(stream []byte) ([]vo2trend.TypedRecord, []string, error) {
	if len(stream) < headerSizeNoCRC {
		return nil, nil, fmt.Errorf("fit stream too short: %d bytes", len(stream))
	}
	size := int(stream[0])
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return nil, nil, fmt.Errorf("invalid fit header size: %d", size)
	}
	if len(stream) < size {
		return nil, nil, fmt.Errorf("truncated fit header: need %d bytes", size)
	}
	if dataType := string(stream[8:12]); dataType != ".FIT" {
		return nil, nil, fmt.Errorf("invalid fit data type in header: %q", dataType)
	}

	d := &decoder{defs: make(map[uint8]definition)}
	if size == headerSizeCRC {
		stored := binary.LittleEndian.Uint16(stream[12:14])
		if stored != 0 && stored != dyncrc16.Checksum(stream[:12]) {
			d.warnf("header CRC mismatch: stored 0x%04X", stored)
		}
	}

	dataSize := int(binary.LittleEndian.Uint32(stream[4:8]))
	end := size + dataSize
	switch {
	case len(stream) < end+2:
		d.warnf("fit stream truncated: have %d bytes, need at least %d", len(stream), end+2)
		d.data = stream[size:min(end, len(stream))]
	default:
		stored := binary.LittleEndian.Uint16(stream[end : end+2])
		if computed := dyncrc16.Checksum(stream[:end]); stored != computed {
			d.warnf("file CRC mismatch: stored 0x%04X computed 0x%04X", stored, computed)
		}
		if leftover := len(stream) - end - 2; leftover > 0 {
			d.warnf("leftover trailing bytes ignored: %d", leftover)
		}
		d.data = stream[size:end]
	}

	d.run(size)
	return d.records, d.warnings, nil
}

func (d *decoder) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

func (d *decoder) run(dataOffset int) {
	for d.pos < len(d.data) {
		start := d.pos
		if err := d.next(); err != nil {
			d.warnf("record at byte %d: %v; %d bytes skipped", dataOffset+start, err, len(d.data)-start)
			return
		}
	}
}

func (d *decoder) read(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, errTruncated
	}
	out := d.data[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *decoder) next() error {
	header := d.data[d.pos]
	d.pos++

	switch {
	case header&compressedHeaderMask == compressedHeaderMask:
		local := (header & compressedLocalMesgNumMask) >> 5
		def, ok := d.defs[local]
		if !ok {
			return fmt.Errorf("missing definition for compressed data message local=%d", local)
		}
		return d.readData(def, header, true)
	case header&mesgDefinitionMask == mesgDefinitionMask:
		return d.readDefinition(header)
	default:
		local := header & localMesgNumMask
		def, ok := d.defs[local]
		if !ok {
			return fmt.Errorf("missing definition for data message local=%d", local)
		}
		return d.readData(def, header, false)
	}
}

func (d *decoder) readDefinition(header uint8) error {
	fixed, err := d.read(5) // reserved, architecture, global (2), field count
	if err != nil {
		return err
	}
	var arch binary.ByteOrder
	switch fixed[1] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return fmt.Errorf("invalid architecture byte %d", fixed[1])
	}

	def := definition{
		global: arch.Uint16(fixed[2:4]),
		arch:   arch,
		fields: make([]fieldDef, 0, fixed[4]),
	}
	for i := 0; i < int(fixed[4]); i++ {
		raw, err := d.read(3)
		if err != nil {
			return err
		}
		def.fields = append(def.fields, fieldDef{num: raw[0], size: raw[1], base: parseBaseType(raw[2])})
	}

	if header&devDataMask == devDataMask {
		count, err := d.read(1)
		if err != nil {
			return err
		}
		for i := 0; i < int(count[0]); i++ {
			raw, err := d.read(3)
			if err != nil {
				return err
			}
			def.devFields = append(def.devFields, raw[1])
		}
	}

	d.defs[header&localMesgNumMask] = def
	return nil
}

func (d *decoder) readData(def definition, header uint8, compressed bool) error {
	rec := vo2trend.TypedRecord{
		Type:   def.global,
		Fields: make(map[uint8]any, len(def.fields)+1),
	}

	if compressed && d.lastTimestamp != 0 {
		offset := uint32(header & compressedTimeMask)
		d.lastTimestamp += (offset - d.lastOffset) & compressedTimeMask
		d.lastOffset = offset
		rec.Fields[fieldTimestamp] = d.lastTimestamp
	}

	for _, f := range def.fields {
		raw, err := d.read(int(f.size))
		if err != nil {
			return err
		}
		v, valid, problem := decodeField(raw, f.base, def.arch)
		if problem != "" {
			d.warnf("mesg %d field %d: %s", def.global, f.num, problem)
		}
		if !valid {
			continue
		}
		rec.Fields[f.num] = v
		if f.num == fieldTimestamp {
			if ts, ok := v.(uint32); ok {
				d.lastTimestamp = ts
				d.lastOffset = ts & compressedTimeMask
			}
		}
	}

	for _, size := range def.devFields {
		if _, err := d.read(int(size)); err != nil {
			return err
		}
	}

	d.records = append(d.records, rec)
	return nil
}
