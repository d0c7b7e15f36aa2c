// Package fitstream recovers a bare FIT stream from a downloaded activity
// payload, which may be the stream itself or a compressed container.
package fitstream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// MaxStreamSize bounds the decompressed size of an embedded stream.
const MaxStreamSize = 256 << 20

const (
	fitHeaderMin = 12
	eocdSize     = 22
	eocdMaxScan  = eocdSize + 65535 // end record plus maximum comment
)

var (
	zipLocalHeaderSig = []byte("PK\x03\x04")
	zipEndSig         = []byte("PK\x05\x06")
	gzipMagic         = []byte{0x1f, 0x8b}
)

// Kind is the detected container format of a payload.
type Kind int

const (
	KindRaw Kind = iota
	KindZip
	KindGzip
)

func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindGzip:
		return "gzip"
	default:
		return "raw"
	}
}

// ContainerError reports a payload that looks like a container but cannot be read.
type ContainerError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("%s container: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ContainerError) Unwrap() error { return e.Err }

// IsContainerError reports whether err is, or wraps, a *ContainerError.
func IsContainerError(err error) bool {
	var ce *ContainerError
	return errors.As(err, &ce)
}

// Detect classifies payload without reading past its signatures.
func Detect(payload []byte) Kind {
	switch {
	case bytes.HasPrefix(payload, zipLocalHeaderSig), bytes.HasPrefix(payload, zipEndSig):
		return KindZip
	case bytes.HasPrefix(payload, gzipMagic):
		return KindGzip
	case looksLikeFIT(payload):
		return KindRaw
	case hasZipEnd(payload):
		return KindZip
	default:
		return KindRaw
	}
}

// Normalize returns the bare FIT stream carried by payload. ok is false when
// payload is an archive without a .fit entry. Anything that is not a
// recognizable container is returned as a private copy. payload is never modified.
func Normalize(payload []byte) (stream []byte, ok bool, err error) {
	switch Detect(payload) {
	case KindZip:
		return extractZip(payload)
	case KindGzip:
		return inflateGzip(payload)
	default:
		return bytes.Clone(payload), true, nil
	}
}

func extractZip(payload []byte) ([]byte, bool, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, false, &ContainerError{Kind: KindZip, Op: "open archive", Err: err}
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".fit") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false, &ContainerError{Kind: KindZip, Op: "open " + f.Name, Err: err}
		}
		data, err := readLimited(rc)
		rc.Close()
		if err != nil {
			return nil, false, &ContainerError{Kind: KindZip, Op: "read " + f.Name, Err: err}
		}
		return data, true, nil
	}
	return nil, false, nil
}

func inflateGzip(payload []byte) ([]byte, bool, error) {
	gr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, false, &ContainerError{Kind: KindGzip, Op: "open stream", Err: err}
	}
	defer gr.Close()

	data, err := readLimited(gr)
	if err != nil {
		return nil, false, &ContainerError{Kind: KindGzip, Op: "inflate", Err: err}
	}
	return data, true, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxStreamSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxStreamSize {
		return nil, fmt.Errorf("embedded stream exceeds %d bytes", MaxStreamSize)
	}
	return data, nil
}

func looksLikeFIT(payload []byte) bool {
	if len(payload) < fitHeaderMin {
		return false
	}
	size := payload[0]
	return (size == 12 || size == 14) && string(payload[8:12]) == ".FIT"
}

// hasZipEnd reports whether payload ends with a zip end-of-central-directory
// record whose comment length accounts for every trailing byte.
func hasZipEnd(payload []byte) bool {
	tail := payload
	if len(tail) > eocdMaxScan {
		tail = tail[len(tail)-eocdMaxScan:]
	}
	for end := len(tail); end > 0; {
		i := bytes.LastIndex(tail[:end], zipEndSig)
		if i < 0 {
			return false
		}
		if i+eocdSize <= len(tail) {
			comment := int(binary.LittleEndian.Uint16(tail[i+20:]))
			if i+eocdSize+comment == len(tail) {
				return true
			}
		}
		end = i
	}
	return false
}
