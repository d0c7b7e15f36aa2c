package fitstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/vo2-trend/internal/fittest"
)

func TestNormalizePassesThroughBareStream(t *testing.T) {
	for _, payload := range [][]byte{
		fittest.VO2MaxStream(65536),
		[]byte("plain bytes"),
		{},
	} {
		out, ok, err := Normalize(payload)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, payload, out)
		if len(payload) > 0 {
			require.NotSame(t, &payload[0], &out[0], "expected a private copy")
		}
	}
}

func TestNormalizeExtractsFitEntry(t *testing.T) {
	stream := fittest.VO2MaxStream(65536 * 13)
	archive := fittest.Zip(
		fittest.Entry{Name: "summary.json", Data: []byte(`{"id":1}`)},
		fittest.Entry{Name: "18171465049_ACTIVITY.fit", Data: stream},
	)
	original := bytes.Clone(archive)

	out, ok, err := Normalize(archive)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, stream, out)
	require.Equal(t, original, archive)
}

func TestNormalizeMatchesExtensionCaseInsensitively(t *testing.T) {
	stream := fittest.VO2MaxStream(65536)
	out, ok, err := Normalize(fittest.Zip(fittest.Entry{Name: "RUN.FIT", Data: stream}))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, stream, out)
}

func TestNormalizeArchiveWithoutFitEntryIsAbsent(t *testing.T) {
	out, ok, err := Normalize(fittest.Zip(
		fittest.Entry{Name: "activity.gpx", Data: []byte("<gpx/>")},
		fittest.Entry{Name: "fit/", Data: nil},
	))
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, out)
}

func TestNormalizeCorruptArchive(t *testing.T) {
	archive := fittest.Zip(fittest.Entry{Name: "a.fit", Data: bytes.Repeat([]byte("x"), 512)})
	for name, payload := range map[string][]byte{
		"local header only": []byte("PK\x03\x04 not really a zip"),
		"truncated":         archive[:len(archive)/2],
	} {
		_, ok, err := Normalize(payload)
		require.Error(t, err, name)
		require.False(t, ok, name)
		require.True(t, IsContainerError(err), name)
	}
}

func TestNormalizeGzip(t *testing.T) {
	stream := fittest.VO2MaxStream(65536 * 12)
	out, ok, err := Normalize(fittest.Gzip(stream))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, stream, out)

	gz := fittest.Gzip(stream)
	_, _, err = Normalize(gz[:len(gz)-6])
	require.True(t, IsContainerError(err))
}

func TestDetect(t *testing.T) {
	stream := fittest.VO2MaxStream(65536)
	require.Equal(t, KindRaw, Detect(stream))
	require.Equal(t, KindZip, Detect(fittest.Zip(fittest.Entry{Name: "a.fit", Data: stream})))
	require.Equal(t, KindGzip, Detect(fittest.Gzip(stream)))

	// a FIT stream whose payload happens to contain an end-of-archive signature
	tricky := append(bytes.Clone(stream), []byte("PK\x05\x06")...)
	require.Equal(t, KindRaw, Detect(tricky))

	// an archive with a prepended stub is still found through its end record
	stub := append([]byte("stub"), fittest.Zip(fittest.Entry{Name: "a.fit", Data: stream})...)
	require.Equal(t, KindZip, Detect(stub))

	// a comment-carrying archive still ends exactly where its end record says
	commented := append([]byte("stub"), fittest.Zip(fittest.Entry{Name: "a.fit", Data: stream})...)
	commented[len(commented)-2] = 5
	commented = append(commented, "notes"...)
	require.Equal(t, KindZip, Detect(commented))
}

func TestNormalizeIgnoresStraySignature(t *testing.T) {
	blob := []byte("some exported blob PK\x05\x06 followed by trailing bytes that are not a zip comment")
	require.Equal(t, KindRaw, Detect(blob))

	out, ok, err := Normalize(blob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, blob, out)
}
