package vo2trend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func staticDecode(records []TypedRecord, warnings []string, err error) DecodeFunc {
	return func([]byte) ([]TypedRecord, []string, error) {
		return records, warnings, err
	}
}

func vo2Record(raw any) TypedRecord {
	return TypedRecord{Type: MesgNumVO2Max, Fields: map[uint8]any{FieldVO2MaxRaw: raw}}
}

func TestExtractLastRecordWins(t *testing.T) {
	decode := staticDecode([]TypedRecord{
		vo2Record(uint32(131072)),
		{Type: 20, Fields: map[uint8]any{7: uint16(250)}},
		vo2Record(uint32(65536)),
	}, nil, nil)

	ext, err := Extract([]byte("stream"), decode)
	require.NoError(t, err)
	require.True(t, ext.Found)
	require.Equal(t, 2, ext.Observations)
	require.InDelta(t, 3.5, ext.Value, 1e-9)
}

func TestExtractWithoutMetricRecord(t *testing.T) {
	decode := staticDecode([]TypedRecord{
		{Type: 0, Fields: map[uint8]any{0: uint8(4)}},
		{Type: MesgNumVO2Max, Fields: map[uint8]any{3: uint16(12)}},
	}, nil, nil)

	ext, err := Extract(nil, decode)
	require.NoError(t, err)
	require.False(t, ext.Found)
	require.Zero(t, ext.Value)
}

func TestConvertVO2Max(t *testing.T) {
	require.InDelta(t, 3.5, ConvertVO2Max(65536), 1e-12)
	require.InDelta(t, 7.0, ConvertVO2Max(131072), 1e-12)
	require.Zero(t, ConvertVO2Max(0))
}

func TestExtractZeroRawIsFoundButAbsent(t *testing.T) {
	ext, err := Extract(nil, staticDecode([]TypedRecord{vo2Record(uint32(0))}, nil, nil))
	require.NoError(t, err)
	require.True(t, ext.Found)
	require.Zero(t, ext.Value)
}

func TestExtractKeepsValueDespiteDecodeWarnings(t *testing.T) {
	warnings := []string{"file CRC mismatch"}
	ext, err := Extract(nil, staticDecode([]TypedRecord{vo2Record(uint32(65536 * 14))}, warnings, nil))
	require.NoError(t, err)
	require.InDelta(t, 49.0, ext.Value, 1e-9)
	require.Equal(t, warnings, ext.DecodeErrors)
}

func TestExtractAcceptsAnyNumericKind(t *testing.T) {
	for _, raw := range []any{int64(65536), uint64(65536), float64(65536), int32(65536)} {
		ext, err := Extract(nil, staticDecode([]TypedRecord{vo2Record(raw)}, nil, nil))
		require.NoError(t, err)
		require.InDelta(t, 3.5, ext.Value, 1e-9, "raw %T", raw)
	}
}

func TestExtractReportsNonNumericField(t *testing.T) {
	ext, err := Extract(nil, staticDecode([]TypedRecord{vo2Record("fast")}, nil, nil))
	require.NoError(t, err)
	require.False(t, ext.Found)
	require.Len(t, ext.DecodeErrors, 1)
}

func TestExtractPropagatesDecodeError(t *testing.T) {
	boom := errors.New("invalid fit header size: 3")
	_, err := Extract(nil, staticDecode(nil, nil, boom))
	require.ErrorIs(t, err, boom)
}

func TestExtractDoesNotWriteIntoDecoderWarnings(t *testing.T) {
	backing := make([]string, 1, 4)
	backing[0] = "warn"

	ext, err := Extract(nil, staticDecode([]TypedRecord{vo2Record("fast")}, backing, nil))
	require.NoError(t, err)
	require.Len(t, ext.DecodeErrors, 2)
	require.Equal(t, "warn", ext.DecodeErrors[0])
	require.Empty(t, backing[:2][1], "decoder's spare capacity was overwritten")

	ext.DecodeErrors[0] = "changed"
	require.Equal(t, "warn", backing[0])
}
