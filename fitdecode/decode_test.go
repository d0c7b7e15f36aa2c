package fitdecode

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	vo2trend "github.com/lucasjlepore/vo2-trend"
	"github.com/lucasjlepore/vo2-trend/internal/fittest"
)

func recordsOfType(records []vo2trend.TypedRecord, global uint16) []vo2trend.TypedRecord {
	var out []vo2trend.TypedRecord
	for _, r := range records {
		if r.Type == global {
			out = append(out, r)
		}
	}
	return out
}

func TestDecodeVO2MaxRecords(t *testing.T) {
	records, warnings, err := Decode(fittest.VO2MaxStream(131072, 65536))
	require.NoError(t, err)
	require.Empty(t, warnings)

	vo2 := recordsOfType(records, vo2trend.MesgNumVO2Max)
	require.Len(t, vo2, 2)
	require.Equal(t, uint32(131072), vo2[0].Fields[vo2trend.FieldVO2MaxRaw])
	require.Equal(t, uint32(65536), vo2[1].Fields[vo2trend.FieldVO2MaxRaw])

	fileID := recordsOfType(records, 0)
	require.Len(t, fileID, 1)
	require.Equal(t, uint8(4), fileID[0].Fields[0])
	_, hasCreated := fileID[0].Fields[4]
	require.False(t, hasCreated, "invalid time_created sentinel must be omitted")
}

func TestDecodeOmitsInvalidSentinel(t *testing.T) {
	records, _, err := Decode(fittest.VO2MaxStream(0xFFFFFFFF))
	require.NoError(t, err)
	vo2 := recordsOfType(records, vo2trend.MesgNumVO2Max)
	require.Len(t, vo2, 1)
	_, ok := vo2[0].Fields[vo2trend.FieldVO2MaxRaw]
	require.False(t, ok)
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	_, _, err := Decode([]byte("short"))
	require.Error(t, err)

	stream := fittest.VO2MaxStream(65536)
	bad := bytes.Clone(stream)
	copy(bad[8:12], "FIT.")
	_, _, err = Decode(bad)
	require.ErrorContains(t, err, "invalid fit data type")

	bad = bytes.Clone(stream)
	bad[0] = 9
	_, _, err = Decode(bad)
	require.ErrorContains(t, err, "invalid fit header size")
}

func TestDecodeReportsCRCMismatch(t *testing.T) {
	stream := fittest.VO2MaxStream(65536)
	stream[len(stream)-2] ^= 0xFF
	stream[12] ^= 0xFF

	records, warnings, err := Decode(stream)
	require.NoError(t, err)
	require.Len(t, recordsOfType(records, vo2trend.MesgNumVO2Max), 1)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0], "header CRC mismatch")
	require.Contains(t, warnings[1], "file CRC mismatch")
}

func TestDecodeKeepsRecordsBeforeTruncation(t *testing.T) {
	b := fittest.NewBuilder().
		Define(0, 140, fittest.Field{Num: 7, Base: fittest.Uint32}).
		Data(0, 65536*10).
		Data(0, 65536*11)
	stream := b.Bytes()
	cut := stream[:len(stream)-4] // file CRC and half of the second record

	records, warnings, err := Decode(cut)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint32(65536*10), records[0].Fields[7])
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0], "truncated")
	require.Contains(t, warnings[1], "record truncated")
}

func TestDecodeStopsAtUndefinedLocalMessage(t *testing.T) {
	stream := fittest.NewBuilder().
		Define(0, 140, fittest.Field{Num: 7, Base: fittest.Uint32}).
		Data(0, 65536*9).
		Raw([]byte{0x05, 0x01, 0x02}).
		Bytes()

	records, warnings, err := Decode(stream)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "missing definition for data message local=5")
}

func TestDecodeCompressedTimestamps(t *testing.T) {
	base := uint64(1_000_000_000) // low five bits: 0
	stream := fittest.NewBuilder().
		Define(0, 20, fittest.Field{Num: 253, Base: fittest.Uint32}, fittest.Field{Num: 3, Base: fittest.Uint8}).
		Data(0, base, 120).
		Define(1, 20, fittest.Field{Num: 3, Base: fittest.Uint8}).
		Compressed(1, 5, 121).
		Compressed(1, 2, 122). // wraps past 31
		Bytes()

	records, warnings, err := Decode(stream)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, records, 3)
	require.Equal(t, uint32(base+5), records[1].Fields[253])
	require.Equal(t, uint32(base+34), records[2].Fields[253])
	require.Equal(t, uint8(122), records[2].Fields[3])
}

func TestDecodeSkipsDeveloperFields(t *testing.T) {
	stream := fittest.NewBuilder().
		Raw([]byte{
			0x60, 0, 0, 140, 0, // definition with developer data, local 0, global 140
			1,                  // one field
			7, 4, fittest.Uint32,
			1, 0, 2, 0, // one developer field of 2 bytes
		}).
		Raw([]byte{0x00, 0x00, 0x00, 0x0E, 0x00, 0xAA, 0xBB}).
		Bytes()

	records, warnings, err := Decode(stream)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, records, 1)
	require.Equal(t, uint32(65536*14), records[0].Fields[7])
}

func TestSummarize(t *testing.T) {
	start := time.Date(2025, 6, 14, 5, 45, 0, 0, time.UTC)
	stream := fittest.Activity{
		Start:     start,
		UTCOffset: 2 * time.Hour,
		Sport:     uint8(fit.SportRunning),
		SubSport:  uint8(fit.SubSportTrail),
		VO2Max:    []uint32{65536 * 14},
	}.Stream()

	records, warnings, err := Decode(stream)
	require.NoError(t, err)
	require.Empty(t, warnings)

	s := Summarize(records)
	require.True(t, s.HasSport)
	require.Equal(t, vo2trend.CategoryTrailRunning, s.Category)
	require.True(t, start.Equal(s.StartTime))
	_, offset := s.StartTime.Zone()
	require.Equal(t, 7200, offset)
	require.Equal(t, 7, s.StartTime.Hour())
}

func TestSummarizeWithoutSession(t *testing.T) {
	s := Summarize([]vo2trend.TypedRecord{{Type: 0, Fields: map[uint8]any{4: uint32(1_000_000_000)}}})
	require.False(t, s.HasSport)
	require.Empty(t, s.Category)
	require.Equal(t, fitEpoch.Add(1_000_000_000*time.Second), s.StartTime)
}

func TestSportCategory(t *testing.T) {
	require.Equal(t, vo2trend.CategoryRunning, SportCategory(fit.SportRunning, fit.SubSportGeneric))
	require.Equal(t, vo2trend.CategoryTrailRunning, SportCategory(fit.SportRunning, fit.SubSportTrail))
	require.Equal(t, vo2trend.CategoryWalking, SportCategory(fit.SportWalking, fit.SubSportGeneric))
	require.Equal(t, vo2trend.CategoryCycling, SportCategory(fit.SportCycling, fit.SubSportRoad))
	require.Equal(t, vo2trend.Category("swimming"), SportCategory(fit.SportSwimming, fit.SubSportGeneric))
}

func TestSnakeName(t *testing.T) {
	require.Equal(t, "training_equipment", snakeName("SportTrainingEquipment", "Sport"))
	require.Equal(t, "training_equipment", snakeName("TrainingEquipment", "Sport"))
	require.Equal(t, "sport_254", snakeName("Sport(254)", "Sport"))
	require.Equal(t, "file_id", snakeName("MesgNumFileId", "MesgNum"))
}
