package fitdecode

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tormoder/fit"

	vo2trend "github.com/lucasjlepore/vo2-trend"
)

const (
	mesgFileID   uint16 = 0
	mesgSession  uint16 = 18
	mesgActivity uint16 = 34

	invalidTimestamp uint32 = 0xFFFFFFFF
)

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

// Summary is the activity metadata projected from decoded records.
type Summary struct {
	Sport     fit.Sport
	SubSport  fit.SubSport
	HasSport  bool
	Category  vo2trend.Category
	StartTime time.Time // in the recording's local offset when known
}

// Summarize reads sport and start time from the first session message,
// using the activity message's local timestamp to recover the UTC offset.
// The file_id creation time is the fallback start time.
func Summarize(records []vo2trend.TypedRecord) Summary {
	var (
		s       Summary
		start   time.Time
		created time.Time
		offset  *time.Duration
		session bool
	)
	for _, rec := range records {
		switch rec.Type {
		case mesgFileID:
			if created.IsZero() {
				created = fieldTime(rec, 4)
			}
		case mesgSession:
			if session {
				continue
			}
			session = true
			start = fieldTime(rec, 2)
			if v, ok := rec.Fields[5].(uint8); ok {
				s.Sport = fit.Sport(v)
				s.HasSport = true
			}
			if v, ok := rec.Fields[6].(uint8); ok {
				s.SubSport = fit.SubSport(v)
			}
		case mesgActivity:
			ts := fieldTime(rec, fieldTimestamp)
			local, ok := rec.Fields[5].(uint32)
			if ts.IsZero() || !ok || offset != nil {
				continue
			}
			d := fitEpoch.Add(time.Duration(local) * time.Second).Sub(ts)
			offset = &d
		}
	}

	if start.IsZero() {
		start = created
	}
	if !start.IsZero() && offset != nil {
		start = start.In(time.FixedZone("", int(*offset/time.Second)))
	}
	s.StartTime = start
	if s.HasSport {
		s.Category = SportCategory(s.Sport, s.SubSport)
	}
	return s
}

// SportCategory maps a FIT sport to the activity category labels used by
// Garmin Connect; other sports keep a snake_case form of their FIT name.
func SportCategory(sport fit.Sport, sub fit.SubSport) vo2trend.Category {
	switch sport {
	case fit.SportRunning:
		if sub == fit.SubSportTrail {
			return vo2trend.CategoryTrailRunning
		}
		return vo2trend.CategoryRunning
	case fit.SportWalking:
		return vo2trend.CategoryWalking
	case fit.SportCycling:
		return vo2trend.CategoryCycling
	}
	return vo2trend.Category(snakeName(sport.String(), "Sport"))
}

// MessageName returns the FIT profile name of a global message number.
func MessageName(global uint16) string {
	name := fit.MesgNum(global).String()
	if strings.HasPrefix(name, "MesgNum(") {
		return fmt.Sprintf("global_%d", global)
	}
	return snakeName(name, "MesgNum")
}

func fieldTime(rec vo2trend.TypedRecord, num uint8) time.Time {
	v, ok := rec.Fields[num].(uint32)
	if !ok || v == invalidTimestamp {
		return time.Time{}
	}
	return fitEpoch.Add(time.Duration(v) * time.Second)
}

// snakeName turns stringer output such as "SportTrainingEquipment" or
// "Sport(254)" into "training_equipment" or "sport_254".
func snakeName(name, prefix string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		return strings.ToLower(name[:i]) + "_" + strings.TrimSuffix(name[i+1:], ")")
	}
	name = strings.TrimPrefix(name, prefix)
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
