package vo2trend

import (
	"fmt"
	"slices"
)

// Extraction is the outcome of scanning one stream for VO2 Max records.
type Extraction struct {
	// Value is the last observed VO2 Max, 0 when none was found.
	Value float64
	// Found is true when at least one record carried the raw field,
	// including a raw value of zero.
	Found        bool
	Observations int
	DecodeErrors []string
}

// ConvertVO2Max applies the fixed scale to a raw field value.
func ConvertVO2Max(raw float64) float64 {
	return raw * 3.5 / 65536
}

// Extract decodes stream and returns the VO2 Max carried by the last
// qualifying record. Decode failures are returned unchanged; decode warnings
// are carried in the result and never discard a value.
func Extract(stream []byte, decode DecodeFunc) (Extraction, error) {
	records, warnings, err := decode(stream)
	if err != nil {
		return Extraction{DecodeErrors: slices.Clone(warnings)}, err
	}

	out := Extraction{DecodeErrors: slices.Clone(warnings)}
	for i, rec := range records {
		if rec.Type != MesgNumVO2Max {
			continue
		}
		rawField, ok := rec.Fields[FieldVO2MaxRaw]
		if !ok {
			continue
		}
		raw, ok := floatAny(rawField)
		if !ok {
			out.DecodeErrors = append(out.DecodeErrors, fmt.Sprintf("record %d: non-numeric vo2 max field of type %T", i, rawField))
			continue
		}
		out.Value = ConvertVO2Max(raw)
		out.Found = true
		out.Observations++
	}
	return out, nil
}

func floatAny(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}
