package quality

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NoReading is the placeholder lab exports use for an untested parameter.
const NoReading = "-"

// ParseNumeric converts a raw cell into mg/L. Placeholders, blanks and
// anything that is not a finite decimal number yield nil.
func ParseNumeric(raw string, multiplier float64) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == NoReading {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return finite(v * multiplier)
}

// ParseAny applies ParseNumeric semantics to a JSON-decoded value.
func ParseAny(v any, multiplier float64) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return ParseNumeric(t, multiplier)
	case json.Number:
		return ParseNumeric(t.String(), multiplier)
	case float64:
		return finite(t * multiplier)
	case float32:
		return finite(float64(t) * multiplier)
	case int:
		return finite(float64(t) * multiplier)
	case int64:
		return finite(float64(t) * multiplier)
	case int32:
		return finite(float64(t) * multiplier)
	case *float64:
		if t == nil {
			return nil
		}
		return finite(*t * multiplier)
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// usable reports whether a reading can take part in an index.
func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// round3 rounds to three decimals the way the published indices are quoted.
func round3(v float64) float64 {
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return out
}
