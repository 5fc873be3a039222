package table

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Kind defines the storage type of a cell
type Kind string

const (
	KindNull   Kind = "null"
	KindNumber Kind = "number"
	KindText   Kind = "text"
	KindDate   Kind = "date"
)

// DateLayout is the canonical rendering of date-only values.
const DateLayout = "2006-01-02"

// Value is a single typed cell. The zero value is null.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Time time.Time
}

// Null returns a null value
func Null() Value {
	return Value{Kind: KindNull}
}

// Number creates a numeric value. NaN and infinities are stored as null: a ratio that cannot
// be computed is "uncomputable", never a number.
func Number(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Null()
	}
	return Value{Kind: KindNumber, Num: n}
}

// Text creates a text value. Empty text is a real value (the fill policy relies on it).
func Text(s string) Value {
	return Value{Kind: KindText, Str: s}
}

// Date creates a date value
func Date(t time.Time) Value {
	return Value{Kind: KindDate, Time: t}
}

// OptionalNumber converts a nullable float into a Value
func OptionalNumber(p *float64) Value {
	if p == nil {
		return Null()
	}
	return Number(*p)
}

func (v Value) IsNull() bool   { return v.Kind == "" || v.Kind == KindNull }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsText() bool   { return v.Kind == KindText }
func (v Value) IsDate() bool   { return v.Kind == KindDate }

// Float returns the numeric payload and whether the value is a number
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Ptr returns the numeric payload as a nullable float
func (v Value) Ptr() *float64 {
	if v.Kind != KindNumber {
		return nil
	}
	n := v.Num
	return &n
}

// String returns the text rendering used by CSV export, hashing and reports
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	case KindDate:
		if isMidnight(v.Time) {
			return v.Time.Format(DateLayout)
		}
		return v.Time.Format(time.RFC3339)
	}
	return ""
}

// Equal reports whether two values have the same kind and payload
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindDate:
		return v.Time.Equal(o.Time)
	}
	return v.Str == o.Str
}

// MarshalJSON renders dates as ISO strings and nulls as JSON null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindText:
		return json.Marshal(v.Str)
	case KindDate:
		return json.Marshal(v.String())
	}
	return []byte("null"), nil
}

// appendKey writes a kind-tagged representation used for duplicate detection. Text is
// length-prefixed so concatenated multi-column keys stay unambiguous.
func (v Value) appendKey(buf []byte) []byte {
	switch v.Kind {
	case KindNumber:
		buf = append(buf, 'n')
		buf = strconv.AppendFloat(buf, v.Num, 'g', -1, 64)
	case KindText:
		buf = append(buf, 's')
		buf = strconv.AppendInt(buf, int64(len(v.Str)), 10)
		buf = append(buf, ':')
		buf = append(buf, v.Str...)
	case KindDate:
		buf = append(buf, 'd')
		buf = strconv.AppendInt(buf, v.Time.UnixNano(), 10)
	default:
		buf = append(buf, 0)
	}
	return append(buf, 0x1f)
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
