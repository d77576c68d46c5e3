package record

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Kind identifies the type held by a FactValue.
type Kind int

const (
	// KindNull is an explicit null reported by the registry.
	KindNull Kind = iota
	// KindString is a text value.
	KindString
	// KindNumber is a JSON number.
	KindNumber
	// KindBool is a JSON boolean.
	KindBool
	// KindDate is a timestamp parsed from a date field.
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FactValue is a single typed registry value. Only the field matching Kind is meaningful.
type FactValue struct {
	Kind   Kind
	String string
	Number float64
	Bool   bool
	Date   time.Time
}

// Null returns an explicit null value.
func Null() FactValue { return FactValue{Kind: KindNull} }

// Text returns a string value.
func Text(s string) FactValue { return FactValue{Kind: KindString, String: s} }

// Number returns a numeric value.
func Number(f float64) FactValue { return FactValue{Kind: KindNumber, Number: f} }

// Bool returns a boolean value.
func Bool(b bool) FactValue { return FactValue{Kind: KindBool, Bool: b} }

// Date returns a date value normalized to UTC.
func Date(t time.Time) FactValue { return FactValue{Kind: KindDate, Date: t.UTC()} }

// IsNull reports whether the value is an explicit null.
func (v FactValue) IsNull() bool { return v.Kind == KindNull }

// Interface returns the value as a plain Go value suitable for encoding.
func (v FactValue) Interface() any {
	switch v.Kind {
	case KindString:
		return v.String
	case KindNumber:
		return v.Number
	case KindBool:
		return v.Bool
	case KindDate:
		return v.Date.Format(time.RFC3339Nano)
	default:
		return nil
	}
}

// Display renders the value the way it is shown to people.
func (v FactValue) Display() string {
	switch v.Kind {
	case KindString:
		return v.String
	case KindNumber:
		return gjsonNumber(v.Number)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindDate:
		return v.Date.Format(time.DateOnly)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (v FactValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Facts maps registry field names to values. A missing key and a KindNull value are different.
type Facts map[string]FactValue

// Clone returns a shallow copy; FactValue is immutable so this is a full copy.
func (f Facts) Clone() Facts {
	if f == nil {
		return nil
	}
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (f Facts) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON decodes a flat JSON object using the same typing rules as the registry parser.
// Unknown keys are kept so that persisted snapshots round-trip.
func (f *Facts) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		*f = nil
		return nil
	}
	if !res.IsObject() {
		return fmt.Errorf("facts: expected JSON object, got %s", res.Type)
	}
	out := make(Facts)
	res.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = ValueFromJSON(key.String(), value)
		return true
	})
	*f = out
	return nil
}

// ParseFacts converts a registry JSON object into Facts, keeping only keys in KnownKeys.
func ParseFacts(obj gjson.Result) Facts {
	out := make(Facts)
	obj.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if IsKnownKey(k) {
			out[k] = ValueFromJSON(k, value)
		}
		return true
	})
	return out
}

// ValueFromJSON types a single JSON value. Values under date keys that parse as a
// timestamp become KindDate; nested arrays and objects are kept as their raw text.
func ValueFromJSON(key string, value gjson.Result) FactValue {
	switch value.Type {
	case gjson.Null:
		return Null()
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.Number:
		return Number(value.Num)
	case gjson.String:
		if IsDateKey(key) {
			if t, ok := ParseTimestamp(value.Str); ok {
				return Date(t)
			}
		}
		return Text(value.Str)
	default:
		return Text(value.Raw)
	}
}

// IsDateKey reports whether key carries an ISO timestamp in the registry schema.
func IsDateKey(key string) bool {
	return strings.HasSuffix(key, "_dt")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses the timestamp formats the registry emits. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func gjsonNumber(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Sprint(f)
	}
	return string(b)
}
