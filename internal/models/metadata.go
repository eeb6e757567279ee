// ABOUTME: Note metadata as an open map over a closed set of value kinds
// ABOUTME: Strings, numbers and string lists are typed; other shapes pass through raw
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// MetaKind is the kind of a metadata value
type MetaKind string

const (
	MetaString MetaKind = "string"
	MetaNumber MetaKind = "number"
	MetaList   MetaKind = "list"
	MetaRaw    MetaKind = "raw"
)

// MetaValue holds one metadata value. Only the field matching Kind is set.
type MetaValue struct {
	Kind MetaKind
	Str  string
	Num  float64
	List []string
	Raw  json.RawMessage
}

// Metadata is string-keyed note metadata (tags, aliases, dates, ...).
// Well-known keys:
//   - tags, aliases: list
//   - created, updated, date: string
//
// Unknown keys are preserved as-is.
type Metadata map[string]MetaValue

func StringValue(s string) MetaValue { return MetaValue{Kind: MetaString, Str: s} }
func NumberValue(n float64) MetaValue { return MetaValue{Kind: MetaNumber, Num: n} }
func ListValue(items ...string) MetaValue { return MetaValue{Kind: MetaList, List: items} }

// Equal compares two values by kind and content
func (v MetaValue) Equal(o MetaValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case MetaString:
		return v.Str == o.Str
	case MetaNumber:
		return v.Num == o.Num
	case MetaList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(v.Raw, o.Raw)
	}
}

func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetaString:
		return json.Marshal(v.Str)
	case MetaNumber:
		return json.Marshal(v.Num)
	case MetaList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case MetaRaw:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", v.Kind)
	}
}

func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	*v = metaFromAny(generic, data)
	return nil
}

// MetaFromAny converts a decoded YAML/JSON value into a MetaValue
func MetaFromAny(value any) MetaValue {
	return metaFromAny(value, nil)
}

func metaFromAny(value any, raw []byte) MetaValue {
	switch val := value.(type) {
	case string:
		return StringValue(val)
	case float64:
		return NumberValue(val)
	case float32:
		return NumberValue(float64(val))
	case int:
		return NumberValue(float64(val))
	case int64:
		return NumberValue(float64(val))
	case uint64:
		return NumberValue(float64(val))
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return rawValue(value, raw)
			}
			items = append(items, s)
		}
		return ListValue(items...)
	case []string:
		return ListValue(val...)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return StringValue(val.Format("2006-01-02"))
		}
		return StringValue(val.Format(time.RFC3339))
	default:
		return rawValue(value, raw)
	}
}

func rawValue(value any, raw []byte) MetaValue {
	if raw != nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return MetaValue{Kind: MetaRaw, Raw: buf.Bytes()}
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%q", fmt.Sprint(value)))
	}
	return MetaValue{Kind: MetaRaw, Raw: encoded}
}

// Merge copies entries from other into m, overwriting existing keys
func (m Metadata) Merge(other Metadata) Metadata {
	if m == nil && len(other) > 0 {
		m = make(Metadata, len(other))
	}
	for k, v := range other {
		m[k] = v
	}
	return m
}

// Equal compares two metadata maps
func (m Metadata) Equal(o Metadata) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
