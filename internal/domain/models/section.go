package models

import (
	"encoding/json"
	"reflect"
)

// SectionKey names one slice of a daily snapshot.
type SectionKey string

const (
	SectionPrices         SectionKey = "prices"
	SectionNews           SectionKey = "news"
	SectionInsight        SectionKey = "ai_insight"
	SectionRecommendation SectionKey = "recommendation"
	SectionChart          SectionKey = "chart"
	SectionFiller         SectionKey = "filler"
)

// ParseSectionKey validates a raw section key.
func ParseSectionKey(s string) (SectionKey, error) {
	switch k := SectionKey(s); k {
	case SectionPrices, SectionNews, SectionInsight, SectionRecommendation, SectionChart, SectionFiller:
		return k, nil
	default:
		return "", ErrInvalidSection
	}
}

// IsDataShaped reports whether the section is worthless without a data payload.
func (k SectionKey) IsDataShaped() bool {
	return k == SectionPrices || k == SectionChart
}

// SectionResult is the output of one source adapter. Error is a soft
// diagnostic: a non-empty Error may still come with a fallback Data payload.
type SectionResult struct {
	Source string `json:"source"`
	Data   any    `json:"data"`
	Error  string `json:"error,omitempty"`
}

// HasError reports whether the adapter attached a diagnostic.
func (r SectionResult) HasError() bool { return r.Error != "" }

// IsEmpty reports whether Data carries no usable payload.
func (r SectionResult) IsEmpty() bool { return IsEmptyData(r.Data) }

// Sections maps section keys to their results.
type Sections map[SectionKey]SectionResult

// Clone returns a shallow copy of the mapping.
func (s Sections) Clone() Sections {
	out := make(Sections, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// IsEmptyData treats nil, blank strings, empty collections and JSON null as empty.
func IsEmptyData(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return len(t) == 0
	case json.RawMessage:
		return len(t) == 0 || string(t) == "null"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsEmptyData(rv.Elem().Interface())
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}
