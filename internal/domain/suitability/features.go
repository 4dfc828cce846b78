package suitability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cropadvisor/pkg/errors"
)

// Features is the caller-supplied feature map.
// It remembers insertion order because recommendations follow the caller's key order.
type Features struct {
	keys   []string
	values map[string]float64
}

// NewFeatures creates an empty feature map
func NewFeatures() *Features {
	return &Features{values: make(map[string]float64)}
}

// FeaturesOf builds a feature map from alternating name/value pairs
func FeaturesOf(pairs ...interface{}) *Features {
	f := NewFeatures()
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case float64:
			f.Set(name, v)
		case int:
			f.Set(name, float64(v))
		}
	}
	return f
}

// Set stores a value. Re-setting a key keeps its original position.
func (f *Features) Set(name string, value float64) {
	if f.values == nil {
		f.values = make(map[string]float64)
	}
	if _, ok := f.values[name]; !ok {
		f.keys = append(f.keys, name)
	}
	f.values[name] = value
}

// Get returns the value for name and whether it was supplied
func (f *Features) Get(name string) (float64, bool) {
	if f == nil {
		return 0, false
	}
	v, ok := f.values[name]
	return v, ok
}

// Keys returns the feature names in insertion order
func (f *Features) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of supplied features
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Vector builds the ordered vector for columns, defaulting missing entries to 0.0
func (f *Features) Vector(columns []string) []float64 {
	vec := make([]float64, len(columns))
	for i, c := range columns {
		if v, ok := f.Get(c); ok {
			vec[i] = v
		}
	}
	return vec
}

// Stage returns the integral growth-stage id, if present
func (f *Features) Stage() (int, bool) {
	v, ok := f.Get(FeatureStage)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// Fingerprint is a stable textual form of the map, used for cache keys.
// Names are quoted so distinct maps never share a fingerprint.
func (f *Features) Fingerprint() string {
	var sb strings.Builder
	for _, k := range f.Keys() {
		sb.WriteString(strconv.Quote(k))
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(f.values[k], 'g', -1, 64))
		sb.WriteByte(';')
	}
	return sb.String()
}

// MarshalJSON writes the object in insertion order
func (f *Features) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(f.values[k], 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object of numbers, keeping document order.
// Null values are treated as absent.
func (f *Features) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Wrap(errors.ErrInvalidInput, "features must be a JSON object")
	}

	out := NewFeatures()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(errors.ErrInvalidInput, err.Error())
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrap(errors.ErrInvalidInput, err.Error())
		}
		if string(raw) == "null" {
			continue
		}

		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return errors.NewValidationError(name, "must be a number", string(raw))
		}
		v, err := num.Float64()
		if err != nil {
			return errors.NewValidationError(name, "must be a number", num.String())
		}
		out.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	*f = *out
	return nil
}

// String implements fmt.Stringer
func (f *Features) String() string {
	return fmt.Sprintf("Features{%s}", f.Fingerprint())
}
