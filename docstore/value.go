/*
Copyright 2024 DineHub Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package docstore

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Value is the tagged union the document store uses on the wire. Exactly one
// field is set per value. All tag branching lives in this file; the rest of
// the codebase works with native Go types.
type Value struct {
	NullValue      *string     `json:"nullValue,omitempty"`
	StringValue    *string     `json:"stringValue,omitempty"`
	IntegerValue   *string     `json:"integerValue,omitempty"` // int64 as a decimal string on the wire
	DoubleValue    *float64    `json:"doubleValue,omitempty"`
	BooleanValue   *bool       `json:"booleanValue,omitempty"`
	TimestampValue *time.Time  `json:"timestampValue,omitempty"`
	ArrayValue     *ArrayValue `json:"arrayValue,omitempty"`
	MapValue       *MapValue   `json:"mapValue,omitempty"`
}

type ArrayValue struct {
	Values []Value `json:"values,omitempty"`
}

type MapValue struct {
	Fields Fields `json:"fields,omitempty"`
}

// Fields is a decoded document's field map.
type Fields map[string]Value

// String builds a stringValue.
func String(s string) Value {
	return Value{StringValue: &s}
}

// Integer builds an integerValue.
func Integer(i int64) Value {
	s := strconv.FormatInt(i, 10)
	return Value{IntegerValue: &s}
}

// Double builds a doubleValue.
func Double(f float64) Value {
	return Value{DoubleValue: &f}
}

// Boolean builds a booleanValue.
func Boolean(b bool) Value {
	return Value{BooleanValue: &b}
}

// Timestamp builds a timestampValue.
func Timestamp(t time.Time) Value {
	utc := t.UTC()
	return Value{TimestampValue: &utc}
}

// Map builds a mapValue from already-encoded fields.
func Map(fields Fields) Value {
	return Value{MapValue: &MapValue{Fields: fields}}
}

// Decode maps the tagged wire representation into a native Go value:
// string, int64, float64, bool, time.Time, []interface{},
// map[string]interface{} or nil.
func (v Value) Decode() interface{} {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		i, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return int64(0)
		}
		return i
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.TimestampValue != nil:
		return *v.TimestampValue
	case v.ArrayValue != nil:
		out := make([]interface{}, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			out = append(out, item.Decode())
		}
		return out
	case v.MapValue != nil:
		out := make(map[string]interface{}, len(v.MapValue.Fields))
		for k, item := range v.MapValue.Fields {
			out[k] = item.Decode()
		}
		return out
	default:
		return nil
	}
}

// String returns the string value under key, or "" when absent or not a string.
func (f Fields) String(key string) string {
	if v, ok := f[key]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

// Bool returns the boolean value under key, or false when absent.
func (f Fields) Bool(key string) bool {
	if v, ok := f[key]; ok && v.BooleanValue != nil {
		return *v.BooleanValue
	}
	return false
}

// Int returns the integer value under key, or 0 when absent.
func (f Fields) Int(key string) int64 {
	v, ok := f[key]
	if !ok {
		return 0
	}
	switch {
	case v.IntegerValue != nil:
		i, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return 0
		}
		return i
	case v.DoubleValue != nil:
		return int64(*v.DoubleValue)
	}
	return 0
}

// Decimal returns the numeric value under key at full precision. Amounts may
// arrive as doubleValue, integerValue or a numeric stringValue.
func (f Fields) Decimal(key string) decimal.Decimal {
	v, ok := f[key]
	if !ok {
		return decimal.Zero
	}
	switch {
	case v.DoubleValue != nil:
		return decimal.NewFromFloat(*v.DoubleValue)
	case v.IntegerValue != nil:
		d, err := decimal.NewFromString(*v.IntegerValue)
		if err != nil {
			return decimal.Zero
		}
		return d
	case v.StringValue != nil:
		d, err := decimal.NewFromString(*v.StringValue)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

// Time returns the timestamp value under key, or the zero time when absent.
func (f Fields) Time(key string) time.Time {
	if v, ok := f[key]; ok && v.TimestampValue != nil {
		return *v.TimestampValue
	}
	return time.Time{}
}

// Array returns the array elements under key, or nil when absent.
func (f Fields) Array(key string) []Value {
	if v, ok := f[key]; ok && v.ArrayValue != nil {
		return v.ArrayValue.Values
	}
	return nil
}

// Map returns the nested field map under key, or nil when absent.
func (f Fields) Map(key string) Fields {
	if v, ok := f[key]; ok && v.MapValue != nil {
		return v.MapValue.Fields
	}
	return nil
}
