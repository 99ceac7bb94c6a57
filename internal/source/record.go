package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"field-mapper/internal/common"
)

// Separator joins nested keys in a flattened path.
const Separator = "."

// Record is the flattened source data for one mapping run.
// Keys are unique dotted paths; every value is rendered as a string.
type Record struct {
	values map[string]string
	keys   []string
}

// NewRecord builds a Record from already flat key/value pairs.
func NewRecord(values map[string]string) Record {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}

	return Record{values: copied, keys: common.SortedKeys(copied)}
}

// Get returns the value stored under key.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key exists in the record.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns all keys in ascending order. The slice must not be modified.
func (r Record) Keys() []string {
	return r.keys
}

// Len returns the number of keys.
func (r Record) Len() int {
	return len(r.keys)
}

// Map returns a copy of the flattened values.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}

	return out
}

// Leaf returns the last segment of a dotted path.
// "patient.address.zip" -> "zip".
func Leaf(key string) string {
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[i+1:]
	}

	return key
}

// Flatten converts arbitrary nested input into a Record.
// Lists collapse to their first element, nil values are dropped.
func Flatten(raw map[string]any) Record {
	values := make(map[string]string)
	for k, v := range raw {
		flattenInto(values, k, v)
	}

	return Record{values: values, keys: common.SortedKeys(values)}
}

// FlattenJSON decodes a JSON object and flattens it. Numbers are kept in
// their textual form so long identifiers do not lose digits.
func FlattenJSON(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("failed to decode source JSON: %w", err)
	}

	return Flatten(raw), nil
}

func flattenInto(dst map[string]string, prefix string, v any) {
	switch val := v.(type) {
	case nil:
		return
	case map[string]any:
		for k, child := range val {
			flattenInto(dst, join(prefix, k), child)
		}
	case map[string]string:
		for k, child := range val {
			dst[join(prefix, k)] = child
		}
	case []any:
		if first, ok := common.First(val); ok {
			flattenInto(dst, prefix, first)
		}
	case []string:
		if first, ok := common.First(val); ok {
			dst[prefix] = first
		}
	case []map[string]any:
		if first, ok := common.First(val); ok {
			flattenInto(dst, prefix, first)
		}
	default:
		if s, ok := Render(val); ok {
			dst[prefix] = s
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + Separator + key
}

// Render converts a scalar into its string form. The second return value is
// false for values that have no scalar rendering.
func Render(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return renderFloat(float64(val), 32), true
	case float64:
		return renderFloat(val, 64), true
	case time.Time:
		return val.Format(time.RFC3339), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}

func renderFloat(f float64, bits int) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}

	return strconv.FormatFloat(f, 'f', -1, bits)
}
