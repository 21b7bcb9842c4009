package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// Key namespaces. Every query result key shares QueryKeyPrefix, distinct
// from single-record keys, so a write can blanket-invalidate cached
// queries with one glob without touching record entries.
const (
	QueryKeyPrefix  = "query" + KeySeparator
	RecordKeyPrefix = "record" + KeySeparator
)

// QueryKeyPattern matches every cached query result.
const QueryKeyPattern = QueryKeyPrefix + "*"

// KeyBuilder derives deterministic cache keys from a call's identity
// tuple. Two calls with identical tuples must map to the same key; that
// is the correctness condition cache hits and prefix invalidation
// depend on.
type KeyBuilder interface {
	QueryKey(dataset string, filter map[string]any, sorts []map[string]any) string
	RecordKey(id string) string
}

// defaultKeyBuilder serializes filter and sort descriptions into a
// canonical string and digests it with xxhash. Keys must be stable
// across process restarts because the backing store may be durable, so
// the serialization never leans on pointer identity.
type defaultKeyBuilder struct{}

// NewDefaultKeyBuilder creates the default key builder.
func NewDefaultKeyBuilder() KeyBuilder {
	return &defaultKeyBuilder{}
}

// QueryKey builds the cache key for a paginated query over a dataset.
func (b *defaultKeyBuilder) QueryKey(dataset string, filter map[string]any, sorts []map[string]any) string {
	canonical := serializeValue(filter) + KeySeparator + serializeValue(sorts)
	digest := xxhash.Sum64String(canonical)
	return fmt.Sprintf("%s%s%s%016x", QueryKeyPrefix, dataset, KeySeparator, digest)
}

// RecordKey builds the cache key for a single-record fetch.
func (b *defaultKeyBuilder) RecordKey(id string) string {
	return RecordKeyPrefix + id
}

// serializeValue renders v deterministically. Maps sort their keys,
// slices serialize in order, structs walk exported fields; anything
// else falls back to JSON.
func serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf(v)

	switch rt.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return serializeSequence("slice", rv)
	case reflect.Array:
		return serializeSequence("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return serializeMap(rv)
	case reflect.Struct:
		return serializeStruct(rv, rt)
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return jsonFallback(v)
}

func serializeSequence(label string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = serializeValue(rv.Index(i).Interface())
	}
	return fmt.Sprintf("%s[%d]:{%s}", label, length, strings.Join(parts, ","))
}

// serializeMap sorts serialized keys so iteration order never leaks
// into the cache key.
func serializeMap(rv reflect.Value) string {
	keys := rv.MapKeys()
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = serializeValue(k.Interface()) + "=" + serializeValue(rv.MapIndex(k).Interface())
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func serializeStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldValue := rv.Field(i)
		if !fieldValue.CanInterface() {
			continue
		}
		parts = append(parts, field.Name+":"+serializeValue(fieldValue.Interface()))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

func jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}
