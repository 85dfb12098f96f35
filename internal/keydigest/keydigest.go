// Package keydigest produces canonical byte encodings and short digests of
// call-argument values.
//
// Digests are used wherever a call identity needs a stable, loggable form:
// structured log attrs, runtime error context, and trace frame identity.
// They are NOT used as cache keys - caches key on the comparable argument
// values themselves - so collisions only ever affect diagnostics.
//
// Canonicalization rules:
//   - strings are NFC normalized before encoding, so visually identical
//     keys digest identically regardless of the caller's representation
//   - struct fields are encoded in declaration order (argument tuples are
//     structs, and declaration order is the argument order)
//   - map entries are encoded sorted by their canonical key bytes
//
// The digest is xxhash64 over the canonical bytes, hex encoded. A
// non-cryptographic hash is deliberate: digests are diagnostic labels, not
// content addresses.
package keydigest

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Canonical returns the canonical byte encoding of v.
func Canonical(v any) []byte {
	return appendCanonical(nil, v)
}

// Digest returns the hex-encoded xxhash64 of v's canonical encoding.
func Digest(v any) string {
	return strconv.FormatUint(xxhash.Sum64(Canonical(v)), 16)
}

// CallDigest returns the digest of a (function id, arguments) pair.
// The id is folded into the hashed bytes so identical arguments to
// different functions produce distinct digests.
func CallDigest(id int, args any) string {
	b := appendCanonical(nil, args)
	b = append(b, '@')
	b = strconv.AppendInt(b, int64(id), 10)
	return strconv.FormatUint(xxhash.Sum64(b), 16)
}

func appendCanonical(dst []byte, v any) []byte {
	switch val := v.(type) {
	case nil:
		return append(dst, "null"...)
	case string:
		return strconv.AppendQuote(dst, norm.NFC.String(val))
	case bool:
		return strconv.AppendBool(dst, val)
	case int:
		return strconv.AppendInt(dst, int64(val), 10)
	case int64:
		return strconv.AppendInt(dst, val, 10)
	case uint64:
		return strconv.AppendUint(dst, val, 10)
	case float64:
		return strconv.AppendFloat(dst, val, 'g', -1, 64)
	}
	return appendReflected(dst, reflect.ValueOf(v))
}

// appendReflected handles compound argument values: tuple structs from the
// multi-argument register variants, arrays, maps, and pointers. Anything
// unrecognized falls back to its printed form, which is stable enough for
// a diagnostic label.
func appendReflected(dst []byte, rv reflect.Value) []byte {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(dst, rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(dst, rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.AppendFloat(dst, rv.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.AppendBool(dst, rv.Bool())
	case reflect.String:
		return strconv.AppendQuote(dst, norm.NFC.String(rv.String()))
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(dst, "null"...)
		}
		return appendReflected(dst, rv.Elem())
	case reflect.Struct:
		dst = append(dst, '(')
		for i := 0; i < rv.NumField(); i++ {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendReflected(dst, rv.Field(i))
		}
		return append(dst, ')')
	case reflect.Array, reflect.Slice:
		dst = append(dst, '[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendReflected(dst, rv.Index(i))
		}
		return append(dst, ']')
	case reflect.Map:
		entries := make([][]byte, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e := appendReflected(nil, iter.Key())
			e = append(e, ':')
			e = appendReflected(e, iter.Value())
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return string(entries[i]) < string(entries[j])
		})
		dst = append(dst, '{')
		for i, e := range entries {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = append(dst, e...)
		}
		return append(dst, '}')
	default:
		return fmt.Appendf(dst, "%T<%v>", rv.Interface(), rv.Interface())
	}
}
