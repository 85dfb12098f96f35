// Package codec converts function results and errors into storable,
// replayable cache entries and back.
//
// Cached results must survive an arbitrary number of lookups, but not every
// value kind tolerates being handed out twice: a mutable map handed to two
// callers aliases, and a single-use cursor is spent after its first
// consumer. The codec resolves this per value kind: mutable containers are
// snapshotted at encode time and rebuilt fresh on every decode, errors are
// stored for replay, and cursors are one-shot - decoding a cursor entry
// evicts it so a later identical call recomputes instead of receiving a
// drained iterator.
//
// Classification is an ordered chain of capability checks, first match
// wins: copy-capable, error, comparable, set, mapping, cursor, sequence,
// fallback.
package codec

import (
	"fmt"
	"reflect"
	"sort"
)

// Kind tags an encoded entry with its reconstruction action.
type Kind string

const (
	// KindCopy stores the original value; decode invokes its Copy method.
	KindCopy Kind = "copy"
	// KindError stores a failure; decode replays it.
	KindError Kind = "error"
	// KindIdentity stores a comparable value returned as-is.
	KindIdentity Kind = "identity"
	// KindSet stores a member snapshot; decode rebuilds a fresh set.
	KindSet Kind = "set"
	// KindMapping stores ordered key/value pairs; decode rebuilds a fresh map.
	KindMapping Kind = "mapping"
	// KindCursor stores a single-use cursor; the entry is one-shot.
	KindCursor Kind = "cursor"
	// KindSequence stores an element snapshot; decode returns a fresh slice.
	KindSequence Kind = "sequence"
	// KindOpaque stores anything else as-is.
	KindOpaque Kind = "opaque"
)

// Encoded is a cache entry: a reconstruction action plus the stored value.
//
// OneShot entries are removed from the cache by the caller on first decode.
type Encoded struct {
	Kind    Kind
	Value   any
	OneShot bool
}

// Codec encodes results into cache entries and decodes them back.
//
// Decode returning a non-nil error means the entry replays a failure; the
// scheduler surfaces that error to the caller exactly as if the function
// body had just returned it. Custom codecs registered per function must
// honor the same contract, including OneShot for value kinds that cannot
// be served twice.
type Codec interface {
	Encode(v any) Encoded
	Decode(enc Encoded) (any, error)
}

// Cursor is a single-use iterator. A cached cursor is handed out exactly
// once; after that the cache entry is gone and the producing call runs
// again.
type Cursor interface {
	// Next returns the next element, or ok=false when the cursor is drained.
	Next() (v any, ok bool)
}

// Default is the standard capability-chain codec.
var Default Codec = defaultCodec{}

type defaultCodec struct{}

// setSnapshot is the immutable member snapshot backing a KindSet entry.
type setSnapshot struct {
	mapType reflect.Type
	members []reflect.Value
}

// mapSnapshot is the ordered pair snapshot backing a KindMapping entry.
// Pairs are ordered by the printed form of their keys so the snapshot is
// deterministic regardless of map iteration order.
type mapSnapshot struct {
	mapType reflect.Type
	pairs   []mapPair
}

type mapPair struct {
	key reflect.Value
	val reflect.Value
}

var emptyStruct = reflect.TypeOf(struct{}{})

func (defaultCodec) Encode(v any) Encoded {
	if v == nil {
		return Encoded{Kind: KindIdentity, Value: nil}
	}
	if hasCopyMethod(v) {
		return Encoded{Kind: KindCopy, Value: v}
	}
	if err, ok := v.(error); ok {
		return Encoded{Kind: KindError, Value: err}
	}
	rv := reflect.ValueOf(v)
	if rv.Type().Comparable() {
		return Encoded{Kind: KindIdentity, Value: v}
	}
	if rv.Kind() == reflect.Map && rv.Type().Elem() == emptyStruct {
		return Encoded{Kind: KindSet, Value: snapshotSet(rv)}
	}
	if rv.Kind() == reflect.Map {
		return Encoded{Kind: KindMapping, Value: snapshotMap(rv)}
	}
	if cur, ok := v.(Cursor); ok {
		return Encoded{Kind: KindCursor, Value: cur, OneShot: true}
	}
	if rv.Kind() == reflect.Slice {
		return Encoded{Kind: KindSequence, Value: snapshotSlice(rv)}
	}
	return Encoded{Kind: KindOpaque, Value: v}
}

func (defaultCodec) Decode(enc Encoded) (any, error) {
	switch enc.Kind {
	case KindError:
		return nil, enc.Value.(error)
	case KindCopy:
		return callCopy(enc.Value), nil
	case KindSet:
		snap := enc.Value.(setSnapshot)
		set := reflect.MakeMapWithSize(snap.mapType, len(snap.members))
		unit := reflect.New(emptyStruct).Elem()
		for _, m := range snap.members {
			set.SetMapIndex(m, unit)
		}
		return set.Interface(), nil
	case KindMapping:
		snap := enc.Value.(mapSnapshot)
		m := reflect.MakeMapWithSize(snap.mapType, len(snap.pairs))
		for _, p := range snap.pairs {
			m.SetMapIndex(p.key, p.val)
		}
		return m.Interface(), nil
	case KindSequence:
		stored := reflect.ValueOf(enc.Value)
		fresh := reflect.MakeSlice(stored.Type(), stored.Len(), stored.Len())
		reflect.Copy(fresh, stored)
		return fresh.Interface(), nil
	default:
		// KindIdentity, KindCursor, KindOpaque: the stored value itself.
		return enc.Value, nil
	}
}

// hasCopyMethod reports whether v exposes a zero-argument Copy method with
// a single result. Mirrors a duck-typed "has a copy" capability check
// rather than a fixed interface, so Copy() T qualifies for any T.
func hasCopyMethod(v any) bool {
	m := reflect.ValueOf(v).MethodByName("Copy")
	if !m.IsValid() {
		return false
	}
	t := m.Type()
	return t.NumIn() == 0 && t.NumOut() == 1
}

func callCopy(v any) any {
	out := reflect.ValueOf(v).MethodByName("Copy").Call(nil)
	return out[0].Interface()
}

func snapshotSet(rv reflect.Value) setSnapshot {
	members := make([]reflect.Value, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		members = append(members, iter.Key())
	}
	return setSnapshot{mapType: rv.Type(), members: members}
}

func snapshotMap(rv reflect.Value) mapSnapshot {
	pairs := make([]mapPair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, mapPair{key: iter.Key(), val: iter.Value()})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return fmt.Sprint(pairs[i].key.Interface()) < fmt.Sprint(pairs[j].key.Interface())
	})
	return mapSnapshot{mapType: rv.Type(), pairs: pairs}
}

func snapshotSlice(rv reflect.Value) any {
	fresh := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(fresh, rv)
	return fresh.Interface()
}
