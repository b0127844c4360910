package kv

import (
	"fmt"

	"github.com/benz9527/xsymtab/lib/infra"
)

// ParsePairs converts the dynamic items into pairs. An item is a
// Pair[K, V], a [2]any or a 2-length []any holding a K and a V.
func ParsePairs[K any, V any](items []any) ([]Pair[K, V], error) {
	pairs := make([]Pair[K, V], 0, len(items))
	for i, item := range items {
		p, ok := parsePair[K, V](item)
		if !ok {
			return nil, infra.WrapErrorStackWithMessage(
				ErrMalformedPair,
				fmt.Sprintf("[kv] item %d (%T) is not a pair of %T and %T", i, item, *new(K), *new(V)),
			)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func parsePair[K any, V any](item any) (Pair[K, V], bool) {
	var kv []any
	switch x := item.(type) {
	case Pair[K, V]:
		return x, true
	case *Pair[K, V]:
		if x == nil {
			return Pair[K, V]{}, false
		}
		return *x, true
	case [2]any:
		kv = x[:]
	case []any:
		kv = x
	default:
		return Pair[K, V]{}, false
	}
	if len(kv) != 2 {
		return Pair[K, V]{}, false
	}
	key, ok := kv[0].(K)
	if !ok {
		return Pair[K, V]{}, false
	}
	val, ok := asValue[V](kv[1])
	if !ok {
		return Pair[K, V]{}, false
	}
	return NewPair(key, val), true
}

// A nil value is kept when V is any.
func asValue[V any](x any) (V, bool) {
	if val, ok := x.(V); ok {
		return val, true
	}
	var zero V
	if x == nil {
		_, isNilable := any(&zero).(*any)
		return zero, isNilable
	}
	return zero, false
}
