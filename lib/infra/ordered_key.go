package infra

import "math"

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is a constraint that permits any unsigned integer type.
// If future releases of Go add new predeclared unsigned integer types,
// this constraint will be modified to include them.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer is a constraint that permits any integer type.
// If future releases of Go add new predeclared integer types,
// this constraint will be modified to include them.
type Integer interface {
	Signed | Unsigned
}

// Float is a constraint that permits any floating-point type.
// If future releases of Go add new predeclared floating-point types,
// this constraint will be modified to include them.
type Float interface {
	~float32 | ~float64
}

// OrderedKey
// byte => ~uint8
type OrderedKey interface {
	Integer | Float | ~string
}

// Incomparable is returned by a comparator when the two keys
// are not in a total order with each other, e.g. a float NaN.
const Incomparable int64 = math.MinInt64

// Comparator
// Assume i is the new key.
//  1. i == j (i-j == 0, return 0)
//  2. i > j (i-j > 0, return 1), turn to right part.
//  3. i < j (i-j < 0, return -1), turn to left part.
//  4. i and j are unorderable, return Incomparable.
type Comparator[K any] func(i, j K) int64

func OrderedKeyCompare[K OrderedKey](i, j K) int64 {
	if i < j {
		return -1
	} else if i > j {
		return 1
	} else if i == j {
		return 0
	}
	// NaN
	return Incomparable
}

// Reverse flips the order of cmp, keeping Incomparable untouched.
func Reverse[K any](cmp Comparator[K]) Comparator[K] {
	return func(i, j K) int64 {
		res := cmp(i, j)
		if res == Incomparable {
			return res
		}
		return -res
	}
}
