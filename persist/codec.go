package persist

import (
	"encoding/binary"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/multierr"

	"github.com/benz9527/xsymtab/lib/infra"
	"github.com/benz9527/xsymtab/lib/kv"
)

// Snapshot layout:
//
//	+-------+---------+-------+--------------------------+-----------------+
//	| "XST" | version | flags | raw length (uvarint, lz4) | payload         |
//	+-------+---------+-------+--------------------------+-----------------+
//
// The payload is a JSON array of {"k": key, "v": value} in iteration
// order, lz4 block compressed if the flag is set.
const (
	snapshotMagic          = "XST"
	snapshotVersion   byte = 1
	snapshotHeaderLen      = len(snapshotMagic) + 2

	flagLZ4 byte = 1
)

// Block compression never expands the payload more than this ratio back.
const maxLZ4Ratio = 255

var (
	ErrCorruptSnapshot = errors.New("[persist] corrupt snapshot")

	codecJSON = jsoniter.Config{
		EscapeHTML:             false,
		SortMapKeys:            true,
		UseNumber:              true,
		ValidateJsonRawMessage: true,
	}.Froze()
)

type entry[K any, V any] struct {
	Key K `json:"k"`
	Val V `json:"v"`
}

type codecOptions struct {
	compress        bool
	minCompressSize int
}

type CodecOpt func(*codecOptions)

// WithCodecLZ4 compresses the payload of at least minSize bytes.
func WithCodecLZ4(minSize ...int) CodecOpt {
	return func(opts *codecOptions) {
		opts.compress = true
		if len(minSize) > 0 && minSize[0] > 0 {
			opts.minCompressSize = minSize[0]
		}
	}
}

func loadCodecOptions(opts ...CodecOpt) *codecOptions {
	o := &codecOptions{minCompressSize: 64}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Encode writes the pairs in the given order. The bytes are opaque to
// the callers, only Decode reads them.
func Encode[K any, V any](pairs []kv.Pair[K, V], opts ...CodecOpt) ([]byte, error) {
	o := loadCodecOptions(opts...)
	entries := make([]entry[K, V], 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, entry[K, V]{Key: p.Key, Val: p.Val})
	}
	payload, err := codecJSON.Marshal(entries)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to marshal snapshot entries")
	}

	header := []byte{snapshotMagic[0], snapshotMagic[1], snapshotMagic[2], snapshotVersion, 0}
	if !o.compress || len(payload) < o.minCompressSize {
		return append(header, payload...), nil
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := lz4.CompressBlock(payload, compressed, nil)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to compress snapshot")
	}
	if n == 0 || n >= len(payload) {
		// Incompressible.
		return append(header, payload...), nil
	}
	header[snapshotHeaderLen-1] |= flagLZ4
	out := make([]byte, 0, snapshotHeaderLen+binary.MaxVarintLen64+n)
	out = append(out, header...)
	out = binary.AppendUvarint(out, uint64(len(payload)))
	return append(out, compressed[:n]...), nil
}

func corrupt(format string, args ...any) error {
	return infra.WrapErrorStackWithMessage(ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}

func payloadOf(data []byte) ([]byte, error) {
	if len(data) < snapshotHeaderLen || string(data[:len(snapshotMagic)]) != snapshotMagic {
		return nil, corrupt("[persist] snapshot header is missing")
	}
	if v := data[len(snapshotMagic)]; v != snapshotVersion {
		return nil, corrupt("[persist] unsupported snapshot version %d", v)
	}
	flags := data[snapshotHeaderLen-1]
	if flags&^flagLZ4 != 0 {
		return nil, corrupt("[persist] unknown snapshot flags %#x", flags)
	}
	payload := data[snapshotHeaderLen:]
	if flags&flagLZ4 == 0 {
		return payload, nil
	}

	rawLen, n := binary.Uvarint(payload)
	if n <= 0 {
		return nil, corrupt("[persist] snapshot raw length is malformed")
	}
	payload = payload[n:]
	if rawLen == 0 || rawLen > uint64(len(payload))*maxLZ4Ratio {
		return nil, corrupt("[persist] snapshot raw length %d is out of range", rawLen)
	}
	raw := make([]byte, rawLen)
	written, err := lz4.UncompressBlock(payload, raw)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(multierr.Combine(ErrCorruptSnapshot, err), "[persist] unable to decompress snapshot")
	}
	if uint64(written) != rawLen {
		return nil, corrupt("[persist] snapshot decompressed %d bytes, expected %d", written, rawLen)
	}
	return raw, nil
}

// Decode reads the pairs back in the encoded order.
func Decode[K any, V any](data []byte) ([]kv.Pair[K, V], error) {
	payload, err := payloadOf(data)
	if err != nil {
		return nil, err
	}
	var entries []entry[K, V]
	if err = codecJSON.Unmarshal(payload, &entries); err != nil {
		return nil, infra.WrapErrorStackWithMessage(multierr.Combine(ErrCorruptSnapshot, err), "[persist] unable to unmarshal snapshot entries")
	}
	pairs := make([]kv.Pair[K, V], 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, kv.NewPair(e.Key, e.Val))
	}
	return pairs, nil
}

// Snapshot encodes the map in key order.
func Snapshot[K any, V any](m kv.SortedMap[K, V], opts ...CodecOpt) ([]byte, error) {
	items, err := m.Items()
	if err != nil {
		return nil, err
	}
	return Encode(items, opts...)
}

// Restore builds a new map from the snapshot.
func Restore[K infra.OrderedKey, V any](data []byte, opts ...kv.SortedOpt) (kv.SortedMap[K, V], error) {
	m := kv.NewSortedMap[K, V](opts...)
	if err := RestoreInto(m, data); err != nil {
		return nil, err
	}
	return m, nil
}

// RestoreInto replaces the content of m by the snapshot. m is left
// untouched if the snapshot can not be decoded.
func RestoreInto[K any, V any](m kv.SortedMap[K, V], data []byte) error {
	pairs, err := Decode[K, V](data)
	if err != nil {
		return err
	}
	m.Clear()
	return m.Update(pairs...)
}

// SnapshotSet encodes the set elements as the keys without values.
func SnapshotSet[E any](s kv.SortedSet[E], opts ...CodecOpt) ([]byte, error) {
	elems, err := s.Elements()
	if err != nil {
		return nil, err
	}
	pairs := make([]kv.Pair[E, struct{}], 0, len(elems))
	for _, e := range elems {
		pairs = append(pairs, kv.NewPair(e, struct{}{}))
	}
	return Encode(pairs, opts...)
}

func RestoreSetInto[E any](s kv.SortedSet[E], data []byte) error {
	pairs, err := Decode[E, struct{}](data)
	if err != nil {
		return err
	}
	s.Clear()
	for i, p := range pairs {
		if err = s.Add(p.Key); err != nil {
			return infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[persist] restore element %d", i))
		}
	}
	return nil
}
