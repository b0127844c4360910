package persist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testStoreBehavior runs the same workload against every store.
func testStoreBehavior(t *testing.T, store Store) {
	ctx := context.TODO()

	_, err := store.Load(ctx, "absent")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
	require.ErrorIs(t, store.Delete(ctx, "absent"), ErrSnapshotNotFound)

	for _, name := range []string{"", ".hidden", "../escape", "a/b", "white space"} {
		require.ErrorIs(t, store.Save(ctx, name, []byte("x")), ErrInvalidName, name)
		_, err = store.Load(ctx, name)
		require.ErrorIs(t, err, ErrInvalidName, name)
		require.ErrorIs(t, store.Delete(ctx, name), ErrInvalidName, name)
	}

	m := genSortedMap(t, 300)
	data, err := Snapshot(m, WithCodecLZ4())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "symbols", data))
	loaded, err := store.Load(ctx, "symbols")
	require.NoError(t, err)
	require.Equal(t, data, loaded)

	// Overwrite.
	require.NoError(t, store.Save(ctx, "symbols", []byte("XST\x01\x00[]")))
	loaded, err = store.Load(ctx, "symbols")
	require.NoError(t, err)
	restored, err := Restore[int, string](loaded)
	require.NoError(t, err)
	require.Zero(t, restored.Len())

	require.NoError(t, store.Save(ctx, "empty_1.v2", nil))
	loaded, err = store.Load(ctx, "empty_1.v2")
	require.NoError(t, err)
	require.Empty(t, loaded)

	require.NoError(t, store.Delete(ctx, "symbols"))
	_, err = store.Load(ctx, "symbols")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

// testClosedStoreBehavior closes the store, every later operation
// fails fast by ErrStoreClosed.
func testClosedStoreBehavior(t *testing.T, store Store) {
	ctx := context.TODO()
	require.NoError(t, store.Close())

	start := time.Now()
	require.ErrorIs(t, store.Save(ctx, "symbols", []byte("x")), ErrStoreClosed)
	_, err := store.Load(ctx, "symbols")
	require.ErrorIs(t, err, ErrStoreClosed)
	require.ErrorIs(t, store.Delete(ctx, "symbols"), ErrStoreClosed)
	require.ErrorIs(t, store.Close(), ErrStoreClosed)
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestValidateName(t *testing.T) {
	testcases := []struct {
		name  string
		valid bool
	}{
		{"symbols", true},
		{"Symbols-2024_10.v1", true},
		{"_", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"a b", false},
		{string(make([]byte, 129)), false},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			if tc.valid {
				require.NoError(tt, validateName(tc.name))
			} else {
				require.ErrorIs(tt, validateName(tc.name), ErrInvalidName)
			}
		})
	}
}
