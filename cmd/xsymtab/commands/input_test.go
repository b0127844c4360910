package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xsymtab/lib/kv"
)

func writeInputFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecodeInputFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	testcases := []struct {
		name    string
		file    string
		content string
		want    []kv.Pair[string, any]
		wantErr error
	}{
		{
			name:    "json pairs keep the order",
			file:    "pairs.json",
			content: `[["b", 2], ["a", "x"], ["b", null]]`,
			want: []kv.Pair[string, any]{
				kv.NewPair[string, any]("b", json.Number("2")),
				kv.NewPair[string, any]("a", "x"),
				kv.NewPair[string, any]("b", nil),
			},
		},
		{
			name:    "json mapping by sorted keys",
			file:    "mapping.json",
			content: `{"z": true, "m": [1]}`,
			want: []kv.Pair[string, any]{
				kv.NewPair[string, any]("m", []any{json.Number("1")}),
				kv.NewPair[string, any]("z", true),
			},
		},
		{
			name:    "yaml mapping",
			file:    "mapping.yaml",
			content: "c: 3\nb: override\n",
			want: []kv.Pair[string, any]{
				kv.NewPair[string, any]("b", "override"),
				kv.NewPair[string, any]("c", 3),
			},
		},
		{
			name:    "yaml pairs",
			file:    "pairs.yml",
			content: "- [k1, v1]\n- [k2, 2.5]\n",
			want: []kv.Pair[string, any]{
				kv.NewPair[string, any]("k1", "v1"),
				kv.NewPair[string, any]("k2", 2.5),
			},
		},
		{
			name:    "empty document",
			file:    "empty.yaml",
			content: "",
			want:    []kv.Pair[string, any]{},
		},
		{
			name:    "malformed pair",
			file:    "malformed.json",
			content: `[["a", 1, 2]]`,
			wantErr: kv.ErrMalformedPair,
		},
		{
			name:    "scalar document",
			file:    "scalar.json",
			content: `42`,
			wantErr: errUnknownInput,
		},
		{
			name:    "unknown extension",
			file:    "table.toml",
			content: `a = 1`,
			wantErr: errUnknownInput,
		},
	}
	for _, tc := range testcases {
		tc := tc
		path := writeInputFile(t, dir, tc.file, tc.content)
		t.Run(tc.name, func(tt *testing.T) {
			tt.Parallel()
			pairs, err := decodeInputFile(path)
			if tc.wantErr != nil {
				require.ErrorIs(tt, err, tc.wantErr)
				return
			}
			require.NoError(tt, err)
			assert.Equal(tt, tc.want, pairs)
		})
	}
}

func TestDecodeInputFile_BrokenSyntax(t *testing.T) {
	t.Parallel()
	path := writeInputFile(t, t.TempDir(), "broken.json", `[["a", 1]`)
	_, err := decodeInputFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestParseScalar(t *testing.T) {
	t.Parallel()
	assert.Equal(t, json.Number("12"), parseScalar("12"))
	assert.Equal(t, true, parseScalar("true"))
	assert.Equal(t, "quoted word", parseScalar(`"quoted word"`))
	assert.Equal(t, map[string]any{"a": json.Number("1")}, parseScalar(`{"a":1}`))
	assert.Equal(t, "bare", parseScalar("bare"))
	assert.Nil(t, parseScalar("null"))
}

func TestFormatValue(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "text", formatValue("text"))
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, "3", formatValue(json.Number("3")))
	assert.Equal(t, `{"a":[1,"b"]}`, formatValue(map[string]any{"a": []any{1, "b"}}))
}
