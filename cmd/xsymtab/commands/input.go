package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/benz9527/xsymtab/lib/kv"
)

var (
	errUnknownInput = errors.New("unknown input format")

	inputJSON = jsoniter.Config{
		EscapeHTML:  false,
		SortMapKeys: true,
		UseNumber:   true,
	}.Froze()
)

// decodeInputFile reads a list of [key, value] pairs or a mapping of
// string keys from a JSON or YAML file.
func decodeInputFile(path string) ([]kv.Pair[string, any], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = inputJSON.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%s: %w %q", path, errUnknownInput, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pairs, err := parseDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pairs, nil
}

func parseDocument(doc any) ([]kv.Pair[string, any], error) {
	switch d := doc.(type) {
	case nil:
		return []kv.Pair[string, any]{}, nil
	case []any:
		return kv.ParsePairs[string, any](d)
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]kv.Pair[string, any], 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, kv.NewPair(k, d[k]))
		}
		return pairs, nil
	}
	return nil, fmt.Errorf("%w: %T is neither a list of pairs nor a mapping", errUnknownInput, doc)
}

// parseScalar reads a command line value as JSON, a bare word is kept
// as the string.
func parseScalar(s string) any {
	var v any
	if err := inputJSON.UnmarshalFromString(s, &v); err != nil {
		return s
	}
	return v
}
