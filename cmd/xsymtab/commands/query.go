package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benz9527/xsymtab/lib/kv"
)

type queryOp struct {
	args  int // Required args, -1 is variadic.
	usage string
	run   func(m kv.SortedMap[string, any], args []string) (string, error)
}

var queryOps = map[string]queryOp{
	"len": {0, "len", func(m kv.SortedMap[string, any], _ []string) (string, error) {
		return strconv.FormatInt(m.Len(), 10), nil
	}},
	"contains": {1, "contains <key>", func(m kv.SortedMap[string, any], args []string) (string, error) {
		return strconv.FormatBool(m.Contains(args[0])), nil
	}},
	"get": {1, "get <key>", func(m kv.SortedMap[string, any], args []string) (string, error) {
		v, err := m.Get(args[0])
		return formatValue(v), err
	}},
	"min": {0, "min", func(m kv.SortedMap[string, any], _ []string) (string, error) {
		return m.Min()
	}},
	"max": {0, "max", func(m kv.SortedMap[string, any], _ []string) (string, error) {
		return m.Max()
	}},
	"floor": {1, "floor <key>", func(m kv.SortedMap[string, any], args []string) (string, error) {
		return m.Floor(args[0])
	}},
	"ceiling": {1, "ceiling <key>", func(m kv.SortedMap[string, any], args []string) (string, error) {
		return m.Ceiling(args[0])
	}},
	"rank": {1, "rank <key>", func(m kv.SortedMap[string, any], args []string) (string, error) {
		r, err := m.Rank(args[0])
		return strconv.FormatInt(r, 10), err
	}},
	"select": {1, "select <idx>", func(m kv.SortedMap[string, any], args []string) (string, error) {
		idx, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return "", err
		}
		return m.Select(idx)
	}},
	"index": {-1, "index <key> [start [stop]]", func(m kv.SortedMap[string, any], args []string) (string, error) {
		if len(args) < 1 || len(args) > 3 {
			return "", fmt.Errorf("index accepts 1 to 3 args, got %d", len(args))
		}
		window := make([]int64, 0, 2)
		for _, arg := range args[1:] {
			w, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return "", err
			}
			window = append(window, w)
		}
		idx, err := m.Index(args[0], window...)
		return strconv.FormatInt(idx, 10), err
	}},
	"width": {2, "width <lo> <hi>", func(m kv.SortedMap[string, any], args []string) (string, error) {
		w, err := m.Width(args[0], args[1])
		return strconv.FormatInt(w, 10), err
	}},
}

func queryUsages() string {
	usages := make([]string, 0, len(queryOps))
	for _, name := range []string{"len", "contains", "get", "min", "max", "floor", "ceiling", "rank", "select", "index", "width"} {
		usages = append(usages, "  "+queryOps[name].usage)
	}
	return strings.Join(usages, "\n")
}

func newQueryCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "query <op> [args...]",
		Short: "Query the order statistics of a table snapshot",
		Long:  "Query ops:\n" + queryUsages(),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, ok := queryOps[args[0]]
			if !ok {
				return fmt.Errorf("unknown query op %q", args[0])
			}
			if op.args >= 0 && len(args)-1 != op.args {
				return fmt.Errorf("usage: query %s", op.usage)
			}
			ctx := withLogFields(cmd.Context(), cmd, name)
			m, err := a.loadTable(ctx, name, false)
			if err != nil {
				return err
			}
			res, err := op.run(m, args[1:])
			if err != nil {
				a.logger.DebugContext(ctx, "query failed", zap.String("op", args[0]), zap.Error(err))
				return fmt.Errorf("%s: %w", args[0], err)
			}
			printf(cmd.OutOrStdout(), "%s\n", res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "default", "table name")
	return cmd
}
