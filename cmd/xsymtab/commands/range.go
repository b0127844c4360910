package commands

import (
	"github.com/spf13/cobra"

	"github.com/benz9527/xsymtab/lib/tree"
)

type rangeOptions struct {
	name    string
	lo, hi  string
	reverse bool
	limit   int
	keys    bool
}

func newRangeCommand(a *app) *cobra.Command {
	opts := &rangeOptions{}
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Print the pairs of lo <= key < hi in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := withLogFields(cmd.Context(), cmd, opts.name)
			m, err := a.loadTable(ctx, opts.name, false)
			if err != nil {
				return err
			}
			iterOpts := make([]tree.IteratorOpt[string], 0, 3)
			if cmd.Flags().Changed("lo") {
				iterOpts = append(iterOpts, tree.WithIteratorLowerBound(opts.lo))
			}
			if cmd.Flags().Changed("hi") {
				iterOpts = append(iterOpts, tree.WithIteratorUpperBound(opts.hi))
			}
			if opts.reverse {
				iterOpts = append(iterOpts, tree.WithIteratorReverse[string]())
			}
			iter, err := m.Iterator(iterOpts...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for n := 0; iter.HasNext() && (opts.limit <= 0 || n < opts.limit); n++ {
				key, val := iter.Next()
				if opts.keys {
					printf(out, "%s\n", key)
				} else {
					printf(out, "%s\t%s\n", key, formatValue(val))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.name, "name", "n", "default", "table name")
	cmd.Flags().StringVar(&opts.lo, "lo", "", "inclusive lower bound")
	cmd.Flags().StringVar(&opts.hi, "hi", "", "exclusive upper bound")
	cmd.Flags().BoolVarP(&opts.reverse, "reverse", "r", false, "iterate in descending order")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "max pairs to print, 0 is unlimited")
	cmd.Flags().BoolVar(&opts.keys, "keys", false, "print the keys only")
	return cmd
}
