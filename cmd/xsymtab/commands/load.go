package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xsymtab/lib/kv"
	"github.com/benz9527/xsymtab/xlog"
)

type loadOptions struct {
	name  string
	merge bool
	watch bool
}

func newLoadCommand(a *app) *cobra.Command {
	opts := &loadOptions{}
	cmd := &cobra.Command{
		Use:   "load <files...>",
		Short: "Load JSON or YAML files into a table snapshot",
		Long: `Load decodes the files concurrently and inserts their pairs in the
argument order, a later duplicate key overrides the earlier one.
A file holds a list of [key, value] pairs or a mapping.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogFields(cmd.Context(), cmd, opts.name)
			if err := a.load(ctx, cmd, opts, args); err != nil {
				return err
			}
			if !opts.watch {
				return nil
			}
			return a.watch(ctx, cmd, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.name, "name", "n", "default", "table name")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "merge into the existing snapshot instead of replacing it")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload on file changes until interrupted")
	return cmd
}

// decodeInputFiles decodes the files by an ants pool, the results keep
// the argument order.
func (a *app) decodeInputFiles(files []string) ([][]kv.Pair[string, any], error) {
	pool, err := ants.NewPool(a.cfg.Loader.Workers, ants.WithLogger(xlog.NewAntsXLogger(a.logger)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		results = make([][]kv.Pair[string, any], len(files))
		errs    = make([]error, len(files))
	)
	for i, file := range files {
		wg.Add(1)
		i, file := i, file
		if err = pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = decodeInputFile(file)
		}); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	return results, multierr.Combine(errs...)
}

func (a *app) load(ctx context.Context, cmd *cobra.Command, opts *loadOptions, files []string) error {
	start := time.Now()
	batches, err := a.decodeInputFiles(files)
	if err != nil {
		a.logger.ErrorStackContext(ctx, err, "unable to decode input files")
		return err
	}

	m := kv.NewSortedMap[string, any]()
	if opts.merge {
		if m, err = a.loadTable(ctx, opts.name, true); err != nil {
			return err
		}
	}
	var pairs int
	for i, batch := range batches {
		if err = m.Update(batch...); err != nil {
			return fmt.Errorf("%s: %w", files[i], err)
		}
		pairs += len(batch)
	}
	if err = a.saveTable(ctx, opts.name, m); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "table loaded",
		zap.Strings("files", files),
		zap.Int("pairs", pairs),
		zap.Duration("elapsed", time.Since(start)),
	)
	printf(cmd.OutOrStdout(), "loaded %d keys into %s\n", m.Len(), opts.name)
	return nil
}

// watch reloads the table on the write or create events of the input
// files. The directories are watched, the editors replace the files.
func (a *app) watch(ctx context.Context, cmd *cobra.Command, opts *loadOptions, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	targets := make(map[string]struct{}, len(files))
	dirs := lo.Uniq(lo.Map(files, func(file string, _ int) string {
		abs, absErr := filepath.Abs(file)
		if absErr != nil {
			abs = filepath.Clean(file)
		}
		targets[abs] = struct{}{}
		return filepath.Dir(abs)
	}))
	for _, dir := range dirs {
		if err = watcher.Add(dir); err != nil {
			return err
		}
	}
	a.logger.InfoContext(ctx, "watching input files", zap.Strings("dirs", dirs))
	printf(cmd.OutOrStdout(), "watching %d files\n", len(targets))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, hit := targets[filepath.Clean(event.Name)]; !hit {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// The failures are reported and the watch goes on.
			if err = a.load(ctx, cmd, opts, files); err != nil {
				a.logger.ErrorContext(ctx, err, "reload failed", zap.String("event", event.String()))
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.ErrorContext(ctx, werr, "watcher failure")
		}
	}
}
