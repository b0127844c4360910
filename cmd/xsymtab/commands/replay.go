package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benz9527/xsymtab/lib/kv"
	"github.com/benz9527/xsymtab/observability"
)

var errScriptSyntax = errors.New("script syntax error")

type replayOptions struct {
	name   string
	strict bool
	hold   time.Duration
}

type replayReport struct {
	applied, failed int
}

func newReplayCommand(a *app) *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay <script|->",
		Short: "Apply a script of mutations to a table snapshot",
		Long: `Replay applies the script lines to the table, one op per line:

  set <key> <value>   value is read as JSON, a bare word is a string
  del <key>
  popmin
  popmax
  clear

The blank lines and the lines starting with # are skipped. The
operations are recorded by the configured metrics exporter.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogFields(cmd.Context(), cmd, opts.name)
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			return a.replay(ctx, cmd, opts, r)
		},
	}
	cmd.Flags().StringVarP(&opts.name, "name", "n", "default", "table name")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "stop at the first failed op")
	cmd.Flags().DurationVar(&opts.hold, "hold", 0, "keep serving the metrics after the replay")
	return cmd
}

// startMetrics writes the console metrics to w.
func (a *app) startMetrics(ctx context.Context, w io.Writer) (func(), error) {
	typ, err := observability.ParseExporterType(a.cfg.Metrics.Exporter)
	if err != nil {
		return nil, err
	}
	shutdown, err := observability.InitMeterProvider(typ,
		observability.WithExporterInterval(a.cfg.Metrics.Interval, 0),
		observability.WithExporterWriter(w),
	)
	if err != nil {
		return nil, err
	}
	observability.InitAppStats(ctx, "xsymtab", nil)

	var srv *http.Server
	if typ == observability.ExporterPrometheus {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{
			Addr:              a.cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.ErrorContext(ctx, err, "metrics server failure")
			}
		}()
		a.logger.InfoContext(ctx, "serving metrics", zap.String("listen", a.cfg.Metrics.Listen))
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if srv != nil {
			_ = srv.Shutdown(stopCtx)
		}
		if err := shutdown(stopCtx); err != nil {
			a.logger.ErrorContext(ctx, err, "metrics shutdown failure")
		}
	}, nil
}

func (a *app) replay(ctx context.Context, cmd *cobra.Command, opts *replayOptions, script io.Reader) error {
	a.logger.Banner(buildBanner{})
	stop, err := a.startMetrics(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	var stats *observability.TableStats
	// The final collection on stop still observes the table size.
	defer func() {
		stop()
		_ = stats.Close()
	}()

	m, err := a.loadTable(ctx, opts.name, true)
	if err != nil {
		return err
	}
	// The gauge is read by the exporter goroutine, the tree is touched by
	// this loop only.
	var size atomic.Int64
	size.Store(m.Len())
	if stats, err = observability.NewTableStats(opts.name, size.Load); err != nil {
		return err
	}

	report := replayReport{}
	scanner := bufio.NewScanner(script)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		start := time.Now()
		op, opErr := applyScriptLine(m, line)
		size.Store(m.Len())
		if errors.Is(opErr, errScriptSyntax) {
			return fmt.Errorf("line %d: %w", lineNo, opErr)
		}
		stats.Record(ctx, op, start, opErr)
		if opErr == nil {
			report.applied++
			continue
		}
		report.failed++
		a.logger.WarnContext(ctx, "replay op failed",
			zap.Int("line", lineNo),
			zap.String("op", op),
			zap.String("result", observability.Result(opErr)),
			zap.Error(opErr),
		)
		if opts.strict {
			return fmt.Errorf("line %d: %s: %w", lineNo, op, opErr)
		}
	}
	if err = scanner.Err(); err != nil {
		return err
	}

	if err = a.saveTable(ctx, opts.name, m); err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "applied %d ops, %d failed, %d keys in %s\n", report.applied, report.failed, m.Len(), opts.name)

	if opts.hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(opts.hold):
		}
	}
	return nil
}

func applyScriptLine(m kv.SortedMap[string, any], line string) (string, error) {
	fields := strings.Fields(line)
	op := strings.ToLower(fields[0])
	switch op {
	case "set":
		if len(fields) < 3 {
			return op, fmt.Errorf("%w: set <key> <value>", errScriptSyntax)
		}
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line[len(fields[0]):]), fields[1]))
		return op, m.Set(fields[1], parseScalar(value))
	case "del":
		if len(fields) != 2 {
			return op, fmt.Errorf("%w: del <key>", errScriptSyntax)
		}
		_, err := m.Delete(fields[1])
		return op, err
	case "popmin", "popmax", "clear":
		if len(fields) != 1 {
			return op, fmt.Errorf("%w: %s takes no args", errScriptSyntax, op)
		}
	default:
		return op, fmt.Errorf("%w: unknown op %q", errScriptSyntax, fields[0])
	}
	var err error
	switch op {
	case "popmin":
		_, err = m.PopMin()
	case "popmax":
		_, err = m.PopMax()
	case "clear":
		m.Clear()
	}
	return op, err
}
