package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xsymtab/lib/kv"
	"github.com/benz9527/xsymtab/persist"
	"github.com/benz9527/xsymtab/xlog"
)

// app carries the loaded config and the opened resources through a
// single command execution.
type app struct {
	configPath string
	cfg        *Config
	logger     xlog.XLogger
	stores     kv.ThreadSafeSortedMap[string, persist.Store]
	undoProcs  func()
}

func newApp() *app {
	return &app{
		stores: kv.NewThreadSafeSortedMap[string, persist.Store](),
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	encoder := xlog.JSON
	if strings.EqualFold(cfg.Log.Encoder, "plaintext") {
		encoder = xlog.PlainText
	}
	a.logger = xlog.NewXLogger(
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(cfg.Log.Level)),
		xlog.WithXLoggerEncoder(encoder),
		xlog.WithXLoggerWriter(xlog.StdOut),
		xlog.WithXLoggerContextFieldExtract(ctxKeyCommand),
		xlog.WithXLoggerContextFieldExtract(ctxKeyTable),
	)
	if a.undoProcs, err = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		a.logger.Logf(zapcore.DebugLevel, format, args...)
	})); err != nil {
		a.logger.Warn("unable to set GOMAXPROCS", zap.Error(err))
	}
	return nil
}

func (a *app) close() error {
	var merr error
	if a.stores != nil {
		merr = multierr.Append(merr, a.stores.Purge())
	}
	if a.undoProcs != nil {
		a.undoProcs()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return merr
}

const (
	ctxKeyCommand = "command"
	ctxKeyTable   = "table"
)

// withLogFields carries the command and the table name into the
// context logs.
func withLogFields(ctx context.Context, cmd *cobra.Command, table string) context.Context {
	ctx = context.WithValue(ctx, xlog.ContextKey(ctxKeyCommand), cmd.Name())
	return context.WithValue(ctx, xlog.ContextKey(ctxKeyTable), table)
}

func (a *app) store(ctx context.Context) (persist.Store, error) {
	backend := a.cfg.Store.Backend
	if s, err := a.stores.Get(backend); err == nil {
		return s, nil
	}

	var (
		s   persist.Store
		err error
	)
	switch backend {
	case StoreFile:
		s, err = persist.NewFileStore(a.cfg.Store.Dir)
	case StoreRedis:
		redisv9.SetLogger(xlog.NewGoRedisXLogger(a.logger))
		s, err = persist.NewRedisStore(
			redisv9.NewClient(&redisv9.Options{
				Addr:     a.cfg.Store.Redis.Addr,
				Password: a.cfg.Store.Redis.Password,
				DB:       a.cfg.Store.Redis.DB,
			}),
			persist.WithRedisStoreKeyPrefix(a.cfg.Store.Redis.Prefix),
			persist.WithRedisStoreTTL(a.cfg.Store.Redis.TTL),
		)
	case StoreSQL:
		s, err = persist.OpenSQLiteStore(ctx, a.cfg.Store.SQL.DSN,
			xlog.NewGormXLogger(a.logger, xlog.WithGormXLoggerSlowThreshold(200*time.Millisecond)),
			persist.WithSQLStoreTable(a.cfg.Store.SQL.Table),
		)
	default:
		err = fmt.Errorf("unknown store backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	if err = a.stores.Set(backend, s); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s, nil
}

// loadTable restores the named table, an absent snapshot gives an
// empty table if allowAbsent is set.
func (a *app) loadTable(ctx context.Context, name string, allowAbsent bool) (kv.SortedMap[string, any], error) {
	s, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.Load(ctx, name)
	if errors.Is(err, persist.ErrSnapshotNotFound) && allowAbsent {
		return kv.NewSortedMap[string, any](), nil
	} else if err != nil {
		return nil, fmt.Errorf("load table %s: %w", name, err)
	}
	m, err := persist.Restore[string, any](data)
	if err != nil {
		return nil, fmt.Errorf("restore table %s: %w", name, err)
	}
	return m, nil
}

func (a *app) saveTable(ctx context.Context, name string, m kv.SortedMap[string, any]) error {
	if err := m.Validate(); err != nil {
		a.logger.ErrorStackContext(ctx, err, "table invariants are violated")
		return fmt.Errorf("validate table %s: %w", name, err)
	}
	var opts []persist.CodecOpt
	if a.cfg.Store.Compress {
		opts = append(opts, persist.WithCodecLZ4())
	}
	data, err := persist.Snapshot(m, opts...)
	if err != nil {
		return fmt.Errorf("snapshot table %s: %w", name, err)
	}
	s, err := a.store(ctx)
	if err != nil {
		return err
	}
	if err = s.Save(ctx, name, data); err != nil {
		return fmt.Errorf("save table %s: %w", name, err)
	}
	a.logger.InfoContext(ctx, "table saved",
		zap.Int64("keys", m.Len()),
		zap.Int("bytes", len(data)),
		zap.String("backend", a.cfg.Store.Backend),
	)
	return nil
}

func formatValue(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	}
	if data, err := inputJSON.Marshal(val); err == nil {
		return string(data)
	}
	return fmt.Sprint(val)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
