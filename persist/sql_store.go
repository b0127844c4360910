package persist

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	glogger "gorm.io/gorm/logger"

	"github.com/benz9527/xsymtab/lib/infra"
)

var _ Store = (*SQLStore)(nil)

type snapshotRecord struct {
	Name      string `gorm:"primaryKey;size:128"`
	Data      []byte `gorm:"not null"`
	Size      int    `gorm:"not null"`
	UpdatedAt time.Time
}

// SQLStore keeps a row per snapshot, Save upserts by name.
type SQLStore struct {
	db          *gorm.DB
	table       string
	skipMigrate bool
	closed      atomic.Bool
}

type SQLStoreOpt func(*SQLStore)

func WithSQLStoreTable(table string) SQLStoreOpt {
	return func(s *SQLStore) {
		if len(table) > 0 {
			s.table = table
		}
	}
}

// WithSQLStoreSkipMigration is for the table managed outside.
func WithSQLStoreSkipMigration() SQLStoreOpt {
	return func(s *SQLStore) {
		s.skipMigrate = true
	}
}

func NewSQLStore(ctx context.Context, db *gorm.DB, opts ...SQLStoreOpt) (*SQLStore, error) {
	if db == nil {
		return nil, infra.NewErrorStack("[persist] gorm db is nil")
	}
	s := &SQLStore{
		db:    db,
		table: "xsymtab_snapshots",
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	if !s.skipMigrate {
		if err := s.tx(ctx).AutoMigrate(&snapshotRecord{}); err != nil {
			return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to migrate table "+s.table)
		}
	}
	return s, nil
}

// OpenSQLiteStore opens the sqlite database by dsn, a file path or
// "file::memory:?cache=shared".
func OpenSQLiteStore(ctx context.Context, dsn string, logger glogger.Interface, opts ...SQLStoreOpt) (*SQLStore, error) {
	if logger == nil {
		logger = glogger.Discard
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to open sqlite "+dsn)
	}
	s, err := NewSQLStore(ctx, db, opts...)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			err = multierr.Append(err, sqlDB.Close())
		}
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) tx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

func (s *SQLStore) Save(ctx context.Context, name string, data []byte) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	rec := &snapshotRecord{
		Name: name,
		Data: data,
		Size: len(data),
	}
	if data == nil {
		rec.Data = []byte{}
	}
	err := s.tx(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[persist] unable to save snapshot "+name)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, name string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	var rec snapshotRecord
	err := s.tx(ctx).Where("name = ?", name).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	} else if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to load snapshot "+name)
	}
	return rec.Data, nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	res := s.tx(ctx).Where("name = ?", name).Delete(&snapshotRecord{})
	if res.Error != nil {
		return infra.WrapErrorStackWithMessage(res.Error, "[persist] unable to delete snapshot "+name)
	}
	if res.RowsAffected == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

func (s *SQLStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStoreClosed
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	return infra.WrapErrorStack(sqlDB.Close())
}
