package xlog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	mock "github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func genDBMock(logger glogger.Interface) (*gorm.DB, mock.Sqlmock, error) {
	db, mock, err := mock.New()
	if err != nil {
		return nil, nil, err
	}
	// The sqlite version query is essential for go-sqlite driver.
	mock.ExpectQuery(`select sqlite_version()`).
		WithArgs().
		WillReturnRows(mock.NewRows([]string{"sqlite_version()"}).
			AddRow("3.38.0"))
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: sqlite.DriverName,
		Conn:       db,
	}, &gorm.Config{
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return gdb, mock, nil
}

func TestGormXLogger_Sqlite3(t *testing.T) {
	parentLogger, w := newTestMemLogger(t, WithXLoggerLevel(LogLevelDebug))
	logger := NewGormXLogger(parentLogger,
		WithGormXLoggerIgnoreRecord404Err(),
		WithGormXLoggerLogLevel(glogger.Info),
		WithGormXLoggerSlowThreshold(200*time.Millisecond),
	)

	db, mock, err := genDBMock(logger)
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(nil)
	mock.ExpectExec(`SAVEPOINT snapshot`).WithArgs().WillReturnResult(driver.ResultNoRows)
	mock.ExpectCommit().WillReturnError(nil)

	tx := db.Begin(&sql.TxOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  false,
	}).SavePoint("snapshot")
	require.NoError(t, tx.Commit().Error)
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, parentLogger.Sync())

	out := w.String()
	require.Contains(t, out, `"component":"Gorm"`)
	require.Contains(t, out, `"msg":"common sql info"`)
	require.Contains(t, out, `SAVEPOINT snapshot`)
}

func TestGormXLogger_AllAPIs(t *testing.T) {
	parentLogger, w := newTestMemLogger(t, WithXLoggerLevel(LogLevelDebug))
	logger := NewGormXLogger(parentLogger,
		WithGormXLoggerIgnoreRecord404Err(),
		WithGormXLoggerLogLevel(glogger.Info),
	)

	require.Equal(t, zap.ErrorLevel, getLogLevelOrDefaultForGorm(glogger.Error))
	require.Equal(t, zap.WarnLevel, getLogLevelOrDefaultForGorm(glogger.Warn))
	require.Equal(t, zap.InfoLevel, getLogLevelOrDefaultForGorm(glogger.Info))
	require.Equal(t, zap.FatalLevel, getLogLevelOrDefaultForGorm(glogger.Silent))

	const stmt = "insert into symbols values('a', 1)"
	logger.Info(context.TODO(), "sql %s", stmt)
	logger.Warn(context.TODO(), "sql %s", stmt)
	logger.Error(context.TODO(), "sql %s", stmt)
	require.Len(t, w.Lines(), 3)

	testcases := []struct {
		name     string
		begin    time.Time
		rows     int64
		err      error
		expected []string
	}{
		{"info unknown rows", time.Now(), -1, nil, []string{`"msg":"common sql info"`, `"rows":"-"`}},
		{"info rows", time.Now(), 1, nil, []string{`"msg":"common sql info"`, `"rows":"1"`}},
		{"error", time.Now(), 1, errors.New("insert error"), []string{`"msg":"error trace"`, `"error":"insert error"`}},
		{"slow", time.Now().Add(-600 * time.Millisecond), 1, nil, []string{`"msg":"slow sql"`, `"thresholdMs":500`}},
		{"ignored not found", time.Now(), 0, glogger.ErrRecordNotFound, []string{`"msg":"common sql info"`}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			w.Reset()
			logger.Trace(context.TODO(), tc.begin, func() (string, int64) {
				return stmt, tc.rows
			}, tc.err)
			lines := w.Lines()
			require.Len(tt, lines, 1)
			for _, e := range tc.expected {
				require.Contains(tt, lines[0], e)
			}
		})
	}

	w.Reset()
	logger.LogMode(glogger.Silent).Trace(context.TODO(), time.Now().Add(-500*time.Millisecond), func() (string, int64) {
		return stmt, 1
	}, nil)
	logger.Error(context.TODO(), "sql %s", stmt)
	require.Empty(t, w.String())

	// Errors only, the parent level is not changed.
	logger.LogMode(glogger.Error)
	logger.Warn(context.TODO(), "sql %s", stmt)
	logger.Error(context.TODO(), "sql %s", stmt)
	parentLogger.Debug("parent")
	require.Len(t, w.Lines(), 2)
}
