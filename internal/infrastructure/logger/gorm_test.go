package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), logs
}

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return `SELECT * FROM "cart_snapshots"`, 1 }

	t.Run("logs sql errors", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Error)

		l.Trace(context.Background(), time.Now(), sqlFn, errors.New("disk full"))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "SQL Error", logs.All()[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})

	t.Run("skips record not found", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Error)

		l.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("warns on slow queries", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn)

		l.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)

		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "SLOW SQL")
	})

	t.Run("debug logs queries at info level", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Info)

		ctx := WithSessionID(context.Background(), "sess-7")
		l.Trace(ctx, time.Now(), sqlFn, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "SQL Query", logs.All()[0].Message)
		assert.Equal(t, "sess-7", logs.All()[0].ContextMap()["session_id"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Silent)

		l.Trace(context.Background(), time.Now(), sqlFn, errors.New("ignored"))

		assert.Equal(t, 0, logs.Len())
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	l, _ := newObservedGormLogger(gormlogger.Warn)

	changed := l.LogMode(gormlogger.Info)

	assert.Equal(t, gormlogger.Warn, l.logLevel)
	assert.Equal(t, gormlogger.Info, changed.(*GormLogger).logLevel)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("bogus"))
}
