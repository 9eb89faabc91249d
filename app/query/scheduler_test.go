package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingViews struct {
	refreshes atomic.Int32
	err       error
}

func (v *countingViews) EnsureViews(context.Context) error { return nil }
func (v *countingViews) Close() error                      { return nil }
func (v *countingViews) RefreshViews(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh must be bounded")
	}
	v.refreshes.Add(1)
	return v.err
}

func TestScheduleViewRefresh(t *testing.T) {
	logger := zaptest.NewLogger(t)
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{logger: logger.Sugar()})))
	views := &countingViews{err: errors.New("view locked")}

	require.NoError(t, ScheduleViewRefresh(context.Background(), c, "* * * * * *", views, logger))
	c.Start()
	defer func() { <-c.Stop().Done() }()

	assert.Eventually(t, func() bool { return views.refreshes.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduleViewRefresh_InvalidSchedule(t *testing.T) {
	logger := zaptest.NewLogger(t)
	c := cron.New(cron.WithSeconds())
	assert.Error(t, ScheduleViewRefresh(context.Background(), c, "every five minutes", &countingViews{}, logger))
}

func TestDefaultViewRefreshCronParses(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := parser.Parse(DefaultViewRefreshCron)
	assert.NoError(t, err)
	_, err = parser.Parse(cacheSweepCron)
	assert.NoError(t, err)
}
