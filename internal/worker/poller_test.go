package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrith4444/clover-poller/internal/model"
	"github.com/asrith4444/clover-poller/internal/reconcile"
	"github.com/asrith4444/clover-poller/pkg/config"
)

// countingFetcher 记录被调用次数的空 Fetcher
type countingFetcher struct {
	calls int
}

func (f *countingFetcher) FetchPage(context.Context, int, int, int64) ([]model.RemoteOrder, bool, error) {
	f.calls++
	return nil, false, nil
}

type nopStore struct{}

func (nopStore) Upsert(context.Context, *model.OrderDocument) error { return nil }
func (nopStore) GetProjection(context.Context, string) (*model.OrderProjection, error) {
	return nil, nil
}

type nopBroadcaster struct{}

func (nopBroadcaster) PublishOrderUpdate(context.Context, *model.OrderUpdateNotification) error {
	return nil
}

type nopLogger struct{}

func (nopLogger) Debugf(context.Context, string, ...interface{}) {}
func (nopLogger) Infof(context.Context, string, ...interface{})  {}
func (nopLogger) Warnf(context.Context, string, ...interface{})  {}
func (nopLogger) Errorf(context.Context, string, ...interface{}) {}
func (nopLogger) Sync() error                                    { return nil }

func newTestPoller(t *testing.T, fetcher reconcile.Fetcher, hours config.ActiveHoursConfig) *Poller {
	t.Helper()
	rec := reconcile.NewReconciler(fetcher, nopStore{}, nopBroadcaster{}, &reconcile.Options{
		PageSize: 10,
		Window:   time.Hour,
		ItemKey:  config.ItemKeyID,
		Event:    "order.updated",
	}, nopLogger{})
	p, err := NewPoller(rec, &config.PollerConfig{
		Interval:    time.Minute,
		Window:      time.Hour,
		ActiveHours: hours,
	}, nopLogger{})
	require.NoError(t, err)
	return p
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "00:00", want: 0},
		{input: "07:30", want: 450},
		{input: "23:59", want: 1439},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "12", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseClock(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestNewPoller_InvalidActiveHours(t *testing.T) {
	rec := reconcile.NewReconciler(&countingFetcher{}, nopStore{}, nopBroadcaster{}, &reconcile.Options{
		PageSize: 10,
		Window:   time.Hour,
	}, nopLogger{})

	_, err := NewPoller(rec, &config.PollerConfig{
		Interval:    time.Minute,
		ActiveHours: config.ActiveHoursConfig{Start: "7am", End: "22:00"},
	}, nopLogger{})

	assert.Error(t, err)
}

func TestWithinActiveHours(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2026, 8, 31, hour, min, 0, 0, time.Local)
	}

	t.Run("ungated polls all day", func(t *testing.T) {
		p := newTestPoller(t, &countingFetcher{}, config.ActiveHoursConfig{})
		assert.True(t, p.withinActiveHours(at(3, 0)))
	})

	t.Run("daytime span", func(t *testing.T) {
		p := newTestPoller(t, &countingFetcher{}, config.ActiveHoursConfig{Start: "07:00", End: "22:00"})
		assert.False(t, p.withinActiveHours(at(6, 59)))
		assert.True(t, p.withinActiveHours(at(7, 0)))
		assert.True(t, p.withinActiveHours(at(21, 59)))
		assert.False(t, p.withinActiveHours(at(22, 0)))
	})

	t.Run("overnight span", func(t *testing.T) {
		p := newTestPoller(t, &countingFetcher{}, config.ActiveHoursConfig{Start: "22:00", End: "06:00"})
		assert.True(t, p.withinActiveHours(at(23, 30)))
		assert.True(t, p.withinActiveHours(at(2, 0)))
		assert.False(t, p.withinActiveHours(at(12, 0)))
	})
}

func TestRunOnce_OverlapGuardSkipsTick(t *testing.T) {
	fetcher := &countingFetcher{}
	p := newTestPoller(t, fetcher, config.ActiveHoursConfig{})

	// 模拟上个周期仍在运行：本次 tick 必须被跳过
	p.running.Store(true)
	p.runOnce(context.Background())
	assert.Equal(t, 0, fetcher.calls)

	p.running.Store(false)
	p.runOnce(context.Background())
	assert.Equal(t, 1, fetcher.calls)
	assert.False(t, p.running.Load(), "running flag released after cycle")
}

func TestRunOnce_OutsideActiveHoursSkipsCycle(t *testing.T) {
	fetcher := &countingFetcher{}
	p := newTestPoller(t, fetcher, config.ActiveHoursConfig{Start: "00:00", End: "00:01"})

	if p.withinActiveHours(time.Now()) {
		t.Skip("test window collides with the gate")
	}

	p.runOnce(context.Background())
	assert.Equal(t, 0, fetcher.calls)
}
