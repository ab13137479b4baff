package readiness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastSchedule 把生产节奏压缩到毫秒级，保持6+12的重试次数结构。
func fastSchedule() Schedule {
	return Schedule{
		PhaseOneInterval: 2 * time.Millisecond,
		PhaseOneWindow:   12 * time.Millisecond,
		PhaseTwoInterval: 4 * time.Millisecond,
		PhaseTwoWindow:   48 * time.Millisecond,
	}
}

func waitForStatus(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("等待探测结果超时")
		return StatusFailed
	}
}

func TestPhaseAttempts(t *testing.T) {
	s := DefaultSchedule()
	assert.Equal(t, 6, phaseAttempts(s.PhaseOneInterval, s.PhaseOneWindow))
	assert.Equal(t, 12, phaseAttempts(s.PhaseTwoInterval, s.PhaseTwoWindow))
	assert.Equal(t, 0, phaseAttempts(0, time.Minute))
}

func TestImmediateSuccessSkipsBackoff(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil
	}, fastSchedule())

	results := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { results <- s })

	assert.Equal(t, StatusReady, waitForStatus(t, results))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.True(t, p.IsCachedReady("2024-03-01"))
}

func TestExhaustionReportsStillGenerating(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, nil
	}, fastSchedule())

	results := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { results <- s })

	assert.Equal(t, StatusStillGenerating, waitForStatus(t, results))
	// 立即检查1次 + 第一段6次 + 第二段12次
	assert.EqualValues(t, 19, atomic.LoadInt32(&calls))
	assert.False(t, p.IsCachedReady("2024-03-01"))
}

func TestBecomesReadyMidRun(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		// 第4次检查时内容生成完毕
		return atomic.AddInt32(&calls, 1) >= 4, nil
	}, fastSchedule())

	results := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { results <- s })

	assert.Equal(t, StatusReady, waitForStatus(t, results))
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestCachedReadySkipsPolling(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil
	}, fastSchedule())

	results := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { results <- s })
	require.Equal(t, StatusReady, waitForStatus(t, results))

	// 同一天的第二次Start同步命中缓存，不再触发检查
	var cached Status = -1
	p.Start("2024-03-01", func(s Status) { cached = s })
	assert.Equal(t, StatusReady, cached)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// 换一天则缓存不适用
	p.Start("2024-03-02", func(s Status) { results <- s })
	require.Equal(t, StatusReady, waitForStatus(t, results))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestStopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	var once int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		if atomic.CompareAndSwapInt32(&once, 0, 1) {
			close(started)
		}
		return false, nil
	}, Schedule{
		PhaseOneInterval: 10 * time.Second,
		PhaseOneWindow:   time.Minute,
		PhaseTwoInterval: 10 * time.Second,
		PhaseTwoWindow:   time.Minute,
	})

	results := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { results <- s })

	<-started
	p.Stop()

	assert.Equal(t, StatusCancelled, waitForStatus(t, results))
	assert.False(t, p.IsCachedReady("2024-03-01"))
}

func TestStartRearmsPreviousRun(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, nil
	}, Schedule{
		PhaseOneInterval: 10 * time.Second,
		PhaseOneWindow:   time.Minute,
		PhaseTwoInterval: 10 * time.Second,
		PhaseTwoWindow:   time.Minute,
	})

	first := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { first <- s })

	// 新的焦点事件整体取消上一轮，从头开始新的一轮
	second := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { second <- s })

	assert.Equal(t, StatusCancelled, waitForStatus(t, first))
	p.Stop()
	assert.Equal(t, StatusCancelled, waitForStatus(t, second))
}

func TestConsecutiveErrorsFailFast(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, errors.New("存在性检查请求失败")
	}, fastSchedule())

	results := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { results <- s })

	assert.Equal(t, StatusFailed, waitForStatus(t, results))
	// 连续3次失败即止损，不会跑满整个窗口
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestTransientErrorsAreTolerated(t *testing.T) {
	var calls int32
	p := NewPoller(func(ctx context.Context, date string) (bool, error) {
		n := atomic.AddInt32(&calls, 1)
		// 错误与“尚未生成”交替出现，永远凑不满3连败
		if n%2 == 1 {
			return false, errors.New("瞬态错误")
		}
		if n >= 6 {
			return true, nil
		}
		return false, nil
	}, fastSchedule())

	results := make(chan Status, 1)
	p.Start("2024-03-01", func(s Status) { results <- s })

	assert.Equal(t, StatusReady, waitForStatus(t, results))
}
