// Package readiness 实现个人池分配的客户端就绪探测。
//
// 个人池内容由离线任务异步生成，玩家打开界面时可能尚不存在。
// Poller 按两段式退避调度存在性检查：先密集、后稀疏，窗口耗尽后
// 停止，直到界面重新获得焦点时整体重新武装（而不是续跑）。
package readiness

import (
	"context"
	"sync"
	"time"
)

// Status 是一轮探测的终局状态。
type Status int

const (
	// StatusReady 表示分配已存在，可以开始游戏
	StatusReady Status = iota
	// StatusStillGenerating 表示整个退避窗口耗尽仍未就绪。
	// 这是可预期的瞬态，界面应展示“仍在生成，请稍后再来”，而非报错。
	StatusStillGenerating
	// StatusCancelled 表示探测在完成前被取消（界面卸载）
	StatusCancelled
	// StatusFailed 表示存在性检查持续失败（网络/服务错误）
	StatusFailed
)

// CheckFunc 是一次存在性检查。返回 (true, nil) 表示分配已生成。
type CheckFunc func(ctx context.Context, date string) (bool, error)

// Schedule 描述两段式退避的节奏。
// 缺省值对应：首次立即检查后，每5秒一次持续30秒（6次），
// 再每10秒一次持续120秒（12次），然后停止。
type Schedule struct {
	PhaseOneInterval time.Duration
	PhaseOneWindow   time.Duration
	PhaseTwoInterval time.Duration
	PhaseTwoWindow   time.Duration
}

// DefaultSchedule 返回生产环境使用的缺省节奏。
func DefaultSchedule() Schedule {
	return Schedule{
		PhaseOneInterval: 5 * time.Second,
		PhaseOneWindow:   30 * time.Second,
		PhaseTwoInterval: 10 * time.Second,
		PhaseTwoWindow:   120 * time.Second,
	}
}

// attempts 返回该段计划内的重试次数。
func phaseAttempts(interval, window time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int(window / interval)
}

// Poller 管理一个界面的就绪探测生命周期。
// 同一时刻至多一轮探测在跑；Start总是先取消上一轮（重新武装语义）。
type Poller struct {
	check    CheckFunc
	schedule Schedule

	mu         sync.Mutex
	cancel     context.CancelFunc
	readyDates map[string]bool
}

// NewPoller 创建一个就绪探测器。
func NewPoller(check CheckFunc, schedule Schedule) *Poller {
	return &Poller{
		check:      check,
		schedule:   schedule,
		readyDates: make(map[string]bool),
	}
}

// IsCachedReady 报告某个日期是否已有成功的检查结果被缓存。
// 同一天的重复界面访问据此完全跳过轮询。
func (p *Poller) IsCachedReady(date string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readyDates[date]
}

// Start 为给定日期武装一轮全新的探测，结果通过onResult异步回调。
// 每次焦点事件都应调用Start：上一轮（若存在）会被整体取消，
// 新一轮从头开始，绝不从中间续跑。缓存命中时同步回调并跳过轮询。
func (p *Poller) Start(date string, onResult func(Status)) {
	p.mu.Lock()
	if p.readyDates[date] {
		p.mu.Unlock()
		onResult(StatusReady)
		return
	}

	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx, date, onResult)
}

// Stop 取消当前正在进行的探测（若有）。
// 被取消的轮次没有任何部分副作用：未触发的定时器被清理，不再回调成功。
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// markReady 记录一次成功的检查结果。
func (p *Poller) markReady(date string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readyDates[date] = true
}

// run 执行一轮完整的两段式探测。
func (p *Poller) run(ctx context.Context, date string, onResult func(Status)) {
	// 武装后立即检查一次，命中则零等待返回
	ok, err := p.check(ctx, date)
	if ctx.Err() != nil {
		onResult(StatusCancelled)
		return
	}
	if err == nil && ok {
		p.markReady(date)
		onResult(StatusReady)
		return
	}

	phases := []struct {
		interval time.Duration
		attempts int
	}{
		{p.schedule.PhaseOneInterval, phaseAttempts(p.schedule.PhaseOneInterval, p.schedule.PhaseOneWindow)},
		{p.schedule.PhaseTwoInterval, phaseAttempts(p.schedule.PhaseTwoInterval, p.schedule.PhaseTwoWindow)},
	}

	consecutiveErrors := 0
	if err != nil {
		consecutiveErrors = 1
	}

	for _, phase := range phases {
		for i := 0; i < phase.attempts; i++ {
			if !sleepCtx(ctx, phase.interval) {
				onResult(StatusCancelled)
				return
			}

			ok, err := p.check(ctx, date)
			if ctx.Err() != nil {
				onResult(StatusCancelled)
				return
			}
			if err != nil {
				consecutiveErrors++
				// 连续失败说明是服务问题而非“尚未生成”，提前止损
				if consecutiveErrors >= 3 {
					onResult(StatusFailed)
					return
				}
				continue
			}
			consecutiveErrors = 0
			if ok {
				p.markReady(date)
				onResult(StatusReady)
				return
			}
		}
	}

	onResult(StatusStillGenerating)
}

// sleepCtx 等待指定时长；上下文取消时清理定时器并返回false。
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return false
	case <-timer.C:
		return true
	}
}
