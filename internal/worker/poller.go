package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/asrith4444/clover-poller/internal/reconcile"
	"github.com/asrith4444/clover-poller/pkg/config"
	"github.com/asrith4444/clover-poller/pkg/logger"
)

// Poller 轮询调度器：按固定间隔驱动 Reconciler
//
// 周期之间不允许重叠：上个周期未结束时到期的 tick 被跳过（记 Warn），
// 而不是排队执行。活跃时段门禁在调用 Reconciler 之前评估，与周期逻辑无关。
type Poller struct {
	reconciler *reconcile.Reconciler
	interval   time.Duration

	// 活跃时段（分钟数，gated 为 false 时全天轮询）
	gated       bool
	activeStart int
	activeEnd   int

	running    *atomic.Bool // 周期重叠保护
	closing    *atomic.Bool
	cycleSeq   *atomic.Int64
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     logger.Logger
}

// NewPoller 创建调度器
func NewPoller(rec *reconcile.Reconciler, cfg *config.PollerConfig, log logger.Logger) (*Poller, error) {
	p := &Poller{
		reconciler: rec,
		interval:   cfg.Interval,
		running:    atomic.NewBool(false),
		closing:    atomic.NewBool(false),
		cycleSeq:   atomic.NewInt64(0),
		logger:     log,
	}

	if cfg.ActiveHours.Start != "" {
		start, err := parseClock(cfg.ActiveHours.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid active_hours.start: %w", err)
		}
		end, err := parseClock(cfg.ActiveHours.End)
		if err != nil {
			return nil, fmt.Errorf("invalid active_hours.end: %w", err)
		}
		p.gated = true
		p.activeStart = start
		p.activeEnd = end
	}

	return p, nil
}

// Start 启动调度循环（阻塞，直到 Shutdown）
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelFunc = cancel

	p.logger.Infof(ctx, "[Poller] started: interval=%v, active_hours_gated=%v", p.interval, p.gated)

	p.wg.Add(1)
	go p.loop(ctx)

	p.wg.Wait()
}

// Shutdown 优雅退出：取消当前周期（周期在任一网络调用边界被打断），等待循环退出
func (p *Poller) Shutdown() {
	if !p.closing.CAS(false, true) {
		return
	}
	p.logger.Infof(context.Background(), "[Poller] began to close")

	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.wg.Wait()

	p.logger.Infof(context.Background(), "[Poller] shutdown complete")
}

// loop 调度循环：启动后立即执行一个周期，此后按间隔触发
func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Infof(ctx, "[Poller] context cancelled, exiting")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce 执行一个轮询周期（带门禁与重叠保护）
func (p *Poller) runOnce(ctx context.Context) {
	if !p.withinActiveHours(time.Now()) {
		p.logger.Debugf(ctx, "[Poller] outside active hours, cycle skipped")
		return
	}

	// 上个周期还在翻页时不启动新周期，否则去重器会出现竞态和重复广播
	if !p.running.CAS(false, true) {
		p.logger.Warnf(ctx, "[Poller] previous cycle still running, tick skipped")
		return
	}
	defer p.running.Store(false)

	cycleID := p.cycleSeq.Inc()
	cycleCtx := context.WithValue(ctx, "trace_id", uuid.New().String())
	cycleCtx = context.WithValue(cycleCtx, "cycle_id", cycleID)

	if _, err := p.reconciler.RunCycle(cycleCtx); err != nil {
		// 周期中止不影响进程，下个 tick 自然重试
		p.logger.Errorf(cycleCtx, "[Poller] cycle aborted: %v", err)
	}
}

// withinActiveHours 判断当前时间是否处于活跃时段（支持跨夜时段）
func (p *Poller) withinActiveHours(now time.Time) bool {
	if !p.gated {
		return true
	}

	minute := now.Hour()*60 + now.Minute()
	if p.activeStart <= p.activeEnd {
		return minute >= p.activeStart && minute < p.activeEnd
	}
	// 跨夜：例如 22:00 - 06:00
	return minute >= p.activeStart || minute < p.activeEnd
}

// parseClock 解析 HH:MM 为当天分钟数
func parseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	var hour, min int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &min); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, fmt.Errorf("clock out of range: %q", value)
	}
	return hour*60 + min, nil
}
