package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/asrith4444/clover-poller/internal/model"
	"github.com/asrith4444/clover-poller/pkg/errorutil"
)

// Options Reconciler 配置
type Options struct {
	PageSize    int           // 单页大小
	Window      time.Duration // 创建时间窗口宽度
	ItemKey     string        // 行明细合并键：id 或 name
	IgnoreItems []string      // 按名称排除的行明细（不落库、不播报）
	Event       string        // 广播事件名
}

// CycleStats 单个轮询周期的统计
type CycleStats struct {
	Pages      int // 拉取页数
	Fetched    int // 拉取订单总数
	Filtered   int // 窗口外被丢弃的订单数
	Skipped    int // 零行明细被推迟的订单数
	Processed  int // 成功落库的订单数
	Failed     int // 处理失败被跳过的订单数
	Broadcasts int // 发出的变更广播数
}

// Reconciler 同步协调器：驱动一个完整的轮询周期
//
// 状态机：Paging → Filtering → PerOrder(Processing) → Paging(下一页) | Done
// 单周期内页按 offset 递增拉取，页内订单按上游返回顺序串行处理；
// 去重器仅由本协调器读写，周期之间不允许重叠（由调度方保证）。
type Reconciler struct {
	fetcher     Fetcher
	store       OrderStore
	broadcaster Broadcaster
	tracker     *Tracker
	keyOf       KeyFunc
	pageSize    int
	window      time.Duration
	ignored     map[string]struct{}
	event       string
	logger      Logger
	now         func() time.Time
}

// NewReconciler 创建 Reconciler
func NewReconciler(fetcher Fetcher, store OrderStore, broadcaster Broadcaster, opts *Options, log Logger) *Reconciler {
	ignored := make(map[string]struct{}, len(opts.IgnoreItems))
	for _, name := range opts.IgnoreItems {
		ignored[strings.ToLower(name)] = struct{}{}
	}

	return &Reconciler{
		fetcher:     fetcher,
		store:       store,
		broadcaster: broadcaster,
		tracker:     NewTracker(),
		keyOf:       KeyFuncFor(opts.ItemKey),
		pageSize:    opts.PageSize,
		window:      opts.Window,
		ignored:     ignored,
		event:       opts.Event,
		logger:      log,
	}
}

// RunCycle 执行一个完整的轮询周期
//
// 拉取失败（传输错误）中止整个周期并返回错误，由下个调度周期重试；
// 单个订单处理失败只跳过该订单，周期继续。
func (r *Reconciler) RunCycle(ctx context.Context) (*CycleStats, error) {
	windowStart := r.timeNow().Add(-r.window).UnixMilli()
	stats := &CycleStats{}

	offset := 0
	for {
		// Paging：拉取当前 offset 的一页
		orders, hasMore, err := r.fetcher.FetchPage(ctx, offset, r.pageSize, windowStart)
		if err != nil {
			r.logger.Errorf(ctx, "[Reconciler] fetch page failed: offset=%d, retryable=%v, err=%v",
				offset, errorutil.IsRetryable(err), err)
			return stats, err
		}
		if len(orders) == 0 {
			break
		}
		stats.Pages++
		stats.Fetched += len(orders)

		// 周期终止条件一：本页未满
		lastPage := !hasMore

		for _, order := range orders {
			// Filtering：丢弃窗口外的订单，但不中止本页处理
			if order.CreatedTime <= windowStart {
				stats.Filtered++
				// 周期终止条件二：本页出现窗口外的订单，处理完本页即结束
				lastPage = true
				continue
			}

			outcome, err := r.processOrder(ctx, order)
			if err != nil {
				// 单订单失败只跳过，下个周期自然重试
				stats.Failed++
				r.logger.Errorf(ctx, "[Reconciler] process order failed: order_id=%s, err=%v", order.ID, err)
				continue
			}
			switch outcome {
			case outcomeDeferred:
				stats.Skipped++
			case outcomeBroadcast:
				stats.Processed++
				stats.Broadcasts++
			default:
				stats.Processed++
			}
		}

		if lastPage {
			break
		}
		offset += len(orders)
	}

	r.logger.Infof(ctx, "[Reconciler] cycle complete: pages=%d, fetched=%d, filtered=%d, skipped=%d, processed=%d, failed=%d, broadcasts=%d",
		stats.Pages, stats.Fetched, stats.Filtered, stats.Skipped, stats.Processed, stats.Failed, stats.Broadcasts)

	return stats, nil
}

// orderOutcome 单订单处理结果
type orderOutcome int

const (
	outcomePersisted orderOutcome = iota // 已落库，无新增行明细
	outcomeBroadcast                     // 已落库且发出广播
	outcomeDeferred                      // 无行明细，推迟到后续周期
)

// processOrder 处理单个订单：去重 → 读投影 → 合并 → 落库 → 条件播报
func (r *Reconciler) processOrder(ctx context.Context, order model.RemoteOrder) (orderOutcome, error) {
	ctx = context.WithValue(ctx, "order_id", order.ID)

	fresh := r.freshItems(order)
	if len(fresh) == 0 {
		// 上游尚未带出行明细，推迟到后续周期，不落半成品状态
		r.logger.Debugf(ctx, "[Reconciler] order has no items yet, deferred: order_id=%s", order.ID)
		return outcomeDeferred, nil
	}

	keys := make([]string, 0, len(fresh))
	for _, item := range fresh {
		keys = append(keys, r.keyOf(item))
	}
	newKeys := r.tracker.NewKeys(order.ID, keys)

	projection, err := r.store.GetProjection(ctx, order.ID)
	if err != nil {
		return outcomePersisted, err
	}
	known := projection != nil

	var previous []model.Item
	if known {
		previous = projection.Items
	}
	final := Merge(fresh, previous, r.keyOf)

	doc := &model.OrderDocument{
		ID:           order.ID,
		Title:        order.Title,
		Status:       model.OrderStatusOpen,
		Items:        final,
		CreatedTime:  order.CreatedTime,
		ModifiedTime: order.ModifiedTime,
	}
	if err := r.store.Upsert(ctx, doc); err != nil {
		return outcomePersisted, err
	}

	// 持久化成功后才标记已见：写入失败的订单下个周期仍判定为新增
	r.tracker.MarkSeen(order.ID, keys)

	// 本周期无新增行明细则不播报，避免静态订单每次轮询都产生通知
	if len(newKeys) == 0 {
		return outcomePersisted, nil
	}

	notification := &model.OrderUpdateNotification{
		Event:        r.event,
		OrderID:      order.ID,
		Title:        order.Title,
		Items:        final,
		NewItems:     r.newItemNames(fresh, newKeys),
		ModifiedTime: order.ModifiedTime,
		Timestamp:    r.timeNow().UnixMilli(),
	}
	// 仅首次观察到的订单携带状态字段，订阅方以此区分新建与常规更新
	if !known {
		notification.Status = doc.Status
	}

	if err := r.broadcaster.PublishOrderUpdate(ctx, notification); err != nil {
		// 已落库的写入不回滚，丢通知是可接受的不一致
		r.logger.Warnf(ctx, "[Reconciler] broadcast failed: order_id=%s, err=%v", order.ID, err)
		return outcomePersisted, nil
	}

	r.logger.Infof(ctx, "[Reconciler] order broadcasted: order_id=%s, new_items=%d", order.ID, len(newKeys))
	return outcomeBroadcast, nil
}

// freshItems 将上游行明细转换为本地行明细，应用忽略名单
func (r *Reconciler) freshItems(order model.RemoteOrder) []model.Item {
	items := make([]model.Item, 0, len(order.Items))
	for _, raw := range order.Items {
		if _, skip := r.ignored[strings.ToLower(raw.Name)]; skip {
			continue
		}
		items = append(items, model.Item{
			ID:   raw.ID,
			Name: raw.Name,
		})
	}
	return items
}

// newItemNames 取出本周期新增行明细的名称（按出现顺序）
func (r *Reconciler) newItemNames(fresh []model.Item, newKeys []string) []string {
	keySet := make(map[string]struct{}, len(newKeys))
	for _, key := range newKeys {
		keySet[key] = struct{}{}
	}

	names := make([]string, 0, len(newKeys))
	for _, item := range fresh {
		if _, ok := keySet[r.keyOf(item)]; ok {
			names = append(names, item.Name)
			delete(keySet, r.keyOf(item))
		}
	}
	return names
}

// timeNow 当前时间（测试可注入）
func (r *Reconciler) timeNow() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
