package vault

import (
	"fmt"
	"sync"
	"time"

	// 基础设施
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/event"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/storage"

	// 配置
	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"
)

// ============================================================================
// 订单金库（Order Vault）
// ============================================================================
//
// 🎯 **专门职责**：
// 托管加密订单负载：路由钩子写入一次，授权操作者恰好读取一次，
// 过期后任何人可标记过期。账本中只保留VaultRecord元数据，
// 密文本体走CiphertextStore（内存或BadgerDB）。
//
// 🏗️ **并发纪律**：
// 每个公开操作在单一互斥锁内整体提交或整体失败，操作内部
// 不阻塞不挂起；事件只在状态提交后发布。
//
// ⚠️ **不变式**：
// - retrieved与expired互斥且终态，置位后记录不再变更
// - 取回仅当 !retrieved && !expired && now <= deadline
// - 活跃索引与反查map在swap-remove下保持一致
//
// ============================================================================

// 金库事件类型
const (
	// EventStored 订单入库
	EventStored event.EventType = "vault.stored"

	// EventRetrieved 密文被取回
	EventRetrieved event.EventType = "vault.retrieved"

	// EventExpired 订单过期
	EventExpired event.EventType = "vault.expired"
)

// Record 金库记录（元数据，不含密文）
type Record struct {
	OrderID   OrderID // 订单ID
	Owner     string  // 所有者（trader身份）
	Deadline  int64   // 截止时间（Unix秒）
	Retrieved bool    // 终态：已被取回
	Expired   bool    // 终态：已过期
}

// StoredEvent 入库事件负载
type StoredEvent struct {
	OrderID  OrderID
	Owner    string
	Deadline int64
}

// RetrievedEvent 取回事件负载
type RetrievedEvent struct {
	OrderID  OrderID
	Operator string
}

// ExpiredEvent 过期事件负载
type ExpiredEvent struct {
	OrderID OrderID
	Caller  string
}

// Vault 订单金库
type Vault struct {
	logger  log.Logger
	options *darkpoolcfg.Options
	store   storage.CiphertextStore
	bus     event.EventBus
	metrics *Metrics

	mu        sync.Mutex
	records   map[OrderID]*Record
	active    *activeIndex
	operators map[string]bool

	// now 可注入的时钟，测试用
	now func() time.Time
}

// New 创建订单金库
func New(
	logger log.Logger,
	options *darkpoolcfg.Options,
	store storage.CiphertextStore,
	bus event.EventBus,
	metrics *Metrics,
) *Vault {
	return &Vault{
		logger:    logger,
		options:   options,
		store:     store,
		bus:       bus,
		metrics:   metrics,
		records:   make(map[OrderID]*Record),
		active:    newActiveIndex(),
		operators: make(map[string]bool),
		now:       time.Now,
	}
}

// AuthorizeOperator 授权操作者身份（允许取回密文）
func (v *Vault) AuthorizeOperator(operator string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.operators[operator] = true
}

// Store 存入加密订单
//
// 截止时间必须满足 MIN_LIFETIME < deadline-now <= MAX_LIFETIME。
// 任何校验失败都不留痕迹；密文写入失败时元数据回滚。
func (v *Vault) Store(orderID OrderID, owner string, ciphertext []byte, deadline int64) error {
	if orderID == (OrderID{}) {
		return ErrInvalidID
	}
	if owner == "" {
		return ErrInvalidOwner
	}
	if len(ciphertext) == 0 {
		return ErrEmptyPayload
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now().Unix()
	minLifetime := v.options.MinLifetimeSeconds
	maxLifetime := v.options.MaxLifetimeSeconds
	lifetime := deadline - now
	if lifetime <= minLifetime || lifetime > maxLifetime {
		return WrapInvalidDeadlineError(deadline, now, minLifetime, maxLifetime)
	}

	if _, exists := v.records[orderID]; exists {
		return fmt.Errorf("%w: orderID=%x", ErrAlreadyExists, orderID)
	}

	if err := v.store.Put(orderID[:], ciphertext); err != nil {
		return fmt.Errorf("密文写入失败: %w", err)
	}

	v.records[orderID] = &Record{
		OrderID:  orderID,
		Owner:    owner,
		Deadline: deadline,
	}
	v.active.add(orderID)

	if v.metrics != nil {
		v.metrics.StoredTotal.Inc()
		v.metrics.ActiveOrders.Set(float64(v.active.len()))
	}
	if v.bus != nil {
		v.bus.Publish(EventStored, &StoredEvent{OrderID: orderID, Owner: owner, Deadline: deadline})
	}
	if v.logger != nil {
		v.logger.Debugf("订单入库: orderID=%x, owner=%s, deadline=%d", orderID, owner, deadline)
	}

	return nil
}

// Retrieve 取回密文（授权操作者，至多一次）
//
// 成功后密文从存储中删除，记录进入retrieved终态并退出活跃索引。
func (v *Vault) Retrieve(orderID OrderID, operator string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.operators[operator] {
		return nil, fmt.Errorf("%w: operator=%s", ErrUnauthorized, operator)
	}

	record, exists := v.records[orderID]
	if !exists {
		return nil, fmt.Errorf("%w: orderID=%x", ErrNotFound, orderID)
	}
	if record.Retrieved {
		return nil, fmt.Errorf("%w: orderID=%x", ErrAlreadyRetrieved, orderID)
	}
	if record.Expired {
		return nil, fmt.Errorf("%w: orderID=%x", ErrAlreadyExpired, orderID)
	}
	if v.now().Unix() > record.Deadline {
		return nil, fmt.Errorf("%w: orderID=%x", ErrDeadlinePassed, orderID)
	}

	// 先读密文再变更状态，读失败时记录保持可取回
	ciphertext, err := v.store.Get(orderID[:])
	if err != nil {
		return nil, fmt.Errorf("密文读取失败: orderID=%x, %w", orderID, err)
	}

	record.Retrieved = true
	v.active.remove(orderID)

	// 读后即删，存储层不保留已交付的密文
	if err := v.store.Delete(orderID[:]); err != nil && v.logger != nil {
		v.logger.Warnf("已取回密文删除失败: orderID=%x, err=%v", orderID, err)
	}

	if v.metrics != nil {
		v.metrics.RetrievedTotal.Inc()
		v.metrics.ActiveOrders.Set(float64(v.active.len()))
	}
	if v.bus != nil {
		v.bus.Publish(EventRetrieved, &RetrievedEvent{OrderID: orderID, Operator: operator})
	}

	return ciphertext, nil
}

// Expire 标记订单过期
//
// 截止时间已过时任何人可调用；所有者或授权操作者可随时调用。
func (v *Vault) Expire(orderID OrderID, caller string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expireLocked(orderID, caller)
}

func (v *Vault) expireLocked(orderID OrderID, caller string) error {
	record, exists := v.records[orderID]
	if !exists {
		return fmt.Errorf("%w: orderID=%x", ErrNotFound, orderID)
	}
	if record.Expired {
		return fmt.Errorf("%w: orderID=%x", ErrAlreadyExpired, orderID)
	}
	if record.Retrieved {
		return fmt.Errorf("%w: orderID=%x", ErrAlreadyRetrieved, orderID)
	}

	deadlinePassed := v.now().Unix() > record.Deadline
	authorized := caller == record.Owner || v.operators[caller]
	if !deadlinePassed && !authorized {
		return fmt.Errorf("%w: caller=%s", ErrUnauthorized, caller)
	}

	record.Expired = true
	v.active.remove(orderID)

	if err := v.store.Delete(orderID[:]); err != nil && v.logger != nil {
		v.logger.Warnf("过期密文删除失败: orderID=%x, err=%v", orderID, err)
	}

	if v.metrics != nil {
		v.metrics.ExpiredTotal.Inc()
		v.metrics.ActiveOrders.Set(float64(v.active.len()))
	}
	if v.bus != nil {
		v.bus.Publish(EventExpired, &ExpiredEvent{OrderID: orderID, Caller: caller})
	}

	return nil
}

// CleanupExpired 批量清理过期订单
//
// 扫描活跃索引，最多过期maxCount条，返回实际过期数。
// maxCount限制单次调用的工作量。
func (v *Vault) CleanupExpired(maxCount int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if maxCount <= 0 {
		return 0
	}

	now := v.now().Unix()

	// 先收集再过期：expireLocked会swap-remove活跃索引，边扫边删会漏项
	overdue := make([]OrderID, 0, maxCount)
	for i := 0; i < v.active.len() && len(overdue) < maxCount; i++ {
		id := v.active.at(i)
		if record := v.records[id]; record != nil && now > record.Deadline {
			overdue = append(overdue, id)
		}
	}

	expired := 0
	for _, id := range overdue {
		if err := v.expireLocked(id, "cleanup"); err == nil {
			expired++
		}
	}

	return expired
}

// IsValid 查询记录是否存在且仍可取回
func (v *Vault) IsValid(orderID OrderID) (exists bool, valid bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	record, ok := v.records[orderID]
	if !ok {
		return false, false
	}
	valid = !record.Retrieved && !record.Expired && v.now().Unix() <= record.Deadline
	return true, valid
}

// GetRecord 读取记录副本（不含密文）
func (v *Vault) GetRecord(orderID OrderID) (Record, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	record, ok := v.records[orderID]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// ActiveCount 当前活跃订单数
func (v *Vault) ActiveCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active.len()
}
