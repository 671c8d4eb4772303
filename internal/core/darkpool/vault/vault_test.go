package vault

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"
	"github.com/veilmatch/v1/internal/core/infrastructure/log"
	"github.com/veilmatch/v1/internal/core/infrastructure/storage/memory"
)

// ============================================================================
// 订单金库测试
// ============================================================================
//
// 🎯 **测试目的**：
// - 存入/取回/过期的完整状态机与全部错误路径
// - 取回至多一次（含并发竞争）
// - 终态互斥：retrieved与expired置位后记录不再变更
// - 批量清理受maxCount约束
//
// ============================================================================

// testClock 可推进的测试时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestVault 构建内存存储的金库与可控时钟
func newTestVault(t *testing.T) (*Vault, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	options := darkpoolcfg.New(nil).GetOptions()
	v := New(log.GetLogger(), options, memory.New(), nil, NewMetrics(nil))
	v.now = clock.Now
	v.AuthorizeOperator("operator-a")
	return v, clock
}

// validDeadline 存续窗口内的截止时间
func validDeadline(clock *testClock) int64 {
	return clock.Now().Unix() + 3600
}

func TestVault_StoreAndIsValid(t *testing.T) {
	v, clock := newTestVault(t)

	orderID := idOf(1)
	require.NoError(t, v.Store(orderID, "trader-1", []byte("ciphertext"), validDeadline(clock)))

	exists, valid := v.IsValid(orderID)
	require.True(t, exists)
	require.True(t, valid)
	require.Equal(t, 1, v.ActiveCount())
}

func TestVault_StoreValidation(t *testing.T) {
	v, clock := newTestVault(t)
	deadline := validDeadline(clock)

	require.ErrorIs(t, v.Store(OrderID{}, "trader-1", []byte("x"), deadline), ErrInvalidID)
	require.ErrorIs(t, v.Store(idOf(1), "", []byte("x"), deadline), ErrInvalidOwner)
	require.ErrorIs(t, v.Store(idOf(1), "trader-1", nil, deadline), ErrEmptyPayload)

	now := clock.Now().Unix()
	// 恰好等于最短存续时间也不行（必须严格大于）
	minEdge := now + v.options.MinLifetimeSeconds
	require.ErrorIs(t, v.Store(idOf(1), "trader-1", []byte("x"), minEdge), ErrInvalidDeadline)
	// 超过最长存续时间
	tooFar := now + v.options.MaxLifetimeSeconds + 1
	require.ErrorIs(t, v.Store(idOf(1), "trader-1", []byte("x"), tooFar), ErrInvalidDeadline)
	// 恰好等于最长存续时间是合法边界
	require.NoError(t, v.Store(idOf(1), "trader-1", []byte("x"), now+v.options.MaxLifetimeSeconds))

	// 校验失败不留痕迹
	exists, _ := v.IsValid(idOf(2))
	require.False(t, exists)
}

func TestVault_StoreDuplicate(t *testing.T) {
	v, clock := newTestVault(t)
	deadline := validDeadline(clock)

	require.NoError(t, v.Store(idOf(1), "trader-1", []byte("x"), deadline))
	require.ErrorIs(t, v.Store(idOf(1), "trader-2", []byte("y"), deadline), ErrAlreadyExists)
}

func TestVault_RetrieveOnce(t *testing.T) {
	v, clock := newTestVault(t)

	orderID := idOf(1)
	require.NoError(t, v.Store(orderID, "trader-1", []byte("secret-order"), validDeadline(clock)))

	ciphertext, err := v.Retrieve(orderID, "operator-a")
	require.NoError(t, err)
	require.Equal(t, []byte("secret-order"), ciphertext)
	require.Equal(t, 0, v.ActiveCount())

	// 第二次取回被拒绝
	_, err = v.Retrieve(orderID, "operator-a")
	require.ErrorIs(t, err, ErrAlreadyRetrieved)

	// 取回后不再valid，但记录保留（可审计）
	exists, valid := v.IsValid(orderID)
	require.True(t, exists)
	require.False(t, valid)
}

func TestVault_RetrieveErrors(t *testing.T) {
	v, clock := newTestVault(t)
	orderID := idOf(1)
	require.NoError(t, v.Store(orderID, "trader-1", []byte("x"), validDeadline(clock)))

	// 未授权操作者
	_, err := v.Retrieve(orderID, "stranger")
	require.ErrorIs(t, err, ErrUnauthorized)

	// 不存在的订单
	_, err = v.Retrieve(idOf(9), "operator-a")
	require.ErrorIs(t, err, ErrNotFound)

	// 截止时间已过
	clock.Advance(2 * time.Hour)
	_, err = v.Retrieve(orderID, "operator-a")
	require.ErrorIs(t, err, ErrDeadlinePassed)
}

// TestVault_ConcurrentRetrieve 并发取回恰好一个成功
func TestVault_ConcurrentRetrieve(t *testing.T) {
	v, clock := newTestVault(t)
	orderID := idOf(1)
	require.NoError(t, v.Store(orderID, "trader-1", []byte("x"), validDeadline(clock)))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = v.Retrieve(orderID, "operator-a")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, ErrAlreadyRetrieved)
		}
	}
	require.Equal(t, 1, successes)
}

func TestVault_ExpireByOwner(t *testing.T) {
	v, clock := newTestVault(t)
	orderID := idOf(1)
	require.NoError(t, v.Store(orderID, "trader-1", []byte("x"), validDeadline(clock)))

	// 截止前：陌生人不能过期，所有者可以
	require.ErrorIs(t, v.Expire(orderID, "stranger"), ErrUnauthorized)
	require.NoError(t, v.Expire(orderID, "trader-1"))
	require.ErrorIs(t, v.Expire(orderID, "trader-1"), ErrAlreadyExpired)

	// 过期后不能取回
	_, err := v.Retrieve(orderID, "operator-a")
	require.ErrorIs(t, err, ErrAlreadyExpired)
}

func TestVault_ExpireAfterDeadlineByAnyone(t *testing.T) {
	v, clock := newTestVault(t)
	orderID := idOf(1)
	require.NoError(t, v.Store(orderID, "trader-1", []byte("x"), validDeadline(clock)))

	clock.Advance(2 * time.Hour)
	require.NoError(t, v.Expire(orderID, "anyone"))
}

func TestVault_ExpireAfterRetrieve(t *testing.T) {
	v, clock := newTestVault(t)
	orderID := idOf(1)
	require.NoError(t, v.Store(orderID, "trader-1", []byte("x"), validDeadline(clock)))

	_, err := v.Retrieve(orderID, "operator-a")
	require.NoError(t, err)

	// 终态互斥：已取回的记录不能再过期
	require.ErrorIs(t, v.Expire(orderID, "trader-1"), ErrAlreadyRetrieved)
}

func TestVault_ExpireNotFound(t *testing.T) {
	v, _ := newTestVault(t)
	require.ErrorIs(t, v.Expire(idOf(9), "anyone"), ErrNotFound)
}

func TestVault_CleanupExpired(t *testing.T) {
	v, clock := newTestVault(t)
	deadline := validDeadline(clock)

	for i := byte(1); i <= 3; i++ {
		require.NoError(t, v.Store(idOf(i), "trader-1", []byte("x"), deadline))
	}
	// 第4单截止时间更晚，不应被清理
	require.NoError(t, v.Store(idOf(4), "trader-1", []byte("x"), deadline+7200))

	clock.Advance(time.Duration(deadline-clock.Now().Unix()+1) * time.Second)

	// maxCount限制单次清理量
	require.Equal(t, 2, v.CleanupExpired(2))
	require.Equal(t, 1, v.CleanupExpired(10))
	require.Equal(t, 0, v.CleanupExpired(10))
	require.Equal(t, 1, v.ActiveCount())

	exists, valid := v.IsValid(idOf(4))
	require.True(t, exists)
	require.True(t, valid)
}
