package lifecycle

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"
	"github.com/veilmatch/v1/internal/core/darkpool/vault"
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof"
	hashsvc "github.com/veilmatch/v1/internal/core/infrastructure/crypto/hash"
	"github.com/veilmatch/v1/internal/core/infrastructure/log"
	"github.com/veilmatch/v1/internal/core/infrastructure/storage/memory"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/crypto"
)

// ============================================================================
// 生命周期引擎测试（路由/阈值/回退）
// ============================================================================

const testAdmin = "admin"

// testClock 可推进的测试时钟
//
// 初始值取真实时间：金库与验证引擎使用真实时钟，
// 两侧对截止时间的判定需要大致一致。
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

type testHarness struct {
	engine *Engine
	vault  *vault.Vault
	prover *zkproof.Prover
	hash   crypto.HashManager
	clock  *testClock
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	clock := &testClock{now: time.Now()}
	logger := log.GetLogger()
	options := darkpoolcfg.New(&darkpoolcfg.Options{
		MaxBatchOrders: 2,
		ProvingScheme:  "groth16",
		Curve:          "bls12-377",
	}).GetOptions()

	hashManager := hashsvc.NewHashService()
	manager := zkproof.NewCircuitManager(logger, options, hashManager)
	orderVault := vault.New(logger, options, memory.New(), nil, vault.NewMetrics(nil))
	engine := NewEngine(
		logger, options, orderVault,
		zkproof.NewVerifier(logger, options, manager),
		hashManager, nil, NewMetrics(nil), testAdmin,
	)
	engine.now = clock.Now

	return &testHarness{
		engine: engine,
		vault:  orderVault,
		prover: zkproof.NewProver(logger, manager),
		hash:   hashManager,
		clock:  clock,
	}
}

func commitmentOf(b byte) [32]byte {
	var c [32]byte
	for i := range c {
		c[i] = b
	}
	return c
}

func testPool() PoolContext {
	return PoolContext{Identity: "pool-1", Liquidity: 1_000_000}
}

// route 用默认参数路由一笔大额订单
func (h *testHarness) route(t *testing.T, trader string, commitment [32]byte) vault.OrderID {
	t.Helper()
	orderID, err := h.engine.RouteToVault(
		trader, testPool(), SideBuy, 100_000,
		commitment, h.clock.Now().Unix()+3600, []byte("encrypted-order"),
	)
	require.NoError(t, err)
	return orderID
}

func encodeHookData(commitment [32]byte, deadline int64, ciphertext []byte) []byte {
	buf := make([]byte, 0, 40+len(ciphertext))
	buf = append(buf, commitment[:]...)
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], uint64(deadline))
	buf = append(buf, scratch[:]...)
	return append(buf, ciphertext...)
}

func TestDecodeHookData(t *testing.T) {
	commitment := commitmentOf(9)
	decoded, err := DecodeHookData(encodeHookData(commitment, 12345, []byte("payload")))
	require.NoError(t, err)
	require.Equal(t, commitment, decoded.Commitment)
	require.Equal(t, int64(12345), decoded.Deadline)
	require.Equal(t, []byte("payload"), decoded.Ciphertext)

	// 长度不足（缺负载）
	_, err = DecodeHookData(encodeHookData(commitment, 12345, nil))
	require.ErrorIs(t, err, ErrHookDataTooShort)

	// 时间戳溢出int64
	overflow := encodeHookData(commitment, 0, []byte("x"))
	overflow[32] = 0xff
	_, err = DecodeHookData(overflow)
	require.ErrorIs(t, err, ErrInvalidDeadline)
}

// TestEngine_IsLargeOrder_Boundary 阈值边界含等号
func TestEngine_IsLargeOrder_Boundary(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.engine.SetDefaultThreshold(testAdmin, 10))

	pool := testPool()
	// 1000*10000 == 1,000,000*10，边界恰好算大额
	require.True(t, h.engine.IsLargeOrder(1000, pool))
	require.False(t, h.engine.IsLargeOrder(999, pool))
	// 符号只编码方向，判定用绝对值
	require.True(t, h.engine.IsLargeOrder(-1000, pool))
}

func TestEngine_PoolThresholdOverride(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.engine.SetDefaultThreshold(testAdmin, 10))
	require.NoError(t, h.engine.SetPoolThreshold(testAdmin, "pool-2", 100))

	// pool-2走覆盖阈值，pool-1走默认
	require.True(t, h.engine.IsLargeOrder(1000, testPool()))
	require.False(t, h.engine.IsLargeOrder(1000, PoolContext{Identity: "pool-2", Liquidity: 1_000_000}))
	require.True(t, h.engine.IsLargeOrder(10_000, PoolContext{Identity: "pool-2", Liquidity: 1_000_000}))
}

func TestEngine_ThresholdAdminGate(t *testing.T) {
	h := newTestHarness(t)

	require.ErrorIs(t, h.engine.SetDefaultThreshold("stranger", 10), ErrUnauthorized)
	require.ErrorIs(t, h.engine.SetPoolThreshold("stranger", "pool-1", 10), ErrUnauthorized)
	require.ErrorIs(t, h.engine.SetDefaultThreshold(testAdmin, 10_001), ErrInvalidThreshold)
	require.ErrorIs(t, h.engine.SetPoolThreshold(testAdmin, "", 10), ErrInvalidPool)
}

func TestEngine_RouteToVault_ThenValid(t *testing.T) {
	h := newTestHarness(t)

	orderID := h.route(t, "trader-1", commitmentOf(1))

	exists, valid := h.vault.IsValid(orderID)
	require.True(t, exists)
	require.True(t, valid)

	order, ok := h.engine.GetOrder(orderID)
	require.True(t, ok)
	require.Equal(t, "trader-1", order.Trader)
	require.Equal(t, "pool-1", order.Pool)
	require.Equal(t, uint64(100_000), order.Amount)
	require.False(t, order.Executed)
	require.Equal(t, PoolBindingOf(h.hash, "pool-1"), order.PoolBinding)

	// 序号递增：完全相同的参数也得到不同ID
	other := h.route(t, "trader-1", commitmentOf(2))
	require.NotEqual(t, orderID, other)
}

func TestEngine_RouteToVault_Validation(t *testing.T) {
	h := newTestHarness(t)
	deadline := h.clock.Now().Unix() + 3600

	_, err := h.engine.RouteToVault("", testPool(), SideBuy, 100_000, commitmentOf(1), deadline, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidTrader)

	_, err = h.engine.RouteToVault("trader-1", PoolContext{}, SideBuy, 100_000, commitmentOf(1), deadline, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidPool)

	// 存续时间恰好等于下限不合法（必须严格大于）
	now := h.clock.Now().Unix()
	_, err = h.engine.RouteToVault("trader-1", testPool(), SideBuy, 100_000, commitmentOf(1), now+60, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidDeadline)

	_, err = h.engine.RouteToVault("trader-1", testPool(), SideBuy, 100_000, commitmentOf(1), now+25*3600, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidDeadline)

	// 校验失败不消耗承诺
	require.False(t, h.engine.IsCommitmentUsed(commitmentOf(1)))
}

// TestEngine_CommitmentReuse 承诺重用与交易者、数量无关
func TestEngine_CommitmentReuse(t *testing.T) {
	h := newTestHarness(t)
	commitment := commitmentOf(1)
	deadline := h.clock.Now().Unix() + 3600

	h.route(t, "trader-1", commitment)
	require.True(t, h.engine.IsCommitmentUsed(commitment))

	_, err := h.engine.RouteToVault("trader-2", testPool(), SideSell, 50_000, commitment, deadline, []byte("y"))
	require.ErrorIs(t, err, ErrCommitmentReused)
}

func TestEngine_Submit(t *testing.T) {
	h := newTestHarness(t)
	deadline := h.clock.Now().Unix() + 3600
	hookData := encodeHookData(commitmentOf(1), deadline, []byte("encrypted"))

	// 未达门槛：不进入状态机，无错误
	_, routed, err := h.engine.Submit("trader-1", testPool(), SideBuy, 1, hookData)
	require.NoError(t, err)
	require.False(t, routed)
	require.Equal(t, 0, h.engine.OrderCount())

	// 达到门槛：解码并入库
	orderID, routed, err := h.engine.Submit("trader-1", testPool(), SideBuy, 100_000, hookData)
	require.NoError(t, err)
	require.True(t, routed)

	order, ok := h.engine.GetOrder(orderID)
	require.True(t, ok)
	require.Equal(t, commitmentOf(1), order.Commitment)
	require.Equal(t, deadline, order.Deadline)

	// 路由数据畸形
	_, _, err = h.engine.Submit("trader-1", testPool(), SideBuy, 100_000, []byte("short"))
	require.ErrorIs(t, err, ErrHookDataTooShort)
}

func TestEngine_Fallback_TraderPreDeadline(t *testing.T) {
	h := newTestHarness(t)
	orderID := h.route(t, "trader-1", commitmentOf(1))

	require.NoError(t, h.engine.FallbackToAMM(orderID, "trader-1"))

	order, _ := h.engine.GetOrder(orderID)
	require.True(t, order.Executed)
	require.Equal(t, FallbackTraderRequested, order.FallbackReason)

	// 金库密文随之作废
	exists, valid := h.vault.IsValid(orderID)
	require.True(t, exists)
	require.False(t, valid)

	// 终态幂等
	require.ErrorIs(t, h.engine.FallbackToAMM(orderID, "trader-1"), ErrAlreadyExecuted)
	require.ErrorIs(t, h.engine.FallbackToAMM(orderID, "anyone"), ErrAlreadyExecuted)
}

func TestEngine_Fallback_StrangerPreDeadline(t *testing.T) {
	h := newTestHarness(t)
	orderID := h.route(t, "trader-1", commitmentOf(1))

	require.ErrorIs(t, h.engine.FallbackToAMM(orderID, "stranger"), ErrNotYetEligible)

	// 失败不改变状态
	order, _ := h.engine.GetOrder(orderID)
	require.False(t, order.Executed)
}

func TestEngine_Fallback_AfterDeadline(t *testing.T) {
	h := newTestHarness(t)
	orderID := h.route(t, "trader-1", commitmentOf(1))

	h.clock.Advance(2 * time.Hour)

	// 超时后任何人可触发，原因固定记录
	require.NoError(t, h.engine.FallbackToAMM(orderID, "stranger"))
	order, _ := h.engine.GetOrder(orderID)
	require.Equal(t, FallbackDeadlineExceeded, order.FallbackReason)

	require.ErrorIs(t, h.engine.FallbackToAMM(orderID, "anyone"), ErrAlreadyExecuted)
}

func TestEngine_Fallback_NotFound(t *testing.T) {
	h := newTestHarness(t)
	require.ErrorIs(t, h.engine.FallbackToAMM(vault.OrderID{0xaa}, "anyone"), ErrNotFound)
}
