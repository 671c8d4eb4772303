// Package lifecycle 实现订单生命周期状态机
//
// 🎯 **专门职责**：
// - 大额订单判定（基点阈值，按池覆盖默认值）
// - 入库路由：承诺登记（全局、永久）、订单ID派生、金库托管
// - 证明执行：验证引擎放行后订单进入Executed终态
// - 回退执行：超时或授权方强制时进入回退终态
//
// 🏗️ **状态机**：
//
//	Created → Vaulted → { Executed(证明) | FallbackExecuted(回退) }
//
// ⚠️ **并发纪律**：
// - 单一互斥锁串行化全部账本变更，操作要么完整生效要么完整失败
// - 证明验证（纯计算）在锁外进行，提交前重查executed守卫
// - 先提交者胜出：第二个提交者得到 ErrAlreadyExecuted，字段无任何变更
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"
	"github.com/veilmatch/v1/internal/core/darkpool/vault"
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/event"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"
)

// Engine 订单生命周期引擎
type Engine struct {
	logger      log.Logger
	options     *darkpoolcfg.Options
	vault       *vault.Vault
	verifier    *zkproof.Verifier
	hashManager crypto.HashManager
	bus         event.EventBus
	metrics     *Metrics

	mu                  sync.Mutex
	orders              map[vault.OrderID]*Order
	usedCommitments     map[[32]byte]bool
	nonces              map[string]uint64
	poolThresholds      map[string]uint64
	defaultThresholdBps uint64
	coordinators        map[string]*secp256k1.PublicKey
	admin               string

	// now 可注入的时钟，测试用
	now func() time.Time
}

// NewEngine 创建生命周期引擎
//
// admin是唯一可以调整阈值、注册协调者的管理身份。
func NewEngine(
	logger log.Logger,
	options *darkpoolcfg.Options,
	orderVault *vault.Vault,
	verifier *zkproof.Verifier,
	hashManager crypto.HashManager,
	bus event.EventBus,
	metrics *Metrics,
	admin string,
) *Engine {
	return &Engine{
		logger:              logger,
		options:             options,
		vault:               orderVault,
		verifier:            verifier,
		hashManager:         hashManager,
		bus:                 bus,
		metrics:             metrics,
		orders:              make(map[vault.OrderID]*Order),
		usedCommitments:     make(map[[32]byte]bool),
		nonces:              make(map[string]uint64),
		poolThresholds:      make(map[string]uint64),
		defaultThresholdBps: options.DefaultThresholdBps,
		coordinators:        make(map[string]*secp256k1.PublicKey),
		admin:               admin,
		now:                 time.Now,
	}
}

// ============================================================================
// 管理操作
// ============================================================================

// RegisterCoordinator 注册协调者公钥（仅管理身份）
func (e *Engine) RegisterCoordinator(caller, identity string, pubKey *secp256k1.PublicKey) error {
	if caller != e.admin {
		return fmt.Errorf("%w: 仅管理身份可注册协调者: %s", ErrUnauthorized, caller)
	}
	if identity == "" || pubKey == nil {
		return fmt.Errorf("%w: 协调者身份或公钥为空", ErrInvalidSignatures)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.coordinators[identity] = pubKey
	// 协调者同时获得金库取回授权
	e.vault.AuthorizeOperator(identity)
	return nil
}

// SetDefaultThreshold 设置默认大额判定阈值（基点，仅管理身份）
func (e *Engine) SetDefaultThreshold(caller string, bps uint64) error {
	if caller != e.admin {
		return fmt.Errorf("%w: 仅管理身份可调整阈值: %s", ErrUnauthorized, caller)
	}
	if bps > darkpoolcfg.MaxThresholdBps {
		return WrapInvalidThresholdError(bps, darkpoolcfg.MaxThresholdBps)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultThresholdBps = bps
	return nil
}

// SetPoolThreshold 设置单个资金池的大额判定阈值（基点，仅管理身份）
func (e *Engine) SetPoolThreshold(caller, pool string, bps uint64) error {
	if caller != e.admin {
		return fmt.Errorf("%w: 仅管理身份可调整阈值: %s", ErrUnauthorized, caller)
	}
	if pool == "" {
		return ErrInvalidPool
	}
	if bps > darkpoolcfg.MaxThresholdBps {
		return WrapInvalidThresholdError(bps, darkpoolcfg.MaxThresholdBps)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.poolThresholds[pool] = bps
	return nil
}

// ============================================================================
// 大额判定
// ============================================================================

// IsLargeOrder 判定订单是否达到入池门槛
//
// 边界含等号：|amount| * 10000 >= liquidity * thresholdBps 即算大额。
// 乘法在big.Int上进行，流动性参考值接近uint64上限也不会溢出。
func (e *Engine) IsLargeOrder(signedAmount int64, pool PoolContext) bool {
	e.mu.Lock()
	bps := e.thresholdLocked(pool.Identity)
	e.mu.Unlock()

	scaled := new(big.Int).SetUint64(amountMagnitude(signedAmount))
	scaled.Mul(scaled, big.NewInt(darkpoolcfg.MaxThresholdBps))

	reference := new(big.Int).SetUint64(pool.Liquidity)
	reference.Mul(reference, new(big.Int).SetUint64(bps))

	return scaled.Cmp(reference) >= 0
}

func (e *Engine) thresholdLocked(pool string) uint64 {
	if bps, ok := e.poolThresholds[pool]; ok {
		return bps
	}
	return e.defaultThresholdBps
}

// ============================================================================
// 入库路由
// ============================================================================

// Submit 路由层入口
//
// 解码路由数据并做大额判定；未达门槛的订单不进入状态机，
// 返回 routed=false，由路由层直接执行。
func (e *Engine) Submit(trader string, pool PoolContext, side uint8, signedAmount int64, hookData []byte) (vault.OrderID, bool, error) {
	if !e.IsLargeOrder(signedAmount, pool) {
		return vault.OrderID{}, false, nil
	}

	decoded, err := DecodeHookData(hookData)
	if err != nil {
		return vault.OrderID{}, false, err
	}

	orderID, err := e.RouteToVault(trader, pool, side, signedAmount, decoded.Commitment, decoded.Deadline, decoded.Ciphertext)
	if err != nil {
		return vault.OrderID{}, false, err
	}
	return orderID, true, nil
}

// RouteToVault 将大额订单路由进金库
//
// 承诺标记是全局且永久的：同一承诺第二次提交必然失败，
// 与交易者和数量无关。金库写入失败时回滚承诺标记与序号。
func (e *Engine) RouteToVault(
	trader string,
	pool PoolContext,
	side uint8,
	signedAmount int64,
	commitment [32]byte,
	deadline int64,
	ciphertext []byte,
) (vault.OrderID, error) {
	if trader == "" {
		return vault.OrderID{}, ErrInvalidTrader
	}
	if pool.Identity == "" {
		return vault.OrderID{}, ErrInvalidPool
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().Unix()
	lifetime := deadline - now
	if lifetime <= e.options.MinLifetimeSeconds || lifetime > e.options.MaxLifetimeSeconds {
		return vault.OrderID{}, WrapInvalidDeadlineError(deadline, now, e.options.MinLifetimeSeconds, e.options.MaxLifetimeSeconds)
	}

	if e.usedCommitments[commitment] {
		return vault.OrderID{}, WrapCommitmentReusedError(commitment)
	}

	amount := amountMagnitude(signedAmount)
	nonce := e.nonces[trader]
	orderID := deriveOrderID(e.hashManager, trader, pool.Identity, side, amount, nonce)

	e.usedCommitments[commitment] = true
	e.nonces[trader] = nonce + 1

	if err := e.vault.Store(orderID, trader, ciphertext, deadline); err != nil {
		// 回滚：承诺标记与序号恢复原状
		delete(e.usedCommitments, commitment)
		e.nonces[trader] = nonce
		return vault.OrderID{}, fmt.Errorf("金库托管失败: %w", err)
	}

	e.orders[orderID] = &Order{
		ID:          orderID,
		Trader:      trader,
		Pool:        pool.Identity,
		PoolBinding: PoolBindingOf(e.hashManager, pool.Identity),
		Side:        side,
		Amount:      amount,
		Commitment:  commitment,
		Deadline:    deadline,
		Nonce:       nonce,
	}

	if e.metrics != nil {
		e.metrics.RoutedTotal.Inc()
	}
	if e.bus != nil {
		e.bus.Publish(EventRouted, &RoutedEvent{
			OrderID:  orderID,
			Trader:   trader,
			Pool:     pool.Identity,
			Side:     side,
			Amount:   amount,
			Deadline: deadline,
		})
	}
	if e.logger != nil {
		e.logger.Infof("订单入库路由: orderID=%x, trader=%s, pool=%s, deadline=%d", orderID, trader, pool.Identity, deadline)
	}

	return orderID, nil
}

// ============================================================================
// 证明执行
// ============================================================================

// ExecuteMatchedOrder 凭撮合证明执行订单
//
// 检查顺序：存在性 → 终态守卫 → 截止时间 → 协调者授权 → 证明验证。
// 证明验证在锁外进行；提交前重查executed守卫，先提交者胜出。
// 任何失败路径下订单字段不发生可观察变更。
func (e *Engine) ExecuteMatchedOrder(ctx context.Context, orderID vault.OrderID, envelope *zkproof.Envelope, auth *Authorization) error {
	poolBinding, err := e.beginExecution(orderID, auth)
	if err != nil {
		return err
	}

	verified, err := e.verifyForExecution(ctx, envelope, poolBinding)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RejectedProofs.Inc()
		}
		return err
	}

	return e.commitExecution(orderID, verified)
}

// beginExecution 锁内前置检查，返回订单的资金池绑定
func (e *Engine) beginExecution(orderID vault.OrderID, auth *Authorization) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return nil, WrapNotFoundError(orderID)
	}
	if order.Executed {
		return nil, fmt.Errorf("%w: orderID=%x", ErrAlreadyExecuted, orderID)
	}
	if e.now().Unix() > order.Deadline {
		return nil, fmt.Errorf("%w: orderID=%x, deadline=%d", ErrDeadlinePassed, orderID, order.Deadline)
	}
	if err := verifyAuthorization(e.coordinators, orderID, auth); err != nil {
		return nil, err
	}
	return order.PoolBinding, nil
}

// verifyForExecution 对执行路径的证明验证（锁外，纯计算）
func (e *Engine) verifyForExecution(ctx context.Context, envelope *zkproof.Envelope, poolBinding *big.Int) (*zkproof.VerifiedMatch, error) {
	if envelope == nil || envelope.Kind != zkproof.ProofKindMatch {
		return nil, fmt.Errorf("%w: 单笔执行需要撮合类证明", zkproof.ErrInvalidProof)
	}
	return e.verifier.VerifyMatch(ctx, envelope.Match, poolBinding)
}

// commitExecution 锁内提交终态
func (e *Engine) commitExecution(orderID vault.OrderID, verified *zkproof.VerifiedMatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return WrapNotFoundError(orderID)
	}
	// 验证期间可能有回退或另一份证明抢先提交
	if order.Executed {
		return fmt.Errorf("%w: orderID=%x", ErrAlreadyExecuted, orderID)
	}

	order.Executed = true
	order.MatchHash = verified.MatchHash
	order.ExecutionPrice = verified.ExecutionPrice
	order.TotalVolume = verified.TotalVolume
	order.ExecutedAt = e.now().Unix()

	if e.metrics != nil {
		e.metrics.ExecutedTotal.Inc()
	}
	if e.bus != nil {
		e.bus.Publish(EventExecuted, &ExecutedEvent{
			OrderID:        orderID,
			Pool:           order.Pool,
			MatchHash:      verified.MatchHash,
			ExecutionPrice: verified.ExecutionPrice,
			TotalVolume:    verified.TotalVolume,
			Operators:      verified.Operators,
		})
	}
	if e.logger != nil {
		e.logger.Infof("订单证明执行: orderID=%x, price=%s, volume=%s", orderID, verified.ExecutionPrice, verified.TotalVolume)
	}

	return nil
}

// ExecuteBatch 凭批量证明一次执行多笔订单
//
// orderIDs[i] 与 proof.Members[i] 一一对应；全部订单必须属于
// 同一资金池。整体原子：任一订单不可执行则全部不执行。
func (e *Engine) ExecuteBatch(ctx context.Context, orderIDs []vault.OrderID, proof *zkproof.BatchProof, auth *Authorization) error {
	if proof == nil || len(orderIDs) != len(proof.Members) {
		memberCount := 0
		if proof != nil {
			memberCount = len(proof.Members)
		}
		return fmt.Errorf("%w: 订单数=%d, 成员数=%d", ErrBatchSizeMismatch, len(orderIDs), memberCount)
	}

	poolBinding, err := e.beginBatchExecution(orderIDs, auth)
	if err != nil {
		return err
	}

	verified, err := e.verifier.VerifyBatch(ctx, proof, poolBinding)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RejectedProofs.Inc()
		}
		return err
	}

	return e.commitBatchExecution(orderIDs, verified)
}

// beginBatchExecution 批量执行的锁内前置检查
//
// 授权令牌签在批次摘要上：Keccak256(orderID_0 || ... || orderID_n)。
func (e *Engine) beginBatchExecution(orderIDs []vault.OrderID, auth *Authorization) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().Unix()
	var poolBinding *big.Int
	for _, orderID := range orderIDs {
		order, ok := e.orders[orderID]
		if !ok {
			return nil, WrapNotFoundError(orderID)
		}
		if order.Executed {
			return nil, fmt.Errorf("%w: orderID=%x", ErrAlreadyExecuted, orderID)
		}
		if now > order.Deadline {
			return nil, fmt.Errorf("%w: orderID=%x, deadline=%d", ErrDeadlinePassed, orderID, order.Deadline)
		}
		if poolBinding == nil {
			poolBinding = order.PoolBinding
		} else if poolBinding.Cmp(order.PoolBinding) != 0 {
			return nil, fmt.Errorf("%w: 批量订单跨越多个资金池", zkproof.ErrInvalidPublicInputs)
		}
	}

	if err := verifyAuthorization(e.coordinators, BatchDigest(e.hashManager, orderIDs), auth); err != nil {
		return nil, err
	}
	return poolBinding, nil
}

// commitBatchExecution 批量执行的锁内提交（全有或全无）
func (e *Engine) commitBatchExecution(orderIDs []vault.OrderID, verified *zkproof.VerifiedBatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// 先整体重查终态守卫，再落任何字段
	for _, orderID := range orderIDs {
		order, ok := e.orders[orderID]
		if !ok {
			return WrapNotFoundError(orderID)
		}
		if order.Executed {
			return fmt.Errorf("%w: orderID=%x", ErrAlreadyExecuted, orderID)
		}
	}

	executedAt := e.now().Unix()
	for i, orderID := range orderIDs {
		order := e.orders[orderID]
		match := verified.Matches[i]

		order.Executed = true
		order.MatchHash = match.MatchHash
		order.ExecutionPrice = match.ExecutionPrice
		order.TotalVolume = match.TotalVolume
		order.ExecutedAt = executedAt

		if e.metrics != nil {
			e.metrics.ExecutedTotal.Inc()
		}
		if e.bus != nil {
			e.bus.Publish(EventExecuted, &ExecutedEvent{
				OrderID:        orderID,
				Pool:           order.Pool,
				MatchHash:      match.MatchHash,
				ExecutionPrice: match.ExecutionPrice,
				TotalVolume:    match.TotalVolume,
				Operators:      match.Operators,
			})
		}
	}

	if e.logger != nil {
		e.logger.Infof("批量证明执行: 订单数=%d, batchHash=%s", len(orderIDs), verified.BatchHash)
	}
	return nil
}

// BatchDigest 批次授权摘要
func BatchDigest(hashManager crypto.HashManager, orderIDs []vault.OrderID) vault.OrderID {
	buf := make([]byte, 0, len(orderIDs)*32)
	for _, orderID := range orderIDs {
		buf = append(buf, orderID[:]...)
	}
	var digest vault.OrderID
	copy(digest[:], hashManager.Keccak256(buf))
	return digest
}

// ============================================================================
// 回退执行
// ============================================================================

// FallbackToAMM 将订单回退到普通执行路径
//
// 三条回退资格，按序判定并记录对应原因：
//  1. 截止时间已过（任何人可触发）→ "deadline exceeded"
//  2. 调用者是订单所有者 → "trader requested"
//  3. 调用者是注册协调者 → "coordinator forced"
func (e *Engine) FallbackToAMM(orderID vault.OrderID, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return WrapNotFoundError(orderID)
	}
	if order.Executed {
		return fmt.Errorf("%w: orderID=%x", ErrAlreadyExecuted, orderID)
	}

	var reason string
	switch {
	case e.now().Unix() > order.Deadline:
		reason = FallbackDeadlineExceeded
	case caller == order.Trader:
		reason = FallbackTraderRequested
	case e.coordinators[caller] != nil:
		reason = FallbackCoordinatorForced
	default:
		return fmt.Errorf("%w: orderID=%x, caller=%s", ErrNotYetEligible, orderID, caller)
	}

	order.Executed = true
	order.FallbackReason = reason
	order.ExecutedAt = e.now().Unix()

	// 金库侧密文随之作废，失败只记录不回滚（账本终态已提交）
	if err := e.vault.Expire(orderID, order.Trader); err != nil &&
		!errors.Is(err, vault.ErrAlreadyExpired) && !errors.Is(err, vault.ErrAlreadyRetrieved) {
		if e.logger != nil {
			e.logger.Warnf("回退后金库过期失败: orderID=%x, err=%v", orderID, err)
		}
	}

	if e.metrics != nil {
		e.metrics.FallbackTotal.Inc()
	}
	if e.bus != nil {
		e.bus.Publish(EventFallback, &FallbackEvent{
			OrderID: orderID,
			Pool:    order.Pool,
			Caller:  caller,
			Reason:  reason,
		})
	}
	if e.logger != nil {
		e.logger.Infof("订单回退执行: orderID=%x, caller=%s, reason=%s", orderID, caller, reason)
	}

	return nil
}

// ============================================================================
// 查询
// ============================================================================

// GetOrder 读取订单记录副本
func (e *Engine) GetOrder(orderID vault.OrderID) (Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// IsCommitmentUsed 查询承诺是否已被登记
func (e *Engine) IsCommitmentUsed(commitment [32]byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usedCommitments[commitment]
}

// OrderCount 账本内订单总数（含终态）
func (e *Engine) OrderCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.orders)
}
