package lifecycle

import (
	"errors"
	"fmt"
)

// ============================================================================
// 订单生命周期错误定义
// ============================================================================

var (
	// ErrInvalidTrader 交易者身份无效
	ErrInvalidTrader = errors.New("交易者身份无效")

	// ErrInvalidPool 资金池标识无效
	ErrInvalidPool = errors.New("资金池标识无效")

	// ErrInvalidDeadline 截止时间不在允许的存续窗口内
	ErrInvalidDeadline = errors.New("截止时间无效")

	// ErrCommitmentReused 订单承诺已被使用（重放保护）
	ErrCommitmentReused = errors.New("订单承诺已被使用")

	// ErrNotFound 订单不存在
	ErrNotFound = errors.New("订单不存在")

	// ErrAlreadyExecuted 订单已进入终态
	ErrAlreadyExecuted = errors.New("订单已执行")

	// ErrDeadlinePassed 订单截止时间已过
	ErrDeadlinePassed = errors.New("订单截止时间已过")

	// ErrNotYetEligible 尚不满足回退条件
	ErrNotYetEligible = errors.New("尚不满足回退条件")

	// ErrUnauthorized 调用者未被授权
	ErrUnauthorized = errors.New("调用者未被授权")

	// ErrInvalidSignatures 协调者签名无效
	ErrInvalidSignatures = errors.New("协调者签名无效")

	// ErrInvalidThreshold 阈值超出基点范围
	ErrInvalidThreshold = errors.New("阈值超出基点范围")

	// ErrHookDataTooShort 路由数据长度不足
	ErrHookDataTooShort = errors.New("路由数据长度不足")

	// ErrBatchSizeMismatch 批量执行的订单数与证明成员数不一致
	ErrBatchSizeMismatch = errors.New("批量订单数与证明成员数不一致")
)

// WrapInvalidDeadlineError 包装截止时间错误
func WrapInvalidDeadlineError(deadline, now, minLifetime, maxLifetime int64) error {
	return fmt.Errorf("%w: deadline=%d, now=%d, 允许窗口=(%d, %d]",
		ErrInvalidDeadline, deadline, now, now+minLifetime, now+maxLifetime)
}

// WrapCommitmentReusedError 包装承诺重用错误
func WrapCommitmentReusedError(commitment [32]byte) error {
	return fmt.Errorf("%w: commitment=%x", ErrCommitmentReused, commitment)
}

// WrapNotFoundError 包装订单不存在错误
func WrapNotFoundError(orderID [32]byte) error {
	return fmt.Errorf("%w: orderID=%x", ErrNotFound, orderID)
}

// WrapInvalidThresholdError 包装阈值错误
func WrapInvalidThresholdError(bps, max uint64) error {
	return fmt.Errorf("%w: bps=%d, 最大值=%d", ErrInvalidThreshold, bps, max)
}
