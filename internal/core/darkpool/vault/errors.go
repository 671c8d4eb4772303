// Package vault implements encrypted order custody for the dark pool:
// hooks write ciphertext once, operators read it exactly once, anyone
// may expire an overdue record.
package vault

import (
	"errors"
	"fmt"
)

// ============================================================================
//                               金库错误定义
// ============================================================================
//
// 校验类错误（InvalidID/InvalidOwner/EmptyPayload/InvalidDeadline）
// 属于调用方错误，立即上报且不改状态；冲突类错误
// （AlreadyExists/AlreadyRetrieved/AlreadyExpired）标记合法竞态或
// 重放企图，同样不改状态；时间类错误（DeadlinePassed）是正常的
// 生命周期结局，调用方据此转入回退路径。
//
// ============================================================================

var (
	// ErrInvalidID 订单ID为零值
	ErrInvalidID = errors.New("invalid order id")

	// ErrInvalidOwner 所有者身份为空
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrEmptyPayload 密文为空
	ErrEmptyPayload = errors.New("empty payload")

	// ErrInvalidDeadline 截止时间不在允许的存续窗口内
	ErrInvalidDeadline = errors.New("invalid deadline")

	// ErrAlreadyExists 订单ID已存在
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyRetrieved 密文已被取回（至多一次）
	ErrAlreadyRetrieved = errors.New("record already retrieved")

	// ErrAlreadyExpired 记录已过期
	ErrAlreadyExpired = errors.New("record already expired")

	// ErrDeadlinePassed 截止时间已过，取回被拒绝
	ErrDeadlinePassed = errors.New("deadline passed")

	// ErrUnauthorized 调用者无权执行该操作
	ErrUnauthorized = errors.New("unauthorized")
)

// WrapInvalidDeadlineError 包装截止时间错误
func WrapInvalidDeadlineError(deadline, now, minLifetime, maxLifetime int64) error {
	return fmt.Errorf("%w: deadline=%d, now=%d, window=(%d, %d]",
		ErrInvalidDeadline, deadline, now, now+minLifetime, now+maxLifetime)
}
