package lifecycle

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ============================================================================
// 路由数据解码
// ============================================================================
//
// 交易路由层以不透明字节串传入订单的隐私部分：
//
//	[0, 32)   订单承诺（32字节）
//	[32, 40)  截止时间（无符号大端时间戳）
//	[40, ...) 加密订单负载（变长，至少1字节）
//
// ============================================================================

const (
	commitmentLength  = 32
	deadlineLength    = 8
	minHookDataLength = commitmentLength + deadlineLength + 1
)

// HookData 解码后的路由数据
type HookData struct {
	Commitment [32]byte // 订单承诺
	Deadline   int64    // 截止时间（Unix秒）
	Ciphertext []byte   // 加密订单负载
}

// DecodeHookData 解码路由数据
func DecodeHookData(data []byte) (*HookData, error) {
	if len(data) < minHookDataLength {
		return nil, fmt.Errorf("%w: 长度=%d, 最少=%d", ErrHookDataTooShort, len(data), minHookDataLength)
	}

	decoded := &HookData{}
	copy(decoded.Commitment[:], data[:commitmentLength])

	rawDeadline := binary.BigEndian.Uint64(data[commitmentLength : commitmentLength+deadlineLength])
	if rawDeadline > math.MaxInt64 {
		return nil, fmt.Errorf("%w: 时间戳溢出=%d", ErrInvalidDeadline, rawDeadline)
	}
	decoded.Deadline = int64(rawDeadline)

	// 负载保留独立副本，调用方可安全复用原缓冲区
	decoded.Ciphertext = make([]byte, len(data)-commitmentLength-deadlineLength)
	copy(decoded.Ciphertext, data[commitmentLength+deadlineLength:])

	return decoded, nil
}
