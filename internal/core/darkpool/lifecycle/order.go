package lifecycle

import (
	"encoding/binary"
	"math/big"

	"github.com/veilmatch/v1/internal/core/darkpool/vault"
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof/circuits"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/crypto"
)

// 订单方向
const (
	SideBuy  uint8 = 0
	SideSell uint8 = 1
)

// 回退原因
const (
	FallbackDeadlineExceeded  = "deadline exceeded"
	FallbackTraderRequested   = "trader requested"
	FallbackCoordinatorForced = "coordinator forced"
)

// PoolContext 资金池上下文
//
// Liquidity是大额判定使用的流动性参考值，由路由层随调用传入，
// 账本不缓存，避免与场外流动性状态产生二义性。
type PoolContext struct {
	Identity  string // 资金池标识（交易对/场所）
	Liquidity uint64 // 流动性参考值
}

// Order 订单公开记录
//
// 记录只进入终态、永不删除，保证可审计性。
// Executed置位后所有字段冻结。
type Order struct {
	ID          vault.OrderID // 订单ID（确定性派生）
	Trader      string        // 所有者身份
	Pool        string        // 资金池标识
	PoolBinding *big.Int      // 资金池绑定（证明公开输入）
	Side        uint8         // 方向
	Amount      uint64        // 数量（绝对值）
	Commitment  [32]byte      // 订单承诺
	Deadline    int64         // 截止时间
	Nonce       uint64        // 交易者序号（派生ID用）

	// 终态字段
	Executed       bool     // 终态标志
	MatchHash      *big.Int // 撮合结果哈希（证明执行路径）
	ExecutionPrice *big.Int // 成交价
	TotalVolume    *big.Int // 成交量
	FallbackReason string   // 回退原因（回退路径）
	ExecutedAt     int64    // 终态时间
}

// deriveOrderID 确定性派生订单ID
//
// Keccak256(trader || pool || side || amount || nonce)。
// 每个交易者维护递增序号，同一承诺内容重复提交也得到不同ID。
func deriveOrderID(hashManager crypto.HashManager, trader, pool string, side uint8, amount, nonce uint64) vault.OrderID {
	buf := make([]byte, 0, len(trader)+len(pool)+1+16)
	buf = append(buf, []byte(trader)...)
	buf = append(buf, []byte(pool)...)
	buf = append(buf, side)

	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], amount)
	buf = append(buf, scratch[:]...)
	binary.BigEndian.PutUint64(scratch[:], nonce)
	buf = append(buf, scratch[:]...)

	var id vault.OrderID
	copy(id[:], hashManager.Keccak256(buf))
	return id
}

// PoolBindingOf 派生资金池绑定域元素
//
// 资金池标识经Keccak256后归约进标量域，作为证明的公开输入。
// A池的证明无法在B池执行。
func PoolBindingOf(hashManager crypto.HashManager, identity string) *big.Int {
	return circuits.FieldElementFromBytes(hashManager.Keccak256([]byte(identity)))
}

// amountMagnitude 有符号数量的绝对值
func amountMagnitude(signedAmount int64) uint64 {
	if signedAmount < 0 {
		// MinInt64的取反仍在uint64范围内
		return uint64(-(signedAmount + 1)) + 1
	}
	return uint64(signedAmount)
}
