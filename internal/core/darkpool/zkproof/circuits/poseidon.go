package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/poseidon2"
)

// ============================================================================
// Poseidon哈希辅助函数（订单承诺与撮合结果哈希）
// ============================================================================
//
// 🎯 **设计目的**：
// 提供Poseidon2哈希函数，用于订单承诺重建与撮合结果哈希的电路内计算。
// Poseidon2是ZK友好的哈希函数，相比SHA256可以减少约90%的约束数量。
//
// 🏗️ **实现策略**：
// - 使用gnark的poseidon2包（Merkle-Damgard链式结构）
// - 电路内与链下原生计算（native.go）严格配对：
//   电路内按field元素写入，链下按32字节大端编码写入
//
// ⚠️ **注意**：
// - Poseidon2要求BLS12-377曲线
// - 哈希输出是单个field元素
//
// ============================================================================

// PoseidonHasher Poseidon2哈希器
type PoseidonHasher struct {
	api frontend.API
}

// NewPoseidonHasher 创建Poseidon2哈希器
func NewPoseidonHasher(api frontend.API) (*PoseidonHasher, error) {
	return &PoseidonHasher{
		api: api,
	}, nil
}

// HashChain 计算任意多输入的Poseidon2链式哈希
//
// 📋 **参数**：
//   - inputs: 输入field元素列表
//
// 📋 **返回值**：
//   - frontend.Variable: 哈希结果（field元素）
func (h *PoseidonHasher) HashChain(inputs ...frontend.Variable) frontend.Variable {
	// 每次调用都需要新的hasher，因为hasher是有状态的
	hasher, err := poseidon2.NewMerkleDamgardHasher(h.api)
	if err != nil {
		// 创建失败时返回0（会导致约束不满足，验证失败）
		return 0
	}

	hasher.Write(inputs...)

	return hasher.Sum()
}

// HashOrder 计算订单承诺哈希
//
// 承诺 = Poseidon2(price, amount, side, traderHash, nonce)
// 五元组与链下承诺构造（native.go NativeOrderCommitment）保持一致
func (h *PoseidonHasher) HashOrder(price, amount, side, traderHash, nonce frontend.Variable) frontend.Variable {
	return h.HashChain(price, amount, side, traderHash, nonce)
}

// HashMatchResult 计算撮合结果哈希
//
// 结果哈希 = Poseidon2(matchedPrice, matchedAmount, buyIndex, sellIndex)
func (h *PoseidonHasher) HashMatchResult(matchedPrice, matchedAmount, buyIndex, sellIndex frontend.Variable) frontend.Variable {
	return h.HashChain(matchedPrice, matchedAmount, buyIndex, sellIndex)
}
