package circuits

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
)

// ============================================================================
// 批量聚合电路（Batch Aggregate Circuit）
// ============================================================================
//
// 🎯 **验证目标**：
// 证明批次哈希正确绑定了各成员撮合结果哈希与撮合总数：
// BatchHash = Poseidon2(memberHash_1, ..., memberHash_N, TotalMatches)
//
// 成员证明本身由验证引擎逐个验证（逐个失败即整体失败），
// 本电路只负责把"这批成员"与公开的批次哈希绑死，防止提交方
// 在成员集合通过验证后偷换批次元数据。
//
// ⚠️ **零填充语义**：
// 不足N个成员时 memberHash 填0，链下与电路内按同一填充向量计算哈希。
//
// ============================================================================

// BatchAggregateCircuit 批量聚合电路
type BatchAggregateCircuit struct {
	// 公开输入（链上可见）
	BatchHash    frontend.Variable `gnark:",public"` // 批次哈希
	TotalMatches frontend.Variable `gnark:",public"` // 撮合总数

	// 私有输入
	MemberHashes []frontend.Variable // 各成员撮合结果哈希（0=填充）

	// BatchSize 槽位数N（编译时固定）
	BatchSize int
}

// NewBatchAggregateCircuit 创建批量聚合电路
func NewBatchAggregateCircuit(batchSize int) (*BatchAggregateCircuit, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("批量槽位数至少为1: %d", batchSize)
	}
	if batchSize > MaxBatchOrders {
		return nil, fmt.Errorf("批量槽位数超过上限: %d > %d", batchSize, MaxBatchOrders)
	}

	return &BatchAggregateCircuit{
		MemberHashes: make([]frontend.Variable, batchSize),
		BatchSize:    batchSize,
	}, nil
}

// Define 定义电路约束
func (circuit *BatchAggregateCircuit) Define(api frontend.API) error {
	n := len(circuit.MemberHashes)
	if n == 0 {
		return fmt.Errorf("电路未初始化，请使用NewBatchAggregateCircuit创建")
	}

	hasher, err := NewPoseidonHasher(api)
	if err != nil {
		return err
	}

	// 撮合总数不可能超过槽位数
	api.ToBinary(circuit.TotalMatches, AmountBits)
	api.AssertIsLessOrEqual(circuit.TotalMatches, n)

	inputs := make([]frontend.Variable, 0, n+1)
	inputs = append(inputs, circuit.MemberHashes...)
	inputs = append(inputs, circuit.TotalMatches)

	computed := hasher.HashChain(inputs...)
	api.AssertIsEqual(computed, circuit.BatchHash)

	return nil
}
