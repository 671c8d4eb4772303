package circuits

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
)

// ============================================================================
// 隐私有效性电路（Privacy / Validity Circuit）
// ============================================================================
//
// 🎯 **验证目标**：
// 在不泄露任何订单价格或数量的前提下，证明一批订单全部格式良好且在界内：
// - 每个订单能重建其公开承诺
// - 每个订单的价格/数量落在私有的min/max界内
// - 每个订单的deadline严格晚于公开时间戳
// - 有效性哈希 = Poseidon2(全部承诺, 时间戳)
//
// 🏗️ **电路结构**：
// 公开输入：N个订单承诺 + 有效性哈希 + 时间戳
// 私有输入：每单(price, amount, deadline, traderHash, nonce) +
//          界定的min/max价格与min/max数量
//
// ⚠️ **零填充语义**：
// 与撮合电路一致，承诺为0的槽位视为非活跃。非活跃槽位的每条
// 范围/截止约束都先经过 Select(active, 真实值, 中性值) 替换后再断言，
// 中性值天然满足约束，因此填充槽位既不能伪造"有效"信号，
// 也不会污染聚合结果。刻意不用标志连乘聚合。
//
// ⚠️ **必须使用工厂函数创建电路实例**（NewPrivacyValidityCircuit）。
//
// ============================================================================

// PrivacyValidityCircuit 隐私有效性电路
type PrivacyValidityCircuit struct {
	// 公开输入（链上可见）
	Commitments  []frontend.Variable `gnark:",public"` // N个订单承诺（0=填充槽位）
	ValidityHash frontend.Variable   `gnark:",public"` // 有效性哈希
	Timestamp    frontend.Variable   `gnark:",public"` // 批次时间戳

	// 私有输入（隐私保护）
	Prices       []frontend.Variable // 每单价格
	Amounts      []frontend.Variable // 每单数量
	Deadlines    []frontend.Variable // 每单截止时间
	TraderHashes []frontend.Variable // 每单交易者哈希
	Nonces       []frontend.Variable // 每单承诺随机数
	MinPrice     frontend.Variable   // 价格下界
	MaxPrice     frontend.Variable   // 价格上界
	MinAmount    frontend.Variable   // 数量下界
	MaxAmount    frontend.Variable   // 数量上界

	// BatchSize 槽位数N（编译时固定）
	BatchSize int
}

// NewPrivacyValidityCircuit 创建隐私有效性电路
//
// 📋 **参数**：
//   - batchSize: 槽位数N，必须在[MinBatchOrders, MaxBatchOrders]内
func NewPrivacyValidityCircuit(batchSize int) (*PrivacyValidityCircuit, error) {
	if batchSize < MinBatchOrders {
		return nil, fmt.Errorf("批量槽位数至少为%d: %d", MinBatchOrders, batchSize)
	}
	if batchSize > MaxBatchOrders {
		return nil, fmt.Errorf("批量槽位数超过上限: %d > %d", batchSize, MaxBatchOrders)
	}

	return &PrivacyValidityCircuit{
		Commitments:  make([]frontend.Variable, batchSize),
		Prices:       make([]frontend.Variable, batchSize),
		Amounts:      make([]frontend.Variable, batchSize),
		Deadlines:    make([]frontend.Variable, batchSize),
		TraderHashes: make([]frontend.Variable, batchSize),
		Nonces:       make([]frontend.Variable, batchSize),
		BatchSize:    batchSize,
	}, nil
}

// Define 定义电路约束
func (circuit *PrivacyValidityCircuit) Define(api frontend.API) error {
	n := len(circuit.Commitments)
	if n == 0 {
		return fmt.Errorf("电路未初始化，请使用NewPrivacyValidityCircuit创建")
	}

	hasher, err := NewPoseidonHasher(api)
	if err != nil {
		return err
	}

	// 界值本身限制在64位，且下界不超过上界
	api.ToBinary(circuit.MinPrice, AmountBits)
	api.ToBinary(circuit.MaxPrice, AmountBits)
	api.ToBinary(circuit.MinAmount, AmountBits)
	api.ToBinary(circuit.MaxAmount, AmountBits)
	api.AssertIsLessOrEqual(circuit.MinPrice, circuit.MaxPrice)
	api.AssertIsLessOrEqual(circuit.MinAmount, circuit.MaxAmount)

	// deadline > timestamp 等价于 timestamp + 1 <= deadline
	tsPlusOne := api.Add(circuit.Timestamp, 1)

	for i := 0; i < n; i++ {
		// 价格/数量/截止时间限制在64位内
		api.ToBinary(circuit.Prices[i], AmountBits)
		api.ToBinary(circuit.Amounts[i], AmountBits)
		api.ToBinary(circuit.Deadlines[i], AmountBits)

		active := api.Sub(1, api.IsZero(circuit.Commitments[i]))

		// 承诺重建（填充槽位中和）
		computed := hasher.HashChain(
			circuit.Prices[i],
			circuit.Amounts[i],
			circuit.Deadlines[i],
			circuit.TraderHashes[i],
			circuit.Nonces[i],
		)
		api.AssertIsEqual(api.Mul(active, api.Sub(computed, circuit.Commitments[i])), 0)

		// 范围约束：填充槽位用下界值替换，约束平凡成立
		price := api.Select(active, circuit.Prices[i], circuit.MinPrice)
		amount := api.Select(active, circuit.Amounts[i], circuit.MinAmount)
		api.AssertIsLessOrEqual(circuit.MinPrice, price)
		api.AssertIsLessOrEqual(price, circuit.MaxPrice)
		api.AssertIsLessOrEqual(circuit.MinAmount, amount)
		api.AssertIsLessOrEqual(amount, circuit.MaxAmount)

		// 截止约束：deadline严格晚于时间戳；填充槽位替换为 timestamp+1
		deadline := api.Select(active, circuit.Deadlines[i], tsPlusOne)
		api.AssertIsLessOrEqual(tsPlusOne, deadline)
	}

	// 有效性哈希 = Poseidon2(全部承诺, 时间戳)
	inputs := make([]frontend.Variable, 0, n+1)
	inputs = append(inputs, circuit.Commitments...)
	inputs = append(inputs, circuit.Timestamp)
	validityHash := hasher.HashChain(inputs...)
	api.AssertIsEqual(validityHash, circuit.ValidityHash)

	return nil
}
