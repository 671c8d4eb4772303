package circuits

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
)

// ============================================================================
// 订单撮合电路（Order Matching Circuit）
// ============================================================================
//
// 🎯 **验证目标**：
// 证明一笔撮合结果在不泄露订单明细的前提下是合法且公平的：
// - 每个私有订单能重建其公开承诺
// - 买卖双方方向正确且价格交叉（buyPrice >= sellPrice）
// - 成交量不超过任一方订单量
// - 成交价落在买卖价差之内
// - 撮合结果哈希与公开声明一致
//
// 🏗️ **电路结构**：
// 公开输入（链上可见）：N个订单承诺 + 撮合结果哈希 + 池绑定 + 成交价/成交量
// 私有输入（隐私保护）：每单(price, amount, side, traderHash, nonce) +
//                      买卖槽位索引
//
// 成交价与成交量在结算时本来就公开，放入公开输入后验证引擎可以
// 按命名槽位提取，而不是依赖生产者与验证者之间的隐式位置约定。
// 买卖槽位索引保持私有，撮合结果哈希防止索引被事后替换。
//
// ⚠️ **零填充语义（关键设计决策）**：
// 承诺为0的槽位视为非活跃。非活跃槽位的承诺重建约束通过
// active * (computed - commitment) == 0 中和，且买卖索引约束
// Σ sel_i * active_i == 1 保证撮合永远不能指向填充槽位。
// 本电路不使用"有效标志连乘"聚合——该模式下填充槽位的标志值
// 一旦取0会吞掉整个聚合结果，属于已知易错模式。
//
// ⚠️ **数值语义**：
// 价格与数量均为无符号64位整数，进入比较器前先做64位分解约束，
// 防止field回绕伪造大小关系。不存在浮点。
//
// ⚠️ **必须使用工厂函数创建电路实例**（NewOrderMatchingCircuit），
// 直接使用零值会得到长度为0的切片，约束循环不会执行。
//
// ============================================================================

const (
	// MinBatchOrders 批量槽位数下限（至少一买一卖）
	MinBatchOrders = 2

	// MaxBatchOrders 批量槽位数上限
	// 槽位数直接决定约束规模与可信设置大小
	MaxBatchOrders = 16

	// AmountBits 价格/数量的位宽
	AmountBits = 64
)

// OrderMatchingCircuit 订单撮合电路
type OrderMatchingCircuit struct {
	// 公开输入（链上可见）
	Commitments     []frontend.Variable `gnark:",public"` // N个订单承诺（0=填充槽位）
	MatchResultHash frontend.Variable   `gnark:",public"` // 撮合结果哈希
	PoolBinding     frontend.Variable   `gnark:",public"` // 池绑定（防跨池重放）
	MatchedPrice    frontend.Variable   `gnark:",public"` // 成交价（结算时公开）
	MatchedAmt      frontend.Variable   `gnark:",public"` // 成交量（结算时公开）

	// 私有输入（隐私保护）
	Prices       []frontend.Variable // 每单价格
	Amounts      []frontend.Variable // 每单数量
	Sides        []frontend.Variable // 每单方向（0=买，1=卖）
	TraderHashes []frontend.Variable // 每单交易者哈希
	Nonces       []frontend.Variable // 每单承诺随机数
	BuyIndex     frontend.Variable   // 买单槽位索引
	SellIndex    frontend.Variable   // 卖单槽位索引

	// BatchSize 槽位数N（编译时固定）
	BatchSize int
}

// NewOrderMatchingCircuit 创建订单撮合电路
//
// 📋 **参数**：
//   - batchSize: 槽位数N，必须在[MinBatchOrders, MaxBatchOrders]内
//
// ⚠️ **关键**：确保切片长度在创建时正确分配
func NewOrderMatchingCircuit(batchSize int) (*OrderMatchingCircuit, error) {
	if batchSize < MinBatchOrders {
		return nil, fmt.Errorf("批量槽位数至少为%d: %d", MinBatchOrders, batchSize)
	}
	if batchSize > MaxBatchOrders {
		return nil, fmt.Errorf("批量槽位数超过上限: %d > %d", batchSize, MaxBatchOrders)
	}

	return &OrderMatchingCircuit{
		Commitments:  make([]frontend.Variable, batchSize),
		Prices:       make([]frontend.Variable, batchSize),
		Amounts:      make([]frontend.Variable, batchSize),
		Sides:        make([]frontend.Variable, batchSize),
		TraderHashes: make([]frontend.Variable, batchSize),
		Nonces:       make([]frontend.Variable, batchSize),
		BatchSize:    batchSize,
	}, nil
}

// Define 定义电路约束
//
// 🎯 **约束设计**（任何一组都不可削弱，它们是经济安全性质）：
// 1. 承诺重建：每个活跃槽位的五元组哈希等于公开承诺
// 2. 方向约束：买索引槽位side=0，卖索引槽位side=1
// 3. 交叉条件：buyPrice >= sellPrice
// 4. 成交量上限：matchedAmount <= min(buyAmount, sellAmount)
// 5. 价差内成交：sellPrice <= matchedPrice <= buyPrice
// 6. 结果绑定：Poseidon2(成交价, 成交量, 买索引, 卖索引) == 公开结果哈希
func (circuit *OrderMatchingCircuit) Define(api frontend.API) error {
	n := len(circuit.Commitments)
	if n == 0 {
		return fmt.Errorf("电路未初始化，请使用NewOrderMatchingCircuit创建")
	}

	hasher, err := NewPoseidonHasher(api)
	if err != nil {
		return err
	}

	// 约束组1: 逐槽位承诺重建 + 数值范围约束
	active := make([]frontend.Variable, n)
	for i := 0; i < n; i++ {
		// 方向必须是布尔值（填充槽位side=0同样满足）
		api.AssertIsBoolean(circuit.Sides[i])

		// 价格与数量限制在64位内，防止field回绕绕过比较器
		api.ToBinary(circuit.Prices[i], AmountBits)
		api.ToBinary(circuit.Amounts[i], AmountBits)

		// active_i = 1 - IsZero(commitment_i)：承诺为0的槽位是填充
		active[i] = api.Sub(1, api.IsZero(circuit.Commitments[i]))

		// 活跃槽位必须重建承诺；填充槽位约束被中和
		computed := hasher.HashOrder(
			circuit.Prices[i],
			circuit.Amounts[i],
			circuit.Sides[i],
			circuit.TraderHashes[i],
			circuit.Nonces[i],
		)
		api.AssertIsEqual(api.Mul(active[i], api.Sub(computed, circuit.Commitments[i])), 0)
	}

	// 约束组2: 买卖槽位选择
	// 指示向量 sel_i = IsZero(index - i)，其和为1保证索引落在[0, n)内
	buySum := frontend.Variable(0)
	sellSum := frontend.Variable(0)
	buyActive := frontend.Variable(0)
	sellActive := frontend.Variable(0)
	buyPrice := frontend.Variable(0)
	buyAmount := frontend.Variable(0)
	buySide := frontend.Variable(0)
	sellPrice := frontend.Variable(0)
	sellAmount := frontend.Variable(0)
	sellSide := frontend.Variable(0)

	for i := 0; i < n; i++ {
		buySel := api.IsZero(api.Sub(circuit.BuyIndex, i))
		sellSel := api.IsZero(api.Sub(circuit.SellIndex, i))

		buySum = api.Add(buySum, buySel)
		sellSum = api.Add(sellSum, sellSel)

		// 被选中槽位必须是活跃槽位，填充槽位永远不能参与撮合
		buyActive = api.Add(buyActive, api.Mul(buySel, active[i]))
		sellActive = api.Add(sellActive, api.Mul(sellSel, active[i]))

		buyPrice = api.Add(buyPrice, api.Mul(buySel, circuit.Prices[i]))
		buyAmount = api.Add(buyAmount, api.Mul(buySel, circuit.Amounts[i]))
		buySide = api.Add(buySide, api.Mul(buySel, circuit.Sides[i]))

		sellPrice = api.Add(sellPrice, api.Mul(sellSel, circuit.Prices[i]))
		sellAmount = api.Add(sellAmount, api.Mul(sellSel, circuit.Amounts[i]))
		sellSide = api.Add(sellSide, api.Mul(sellSel, circuit.Sides[i]))
	}

	api.AssertIsEqual(buySum, 1)
	api.AssertIsEqual(sellSum, 1)
	api.AssertIsEqual(buyActive, 1)
	api.AssertIsEqual(sellActive, 1)
	api.AssertIsDifferent(circuit.BuyIndex, circuit.SellIndex)

	// 方向约束: 买索引槽位side=0，卖索引槽位side=1
	api.AssertIsEqual(buySide, 0)
	api.AssertIsEqual(sellSide, 1)

	// 成交价/成交量同样限制在64位
	api.ToBinary(circuit.MatchedPrice, AmountBits)
	api.ToBinary(circuit.MatchedAmt, AmountBits)

	// 约束组3: 交叉条件 buyPrice >= sellPrice
	api.AssertIsLessOrEqual(sellPrice, buyPrice)

	// 约束组4: 成交量不超过任一方订单量
	api.AssertIsLessOrEqual(circuit.MatchedAmt, buyAmount)
	api.AssertIsLessOrEqual(circuit.MatchedAmt, sellAmount)

	// 约束组5: 价差内成交 sellPrice <= matchedPrice <= buyPrice
	api.AssertIsLessOrEqual(sellPrice, circuit.MatchedPrice)
	api.AssertIsLessOrEqual(circuit.MatchedPrice, buyPrice)

	// 约束组6: 撮合结果哈希绑定
	resultHash := hasher.HashMatchResult(
		circuit.MatchedPrice,
		circuit.MatchedAmt,
		circuit.BuyIndex,
		circuit.SellIndex,
	)
	api.AssertIsEqual(resultHash, circuit.MatchResultHash)

	// 池绑定作为公开输入参与验证，等值检查由验证引擎在电路外完成
	api.AssertIsEqual(circuit.PoolBinding, circuit.PoolBinding)

	return nil
}
