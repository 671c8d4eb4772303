package circuits

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 隐私有效性电路测试
// ============================================================================
//
// 🎯 **测试目的**：
// 验证有效性证明在不泄露明细的前提下约束住格式与界限：
// - 界内订单（含零填充槽位）能生成有效证明
// - 价格/数量越界、截止时间不晚于时间戳都被拒绝
// - 有效性哈希与承诺向量、时间戳严格绑定
//
// ============================================================================

// validityOrder 测试用订单明细（有效性五元组，绑定deadline而非side）
type validityOrder struct {
	price      int64
	amount     int64
	deadline   int64
	traderHash int64
	nonce      int64
}

// validityCommitmentOf 计算有效性承诺
func validityCommitmentOf(o validityOrder) *big.Int {
	return NativeValidityCommitment(
		big.NewInt(o.price),
		big.NewInt(o.amount),
		big.NewInt(o.deadline),
		big.NewInt(o.traderHash),
		big.NewInt(o.nonce),
	)
}

// buildValidityWitness 构造带零填充的有效性witness
func buildValidityWitness(t *testing.T, batchSize int, orders []validityOrder, timestamp int64) *PrivacyValidityCircuit {
	t.Helper()

	witness, err := NewPrivacyValidityCircuit(batchSize)
	require.NoError(t, err)

	commitments := make([]*big.Int, batchSize)
	for i := 0; i < batchSize; i++ {
		if i < len(orders) {
			commitments[i] = validityCommitmentOf(orders[i])
			witness.Commitments[i] = commitments[i]
			witness.Prices[i] = orders[i].price
			witness.Amounts[i] = orders[i].amount
			witness.Deadlines[i] = orders[i].deadline
			witness.TraderHashes[i] = orders[i].traderHash
			witness.Nonces[i] = orders[i].nonce
		} else {
			commitments[i] = big.NewInt(0)
			witness.Commitments[i] = 0
			witness.Prices[i] = 0
			witness.Amounts[i] = 0
			witness.Deadlines[i] = 0
			witness.TraderHashes[i] = 0
			witness.Nonces[i] = 0
		}
	}

	witness.Timestamp = timestamp
	witness.ValidityHash = NativeValidityHash(commitments, big.NewInt(timestamp))
	witness.MinPrice = 10
	witness.MaxPrice = 1000
	witness.MinAmount = 1
	witness.MaxAmount = 100

	return witness
}

// TestPrivacyValidityCircuit_ValidBatch 测试界内批次（含零填充槽位）
func TestPrivacyValidityCircuit_ValidBatch(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewPrivacyValidityCircuit(4)
	require.NoError(t, err)

	orders := []validityOrder{
		{price: 105, amount: 10, deadline: 2000, traderHash: 1111, nonce: 42},
		{price: 100, amount: 7, deadline: 1501, traderHash: 2222, nonce: 43},
	}
	witness := buildValidityWitness(t, 4, orders, 1500)

	assert.CheckCircuit(
		circuit,
		test.WithValidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestPrivacyValidityCircuit_BoundaryValues 测试恰好踩在界上的订单
func TestPrivacyValidityCircuit_BoundaryValues(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewPrivacyValidityCircuit(2)
	require.NoError(t, err)

	// price/amount取上下界本身，deadline=timestamp+1是最早合法截止
	orders := []validityOrder{
		{price: 10, amount: 100, deadline: 1501, traderHash: 1111, nonce: 42},
		{price: 1000, amount: 1, deadline: 1501, traderHash: 2222, nonce: 43},
	}
	witness := buildValidityWitness(t, 2, orders, 1500)

	assert.CheckCircuit(
		circuit,
		test.WithValidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestPrivacyValidityCircuit_PriceBelowMin 测试价格低于下界被拒绝
func TestPrivacyValidityCircuit_PriceBelowMin(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewPrivacyValidityCircuit(4)
	require.NoError(t, err)

	orders := []validityOrder{
		{price: 5, amount: 10, deadline: 2000, traderHash: 1111, nonce: 42}, // 5 < MinPrice=10
		{price: 100, amount: 7, deadline: 2000, traderHash: 2222, nonce: 43},
	}
	witness := buildValidityWitness(t, 4, orders, 1500)

	assert.CheckCircuit(
		circuit,
		test.WithInvalidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestPrivacyValidityCircuit_AmountAboveMax 测试数量高于上界被拒绝
func TestPrivacyValidityCircuit_AmountAboveMax(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewPrivacyValidityCircuit(4)
	require.NoError(t, err)

	orders := []validityOrder{
		{price: 105, amount: 101, deadline: 2000, traderHash: 1111, nonce: 42}, // 101 > MaxAmount=100
		{price: 100, amount: 7, deadline: 2000, traderHash: 2222, nonce: 43},
	}
	witness := buildValidityWitness(t, 4, orders, 1500)

	assert.CheckCircuit(
		circuit,
		test.WithInvalidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestPrivacyValidityCircuit_ExpiredDeadline 测试截止时间不晚于时间戳被拒绝
func TestPrivacyValidityCircuit_ExpiredDeadline(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewPrivacyValidityCircuit(4)
	require.NoError(t, err)

	// deadline == timestamp：必须严格晚于，等于也不行
	orders := []validityOrder{
		{price: 105, amount: 10, deadline: 1500, traderHash: 1111, nonce: 42},
		{price: 100, amount: 7, deadline: 2000, traderHash: 2222, nonce: 43},
	}
	witness := buildValidityWitness(t, 4, orders, 1500)

	assert.CheckCircuit(
		circuit,
		test.WithInvalidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestPrivacyValidityCircuit_TamperedValidityHash 测试有效性哈希被篡改被拒绝
func TestPrivacyValidityCircuit_TamperedValidityHash(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewPrivacyValidityCircuit(4)
	require.NoError(t, err)

	orders := []validityOrder{
		{price: 105, amount: 10, deadline: 2000, traderHash: 1111, nonce: 42},
		{price: 100, amount: 7, deadline: 2000, traderHash: 2222, nonce: 43},
	}
	witness := buildValidityWitness(t, 4, orders, 1500)
	witness.ValidityHash = 123456789

	assert.CheckCircuit(
		circuit,
		test.WithInvalidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestNewPrivacyValidityCircuit_Bounds 测试工厂函数的槽位数边界
func TestNewPrivacyValidityCircuit_Bounds(t *testing.T) {
	_, err := NewPrivacyValidityCircuit(0)
	require.Error(t, err)

	_, err = NewPrivacyValidityCircuit(MaxBatchOrders + 1)
	require.Error(t, err)

	circuit, err := NewPrivacyValidityCircuit(8)
	require.NoError(t, err)
	require.Len(t, circuit.Commitments, 8)
	require.Len(t, circuit.Deadlines, 8)
}
