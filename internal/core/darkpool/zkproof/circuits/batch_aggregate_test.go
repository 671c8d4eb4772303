package circuits

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 批量聚合电路测试 + 链下哈希配对测试
// ============================================================================

// TestBatchAggregateCircuit_Valid 测试批次哈希绑定
func TestBatchAggregateCircuit_Valid(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewBatchAggregateCircuit(4)
	require.NoError(t, err)

	members := []*big.Int{
		big.NewInt(11111),
		big.NewInt(22222),
		big.NewInt(33333),
		big.NewInt(0), // 填充
	}
	totalMatches := big.NewInt(3)

	witness, err := NewBatchAggregateCircuit(4)
	require.NoError(t, err)
	for i, m := range members {
		witness.MemberHashes[i] = m
	}
	witness.TotalMatches = totalMatches
	witness.BatchHash = NativeBatchHash(members, totalMatches)

	assert.CheckCircuit(
		circuit,
		test.WithValidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestBatchAggregateCircuit_TamperedHash 测试批次哈希被篡改被拒绝
func TestBatchAggregateCircuit_TamperedHash(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewBatchAggregateCircuit(2)
	require.NoError(t, err)

	members := []*big.Int{big.NewInt(11111), big.NewInt(22222)}

	witness, err := NewBatchAggregateCircuit(2)
	require.NoError(t, err)
	for i, m := range members {
		witness.MemberHashes[i] = m
	}
	witness.TotalMatches = 2
	witness.BatchHash = 999999 // 与成员集合不符

	assert.CheckCircuit(
		circuit,
		test.WithInvalidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestBatchAggregateCircuit_TotalExceedsSlots 测试撮合总数超过槽位数被拒绝
func TestBatchAggregateCircuit_TotalExceedsSlots(t *testing.T) {
	assert := test.NewAssert(t)

	circuit, err := NewBatchAggregateCircuit(2)
	require.NoError(t, err)

	members := []*big.Int{big.NewInt(11111), big.NewInt(22222)}
	totalMatches := big.NewInt(5) // 超过槽位数2

	witness, err := NewBatchAggregateCircuit(2)
	require.NoError(t, err)
	for i, m := range members {
		witness.MemberHashes[i] = m
	}
	witness.TotalMatches = totalMatches
	witness.BatchHash = NativeBatchHash(members, totalMatches)

	assert.CheckCircuit(
		circuit,
		test.WithInvalidAssignment(witness),
		test.WithCurves(ecc.BLS12_377),
	)
}

// TestNativeHash_Deterministic 测试链下哈希确定性与输入顺序敏感性
func TestNativeHash_Deterministic(t *testing.T) {
	a := NativeHash(big.NewInt(1), big.NewInt(2), big.NewInt(3))
	b := NativeHash(big.NewInt(1), big.NewInt(2), big.NewInt(3))
	c := NativeHash(big.NewInt(3), big.NewInt(2), big.NewInt(1))

	require.Equal(t, 0, a.Cmp(b), "相同输入必须给出相同哈希")
	require.NotEqual(t, 0, a.Cmp(c), "输入顺序改变必须改变哈希")
	require.True(t, a.Cmp(fr.Modulus()) < 0, "哈希结果必须落在field内")
}

// TestFieldElementFromBytes_Reduction 测试超field字节串被正确归约
func TestFieldElementFromBytes_Reduction(t *testing.T) {
	// 全0xFF的32字节远超BLS12-377标量域模数
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = 0xFF
	}

	element := FieldElementFromBytes(raw)
	require.True(t, element.Sign() >= 0)
	require.True(t, element.Cmp(fr.Modulus()) < 0, "归约结果必须落在field内")

	// field内的值保持不变
	small := FieldElementFromBytes([]byte{0x01, 0x02})
	require.Equal(t, int64(0x0102), small.Int64())
}

// TestNativeOrderCommitment_NonceSeparation 测试nonce改变承诺
func TestNativeOrderCommitment_NonceSeparation(t *testing.T) {
	c1 := NativeOrderCommitment(big.NewInt(100), big.NewInt(5), big.NewInt(0), big.NewInt(777), big.NewInt(1))
	c2 := NativeOrderCommitment(big.NewInt(100), big.NewInt(5), big.NewInt(0), big.NewInt(777), big.NewInt(2))
	require.NotEqual(t, 0, c1.Cmp(c2), "不同nonce必须产生不同承诺")
}
