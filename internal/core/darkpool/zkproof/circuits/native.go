package circuits

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr/poseidon2"
)

// ============================================================================
// 链下Poseidon2哈希（与电路内哈希配对）
// ============================================================================
//
// 🎯 **专门职责**：
// 为协调者和验证引擎提供与电路内PoseidonHasher完全一致的链下哈希计算。
// 两侧约定：每个输入按32字节大端编码写入Merkle-Damgard结构，
// 链下算出的承诺/哈希值直接作为witness赋值即可通过电路约束。
//
// ⚠️ **一致性警告**：
// 任何一侧改变输入编码（字节宽度、顺序、填充）都会导致证明验证失败。
// 修改前必须同步更新poseidon.go中的电路实现与全部相关测试。
//
// ============================================================================

// NativeHash 计算任意多个field元素的链下Poseidon2链式哈希
//
// 每个输入按32字节大端编码依次写入，调用方需保证输入已在field范围内
// （哈希字节等超field值请先用FieldElementFromBytes归约）。
func NativeHash(inputs ...*big.Int) *big.Int {
	hasher := poseidon2.NewMerkleDamgardHasher()

	buf := make([]byte, 32)
	for _, input := range inputs {
		input.FillBytes(buf)
		hasher.Write(buf)
	}

	var result big.Int
	result.SetBytes(hasher.Sum(nil))
	return &result
}

// FieldElementFromBytes 将任意字节串归约为BLS12-377标量域元素
//
// Keccak256等32字节哈希可能超出field模数，直接作为witness会溢出，
// 统一经此归约后再进入电路。
func FieldElementFromBytes(data []byte) *big.Int {
	var element big.Int
	element.SetBytes(data)
	return element.Mod(&element, fr.Modulus())
}

// NativeOrderCommitment 计算撮合电路使用的订单承诺
//
// 输入顺序与OrderMatchingCircuit中的承诺重构约束一致：
// commitment = Poseidon2(price, amount, side, traderHash, nonce)
func NativeOrderCommitment(price, amount, side, traderHash, nonce *big.Int) *big.Int {
	return NativeHash(price, amount, side, traderHash, nonce)
}

// NativeValidityCommitment 计算有效性电路使用的订单承诺
//
// 有效性证明绑定截止时间而非买卖方向：
// commitment = Poseidon2(price, amount, deadline, traderHash, nonce)
func NativeValidityCommitment(price, amount, deadline, traderHash, nonce *big.Int) *big.Int {
	return NativeHash(price, amount, deadline, traderHash, nonce)
}

// NativeMatchResultHash 计算撮合结果哈希
func NativeMatchResultHash(matchedPrice, matchedAmount, buyIndex, sellIndex *big.Int) *big.Int {
	return NativeHash(matchedPrice, matchedAmount, buyIndex, sellIndex)
}

// NativeValidityHash 计算批次有效性哈希
//
// validityHash = Poseidon2(commitment_1, ..., commitment_N, timestamp)
// 填充槽位的承诺取0，与电路内保持同一填充向量。
func NativeValidityHash(commitments []*big.Int, timestamp *big.Int) *big.Int {
	inputs := make([]*big.Int, 0, len(commitments)+1)
	inputs = append(inputs, commitments...)
	inputs = append(inputs, timestamp)
	return NativeHash(inputs...)
}

// NativeBatchHash 计算批量聚合哈希
//
// batchHash = Poseidon2(memberHash_1, ..., memberHash_N, totalMatches)
func NativeBatchHash(memberHashes []*big.Int, totalMatches *big.Int) *big.Int {
	inputs := make([]*big.Int, 0, len(memberHashes)+1)
	inputs = append(inputs, memberHashes...)
	inputs = append(inputs, totalMatches)
	return NativeHash(inputs...)
}
