package zkproof

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"
	hashsvc "github.com/veilmatch/v1/internal/core/infrastructure/crypto/hash"
	"github.com/veilmatch/v1/internal/core/infrastructure/log"
)

// ============================================================================
// 验证引擎测试（证明生成→验证全链路）
// ============================================================================
//
// 🎯 **测试目的**：
// - 合法撮合证明能通过验证，且按布局正确提取成交价/成交量
// - 六步检查顺序与类型化错误：池绑定、新鲜度、操作者、密钥、密码学验证
// - 批量证明fail-closed：任何成员失败整批拒绝
//
// ⚠️ **注意**：
// 可信设置生成开销大，测试共享一个CircuitManager（进程内缓存）。
//
// ============================================================================

func newTestOptions() *darkpoolcfg.Options {
	return darkpoolcfg.New(&darkpoolcfg.Options{
		MaxBatchOrders: 2,
		ProvingScheme:  "groth16",
		Curve:          "bls12-377",
	}).GetOptions()
}

// newTestEngine 构建共享的证明器与验证器
func newTestEngine(t *testing.T) (*Prover, *Verifier) {
	t.Helper()

	logger := log.GetLogger()
	options := newTestOptions()
	manager := NewCircuitManager(logger, options, hashsvc.NewHashService())
	return NewProver(logger, manager), NewVerifier(logger, options, manager)
}

// newTestMatchAssignment 一买一卖的合法撮合赋值
func newTestMatchAssignment(poolBinding *big.Int) *MatchAssignment {
	return &MatchAssignment{
		Orders: []*OrderInput{
			{Price: 105, Amount: 10, Side: 0, TraderHash: big.NewInt(1111), Nonce: big.NewInt(42)},
			{Price: 100, Amount: 7, Side: 1, TraderHash: big.NewInt(2222), Nonce: big.NewInt(43)},
		},
		BuyIndex:      0,
		SellIndex:     1,
		MatchedPrice:  102,
		MatchedAmount: 7,
		PoolBinding:   poolBinding,
		Operators:     []string{"operator-a", "operator-b"},
	}
}

// TestVerifyMatch_RoundTrip 测试撮合证明生成→验证全链路
func TestVerifyMatch_RoundTrip(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)
	require.NotEmpty(t, proof.ProofID)
	require.NotEmpty(t, proof.RawProof)
	require.Equal(t, "groth16", proof.Scheme)

	result, err := verifier.VerifyMatch(ctx, proof, poolBinding)
	require.NoError(t, err)

	// 成交价落在买卖价差内，成交量不超过任一方
	require.Equal(t, int64(102), result.ExecutionPrice.Int64())
	require.Equal(t, int64(7), result.TotalVolume.Int64())
	require.Equal(t, proof.Operators, result.Operators)
	require.NotNil(t, result.MatchHash)
}

// TestVerifyMatch_PoolBindingMismatch 测试池绑定不符返回ErrInvalidPublicInputs
func TestVerifyMatch_PoolBindingMismatch(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(big.NewInt(7701)))
	require.NoError(t, err)

	_, err = verifier.VerifyMatch(ctx, proof, big.NewInt(9999))
	require.ErrorIs(t, err, ErrInvalidPublicInputs)
}

// TestVerifyMatch_Expired 测试超出新鲜度窗口返回ErrProofExpired
func TestVerifyMatch_Expired(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)

	// 把验证时钟拨到窗口之外
	verifier.now = func() time.Time {
		return time.Unix(proof.Timestamp, 0).Add(verifier.freshnessWindow() + time.Second)
	}

	_, err = verifier.VerifyMatch(ctx, proof, poolBinding)
	require.ErrorIs(t, err, ErrProofExpired)
}

// TestVerifyMatch_NoOperators 测试操作者集合为空返回ErrInsufficientOperators
func TestVerifyMatch_NoOperators(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)
	proof.Operators = nil

	_, err = verifier.VerifyMatch(ctx, proof, poolBinding)
	require.ErrorIs(t, err, ErrInsufficientOperators)
}

// TestVerifyMatch_TamperedPublicInputs 测试公共输入被篡改后密码学验证失败
func TestVerifyMatch_TamperedPublicInputs(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)

	// 私抬成交量：公共输入与证明不再对应
	layout := NewPublicInputLayout(proof.OrderCount)
	proof.PublicInputs[layout.BatchSize+3] = big.NewInt(1000)

	_, err = verifier.VerifyMatch(ctx, proof, poolBinding)
	require.ErrorIs(t, err, ErrInvalidProof)
}

// TestVerifyMatch_WrongVKHash 测试验证密钥哈希不符返回ErrInvalidVerificationKey
func TestVerifyMatch_WrongVKHash(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)
	proof.VerificationKeyHash = []byte("not-the-right-key-hash")

	_, err = verifier.VerifyMatch(ctx, proof, poolBinding)
	require.ErrorIs(t, err, ErrInvalidVerificationKey)
}

// TestVerifyMatch_UnsupportedScheme 测试方案不符返回ErrUnsupportedScheme
func TestVerifyMatch_UnsupportedScheme(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)
	proof.Scheme = "bulletproofs"

	_, err = verifier.VerifyMatch(ctx, proof, poolBinding)
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

// TestVerifyMatch_EmptyRawProof 测试空证明体返回ErrInvalidProof
func TestVerifyMatch_EmptyRawProof(t *testing.T) {
	_, verifier := newTestEngine(t)

	proof := &MatchProof{
		ProofID:      "empty",
		PublicInputs: []*big.Int{big.NewInt(1)},
		PoolBinding:  big.NewInt(1),
		OrderCount:   2,
	}

	_, err := verifier.VerifyMatch(context.Background(), proof, big.NewInt(1))
	require.ErrorIs(t, err, ErrInvalidProof)
}

// TestVerifyBatch_RoundTrip 测试批量证明全链路
func TestVerifyBatch_RoundTrip(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	member, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)

	batch, err := prover.ProveBatch(ctx, []*MatchProof{member}, []string{"operator-a"})
	require.NoError(t, err)

	result, err := verifier.VerifyBatch(ctx, batch, poolBinding)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.Equal(t, int64(1), result.TotalMatches.Int64())
	require.Equal(t, int64(102), result.Matches[0].ExecutionPrice.Int64())
}

// TestVerifyBatch_MemberFailureRejectsWhole 测试成员失败整批拒绝
func TestVerifyBatch_MemberFailureRejectsWhole(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	member, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)

	batch, err := prover.ProveBatch(ctx, []*MatchProof{member}, []string{"operator-a"})
	require.NoError(t, err)

	// 破坏成员证明的池绑定声明
	batch.Members[0].PoolBinding = big.NewInt(9999)

	_, err = verifier.VerifyBatch(ctx, batch, poolBinding)
	require.ErrorIs(t, err, ErrInvalidPublicInputs)
}

// TestVerifyPrivacy_RoundTrip 测试有效性证明全链路
func TestVerifyPrivacy_RoundTrip(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()

	now := time.Now().Unix()
	assignment := &PrivacyAssignment{
		Orders: []*ValidityOrderInput{
			{Price: 105, Amount: 10, Deadline: uint64(now + 600), TraderHash: big.NewInt(1111), Nonce: big.NewInt(42)},
			{Price: 100, Amount: 7, Deadline: uint64(now + 900), TraderHash: big.NewInt(2222), Nonce: big.NewInt(43)},
		},
		MinPrice:  10,
		MaxPrice:  1000,
		MinAmount: 1,
		MaxAmount: 100,
		Timestamp: now,
		Operators: []string{"operator-a"},
	}

	proof, err := prover.ProvePrivacy(ctx, assignment)
	require.NoError(t, err)

	result, err := verifier.VerifyPrivacy(ctx, proof)
	require.NoError(t, err)
	require.Len(t, result.Commitments, 2)
	require.NotNil(t, result.ValidityHash)
}

// TestVerify_EnvelopeDispatch 测试信封按类别分发
func TestVerify_EnvelopeDispatch(t *testing.T) {
	prover, verifier := newTestEngine(t)
	ctx := context.Background()
	poolBinding := big.NewInt(7701)

	proof, err := prover.ProveMatch(ctx, newTestMatchAssignment(poolBinding))
	require.NoError(t, err)

	out, err := verifier.Verify(ctx, &Envelope{Kind: ProofKindMatch, Match: proof}, poolBinding)
	require.NoError(t, err)
	require.IsType(t, &VerifiedMatch{}, out)

	_, err = verifier.Verify(ctx, &Envelope{Kind: "unknown"}, poolBinding)
	require.ErrorIs(t, err, ErrInvalidProof)
}

// TestPublicInputLayout_Accessors 测试布局访问器与长度校验
func TestPublicInputLayout_Accessors(t *testing.T) {
	layout := NewPublicInputLayout(2)
	require.Equal(t, 6, layout.Len())

	inputs := []*big.Int{
		big.NewInt(11), big.NewInt(22), // 承诺
		big.NewInt(33), // 撮合结果哈希
		big.NewInt(44), // 池绑定
		big.NewInt(55), // 成交价
		big.NewInt(66), // 成交量
	}
	require.NoError(t, layout.Validate(inputs))
	require.Equal(t, int64(33), layout.MatchResultHash(inputs).Int64())
	require.Equal(t, int64(44), layout.PoolBinding(inputs).Int64())
	require.Equal(t, int64(55), layout.ExecutionPrice(inputs).Int64())
	require.Equal(t, int64(66), layout.TotalVolume(inputs).Int64())
	require.Len(t, layout.Commitments(inputs), 2)

	require.Error(t, layout.Validate(inputs[:5]))
	inputs[3] = nil
	require.Error(t, layout.Validate(inputs))
}

// TestProveMatch_InvalidAssignment 测试赋值结构校验
func TestProveMatch_InvalidAssignment(t *testing.T) {
	prover, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := prover.ProveMatch(ctx, nil)
	require.ErrorIs(t, err, ErrInvalidWitness)

	assignment := newTestMatchAssignment(big.NewInt(1))
	assignment.SellIndex = assignment.BuyIndex
	_, err = prover.ProveMatch(ctx, assignment)
	require.ErrorIs(t, err, ErrInvalidWitness)

	assignment = newTestMatchAssignment(big.NewInt(1))
	assignment.Orders = assignment.Orders[:1]
	_, err = prover.ProveMatch(ctx, assignment)
	require.ErrorIs(t, err, ErrInvalidWitness)
}
