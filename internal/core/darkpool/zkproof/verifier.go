package zkproof

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"time"

	// 基础设施
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"

	// 配置
	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"

	// 电路
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof/circuits"

	// gnark ZK库
	"github.com/consensys/gnark/frontend"
	gnarklogger "github.com/consensys/gnark/logger"

	// zerolog for gnark logger
	"github.com/rs/zerolog"
)

// ============================================================================
// 证明验证引擎
// ============================================================================
//
// 🎯 **专门职责**：
// 纯函数式验证：输入证明对象+期望上下文（池绑定、新鲜度窗口、
// 操作者要求），输出提取的验证结果或类型化失败。不触碰账本状态。
//
// 📋 **检查顺序**（短路，先到先报）：
//   1. 结构完整性（rawProof/publicInputs非空，布局长度正确）
//   2. 池绑定 == 期望池绑定，否则 ErrInvalidPublicInputs
//   3. now - timestamp <= 新鲜度窗口，否则 ErrProofExpired
//   4. 操作者集合非空，否则 ErrInsufficientOperators
//   5. 方案/曲线/验证密钥核对，否则 ErrUnsupportedScheme /
//      ErrUnsupportedCurve / ErrInvalidVerificationKey
//   6. 密码学验证，失败则 ErrInvalidProof
//
// ⚠️ **fail-closed**：
// 任何一步失败立即返回类型化错误，绝不部分信任证明。
// 批量证明任何一个成员失败则整批拒绝。
//
// ============================================================================

// Verifier 证明验证引擎
type Verifier struct {
	logger         log.Logger
	options        *darkpoolcfg.Options
	circuitManager *CircuitManager

	// now 可注入的时钟，测试用
	now func() time.Time
}

// NewVerifier 创建证明验证引擎
func NewVerifier(
	logger log.Logger,
	options *darkpoolcfg.Options,
	circuitManager *CircuitManager,
) *Verifier {
	return &Verifier{
		logger:         logger,
		options:        options,
		circuitManager: circuitManager,
		now:            time.Now,
	}
}

// freshnessWindow 证明新鲜度窗口
func (v *Verifier) freshnessWindow() time.Duration {
	if v.options == nil || v.options.FreshnessWindowSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(v.options.FreshnessWindowSeconds) * time.Second
}

// Verify 按证明类别分发验证
func (v *Verifier) Verify(ctx context.Context, envelope *Envelope, expectedPoolBinding *big.Int) (interface{}, error) {
	if envelope == nil {
		return nil, WrapInvalidProofError("", "envelope is nil")
	}

	switch envelope.Kind {
	case ProofKindMatch:
		return v.VerifyMatch(ctx, envelope.Match, expectedPoolBinding)
	case ProofKindBatch:
		return v.VerifyBatch(ctx, envelope.Batch, expectedPoolBinding)
	case ProofKindPrivacy:
		return v.VerifyPrivacy(ctx, envelope.Privacy)
	default:
		return nil, WrapInvalidProofError("", fmt.Sprintf("unknown proof kind: %s", envelope.Kind))
	}
}

// VerifyMatch 验证撮合证明
//
// 成功时按公共输入布局提取撮合结果哈希、成交价、成交量。
func (v *Verifier) VerifyMatch(ctx context.Context, proof *MatchProof, expectedPoolBinding *big.Int) (*VerifiedMatch, error) {
	if v == nil || v.circuitManager == nil {
		return nil, ErrVerifierNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. 结构完整性
	if err := proof.Validate(); err != nil {
		return nil, err
	}

	layout := NewPublicInputLayout(proof.OrderCount)

	// 2. 池绑定：声明值与公共输入槽位必须同时等于期望值
	if expectedPoolBinding == nil {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, "expected pool binding is nil")
	}
	if proof.PoolBinding.Cmp(expectedPoolBinding) != 0 {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, "pool binding mismatch")
	}
	if layout.PoolBinding(proof.PublicInputs).Cmp(expectedPoolBinding) != 0 {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, "pool binding slot mismatch")
	}

	// 3. 新鲜度窗口
	if err := v.checkFreshness(proof.ProofID, proof.Timestamp); err != nil {
		return nil, err
	}

	// 4. 操作者集合
	if len(proof.Operators) == 0 {
		return nil, fmt.Errorf("%w: proofID=%s", ErrInsufficientOperators, proof.ProofID)
	}

	// 5+6. 密钥核对与密码学验证
	assignment, err := v.buildMatchPublicAssignment(proof, layout)
	if err != nil {
		return nil, err
	}
	if err := v.verifyRawProof(ctx, CircuitOrderMatching, proof.CircuitVersion, proof.ProofID,
		proof.Scheme, proof.Curve, proof.VerificationKeyHash, proof.RawProof, assignment); err != nil {
		return nil, err
	}

	result := &VerifiedMatch{
		MatchHash:      new(big.Int).Set(layout.MatchResultHash(proof.PublicInputs)),
		ExecutionPrice: new(big.Int).Set(layout.ExecutionPrice(proof.PublicInputs)),
		TotalVolume:    new(big.Int).Set(layout.TotalVolume(proof.PublicInputs)),
		Operators:      proof.Operators,
		Timestamp:      proof.Timestamp,
	}

	if v.logger != nil {
		v.logger.Debugf("撮合证明验证通过: proofID=%s, 成交价=%s, 成交量=%s",
			proof.ProofID, result.ExecutionPrice, result.TotalVolume)
	}

	return result, nil
}

// VerifyBatch 验证批量撮合证明
//
// 逐个验证成员证明，再验证聚合证明；批次哈希由成员结果哈希
// 链下重算后与公共输入比对，防止聚合证明与成员集合脱钩。
func (v *Verifier) VerifyBatch(ctx context.Context, proof *BatchProof, expectedPoolBinding *big.Int) (*VerifiedBatch, error) {
	if v == nil || v.circuitManager == nil {
		return nil, ErrVerifierNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := proof.Validate(); err != nil {
		return nil, err
	}

	if err := v.checkFreshness(proof.ProofID, proof.Timestamp); err != nil {
		return nil, err
	}
	if len(proof.Operators) == 0 {
		return nil, fmt.Errorf("%w: proofID=%s", ErrInsufficientOperators, proof.ProofID)
	}

	// 成员逐个验证，任何一个失败整批拒绝
	matches := make([]*VerifiedMatch, 0, len(proof.Members))
	memberHashes := make([]*big.Int, v.circuitManager.BatchSize())
	for i := range memberHashes {
		memberHashes[i] = big.NewInt(0)
	}
	for i, member := range proof.Members {
		verified, err := v.VerifyMatch(ctx, member, expectedPoolBinding)
		if err != nil {
			return nil, fmt.Errorf("批次成员%d验证失败: %w", i, err)
		}
		matches = append(matches, verified)
		if i < len(memberHashes) {
			memberHashes[i] = verified.MatchHash
		}
	}

	batchLayout := BatchInputLayout{}
	declaredBatchHash := batchLayout.BatchHash(proof.PublicInputs)
	declaredTotal := batchLayout.TotalMatches(proof.PublicInputs)

	// 撮合总数必须与成员数一致
	if declaredTotal.Cmp(big.NewInt(int64(len(proof.Members)))) != 0 {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, "total matches mismatch")
	}

	// 批次哈希必须与成员结果哈希重算值一致
	computedBatchHash := circuits.NativeBatchHash(memberHashes, declaredTotal)
	if computedBatchHash.Cmp(declaredBatchHash) != 0 {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, "batch hash mismatch")
	}

	// 聚合证明的密码学验证
	batchSize := v.circuitManager.BatchSize()
	assignment, err := circuits.NewBatchAggregateCircuit(batchSize)
	if err != nil {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, err.Error())
	}
	assignment.BatchHash = declaredBatchHash
	assignment.TotalMatches = declaredTotal

	if err := v.verifyRawProof(ctx, CircuitBatchAggregate, proof.CircuitVersion, proof.ProofID,
		proof.Scheme, proof.Curve, proof.VerificationKeyHash, proof.RawProof, assignment); err != nil {
		return nil, err
	}

	return &VerifiedBatch{
		BatchHash:    new(big.Int).Set(declaredBatchHash),
		TotalMatches: new(big.Int).Set(declaredTotal),
		Matches:      matches,
		Operators:    proof.Operators,
		Timestamp:    proof.Timestamp,
	}, nil
}

// VerifyPrivacy 验证隐私有效性证明
func (v *Verifier) VerifyPrivacy(ctx context.Context, proof *PrivacyProof) (*VerifiedPrivacy, error) {
	if v == nil || v.circuitManager == nil {
		return nil, ErrVerifierNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := proof.Validate(); err != nil {
		return nil, err
	}

	if err := v.checkFreshness(proof.ProofID, proof.Timestamp); err != nil {
		return nil, err
	}
	if len(proof.Operators) == 0 {
		return nil, fmt.Errorf("%w: proofID=%s", ErrInsufficientOperators, proof.ProofID)
	}

	layout := NewPrivacyInputLayout(proof.OrderCount)

	assignment, err := circuits.NewPrivacyValidityCircuit(proof.OrderCount)
	if err != nil {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, err.Error())
	}
	for i, commitment := range layout.Commitments(proof.PublicInputs) {
		assignment.Commitments[i] = commitment
	}
	assignment.ValidityHash = layout.ValidityHash(proof.PublicInputs)
	assignment.Timestamp = layout.Timestamp(proof.PublicInputs)

	if err := v.verifyRawProof(ctx, CircuitPrivacyValidity, proof.CircuitVersion, proof.ProofID,
		proof.Scheme, proof.Curve, proof.VerificationKeyHash, proof.RawProof, assignment); err != nil {
		return nil, err
	}

	commitments := layout.Commitments(proof.PublicInputs)
	out := make([]*big.Int, len(commitments))
	for i, c := range commitments {
		out[i] = new(big.Int).Set(c)
	}

	return &VerifiedPrivacy{
		ValidityHash: new(big.Int).Set(layout.ValidityHash(proof.PublicInputs)),
		Commitments:  out,
		Timestamp:    proof.Timestamp,
		Operators:    proof.Operators,
	}, nil
}

// checkFreshness 检查证明时间戳是否落在新鲜度窗口内
func (v *Verifier) checkFreshness(proofID string, timestamp int64) error {
	window := v.freshnessWindow()
	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > window {
		return WrapProofExpiredError(proofID, age, window)
	}
	return nil
}

// buildMatchPublicAssignment 从公共输入构建撮合电路的公开赋值
func (v *Verifier) buildMatchPublicAssignment(proof *MatchProof, layout PublicInputLayout) (frontend.Circuit, error) {
	if proof.OrderCount != v.circuitManager.BatchSize() {
		return nil, WrapInvalidPublicInputsError(proof.ProofID,
			fmt.Sprintf("order count mismatch: proof=%d, circuit=%d", proof.OrderCount, v.circuitManager.BatchSize()))
	}

	assignment, err := circuits.NewOrderMatchingCircuit(proof.OrderCount)
	if err != nil {
		return nil, WrapInvalidPublicInputsError(proof.ProofID, err.Error())
	}
	for i, commitment := range layout.Commitments(proof.PublicInputs) {
		assignment.Commitments[i] = commitment
	}
	assignment.MatchResultHash = layout.MatchResultHash(proof.PublicInputs)
	assignment.PoolBinding = layout.PoolBinding(proof.PublicInputs)
	assignment.MatchedPrice = layout.ExecutionPrice(proof.PublicInputs)
	assignment.MatchedAmt = layout.TotalVolume(proof.PublicInputs)

	return assignment, nil
}

// verifyRawProof 密钥核对 + 密码学验证
func (v *Verifier) verifyRawProof(
	ctx context.Context,
	circuitID string,
	circuitVersion uint32,
	proofID string,
	schemeName string,
	curveName string,
	declaredVKHash []byte,
	rawProof []byte,
	publicAssignment frontend.Circuit,
) error {
	_ = ctx

	// gnark求解日志在验证路径同样需要静音
	oldGnarkLogger := gnarklogger.Logger()
	gnarklogger.Set(zerolog.New(io.Discard).Level(zerolog.Disabled))
	defer gnarklogger.Set(oldGnarkLogger)

	// 方案与曲线必须与本侧配置一致（可信设置按配置生成）
	scheme, err := v.circuitManager.resolveScheme()
	if err != nil {
		return err
	}
	if schemeName != "" && schemeName != scheme.SchemeName() {
		return WrapUnsupportedSchemeError(schemeName)
	}

	curveID, err := v.circuitManager.resolveCurveID()
	if err != nil {
		return err
	}
	if curveName != "" && v.options != nil && curveName != v.options.Curve {
		return WrapUnsupportedCurveError(curveName)
	}

	entry, err := v.circuitManager.GetTrustedSetup(circuitID, circuitVersion)
	if err != nil {
		return err
	}

	// 验证密钥哈希核对（常数时间比较，防时序侧信道）
	if len(declaredVKHash) > 0 {
		if len(entry.vkHash) == 0 || subtle.ConstantTimeCompare(declaredVKHash, entry.vkHash) != 1 {
			return fmt.Errorf("%w: proofID=%s", ErrInvalidVerificationKey, proofID)
		}
	}

	proof, err := scheme.DeserializeProof(rawProof, curveID)
	if err != nil {
		return WrapInvalidProofError(proofID, fmt.Sprintf("deserialize failed: %v", err))
	}

	publicWitness, err := frontend.NewWitness(publicAssignment, curveID.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return WrapInvalidPublicInputsError(proofID, fmt.Sprintf("build public witness failed: %v", err))
	}

	if err := scheme.Verify(proof, entry.verifyingKey, publicWitness); err != nil {
		return WrapInvalidProofError(proofID, err.Error())
	}

	return nil
}
