package zkproof

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	// 基础设施
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"

	// 电路
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof/circuits"

	// gnark ZK库
	"github.com/consensys/gnark/frontend"
	gnarklogger "github.com/consensys/gnark/logger"

	// zerolog for gnark logger
	"github.com/rs/zerolog"

	"github.com/google/uuid"
)

// ============================================================================
// 证明器（协调者侧）
// ============================================================================
//
// 🎯 **专门职责**：
// 接受撮合/有效性赋值，构建witness，生成密码学证明，
// 组装成验证引擎可消费的证明对象（公共输入按布局排列）。
//
// ⚠️ **注意**：
// 证明器与验证器通过PublicInputLayout共享公共输入约定，
// 布局变更必须两侧同时生效。
//
// ============================================================================

// CurrentCircuitVersion 当前电路版本
const CurrentCircuitVersion uint32 = 1

// OrderInput 撮合证明的单个订单赋值
type OrderInput struct {
	Price      uint64   // 价格
	Amount     uint64   // 数量
	Side       uint8    // 方向（0=买，1=卖）
	TraderHash *big.Int // 交易者哈希（field元素）
	Nonce      *big.Int // 承诺随机数（field元素）
}

// Commitment 计算该订单的承诺
func (o *OrderInput) Commitment() *big.Int {
	return circuits.NativeOrderCommitment(
		new(big.Int).SetUint64(o.Price),
		new(big.Int).SetUint64(o.Amount),
		big.NewInt(int64(o.Side)),
		o.TraderHash,
		o.Nonce,
	)
}

// MatchAssignment 撮合证明赋值
type MatchAssignment struct {
	Orders        []*OrderInput // 活跃订单（不足N个自动零填充）
	BuyIndex      int           // 买单槽位索引
	SellIndex     int           // 卖单槽位索引
	MatchedPrice  uint64        // 成交价
	MatchedAmount uint64        // 成交量
	PoolBinding   *big.Int      // 池绑定（field元素）
	Operators     []string      // 参与操作者
}

// ValidityOrderInput 有效性证明的单个订单赋值
type ValidityOrderInput struct {
	Price      uint64
	Amount     uint64
	Deadline   uint64 // Unix秒
	TraderHash *big.Int
	Nonce      *big.Int
}

// Commitment 计算该订单的有效性承诺
func (o *ValidityOrderInput) Commitment() *big.Int {
	return circuits.NativeValidityCommitment(
		new(big.Int).SetUint64(o.Price),
		new(big.Int).SetUint64(o.Amount),
		new(big.Int).SetUint64(o.Deadline),
		o.TraderHash,
		o.Nonce,
	)
}

// PrivacyAssignment 有效性证明赋值
type PrivacyAssignment struct {
	Orders    []*ValidityOrderInput
	MinPrice  uint64
	MaxPrice  uint64
	MinAmount uint64
	MaxAmount uint64
	Timestamp int64 // 批次时间戳（Unix秒）
	Operators []string
}

// Prover 证明器
type Prover struct {
	logger         log.Logger
	circuitManager *CircuitManager
}

// NewProver 创建证明器
func NewProver(logger log.Logger, circuitManager *CircuitManager) *Prover {
	return &Prover{
		logger:         logger,
		circuitManager: circuitManager,
	}
}

// silenceGnarkLogger 临时禁用gnark库的日志输出
//
// gnark用zerolog输出大量编译/求解调试信息，会污染结构化日志，
// 证明期间替换为丢弃输出的logger，结束后恢复。
func silenceGnarkLogger() func() {
	oldGnarkLogger := gnarklogger.Logger()
	discardLogger := zerolog.New(io.Discard).Level(zerolog.Disabled)
	gnarklogger.Set(discardLogger)
	return func() {
		gnarklogger.Set(oldGnarkLogger)
	}
}

// ProveMatch 生成撮合证明
func (p *Prover) ProveMatch(ctx context.Context, assignment *MatchAssignment) (*MatchProof, error) {
	if p == nil || p.circuitManager == nil {
		return nil, ErrProverNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batchSize := p.circuitManager.BatchSize()
	if err := p.validateMatchAssignment(assignment, batchSize); err != nil {
		return nil, err
	}

	startTime := time.Now()
	restore := silenceGnarkLogger()
	defer restore()

	// 构建witness赋值（零填充到N个槽位）
	witness, err := circuits.NewOrderMatchingCircuit(batchSize)
	if err != nil {
		return nil, WrapInvalidWitnessError(CircuitOrderMatching, err.Error())
	}

	commitments := make([]*big.Int, batchSize)
	for i := 0; i < batchSize; i++ {
		if i < len(assignment.Orders) {
			order := assignment.Orders[i]
			commitments[i] = order.Commitment()
			witness.Commitments[i] = commitments[i]
			witness.Prices[i] = order.Price
			witness.Amounts[i] = order.Amount
			witness.Sides[i] = order.Side
			witness.TraderHashes[i] = order.TraderHash
			witness.Nonces[i] = order.Nonce
		} else {
			commitments[i] = big.NewInt(0)
			witness.Commitments[i] = 0
			witness.Prices[i] = 0
			witness.Amounts[i] = 0
			witness.Sides[i] = 0
			witness.TraderHashes[i] = 0
			witness.Nonces[i] = 0
		}
	}

	matchResultHash := circuits.NativeMatchResultHash(
		new(big.Int).SetUint64(assignment.MatchedPrice),
		new(big.Int).SetUint64(assignment.MatchedAmount),
		big.NewInt(int64(assignment.BuyIndex)),
		big.NewInt(int64(assignment.SellIndex)),
	)

	witness.MatchResultHash = matchResultHash
	witness.PoolBinding = assignment.PoolBinding
	witness.MatchedPrice = assignment.MatchedPrice
	witness.MatchedAmt = assignment.MatchedAmount
	witness.BuyIndex = assignment.BuyIndex
	witness.SellIndex = assignment.SellIndex

	rawProof, entry, err := p.prove(CircuitOrderMatching, witness)
	if err != nil {
		return nil, err
	}

	// 公共输入按PublicInputLayout组装
	layout := NewPublicInputLayout(batchSize)
	publicInputs := make([]*big.Int, 0, layout.Len())
	publicInputs = append(publicInputs, commitments...)
	publicInputs = append(publicInputs,
		matchResultHash,
		new(big.Int).Set(assignment.PoolBinding),
		new(big.Int).SetUint64(assignment.MatchedPrice),
		new(big.Int).SetUint64(assignment.MatchedAmount),
	)

	proof := &MatchProof{
		ProofID:             uuid.New().String(),
		RawProof:            rawProof,
		PublicInputs:        publicInputs,
		PoolBinding:         new(big.Int).Set(assignment.PoolBinding),
		Timestamp:           time.Now().Unix(),
		Operators:           assignment.Operators,
		OrderCount:          batchSize,
		CircuitVersion:      CurrentCircuitVersion,
		Scheme:              p.schemeName(),
		Curve:               p.curveName(),
		VerificationKeyHash: entry.vkHash,
	}

	if p.logger != nil {
		p.logger.Debugf("撮合证明生成完成: proofID=%s, 耗时=%v, 大小=%d字节",
			proof.ProofID, time.Since(startTime), len(rawProof))
	}

	return proof, nil
}

// ProvePrivacy 生成隐私有效性证明
func (p *Prover) ProvePrivacy(ctx context.Context, assignment *PrivacyAssignment) (*PrivacyProof, error) {
	if p == nil || p.circuitManager == nil {
		return nil, ErrProverNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batchSize := p.circuitManager.BatchSize()
	if assignment == nil || len(assignment.Orders) == 0 {
		return nil, WrapInvalidWitnessError(CircuitPrivacyValidity, "no orders")
	}
	if len(assignment.Orders) > batchSize {
		return nil, WrapInvalidWitnessError(CircuitPrivacyValidity,
			fmt.Sprintf("orders exceed batch size: %d > %d", len(assignment.Orders), batchSize))
	}

	startTime := time.Now()
	restore := silenceGnarkLogger()
	defer restore()

	witness, err := circuits.NewPrivacyValidityCircuit(batchSize)
	if err != nil {
		return nil, WrapInvalidWitnessError(CircuitPrivacyValidity, err.Error())
	}

	commitments := make([]*big.Int, batchSize)
	for i := 0; i < batchSize; i++ {
		if i < len(assignment.Orders) {
			order := assignment.Orders[i]
			commitments[i] = order.Commitment()
			witness.Commitments[i] = commitments[i]
			witness.Prices[i] = order.Price
			witness.Amounts[i] = order.Amount
			witness.Deadlines[i] = order.Deadline
			witness.TraderHashes[i] = order.TraderHash
			witness.Nonces[i] = order.Nonce
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

	timestamp := big.NewInt(assignment.Timestamp)
	validityHash := circuits.NativeValidityHash(commitments, timestamp)

	witness.ValidityHash = validityHash
	witness.Timestamp = assignment.Timestamp
	witness.MinPrice = assignment.MinPrice
	witness.MaxPrice = assignment.MaxPrice
	witness.MinAmount = assignment.MinAmount
	witness.MaxAmount = assignment.MaxAmount

	rawProof, entry, err := p.prove(CircuitPrivacyValidity, witness)
	if err != nil {
		return nil, err
	}

	layout := NewPrivacyInputLayout(batchSize)
	publicInputs := make([]*big.Int, 0, layout.Len())
	publicInputs = append(publicInputs, commitments...)
	publicInputs = append(publicInputs, validityHash, new(big.Int).Set(timestamp))

	proof := &PrivacyProof{
		ProofID:             uuid.New().String(),
		RawProof:            rawProof,
		PublicInputs:        publicInputs,
		Timestamp:           time.Now().Unix(),
		Operators:           assignment.Operators,
		OrderCount:          batchSize,
		CircuitVersion:      CurrentCircuitVersion,
		Scheme:              p.schemeName(),
		Curve:               p.curveName(),
		VerificationKeyHash: entry.vkHash,
	}

	if p.logger != nil {
		p.logger.Debugf("有效性证明生成完成: proofID=%s, 耗时=%v", proof.ProofID, time.Since(startTime))
	}

	return proof, nil
}

// ProveBatch 生成批量撮合证明
//
// 成员撮合证明由ProveMatch产出；聚合证明把成员结果哈希集合
// 与撮合总数绑定到批次哈希。
func (p *Prover) ProveBatch(ctx context.Context, members []*MatchProof, operators []string) (*BatchProof, error) {
	if p == nil || p.circuitManager == nil {
		return nil, ErrProverNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batchSize := p.circuitManager.BatchSize()
	if len(members) == 0 {
		return nil, WrapInvalidWitnessError(CircuitBatchAggregate, "no member proofs")
	}
	if len(members) > batchSize {
		return nil, WrapInvalidWitnessError(CircuitBatchAggregate,
			fmt.Sprintf("members exceed batch size: %d > %d", len(members), batchSize))
	}

	restore := silenceGnarkLogger()
	defer restore()

	// 成员哈希 = 各成员公共输入中的撮合结果哈希
	memberHashes := make([]*big.Int, batchSize)
	for i := 0; i < batchSize; i++ {
		if i < len(members) {
			member := members[i]
			if err := member.Validate(); err != nil {
				return nil, fmt.Errorf("批次成员%d无效: %w", i, err)
			}
			memberLayout := NewPublicInputLayout(member.OrderCount)
			memberHashes[i] = memberLayout.MatchResultHash(member.PublicInputs)
		} else {
			memberHashes[i] = big.NewInt(0)
		}
	}

	totalMatches := big.NewInt(int64(len(members)))
	batchHash := circuits.NativeBatchHash(memberHashes, totalMatches)

	witness, err := circuits.NewBatchAggregateCircuit(batchSize)
	if err != nil {
		return nil, WrapInvalidWitnessError(CircuitBatchAggregate, err.Error())
	}
	for i, h := range memberHashes {
		witness.MemberHashes[i] = h
	}
	witness.TotalMatches = totalMatches
	witness.BatchHash = batchHash

	rawProof, entry, err := p.prove(CircuitBatchAggregate, witness)
	if err != nil {
		return nil, err
	}

	return &BatchProof{
		ProofID:             uuid.New().String(),
		Members:             members,
		RawProof:            rawProof,
		PublicInputs:        []*big.Int{batchHash, totalMatches},
		Timestamp:           time.Now().Unix(),
		Operators:           operators,
		CircuitVersion:      CurrentCircuitVersion,
		Scheme:              p.schemeName(),
		Curve:               p.curveName(),
		VerificationKeyHash: entry.vkHash,
	}, nil
}

// prove 公共证明路径：取可信设置、构建witness、生成并序列化证明
func (p *Prover) prove(circuitID string, assignment frontend.Circuit) ([]byte, *trustedSetupEntry, error) {
	entry, err := p.circuitManager.GetTrustedSetup(circuitID, CurrentCircuitVersion)
	if err != nil {
		return nil, nil, err
	}

	curveID, err := p.circuitManager.resolveCurveID()
	if err != nil {
		return nil, nil, err
	}

	scheme, err := p.circuitManager.resolveScheme()
	if err != nil {
		return nil, nil, err
	}

	fullWitness, err := frontend.NewWitness(assignment, curveID.ScalarField())
	if err != nil {
		return nil, nil, WrapInvalidWitnessError(circuitID, err.Error())
	}

	proof, err := scheme.Prove(entry.compiled, entry.provingKey, fullWitness)
	if err != nil {
		return nil, nil, WrapProofGenerationFailedError(circuitID, err)
	}

	rawProof, err := scheme.SerializeProof(proof)
	if err != nil {
		return nil, nil, WrapProofGenerationFailedError(circuitID, err)
	}

	return rawProof, entry, nil
}

// validateMatchAssignment 检查撮合赋值的结构合法性（密码学约束交给电路）
func (p *Prover) validateMatchAssignment(assignment *MatchAssignment, batchSize int) error {
	if assignment == nil {
		return WrapInvalidWitnessError(CircuitOrderMatching, "assignment is nil")
	}
	if len(assignment.Orders) < circuits.MinBatchOrders {
		return WrapInvalidWitnessError(CircuitOrderMatching, "at least two orders required")
	}
	if len(assignment.Orders) > batchSize {
		return WrapInvalidWitnessError(CircuitOrderMatching,
			fmt.Sprintf("orders exceed batch size: %d > %d", len(assignment.Orders), batchSize))
	}
	if assignment.BuyIndex < 0 || assignment.BuyIndex >= len(assignment.Orders) {
		return WrapInvalidWitnessError(CircuitOrderMatching, "buy index out of range")
	}
	if assignment.SellIndex < 0 || assignment.SellIndex >= len(assignment.Orders) {
		return WrapInvalidWitnessError(CircuitOrderMatching, "sell index out of range")
	}
	if assignment.BuyIndex == assignment.SellIndex {
		return WrapInvalidWitnessError(CircuitOrderMatching, "buy and sell index must differ")
	}
	if assignment.PoolBinding == nil {
		return WrapInvalidWitnessError(CircuitOrderMatching, "pool binding is nil")
	}
	for i, order := range assignment.Orders {
		if order == nil || order.TraderHash == nil || order.Nonce == nil {
			return WrapInvalidWitnessError(CircuitOrderMatching, fmt.Sprintf("order %d incomplete", i))
		}
	}
	return nil
}

func (p *Prover) schemeName() string {
	scheme, err := p.circuitManager.resolveScheme()
	if err != nil {
		return ""
	}
	return scheme.SchemeName()
}

func (p *Prover) curveName() string {
	if p.circuitManager.options == nil {
		return "bls12-377"
	}
	return p.circuitManager.options.Curve
}
