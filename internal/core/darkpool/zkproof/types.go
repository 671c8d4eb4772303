package zkproof

import (
	"fmt"
	"math/big"
)

// ============================================================================
// 证明对象与公共输入布局
// ============================================================================
//
// 🎯 **专门职责**：
// 定义提交给验证引擎的三类证明对象（撮合/批量/有效性），以及
// 公共输入的命名布局。
//
// ⚠️ **布局设计决策**：
// 公共输入在witness中天然是有序field元素数组，生产者与验证者
// 对"第几个元素是什么"的约定一旦错位不会报错，只会静默接受
// 错误语义。因此布局收敛到PublicInputLayout一个类型：双方都
// 通过它的命名访问器读写数组，任何布局变更只改这一处。
//
// 布局（与电路公开输入的声明顺序一致）：
//   撮合证明:  [0..N-1]=承诺  [N]=撮合结果哈希  [N+1]=池绑定
//             [N+2]=成交价  [N+3]=成交量
//   有效性证明: [0..N-1]=承诺  [N]=有效性哈希  [N+1]=时间戳
//   批量证明:  [0]=批次哈希  [1]=撮合总数
//
// ============================================================================

// ProofKind 证明类别
type ProofKind string

const (
	// ProofKindMatch 撮合证明
	ProofKindMatch ProofKind = "match"

	// ProofKindBatch 批量撮合证明
	ProofKindBatch ProofKind = "batch"

	// ProofKindPrivacy 隐私有效性证明
	ProofKindPrivacy ProofKind = "privacy"
)

// ============================================================================
// 公共输入布局
// ============================================================================

// PublicInputLayout 撮合证明的公共输入布局
type PublicInputLayout struct {
	// BatchSize 电路槽位数N
	BatchSize int
}

// NewPublicInputLayout 创建撮合证明公共输入布局
func NewPublicInputLayout(batchSize int) PublicInputLayout {
	return PublicInputLayout{BatchSize: batchSize}
}

// Len 公共输入总长度
func (l PublicInputLayout) Len() int {
	return l.BatchSize + 4
}

// Validate 校验输入数组长度与布局一致
func (l PublicInputLayout) Validate(inputs []*big.Int) error {
	if len(inputs) != l.Len() {
		return fmt.Errorf("公共输入长度不符: expected=%d, actual=%d", l.Len(), len(inputs))
	}
	for i, input := range inputs {
		if input == nil {
			return fmt.Errorf("公共输入第%d个元素为nil", i)
		}
	}
	return nil
}

// Commitments 订单承诺段
func (l PublicInputLayout) Commitments(inputs []*big.Int) []*big.Int {
	return inputs[:l.BatchSize]
}

// MatchResultHash 撮合结果哈希
func (l PublicInputLayout) MatchResultHash(inputs []*big.Int) *big.Int {
	return inputs[l.BatchSize]
}

// PoolBinding 池绑定
func (l PublicInputLayout) PoolBinding(inputs []*big.Int) *big.Int {
	return inputs[l.BatchSize+1]
}

// ExecutionPrice 成交价
func (l PublicInputLayout) ExecutionPrice(inputs []*big.Int) *big.Int {
	return inputs[l.BatchSize+2]
}

// TotalVolume 成交量
func (l PublicInputLayout) TotalVolume(inputs []*big.Int) *big.Int {
	return inputs[l.BatchSize+3]
}

// PrivacyInputLayout 有效性证明的公共输入布局
type PrivacyInputLayout struct {
	BatchSize int
}

// NewPrivacyInputLayout 创建有效性证明公共输入布局
func NewPrivacyInputLayout(batchSize int) PrivacyInputLayout {
	return PrivacyInputLayout{BatchSize: batchSize}
}

// Len 公共输入总长度
func (l PrivacyInputLayout) Len() int {
	return l.BatchSize + 2
}

// Validate 校验输入数组长度与布局一致
func (l PrivacyInputLayout) Validate(inputs []*big.Int) error {
	if len(inputs) != l.Len() {
		return fmt.Errorf("公共输入长度不符: expected=%d, actual=%d", l.Len(), len(inputs))
	}
	for i, input := range inputs {
		if input == nil {
			return fmt.Errorf("公共输入第%d个元素为nil", i)
		}
	}
	return nil
}

// Commitments 订单承诺段
func (l PrivacyInputLayout) Commitments(inputs []*big.Int) []*big.Int {
	return inputs[:l.BatchSize]
}

// ValidityHash 有效性哈希
func (l PrivacyInputLayout) ValidityHash(inputs []*big.Int) *big.Int {
	return inputs[l.BatchSize]
}

// Timestamp 批次时间戳
func (l PrivacyInputLayout) Timestamp(inputs []*big.Int) *big.Int {
	return inputs[l.BatchSize+1]
}

// BatchInputLayout 批量聚合证明的公共输入布局
type BatchInputLayout struct{}

// Len 公共输入总长度
func (l BatchInputLayout) Len() int { return 2 }

// Validate 校验输入数组长度与布局一致
func (l BatchInputLayout) Validate(inputs []*big.Int) error {
	if len(inputs) != l.Len() {
		return fmt.Errorf("公共输入长度不符: expected=%d, actual=%d", l.Len(), len(inputs))
	}
	for i, input := range inputs {
		if input == nil {
			return fmt.Errorf("公共输入第%d个元素为nil", i)
		}
	}
	return nil
}

// BatchHash 批次哈希
func (l BatchInputLayout) BatchHash(inputs []*big.Int) *big.Int { return inputs[0] }

// TotalMatches 撮合总数
func (l BatchInputLayout) TotalMatches(inputs []*big.Int) *big.Int { return inputs[1] }

// ============================================================================
// 证明对象
// ============================================================================

// MatchProof 撮合证明对象（验证引擎的输入）
type MatchProof struct {
	ProofID             string     // 证明唯一标识
	RawProof            []byte     // 序列化的密码学证明
	PublicInputs        []*big.Int // 有序公共输入（按PublicInputLayout）
	PoolBinding         *big.Int   // 声明的池绑定
	Timestamp           int64      // 声明的证明时间戳（Unix秒）
	Operators           []string   // 声明的参与操作者集合
	OrderCount          int        // 声明的批次槽位数N
	CircuitVersion      uint32     // 电路版本
	Scheme              string     // 证明方案（groth16/plonk）
	Curve               string     // 曲线（bls12-377）
	VerificationKeyHash []byte     // 声明的验证密钥哈希
}

// Validate 检查证明对象的结构完整性（不含密码学验证）
func (p *MatchProof) Validate() error {
	if p == nil {
		return WrapInvalidProofError("", "proof is nil")
	}
	if len(p.RawProof) == 0 {
		return WrapInvalidProofError(p.ProofID, "raw proof is empty")
	}
	if len(p.PublicInputs) == 0 {
		return WrapInvalidPublicInputsError(p.ProofID, "public inputs are empty")
	}
	if p.PoolBinding == nil {
		return WrapInvalidPublicInputsError(p.ProofID, "pool binding is nil")
	}
	if p.OrderCount <= 0 {
		return WrapInvalidPublicInputsError(p.ProofID, "order count must be positive")
	}
	return NewPublicInputLayout(p.OrderCount).Validate(p.PublicInputs)
}

// PrivacyProof 隐私有效性证明对象
type PrivacyProof struct {
	ProofID             string
	RawProof            []byte
	PublicInputs        []*big.Int // 按PrivacyInputLayout
	Timestamp           int64
	Operators           []string
	OrderCount          int
	CircuitVersion      uint32
	Scheme              string
	Curve               string
	VerificationKeyHash []byte
}

// Validate 检查证明对象的结构完整性
func (p *PrivacyProof) Validate() error {
	if p == nil {
		return WrapInvalidProofError("", "proof is nil")
	}
	if len(p.RawProof) == 0 {
		return WrapInvalidProofError(p.ProofID, "raw proof is empty")
	}
	if len(p.PublicInputs) == 0 {
		return WrapInvalidPublicInputsError(p.ProofID, "public inputs are empty")
	}
	if p.OrderCount <= 0 {
		return WrapInvalidPublicInputsError(p.ProofID, "order count must be positive")
	}
	return NewPrivacyInputLayout(p.OrderCount).Validate(p.PublicInputs)
}

// BatchProof 批量撮合证明对象
//
// 成员证明逐个验证，聚合证明把成员哈希集合与批次哈希绑死。
// 任何一个成员失败整批拒绝（fail-closed）。
type BatchProof struct {
	ProofID             string
	Members             []*MatchProof // 成员撮合证明
	RawProof            []byte        // 聚合电路的序列化证明
	PublicInputs        []*big.Int    // 按BatchInputLayout
	Timestamp           int64
	Operators           []string
	CircuitVersion      uint32
	Scheme              string
	Curve               string
	VerificationKeyHash []byte
}

// Validate 检查证明对象的结构完整性
func (p *BatchProof) Validate() error {
	if p == nil {
		return WrapInvalidProofError("", "proof is nil")
	}
	if len(p.Members) == 0 {
		return WrapInvalidProofError(p.ProofID, "batch has no member proofs")
	}
	if len(p.RawProof) == 0 {
		return WrapInvalidProofError(p.ProofID, "aggregate raw proof is empty")
	}
	if err := (BatchInputLayout{}).Validate(p.PublicInputs); err != nil {
		return WrapInvalidPublicInputsError(p.ProofID, err.Error())
	}
	for i, member := range p.Members {
		if err := member.Validate(); err != nil {
			return fmt.Errorf("批次成员%d无效: %w", i, err)
		}
	}
	return nil
}

// Envelope 证明信封（按类别分发给对应的验证路径）
type Envelope struct {
	Kind    ProofKind
	Match   *MatchProof
	Batch   *BatchProof
	Privacy *PrivacyProof
}

// ============================================================================
// 验证结果
// ============================================================================

// VerifiedMatch 撮合证明验证成功后提取的结果
type VerifiedMatch struct {
	MatchHash      *big.Int // 撮合结果哈希
	ExecutionPrice *big.Int // 成交价
	TotalVolume    *big.Int // 成交量
	Operators      []string // 参与操作者
	Timestamp      int64    // 证明时间戳
}

// VerifiedBatch 批量证明验证成功后提取的结果
type VerifiedBatch struct {
	BatchHash    *big.Int
	TotalMatches *big.Int
	Matches      []*VerifiedMatch
	Operators    []string
	Timestamp    int64
}

// VerifiedPrivacy 有效性证明验证成功后提取的结果
type VerifiedPrivacy struct {
	ValidityHash *big.Int
	Commitments  []*big.Int
	Timestamp    int64
	Operators    []string
}
