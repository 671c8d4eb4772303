package zkproof

import (
	"bytes"
	"fmt"
	"sync"

	// 基础设施
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"

	// gnark ZK库
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
)

// ============================================================================
// 证明方案抽象
// ============================================================================
//
// 🎯 **目的**：
//   - 统一Groth16和PlonK两种方案的编译/设置/证明/验证/序列化操作
//   - 方案通过配置选择（darkpool.Options.ProvingScheme）
//
// ⚠️ **注意**：
// PlonK路径使用测试级SRS生成（unsafekzg），只适合开发与联调；
// 生产部署必须替换为仪式产出的SRS。Groth16是默认方案。
//
// ============================================================================

// ProvingScheme 证明方案接口
type ProvingScheme interface {
	// SchemeName 返回方案名称
	SchemeName() string

	// Setup 生成可信设置（proving key和verifying key）
	Setup(compiledCircuit constraint.ConstraintSystem) (ProvingKey, VerifyingKey, error)

	// Prove 生成证明
	Prove(compiledCircuit constraint.ConstraintSystem, provingKey ProvingKey, witness witness.Witness) (Proof, error)

	// Verify 验证证明
	Verify(proof Proof, verifyingKey VerifyingKey, publicWitness witness.Witness) error

	// SerializeProof 序列化证明
	SerializeProof(proof Proof) ([]byte, error)

	// DeserializeProof 反序列化证明
	DeserializeProof(data []byte, curveID ecc.ID) (Proof, error)

	// SerializeVerifyingKey 序列化验证密钥
	SerializeVerifyingKey(vk VerifyingKey) ([]byte, error)

	// DeserializeVerifyingKey 反序列化验证密钥
	DeserializeVerifyingKey(data []byte, curveID ecc.ID) (VerifyingKey, error)

	// GetBuilder 获取电路构建器
	GetBuilder() frontend.NewBuilder
}

// Proof 证明接口（类型擦除）
type Proof interface{}

// ProvingKey 证明密钥接口（类型擦除）
type ProvingKey interface{}

// VerifyingKey 验证密钥接口（类型擦除）
type VerifyingKey interface{}

// Groth16Scheme Groth16证明方案实现
type Groth16Scheme struct {
	logger log.Logger
}

// NewGroth16Scheme 创建Groth16证明方案
func NewGroth16Scheme(logger log.Logger) *Groth16Scheme {
	return &Groth16Scheme{logger: logger}
}

// SchemeName 返回方案名称
func (s *Groth16Scheme) SchemeName() string {
	return "groth16"
}

// GetBuilder 获取电路构建器
func (s *Groth16Scheme) GetBuilder() frontend.NewBuilder {
	return r1cs.NewBuilder
}

// Setup 生成可信设置
func (s *Groth16Scheme) Setup(compiledCircuit constraint.ConstraintSystem) (ProvingKey, VerifyingKey, error) {
	pk, vk, err := groth16.Setup(compiledCircuit)
	if err != nil {
		return nil, nil, fmt.Errorf("Groth16 Setup失败: %w", err)
	}
	return pk, vk, nil
}

// Prove 生成证明
func (s *Groth16Scheme) Prove(compiledCircuit constraint.ConstraintSystem, provingKey ProvingKey, witness witness.Witness) (Proof, error) {
	groth16Pk, ok := provingKey.(groth16.ProvingKey)
	if !ok {
		return nil, fmt.Errorf("无效的Groth16证明密钥类型")
	}

	proof, err := groth16.Prove(compiledCircuit, groth16Pk, witness)
	if err != nil {
		return nil, fmt.Errorf("Groth16 Prove失败: %w", err)
	}
	return proof, nil
}

// Verify 验证证明
func (s *Groth16Scheme) Verify(proof Proof, verifyingKey VerifyingKey, publicWitness witness.Witness) error {
	groth16Proof, ok := proof.(groth16.Proof)
	if !ok {
		return fmt.Errorf("无效的Groth16证明类型")
	}

	vk, ok := verifyingKey.(groth16.VerifyingKey)
	if !ok {
		return fmt.Errorf("无效的Groth16验证密钥类型")
	}

	return groth16.Verify(groth16Proof, vk, publicWitness)
}

// SerializeProof 序列化证明
func (s *Groth16Scheme) SerializeProof(proof Proof) ([]byte, error) {
	groth16Proof, ok := proof.(groth16.Proof)
	if !ok {
		return nil, fmt.Errorf("无效的Groth16证明类型")
	}

	var buf bytes.Buffer
	if _, err := groth16Proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("序列化Groth16证明失败: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeProof 反序列化证明
func (s *Groth16Scheme) DeserializeProof(data []byte, curveID ecc.ID) (Proof, error) {
	proof := groth16.NewProof(curveID)
	if _, err := proof.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("反序列化Groth16证明失败: %w", err)
	}
	return proof, nil
}

// SerializeVerifyingKey 序列化验证密钥
func (s *Groth16Scheme) SerializeVerifyingKey(vk VerifyingKey) ([]byte, error) {
	groth16Vk, ok := vk.(groth16.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("无效的Groth16验证密钥类型")
	}

	var buf bytes.Buffer
	if _, err := groth16Vk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("序列化Groth16验证密钥失败: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeVerifyingKey 反序列化验证密钥
func (s *Groth16Scheme) DeserializeVerifyingKey(data []byte, curveID ecc.ID) (VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(curveID)
	if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("反序列化Groth16验证密钥失败: %w", err)
	}
	return vk, nil
}

// PlonKScheme PlonK证明方案实现
type PlonKScheme struct {
	logger log.Logger
}

// NewPlonKScheme 创建PlonK证明方案
func NewPlonKScheme(logger log.Logger) *PlonKScheme {
	return &PlonKScheme{logger: logger}
}

// SchemeName 返回方案名称
func (s *PlonKScheme) SchemeName() string {
	return "plonk"
}

// GetBuilder 获取电路构建器
func (s *PlonKScheme) GetBuilder() frontend.NewBuilder {
	return scs.NewBuilder
}

// Setup 生成可信设置
//
// ⚠️ SRS用unsafekzg按电路规模生成，仅限开发环境
func (s *PlonKScheme) Setup(compiledCircuit constraint.ConstraintSystem) (ProvingKey, VerifyingKey, error) {
	srs, srsLagrange, err := unsafekzg.NewSRS(compiledCircuit)
	if err != nil {
		return nil, nil, fmt.Errorf("PlonK SRS生成失败: %w", err)
	}

	pk, vk, err := plonk.Setup(compiledCircuit, srs, srsLagrange)
	if err != nil {
		return nil, nil, fmt.Errorf("PlonK Setup失败: %w", err)
	}
	return pk, vk, nil
}

// Prove 生成证明
func (s *PlonKScheme) Prove(compiledCircuit constraint.ConstraintSystem, provingKey ProvingKey, witness witness.Witness) (Proof, error) {
	plonkPk, ok := provingKey.(plonk.ProvingKey)
	if !ok {
		return nil, fmt.Errorf("无效的PlonK证明密钥类型")
	}

	proof, err := plonk.Prove(compiledCircuit, plonkPk, witness)
	if err != nil {
		return nil, fmt.Errorf("PlonK Prove失败: %w", err)
	}
	return proof, nil
}

// Verify 验证证明
func (s *PlonKScheme) Verify(proof Proof, verifyingKey VerifyingKey, publicWitness witness.Witness) error {
	plonkProof, ok := proof.(plonk.Proof)
	if !ok {
		return fmt.Errorf("无效的PlonK证明类型")
	}

	vk, ok := verifyingKey.(plonk.VerifyingKey)
	if !ok {
		return fmt.Errorf("无效的PlonK验证密钥类型")
	}

	return plonk.Verify(plonkProof, vk, publicWitness)
}

// SerializeProof 序列化证明
func (s *PlonKScheme) SerializeProof(proof Proof) ([]byte, error) {
	plonkProof, ok := proof.(plonk.Proof)
	if !ok {
		return nil, fmt.Errorf("无效的PlonK证明类型")
	}

	var buf bytes.Buffer
	if _, err := plonkProof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("序列化PlonK证明失败: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeProof 反序列化证明
func (s *PlonKScheme) DeserializeProof(data []byte, curveID ecc.ID) (Proof, error) {
	proof := plonk.NewProof(curveID)
	if _, err := proof.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("反序列化PlonK证明失败: %w", err)
	}
	return proof, nil
}

// SerializeVerifyingKey 序列化验证密钥
func (s *PlonKScheme) SerializeVerifyingKey(vk VerifyingKey) ([]byte, error) {
	plonkVk, ok := vk.(plonk.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("无效的PlonK验证密钥类型")
	}

	var buf bytes.Buffer
	if _, err := plonkVk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("序列化PlonK验证密钥失败: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeVerifyingKey 反序列化验证密钥
func (s *PlonKScheme) DeserializeVerifyingKey(data []byte, curveID ecc.ID) (VerifyingKey, error) {
	vk := plonk.NewVerifyingKey(curveID)
	if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("反序列化PlonK验证密钥失败: %w", err)
	}
	return vk, nil
}

// ProvingSchemeRegistry 证明方案注册表
type ProvingSchemeRegistry struct {
	logger  log.Logger
	schemes map[string]ProvingScheme
	mutex   sync.RWMutex
}

// NewProvingSchemeRegistry 创建证明方案注册表（默认注册groth16与plonk）
func NewProvingSchemeRegistry(logger log.Logger) *ProvingSchemeRegistry {
	registry := &ProvingSchemeRegistry{
		logger:  logger,
		schemes: make(map[string]ProvingScheme),
	}

	registry.RegisterScheme(NewGroth16Scheme(logger))
	registry.RegisterScheme(NewPlonKScheme(logger))

	return registry
}

// RegisterScheme 注册证明方案
func (r *ProvingSchemeRegistry) RegisterScheme(scheme ProvingScheme) {
	if scheme == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	schemeName := scheme.SchemeName()
	r.schemes[schemeName] = scheme

	if r.logger != nil {
		r.logger.Debugf("注册证明方案: %s", schemeName)
	}
}

// GetScheme 获取证明方案
func (r *ProvingSchemeRegistry) GetScheme(schemeName string) (ProvingScheme, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	scheme, exists := r.schemes[schemeName]
	if !exists {
		return nil, WrapUnsupportedSchemeError(schemeName)
	}
	return scheme, nil
}

// IsSchemeSupported 检查方案是否支持
func (r *ProvingSchemeRegistry) IsSchemeSupported(schemeName string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.schemes[schemeName]
	return exists
}

// ListSchemes 列出所有注册的方案
func (r *ProvingSchemeRegistry) ListSchemes() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	schemes := make([]string, 0, len(r.schemes))
	for name := range r.schemes {
		schemes = append(schemes, name)
	}
	return schemes
}
