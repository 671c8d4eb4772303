package zkproof

import (
	"fmt"
	"sync"
	"time"

	// 基础设施
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"

	// 配置
	darkpoolcfg "github.com/veilmatch/v1/internal/config/darkpool"

	// 电路
	"github.com/veilmatch/v1/internal/core/darkpool/zkproof/circuits"

	// gnark ZK库
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
)

// 电路ID
const (
	// CircuitOrderMatching 订单撮合电路
	CircuitOrderMatching = "order_matching"

	// CircuitPrivacyValidity 隐私有效性电路
	CircuitPrivacyValidity = "privacy_validity"

	// CircuitBatchAggregate 批量聚合电路
	CircuitBatchAggregate = "batch_aggregate"
)

// CircuitManager 电路管理器
//
// 🎯 **专门职责**：电路实例的创建与缓存、可信设置的生成与缓存
// 🏗️ **设计原则**：电路按 "circuitID.v版本:曲线:方案" 缓存，
// 可信设置（编译电路+密钥对）开销很大，进程内只生成一次
type CircuitManager struct {
	logger      log.Logger
	options     *darkpoolcfg.Options
	hashManager crypto.HashManager

	schemeRegistry *ProvingSchemeRegistry
	versionManager *CircuitVersionManager

	circuits      map[string]frontend.Circuit
	circuitsMutex sync.RWMutex

	setupCache map[string]*trustedSetupEntry
	setupMutex sync.RWMutex
}

// trustedSetupEntry 可信设置缓存条目
type trustedSetupEntry struct {
	compiled     constraint.ConstraintSystem
	provingKey   ProvingKey
	verifyingKey VerifyingKey
	vkBytes      []byte
	vkHash       []byte
}

// NewCircuitManager 创建电路管理器
func NewCircuitManager(
	logger log.Logger,
	options *darkpoolcfg.Options,
	hashManager crypto.HashManager,
) *CircuitManager {
	return &CircuitManager{
		logger:         logger,
		options:        options,
		hashManager:    hashManager,
		schemeRegistry: NewProvingSchemeRegistry(logger),
		versionManager: NewCircuitVersionManager(logger),
		circuits:       make(map[string]frontend.Circuit),
		setupCache:     make(map[string]*trustedSetupEntry),
	}
}

// BatchSize 返回电路槽位数N
func (cm *CircuitManager) BatchSize() int {
	if cm.options == nil {
		return 0
	}
	return cm.options.MaxBatchOrders
}

// SchemeRegistry 返回证明方案注册表
func (cm *CircuitManager) SchemeRegistry() *ProvingSchemeRegistry {
	return cm.schemeRegistry
}

// GetCircuit 获取电路（缓存未命中时创建）
func (cm *CircuitManager) GetCircuit(circuitID string, version uint32) (frontend.Circuit, error) {
	circuitKey := fmt.Sprintf("%s.v%d", circuitID, version)

	cm.circuitsMutex.RLock()
	if circuit, exists := cm.circuits[circuitKey]; exists {
		cm.circuitsMutex.RUnlock()
		return circuit, nil
	}
	cm.circuitsMutex.RUnlock()

	circuit, err := cm.createCircuit(circuitID)
	if err != nil {
		return nil, err
	}

	cm.circuitsMutex.Lock()
	cm.circuits[circuitKey] = circuit
	cm.circuitsMutex.Unlock()

	if cm.logger != nil {
		cm.logger.Debugf("电路创建并缓存成功: %s", circuitKey)
	}

	cm.versionManager.RegisterCircuitVersion(&CircuitVersionInfo{
		CircuitID:    circuitID,
		Version:      version,
		BatchSize:    cm.BatchSize(),
		CreatedAt:    time.Now(),
		HashFunction: "poseidon2",
		Notes:        fmt.Sprintf("电路版本 %d", version),
	})

	return circuit, nil
}

// IsCircuitLoaded 检查电路是否已加载（任意版本）
func (cm *CircuitManager) IsCircuitLoaded(circuitID string) bool {
	cm.circuitsMutex.RLock()
	defer cm.circuitsMutex.RUnlock()

	for key := range cm.circuits {
		if len(key) > len(circuitID) && key[:len(circuitID)] == circuitID {
			return true
		}
	}
	return false
}

// GetCircuitVersionInfo 获取电路版本信息
func (cm *CircuitManager) GetCircuitVersionInfo(circuitID string, version uint32) (*CircuitVersionInfo, bool) {
	return cm.versionManager.GetCircuitVersionInfo(circuitID, version)
}

// ListCircuitVersions 列出电路版本
func (cm *CircuitManager) ListCircuitVersions(circuitID string) []*CircuitVersionInfo {
	return cm.versionManager.ListCircuitVersions(circuitID)
}

// createCircuit 创建具体的电路实例（槽位数来自配置，编译时固定）
func (cm *CircuitManager) createCircuit(circuitID string) (frontend.Circuit, error) {
	batchSize := cm.BatchSize()

	switch circuitID {
	case CircuitOrderMatching:
		return circuits.NewOrderMatchingCircuit(batchSize)
	case CircuitPrivacyValidity:
		return circuits.NewPrivacyValidityCircuit(batchSize)
	case CircuitBatchAggregate:
		return circuits.NewBatchAggregateCircuit(batchSize)
	default:
		return nil, WrapCircuitNotFoundError(circuitID)
	}
}

// GetTrustedSetup 返回指定电路的可信设置
//
// 返回编译电路、证明密钥、验证密钥及验证密钥哈希。
// 条目按电路+版本+曲线+方案缓存，进程内只生成一次。
func (cm *CircuitManager) GetTrustedSetup(circuitID string, version uint32) (*trustedSetupEntry, error) {
	curveID, err := cm.resolveCurveID()
	if err != nil {
		return nil, err
	}

	scheme, err := cm.resolveScheme()
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s.v%d:%s:%s", circuitID, version, curveID.String(), scheme.SchemeName())

	cm.setupMutex.RLock()
	if entry, exists := cm.setupCache[cacheKey]; exists {
		cm.setupMutex.RUnlock()
		return entry, nil
	}
	cm.setupMutex.RUnlock()

	circuit, err := cm.GetCircuit(circuitID, version)
	if err != nil {
		return nil, err
	}

	compiledCircuit, err := frontend.Compile(curveID.ScalarField(), scheme.GetBuilder(), circuit)
	if err != nil {
		return nil, WrapCircuitCompilationFailedError(circuitID, err)
	}

	provingKey, verifyingKey, err := scheme.Setup(compiledCircuit)
	if err != nil {
		return nil, fmt.Errorf("生成可信设置失败: circuitID=%s, %w", circuitID, err)
	}

	vkBytes, err := scheme.SerializeVerifyingKey(verifyingKey)
	if err != nil {
		return nil, fmt.Errorf("序列化验证密钥失败: circuitID=%s, %w", circuitID, err)
	}

	var vkHash []byte
	if cm.hashManager != nil {
		vkHash = cm.hashManager.SHA256(vkBytes)
	}

	entry := &trustedSetupEntry{
		compiled:     compiledCircuit,
		provingKey:   provingKey,
		verifyingKey: verifyingKey,
		vkBytes:      vkBytes,
		vkHash:       vkHash,
	}

	cm.setupMutex.Lock()
	cm.setupCache[cacheKey] = entry
	cm.setupMutex.Unlock()

	if cm.logger != nil {
		cm.logger.Infof("可信设置生成完成: %s, 约束数量=%d", cacheKey, compiledCircuit.GetNbConstraints())
	}

	// 回填约束数量
	if info, ok := cm.versionManager.GetCircuitVersionInfo(circuitID, version); ok {
		info.ConstraintCount = compiledCircuit.GetNbConstraints()
	}

	return entry, nil
}

// WarmUp 预先生成指定电路的可信设置
//
// 节点启动时调用，把编译与密钥生成的开销移出证明/验证热路径。
func (cm *CircuitManager) WarmUp(circuitIDs ...string) error {
	for _, circuitID := range circuitIDs {
		if _, err := cm.GetTrustedSetup(circuitID, CurrentCircuitVersion); err != nil {
			return err
		}
	}
	return nil
}

// resolveCurveID 从配置解析曲线
//
// ⚠️ Poseidon2电路只在BLS12-377上成立，bn254仅保留给
// 不含Poseidon2哈希的外部电路扩展
func (cm *CircuitManager) resolveCurveID() (ecc.ID, error) {
	if cm.options == nil || cm.options.Curve == "" {
		return ecc.BLS12_377, nil
	}

	switch cm.options.Curve {
	case "bls12-377":
		return ecc.BLS12_377, nil
	case "bn254":
		return ecc.BN254, nil
	default:
		return 0, WrapUnsupportedCurveError(cm.options.Curve)
	}
}

// resolveScheme 从配置解析证明方案
func (cm *CircuitManager) resolveScheme() (ProvingScheme, error) {
	schemeName := "groth16"
	if cm.options != nil && cm.options.ProvingScheme != "" {
		schemeName = cm.options.ProvingScheme
	}
	return cm.schemeRegistry.GetScheme(schemeName)
}
