package zkproof

import (
	"fmt"
	"sync"
	"time"

	// 基础设施
	"github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"

	// gnark ZK库
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// ============================================================================
// 电路版本管理
// ============================================================================
//
// 🎯 **目的**：
//   - 追踪撮合/有效性/聚合电路的版本与约束规模
//   - 证明对象携带CircuitVersion，验证时必须用同版本的验证密钥
//
// ============================================================================

// CircuitVersionInfo 电路版本信息
type CircuitVersionInfo struct {
	CircuitID       string    // 电路ID
	Version         uint32    // 版本号
	BatchSize       int       // 槽位数N
	CreatedAt       time.Time // 创建时间
	ConstraintCount int       // 约束数量（编译后填充）
	HashFunction    string    // 使用的哈希函数
	Notes           string    // 版本说明
}

// CircuitVersionManager 电路版本管理器
type CircuitVersionManager struct {
	logger log.Logger

	versionInfo  map[string]*CircuitVersionInfo
	versionMutex sync.RWMutex
}

// NewCircuitVersionManager 创建电路版本管理器
func NewCircuitVersionManager(logger log.Logger) *CircuitVersionManager {
	return &CircuitVersionManager{
		logger:      logger,
		versionInfo: make(map[string]*CircuitVersionInfo),
	}
}

// RegisterCircuitVersion 注册电路版本信息
func (cvm *CircuitVersionManager) RegisterCircuitVersion(info *CircuitVersionInfo) {
	if info == nil {
		return
	}

	versionKey := fmt.Sprintf("%s.v%d", info.CircuitID, info.Version)

	cvm.versionMutex.Lock()
	cvm.versionInfo[versionKey] = info
	cvm.versionMutex.Unlock()

	if cvm.logger != nil {
		cvm.logger.Debugf("注册电路版本: %s, 槽位数=%d", versionKey, info.BatchSize)
	}
}

// GetCircuitVersionInfo 获取电路版本信息
func (cvm *CircuitVersionManager) GetCircuitVersionInfo(circuitID string, version uint32) (*CircuitVersionInfo, bool) {
	versionKey := fmt.Sprintf("%s.v%d", circuitID, version)

	cvm.versionMutex.RLock()
	defer cvm.versionMutex.RUnlock()

	info, exists := cvm.versionInfo[versionKey]
	return info, exists
}

// ListCircuitVersions 列出指定电路的所有版本
func (cvm *CircuitVersionManager) ListCircuitVersions(circuitID string) []*CircuitVersionInfo {
	cvm.versionMutex.RLock()
	defer cvm.versionMutex.RUnlock()

	var versions []*CircuitVersionInfo
	for key, info := range cvm.versionInfo {
		if len(key) >= len(circuitID) && key[:len(circuitID)] == circuitID {
			versions = append(versions, info)
		}
	}
	return versions
}

// AnalyzeCircuitConstraints 分析电路约束数量
//
// ⚠️ **注意**：
//   - Poseidon2电路要求BLS12-377曲线，分析也用同一曲线
//   - 编译开销不小，只在注册新版本时调用
func (cvm *CircuitVersionManager) AnalyzeCircuitConstraints(circuit frontend.Circuit) (int, error) {
	if circuit == nil {
		return 0, fmt.Errorf("电路不能为nil")
	}

	compiledCircuit, err := frontend.Compile(ecc.BLS12_377.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return 0, fmt.Errorf("编译电路失败: %w", err)
	}

	return compiledCircuit.GetNbConstraints(), nil
}
