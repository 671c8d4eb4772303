// Package zkproof implements proof generation and verification for the
// dark-pool order matching protocol.
package zkproof

import (
	"errors"
	"fmt"
	"time"
)

// ============================================================================
//                            零知识证明错误定义
// ============================================================================
//
// 密码学类错误必须fail-closed：验证引擎对证明的任何怀疑都以
// 类型化错误上抛，绝不部分信任。调用方用errors.Is路由到
// 重试或AMM回退路径。
//
// ============================================================================

var (
	// ErrInvalidProof 无效证明错误（密码学验证失败）
	ErrInvalidProof = errors.New("invalid proof")

	// ErrInvalidPublicInputs 无效公共输入错误（池绑定不符、长度不符等）
	ErrInvalidPublicInputs = errors.New("invalid public inputs")

	// ErrProofExpired 证明过期错误（超出新鲜度窗口）
	ErrProofExpired = errors.New("proof expired")

	// ErrInsufficientOperators 操作者集合为空错误
	ErrInsufficientOperators = errors.New("insufficient operators")

	// ErrInvalidVerificationKey 验证密钥不匹配错误
	ErrInvalidVerificationKey = errors.New("invalid verification key")

	// ErrCircuitNotFound 电路未找到错误
	ErrCircuitNotFound = errors.New("circuit not found")

	// ErrCircuitCompilationFailed 电路编译失败错误
	ErrCircuitCompilationFailed = errors.New("circuit compilation failed")

	// ErrProofGenerationFailed 证明生成失败错误
	ErrProofGenerationFailed = errors.New("proof generation failed")

	// ErrProofVerificationFailed 证明验证失败错误（验证过程本身出错）
	ErrProofVerificationFailed = errors.New("proof verification failed")

	// ErrInvalidWitness 无效见证错误
	ErrInvalidWitness = errors.New("invalid witness")

	// ErrUnsupportedScheme 不支持的证明方案错误
	ErrUnsupportedScheme = errors.New("unsupported proving scheme")

	// ErrUnsupportedCurve 不支持的曲线错误
	ErrUnsupportedCurve = errors.New("unsupported curve")

	// ErrProverNotInitialized 证明器未初始化错误
	ErrProverNotInitialized = errors.New("prover not initialized")

	// ErrVerifierNotInitialized 验证器未初始化错误
	ErrVerifierNotInitialized = errors.New("verifier not initialized")
)

// ============================================================================
//                               错误包装函数
// ============================================================================

// WrapInvalidProofError 包装无效证明错误
func WrapInvalidProofError(proofID, reason string) error {
	return fmt.Errorf("%w: proofID=%s, reason=%s", ErrInvalidProof, proofID, reason)
}

// WrapInvalidPublicInputsError 包装无效公共输入错误
func WrapInvalidPublicInputsError(proofID, reason string) error {
	return fmt.Errorf("%w: proofID=%s, reason=%s", ErrInvalidPublicInputs, proofID, reason)
}

// WrapProofExpiredError 包装证明过期错误
func WrapProofExpiredError(proofID string, age, window time.Duration) error {
	return fmt.Errorf("%w: proofID=%s, age=%s, window=%s", ErrProofExpired, proofID, age, window)
}

// WrapCircuitNotFoundError 包装电路未找到错误
func WrapCircuitNotFoundError(circuitID string) error {
	return fmt.Errorf("%w: circuitID=%s", ErrCircuitNotFound, circuitID)
}

// WrapCircuitCompilationFailedError 包装电路编译失败错误
func WrapCircuitCompilationFailedError(circuitID string, err error) error {
	return fmt.Errorf("%w: circuitID=%s, cause=%v", ErrCircuitCompilationFailed, circuitID, err)
}

// WrapProofGenerationFailedError 包装证明生成失败错误
func WrapProofGenerationFailedError(circuitID string, err error) error {
	return fmt.Errorf("%w: circuitID=%s, cause=%v", ErrProofGenerationFailed, circuitID, err)
}

// WrapInvalidWitnessError 包装无效见证错误
func WrapInvalidWitnessError(circuitID, reason string) error {
	return fmt.Errorf("%w: circuitID=%s, reason=%s", ErrInvalidWitness, circuitID, reason)
}

// WrapUnsupportedSchemeError 包装不支持的证明方案错误
func WrapUnsupportedSchemeError(scheme string) error {
	return fmt.Errorf("%w: scheme=%s", ErrUnsupportedScheme, scheme)
}

// WrapUnsupportedCurveError 包装不支持的曲线错误
func WrapUnsupportedCurveError(curve string) error {
	return fmt.Errorf("%w: curve=%s", ErrUnsupportedCurve, curve)
}
