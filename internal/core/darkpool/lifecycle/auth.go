package lifecycle

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/veilmatch/v1/internal/core/darkpool/vault"
)

// ============================================================================
// 协调者授权
// ============================================================================
//
// 🎯 **专门职责**：
// - 证明提交必须由注册的协调者签名背书
// - 授权令牌是对订单ID摘要的紧凑ECDSA签名（secp256k1）
// - 签名可恢复公钥，与注册公钥逐字节比对
//
// ============================================================================

// Authorization 证明提交授权令牌
type Authorization struct {
	Coordinator string // 协调者身份
	Signature   []byte // 对订单ID的紧凑签名（65字节，可恢复）
}

// SignOrderID 用协调者私钥生成授权令牌（供协调者侧与测试使用）
func SignOrderID(priv *secp256k1.PrivateKey, coordinator string, orderID vault.OrderID) *Authorization {
	return &Authorization{
		Coordinator: coordinator,
		Signature:   ecdsa.SignCompact(priv, orderID[:], true),
	}
}

// verifyAuthorization 校验授权令牌
//
// 错误语义：身份未注册 → ErrUnauthorized；签名畸形或与注册公钥
// 不符 → ErrInvalidSignatures。
func verifyAuthorization(registered map[string]*secp256k1.PublicKey, orderID vault.OrderID, auth *Authorization) error {
	if auth == nil || auth.Coordinator == "" {
		return fmt.Errorf("%w: 缺少授权令牌", ErrUnauthorized)
	}

	expected, ok := registered[auth.Coordinator]
	if !ok {
		return fmt.Errorf("%w: 协调者未注册: %s", ErrUnauthorized, auth.Coordinator)
	}

	recovered, _, err := ecdsa.RecoverCompact(auth.Signature, orderID[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignatures, err)
	}
	if !recovered.IsEqual(expected) {
		return fmt.Errorf("%w: 恢复公钥与注册公钥不符: %s", ErrInvalidSignatures, auth.Coordinator)
	}

	return nil
}
