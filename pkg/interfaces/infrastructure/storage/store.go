// Package storage 提供VeilMatch系统的存储接口定义
//
// 📦 **密文托管存储 (Ciphertext Custody Storage)**
//
// 订单金库只在账本中保留VaultRecord元数据，订单密文本身
// 通过CiphertextStore接口托管，支持内存与BadgerDB两种实现。
package storage

import "errors"

// ErrKeyNotFound 键不存在错误
var ErrKeyNotFound = errors.New("key not found")

// CiphertextStore 定义订单密文存储接口
//
// 约定：
// - Put 对同一键重复写入由调用方（金库）负责拒绝
// - Delete 幂等，删除不存在的键不报错
type CiphertextStore interface {
	// Put 存储密文
	Put(key []byte, ciphertext []byte) error

	// Get 读取密文，键不存在时返回ErrKeyNotFound
	Get(key []byte) ([]byte, error)

	// Delete 删除密文
	Delete(key []byte) error

	// Close 关闭存储
	Close() error
}
