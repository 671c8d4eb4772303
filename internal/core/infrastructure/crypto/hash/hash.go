// Package hash 提供VeilMatch系统的哈希计算服务
//
// 为订单ID派生、承诺比对与验证密钥绑定提供统一的哈希原语。
package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"sync"

	cryptointf "github.com/veilmatch/v1/pkg/interfaces/infrastructure/crypto"
	"golang.org/x/crypto/sha3"
)

// 确保HashService实现了cryptointf.HashManager接口
var _ cryptointf.HashManager = (*HashService)(nil)

// HashCache 简单的哈希缓存结构
type HashCache struct {
	cache map[string][]byte
	mu    sync.RWMutex
}

// NewHashCache 创建新的哈希缓存
func NewHashCache() *HashCache {
	return &HashCache{
		cache: make(map[string][]byte),
	}
}

// Get 从缓存获取哈希值
func (c *HashCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.cache[key]
	if ok {
		result := make([]byte, len(value))
		copy(result, value) // 返回副本而非引用
		return result, true
	}
	return nil, false
}

// Set 设置缓存中的哈希值
func (c *HashCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value) // 存储副本而非引用
	c.cache[key] = valueCopy
}

// HashService 提供哈希计算功能
type HashService struct {
	// 缓存最近的哈希结果，避免重复计算
	// 验证密钥序列化等大输入的哈希在验证路径上会被反复请求
	sha256Cache       *HashCache
	keccak256Cache    *HashCache
	doubleSHA256Cache *HashCache
}

// NewHashService 创建新的哈希服务
func NewHashService() *HashService {
	return &HashService{
		sha256Cache:       NewHashCache(),
		keccak256Cache:    NewHashCache(),
		doubleSHA256Cache: NewHashCache(),
	}
}

// cacheKey 根据数据生成缓存键
// 使用SHA256哈希作为缓存键，确保唯一性
func cacheKey(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)
	return string(hasher.Sum(nil))
}

// SHA256 计算SHA-256哈希
//
// 参数:
//   - data: 要计算哈希的数据
//
// 返回:
//   - []byte: 32字节的SHA-256哈希结果
func (s *HashService) SHA256(data []byte) []byte {
	key := cacheKey(data)
	if cachedHash, ok := s.sha256Cache.Get(key); ok {
		return cachedHash
	}

	hash := sha256.Sum256(data)
	result := hash[:]

	s.sha256Cache.Set(key, result)
	return result
}

// Keccak256 计算Keccak-256哈希
//
// 订单ID派生使用该算法：id = Keccak256(trader || pool || side || amount || nonce)
//
// 参数:
//   - data: 要计算哈希的数据
//
// 返回:
//   - []byte: 32字节的Keccak-256哈希结果
func (s *HashService) Keccak256(data []byte) []byte {
	key := cacheKey(data)
	if cachedHash, ok := s.keccak256Cache.Get(key); ok {
		return cachedHash
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	result := hasher.Sum(nil)

	s.keccak256Cache.Set(key, result)
	return result
}

// DoubleSHA256 计算双重SHA-256哈希
//
// 参数:
//   - data: 要计算哈希的数据
//
// 返回:
//   - []byte: 32字节的双重SHA-256哈希结果
func (s *HashService) DoubleSHA256(data []byte) []byte {
	key := cacheKey(data)
	if cachedHash, ok := s.doubleSHA256Cache.Get(key); ok {
		return cachedHash
	}

	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	result := second[:]

	s.doubleSHA256Cache.Set(key, result)
	return result
}

// ConstantTimeCompare 常量时间比较两个字节数组
//
// 验证密钥哈希等敏感比对应使用该函数，避免时序侧信道
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
