// Package memory 提供内存版密文存储实现
// 用于测试和单进程部署场景
package memory

import (
	"sync"

	interfaces "github.com/veilmatch/v1/pkg/interfaces/infrastructure/storage"
)

// Store 实现CiphertextStore接口的内存版本
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New 创建内存密文存储
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Put 存储密文
func (s *Store) Put(key []byte, ciphertext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := make([]byte, len(ciphertext))
	copy(value, ciphertext)
	s.data[string(key)] = value
	return nil
}

// Get 读取密文
func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[string(key)]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Delete 删除密文
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, string(key))
	return nil
}

// Close 关闭存储
func (s *Store) Close() error {
	return nil
}

// 确保Store实现了CiphertextStore接口
var _ interfaces.CiphertextStore = (*Store)(nil)
