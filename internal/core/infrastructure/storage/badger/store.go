// Package badger 提供基于BadgerDB的密文存储实现
package badger

import (
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v3"
	log "github.com/veilmatch/v1/pkg/interfaces/infrastructure/log"
	interfaces "github.com/veilmatch/v1/pkg/interfaces/infrastructure/storage"
)

// Store 实现CiphertextStore接口
//
// 🎯 **专门职责**：订单密文的持久化托管
// 密文是不透明字节串，存储层不做任何解析
type Store struct {
	db     *badgerdb.DB
	logger log.Logger
}

// New 创建新的BadgerDB密文存储
//
// 参数:
//   - dataDir: 数据目录，不存在时自动创建
//   - logger: 日志记录器
func New(dataDir string, logger log.Logger) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("BadgerDB数据目录不能为空")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("无法创建BadgerDB数据目录: %w", err)
	}

	opts := badgerdb.DefaultOptions(dataDir)
	// 密文写入后只读一次，关闭badger自身日志噪音，值日志保持默认同步策略
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开BadgerDB失败: %w", err)
	}

	logger.Infof("BadgerDB密文存储初始化完成: dataDir=%s", dataDir)

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// Put 存储密文
func (s *Store) Put(key []byte, ciphertext []byte) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, ciphertext)
	})
}

// Get 读取密文
func (s *Store) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badgerdb.ErrKeyNotFound {
				return interfaces.ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete 删除密文
func (s *Store) Delete(key []byte) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key)
	})
}

// Close 关闭存储
func (s *Store) Close() error {
	return s.db.Close()
}

// 确保Store实现了CiphertextStore接口
var _ interfaces.CiphertextStore = (*Store)(nil)
