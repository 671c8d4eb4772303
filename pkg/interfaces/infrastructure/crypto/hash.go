// Package crypto 提供VeilMatch系统的哈希计算接口定义
//
// #️⃣ **哈希计算服务 (Hash Computation Service)**
//
// 本文件定义了VeilMatch暗池撮合系统的哈希计算接口，专注于：
// - 多算法支持：SHA256、Keccak256等主流算法
// - 安全哈希：双重SHA256等安全哈希算法
// - 订单标识：为订单ID派生和承诺计算提供哈希原语
//
// 🔗 **组件关系**
// - HashManager：被订单生命周期、金库、证明验证等模块使用
package crypto

// HashManager 定义哈希计算相关接口
//
// 提供VeilMatch系统的完整哈希计算服务：
// - 多算法支持：SHA256、Keccak256等算法
// - 安全增强：双重SHA256等安全哈希机制
// - 格式统一：输入输出均为字节数组
type HashManager interface {
	// SHA256 计算SHA-256哈希
	// 参数：
	//   - data: 输入数据
	// 返回：哈希值
	SHA256(data []byte) []byte

	// Keccak256 计算Keccak-256哈希
	// 参数：
	//   - data: 输入数据
	// 返回：哈希值
	Keccak256(data []byte) []byte

	// DoubleSHA256 计算双重SHA-256哈希
	// 参数：
	//   - data: 输入数据
	// 返回：哈希值
	DoubleSHA256(data []byte) []byte
}
