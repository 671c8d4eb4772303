package vault

// ============================================================================
// 活跃订单索引（swap-and-pop）
// ============================================================================
//
// 🎯 **专门职责**：
// 维护活跃订单的紧凑数组 + orderId->下标 的反查map，删除用
// swap-and-pop保持O(1)：末位元素换入被删槽位，同步更新其反查项。
//
// ⚠️ **一致性不变式**：
// 数组与反查map必须在每次操作后严格一致——换入空位的元素
// 忘记更新反查项是这类结构的经典off-by-one错误，
// 边界（删除末位元素、删除唯一元素）有专门测试覆盖。
//
// ============================================================================

// OrderID 订单标识（Keccak256派生的32字节）
type OrderID [32]byte

// activeIndex 活跃订单索引
type activeIndex struct {
	ids    []OrderID
	lookup map[OrderID]int
}

// newActiveIndex 创建活跃订单索引
func newActiveIndex() *activeIndex {
	return &activeIndex{
		lookup: make(map[OrderID]int),
	}
}

// add 追加订单（重复追加是编程错误，直接忽略）
func (idx *activeIndex) add(id OrderID) {
	if _, exists := idx.lookup[id]; exists {
		return
	}
	idx.lookup[id] = len(idx.ids)
	idx.ids = append(idx.ids, id)
}

// remove swap-and-pop删除，返回是否存在
func (idx *activeIndex) remove(id OrderID) bool {
	pos, exists := idx.lookup[id]
	if !exists {
		return false
	}

	last := len(idx.ids) - 1
	if pos != last {
		// 末位元素换入被删槽位，反查项同步更新
		moved := idx.ids[last]
		idx.ids[pos] = moved
		idx.lookup[moved] = pos
	}

	idx.ids = idx.ids[:last]
	delete(idx.lookup, id)
	return true
}

// contains 是否为活跃订单
func (idx *activeIndex) contains(id OrderID) bool {
	_, exists := idx.lookup[id]
	return exists
}

// len 活跃订单数
func (idx *activeIndex) len() int {
	return len(idx.ids)
}

// at 按下标取订单ID（遍历清理用）
func (idx *activeIndex) at(i int) OrderID {
	return idx.ids[i]
}
