package darkpool

// 暗池核心配置默认值
const (
	// defaultMinLifetimeSeconds 订单最短存续时间设为60秒
	// 给链下操作者留出最少一轮取回+撮合+出证的时间
	defaultMinLifetimeSeconds = 60

	// defaultMaxLifetimeSeconds 订单最长存续时间设为24小时
	// 超过该窗口的订单失去时效意义，应走回退执行
	defaultMaxLifetimeSeconds = 24 * 60 * 60

	// defaultThresholdBps 默认大额订单阈值设为50基点（0.5%）
	// 相对流动性基准超过0.5%的订单即进入暗池路由
	defaultThresholdBps = 50

	// defaultFreshnessWindowSeconds 证明新鲜度窗口设为5分钟
	// 过期证明视为陈旧撮合结果，拒绝执行
	defaultFreshnessWindowSeconds = 5 * 60

	// defaultMaxBatchOrders 默认批量电路槽位数
	defaultMaxBatchOrders = 4

	// defaultProvingScheme 默认证明方案
	defaultProvingScheme = "groth16"

	// defaultCurve 默认椭圆曲线
	// Poseidon2哈希电路要求BLS12-377
	defaultCurve = "bls12-377"
)

const (
	// MaxThresholdBps 阈值基点上限（100%）
	MaxThresholdBps = 10000

	// HardMaxBatchOrders 批量电路槽位数硬上限
	// 槽位数直接决定约束规模，过大会使可信设置不可接受
	HardMaxBatchOrders = 16
)
