package code

// 定义与投票码相关的Redis键名
const (
	// KeyPrefix 是投票码字符串键的前缀。
	// Key: vote:code:<code>
	// Value: StateUnused 或 StateUsed
	KeyPrefix = "vote:code:"

	// KeyPattern 用于SCAN遍历所有投票码
	KeyPattern = KeyPrefix + "*"
)

// 投票码在Redis中存储的状态值
const (
	StateUnused = "unused"
	StateUsed   = "used"
)

// Key 返回给定投票码对应的Redis键
func Key(code string) string {
	return KeyPrefix + code
}

// DefaultCodes 是预先生成的固定投票码池，共30个。
var DefaultCodes = []string{
	"a1b2c3", "f7g8h9", "z0x9y8", "m4n5o6", "p1q2r3",
	"s4t5u6", "v7w8x9", "y0z1a2", "b3c4d5", "e6f7g8",
	"h9i0j1", "k2l3m4", "n5o6p7", "q8r9s0", "t1u2v3",
	"w4x5y6", "z7a8b9", "c0d1e2", "f3g4h5", "i6j7k8",
	"l9m0n1", "o2p3q4", "r5s6t7", "u8v9w0", "x1y2z3",
	"a4b5c6", "d7e8f9", "g0h1i2", "j3k4l5", "m6n7o8",
}
