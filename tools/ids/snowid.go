package ids

import (
	"strconv"
	"sync"
	"time"
)

// epoch 2024-01-01 UTC
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

// Generator 雪花 ID：41 位毫秒 | 10 位节点 | 12 位序列
type Generator struct {
	mu       sync.Mutex
	nodeID   int64
	seq      int64
	lastTSMS int64
	now      func() int64
}

func NewGenerator(nodeID int64) *Generator {
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	return &Generator{nodeID: nodeID, now: func() int64 { return time.Now().UnixMilli() }}
}

var (
	defaultMu  sync.RWMutex
	defaultGen = NewGenerator(1)
)

// SetNodeID 替换默认生成器的节点号，main() 初始化时调用
func SetNodeID(nodeID int64) {
	defaultMu.Lock()
	defaultGen = NewGenerator(nodeID)
	defaultMu.Unlock()
}

func Generate() int64 {
	defaultMu.RLock()
	g := defaultGen
	defaultMu.RUnlock()
	return g.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// New 带业务前缀的字符串 ID，例如 msg_xxx / sty_xxx
func New(prefix string) string {
	if prefix == "" {
		return GenerateString()
	}
	return prefix + "_" + GenerateString()
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now < g.lastTSMS {
		// 时钟回拨：沿用上一个时间戳继续递增序列
		now = g.lastTSMS
	}
	if now == g.lastTSMS {
		g.seq = (g.seq + 1) & 0xFFF
		if g.seq == 0 {
			for now <= g.lastTSMS {
				now = g.now()
			}
		}
	} else {
		g.seq = 0
	}
	g.lastTSMS = now

	ts := (now - epoch) & ((1 << 41) - 1)
	return (ts << 22) | (g.nodeID << 12) | g.seq
}
