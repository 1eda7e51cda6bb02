package bridge

import (
	"time"

	"github.com/taoyao-code/pad-bridge/internal/syncengine"
	"github.com/taoyao-code/pad-bridge/internal/udpserver"
)

// DatagramStats 数据报处理计数
type DatagramStats struct {
	Received        uint64 `json:"received"`
	Forwarded       uint64 `json:"forwarded"`
	Malformed       uint64 `json:"malformed"`
	RateLimited     uint64 `json:"rate_limited"`
	DroppedUnsynced uint64 `json:"dropped_unsynced"`
	SendFailed      uint64 `json:"send_failed"`
	ReleaseFailed   uint64 `json:"release_failed"`
	ReadErrors      uint64 `json:"read_errors"`
}

// Status 转发循环状态快照
type Status struct {
	InstanceID     string           `json:"instance_id,omitempty"`
	Running        bool             `json:"running"`
	SyncState      string           `json:"sync_state"`
	Degraded       bool             `json:"degraded"`
	StartedAt      time.Time        `json:"started_at,omitempty"`
	LastDatagramAt time.Time        `json:"last_datagram_at,omitempty"`
	LastError      string           `json:"last_error,omitempty"`
	LinkError      string           `json:"link_error,omitempty"`
	Datagrams      DatagramStats    `json:"datagrams"`
	Engine         syncengine.Stats `json:"engine"`
	// 未配置限速时为空
	RateLimit *udpserver.RateLimiterStats `json:"rate_limit,omitempty"`
	// 串口接收缓冲区溢出丢弃的字节数
	SerialDroppedBytes uint64 `json:"serial_dropped_bytes"`
}

// Status 可在任意协程调用，不触碰串口
func (b *Bridge) Status() Status {
	b.mu.RLock()
	st := Status{
		InstanceID:     b.instance,
		StartedAt:      b.startedAt,
		LastDatagramAt: b.lastRecv,
		LastError:      b.lastErr,
	}
	b.mu.RUnlock()

	st.Running = b.Running()
	st.SyncState = b.engine.State().String()
	st.Degraded = b.Degraded()
	if err := b.link.Err(); err != nil {
		st.LinkError = err.Error()
	}
	st.Datagrams = DatagramStats{
		Received:        b.counters.received.Load(),
		Forwarded:       b.counters.forwarded.Load(),
		Malformed:       b.counters.malformed.Load(),
		RateLimited:     b.counters.rateLimited.Load(),
		DroppedUnsynced: b.counters.droppedUnsynced.Load(),
		SendFailed:      b.counters.sendFailed.Load(),
		ReleaseFailed:   b.counters.releaseFailed.Load(),
		ReadErrors:      b.counters.readErrors.Load(),
	}
	st.Engine = b.engine.Stats()
	if rl, ok := b.listener.LimiterStats(); ok {
		st.RateLimit = &rl
	}
	st.SerialDroppedBytes = b.link.Dropped()
	return st
}
