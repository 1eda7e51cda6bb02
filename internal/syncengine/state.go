package syncengine

import "fmt"

// State 主机与单片机之间的同步状态
type State int32

const (
	StateOutOfSync         State = iota // 未同步（进程启动或发送失败后）
	StateAwaitingSyncStart              // 已写入冲刷字节，等待 0xFF
	StateAwaitingSync1Ack               // 已写入 0x33，等待 0xCC
	StateAwaitingSync2Ack               // 已写入 0xCC，等待 0x33
	StateSynchronized                   // 已同步，可正常发送帧
)

func (s State) String() string {
	switch s {
	case StateOutOfSync:
		return "out_of_sync"
	case StateAwaitingSyncStart:
		return "awaiting_sync_start"
	case StateAwaitingSync1Ack:
		return "awaiting_sync_1_ack"
	case StateAwaitingSync2Ack:
		return "awaiting_sync_2_ack"
	case StateSynchronized:
		return "synchronized"
	default:
		return "unknown"
	}
}

// transitions 合法的状态转换；任意状态都可以回到 StateOutOfSync
var transitions = map[State][]State{
	StateOutOfSync:         {StateAwaitingSyncStart, StateSynchronized},
	StateAwaitingSyncStart: {StateAwaitingSync1Ack},
	StateAwaitingSync1Ack:  {StateAwaitingSync2Ack},
	StateAwaitingSync2Ack:  {StateSynchronized},
	StateSynchronized:      {StateAwaitingSyncStart},
}

// canTransition 判断 from → to 是否合法（相同状态视为合法的空转换）
func canTransition(from, to State) bool {
	if from == to || to == StateOutOfSync {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// mustTransition 非法转换属于程序错误，直接 panic
func mustTransition(from, to State) {
	if !canTransition(from, to) {
		panic(fmt.Sprintf("syncengine: illegal transition %s -> %s", from, to))
	}
}
