package health

import "sync/atomic"

// Readiness 就绪状态（串口已打开、UDP 已绑定、链路已同步）
type Readiness struct {
	serialReady atomic.Bool
	udpReady    atomic.Bool
	synced      atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetSerialReady(v bool)  { r.serialReady.Store(v) }
func (r *Readiness) SetUDPReady(v bool)     { r.udpReady.Store(v) }
func (r *Readiness) SetSynchronized(v bool) { r.synced.Store(v) }

// Ready 总体就绪：各项均为 true
func (r *Readiness) Ready() bool {
	return r.serialReady.Load() && r.udpReady.Load() && r.synced.Load()
}
