package ws

import "sync"

// ChatRegistry 私聊会话注册表：uid -> 在线连接，进程内唯一的跨连接共享状态之一
// 所有操作对任意并发调用方安全；锁是实现细节，调用方无感知
type ChatRegistry struct {
	mu    sync.RWMutex
	conns map[int64]*Conn
}

func NewChatRegistry() *ChatRegistry {
	return &ChatRegistry{conns: make(map[int64]*Conn)}
}

// Bind 绑定用户与连接；同一 uid 再次绑定时静默顶替旧条目
// 被顶替的连接不由注册表关闭，由其自身的读循环发现失活后收尾
func (r *ChatRegistry) Bind(uid int64, conn *Conn) {
	r.mu.Lock()
	r.conns[uid] = conn
	r.mu.Unlock()
}

// Unbind 解绑；仅当注册的仍是同一条连接时才移除，
// 被顶替连接的迟到解绑不会误删新连接
func (r *ChatRegistry) Unbind(uid int64, conn *Conn) {
	r.mu.Lock()
	if cur, ok := r.conns[uid]; ok && cur == conn {
		delete(r.conns, uid)
	}
	r.mu.Unlock()
}

// Lookup 查询用户的在线连接；已关闭的残留条目就地清理并视为不在线
func (r *ChatRegistry) Lookup(uid int64) (*Conn, bool) {
	r.mu.RLock()
	conn, ok := r.conns[uid]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !conn.IsOpen() {
		r.Unbind(uid, conn)
		return nil, false
	}
	return conn, true
}

// IsOnline 用户是否有一条可写的在线连接
func (r *ChatRegistry) IsOnline(uid int64) bool {
	_, ok := r.Lookup(uid)
	return ok
}

// OnlineCount 当前在线用户数
func (r *ChatRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
