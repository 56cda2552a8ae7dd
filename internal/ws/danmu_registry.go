package ws

import "sync"

// DanmuRegistry 弹幕房间注册表：vid -> 正在观看该视频的连接集合
// 成员数量不设上限；Members 返回快照，遍历期间的增删不影响本次广播
type DanmuRegistry struct {
	mu    sync.RWMutex
	rooms map[int64]map[*Conn]struct{}
}

func NewDanmuRegistry() *DanmuRegistry {
	return &DanmuRegistry{rooms: make(map[int64]map[*Conn]struct{})}
}

// Join 加入房间
func (r *DanmuRegistry) Join(vid int64, conn *Conn) {
	r.mu.Lock()
	room, ok := r.rooms[vid]
	if !ok {
		room = make(map[*Conn]struct{})
		r.rooms[vid] = room
	}
	room[conn] = struct{}{}
	r.mu.Unlock()
}

// Leave 离开房间；连接不在房间内时为空操作，空房间随之回收
func (r *DanmuRegistry) Leave(vid int64, conn *Conn) {
	r.mu.Lock()
	if room, ok := r.rooms[vid]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(r.rooms, vid)
		}
	}
	r.mu.Unlock()
}

// Members 当前房间成员的快照
func (r *DanmuRegistry) Members(vid int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[vid]
	snapshot := make([]*Conn, 0, len(room))
	for conn := range room {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// Population 当前房间在线人数
func (r *DanmuRegistry) Population(vid int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[vid])
}
