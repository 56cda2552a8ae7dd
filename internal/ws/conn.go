package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnLike 抽象底层全双工连接，*websocket.Conn 天然满足；单测注入假实现
type ConnLike interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn 一条在线连接的句柄：底层连接加上每连接的可变属性
// UID 为聊天通道的用户身份（0 表示未认证），VID 为弹幕通道所属视频，
// PeerHint 为连接期声明的目标用户，仅在消息帧未显式指明目标时兜底
type Conn struct {
	ID       string
	UID      int64
	VID      int64
	PeerHint int64

	sock    ConnLike
	writeMu sync.Mutex

	closedMu sync.Mutex
	closed   bool
}

func NewConn(sock ConnLike) *Conn {
	return &Conn{ID: uuid.NewString(), sock: sock}
}

// SendCommand 序列化并写出一个命令帧；写失败时将连接标记为已关闭
func (c *Conn) SendCommand(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw 写出原始帧（弹幕广播转发原帧时使用）
func (c *Conn) SendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !c.IsOpen() {
		return websocket.ErrCloseSent
	}
	if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
		c.markClosed()
		return err
	}
	return nil
}

// ReadMessage 读取下一帧
func (c *Conn) ReadMessage() (int, []byte, error) {
	return c.sock.ReadMessage()
}

// IsOpen 底层连接是否仍可写
func (c *Conn) IsOpen() bool {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	return !c.closed
}

func (c *Conn) markClosed() {
	c.closedMu.Lock()
	c.closed = true
	c.closedMu.Unlock()
}

// Close 标记关闭并关闭底层连接
func (c *Conn) Close() error {
	c.markClosed()
	return c.sock.Close()
}
