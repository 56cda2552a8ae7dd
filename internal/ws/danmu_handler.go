package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// DanmuStore 弹幕持久化的窄接口；实现见 service/danmu
type DanmuStore interface {
	Append(vid, senderID int64, content string, timePoint float64, mode int, color string, now time.Time) (int64, error)
}

// DanmuSendPayload DANMU_SEND 帧 content 内的负载
// Time 与 TimePoint 二选一，兼容前端两种字段名
type DanmuSendPayload struct {
	Content   string   `json:"content"`
	Time      *float64 `json:"time,omitempty"`
	TimePoint *float64 `json:"time_point,omitempty"`
	Mode      int      `json:"mode"`
	Color     string   `json:"color"`
}

func (p DanmuSendPayload) timePoint() float64 {
	if p.Time != nil {
		return *p.Time
	}
	if p.TimePoint != nil {
		return *p.TimePoint
	}
	return 0
}

// RoomNotice 观看人数变化的系统通知负载
type RoomNotice struct {
	VID        int64 `json:"vid"`
	Population int   `json:"population"`
}

// DanmuHandler 弹幕通道控制器：加入房间、命令分发（先落库再广播）、离开房间
// 观看无需用户身份；发送弹幕要求连接期携带了有效令牌，匿名发送回 ERROR，
// 绝不静默顶替一个默认用户
type DanmuHandler struct {
	registry *DanmuRegistry
	verifier TokenVerifier
	store    DanmuStore
}

func NewDanmuHandler(registry *DanmuRegistry, verifier TokenVerifier, store DanmuStore) *DanmuHandler {
	return &DanmuHandler{registry: registry, verifier: verifier, store: store}
}

// Handle 升级为 WebSocket 并解析房间；vid 缺失或非法时以 1008 关闭
func (h *DanmuHandler) Handle(c *gin.Context) {
	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("弹幕通道升级失败: %v", err)
		return
	}
	vid, err := resolveRoom(c.Request)
	if err != nil {
		log.Printf("弹幕连接房间解析失败，连接将被关闭: %v", err)
		closePolicyViolation(sock, "无效的视频ID")
		return
	}
	// 观众身份可选：令牌无效时按匿名观众处理，发送弹幕时再行拦截
	uid := h.resolveViewer(c.Request)
	h.ServeConn(sock, vid, uid)
}

// resolveRoom 必选的 vid 查询参数
func resolveRoom(r *http.Request) (int64, error) {
	s := r.URL.Query().Get("vid")
	if s == "" {
		return 0, fmt.Errorf("未提供视频ID")
	}
	vid, err := strconv.ParseInt(s, 10, 64)
	if err != nil || vid <= 0 {
		return 0, fmt.Errorf("非法的视频ID: %q", s)
	}
	return vid, nil
}

func (h *DanmuHandler) resolveViewer(r *http.Request) int64 {
	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return 0
	}
	uid, err := h.verifier.Verify(token)
	if err != nil {
		log.Printf("弹幕观众令牌无效，按匿名处理: %v", err)
		return 0
	}
	return uid
}

// ServeConn 接管一条连接：加入房间、广播人数、进入读循环，断开时离开房间
func (h *DanmuHandler) ServeConn(sock ConnLike, vid, uid int64) {
	conn := NewConn(sock)
	conn.VID = vid
	conn.UID = uid

	h.registry.Join(vid, conn)
	log.Printf("连接 %s 加入视频 %d 的弹幕池, 当前 %d 人", conn.ID, vid, h.registry.Population(vid))
	h.broadcastPopulation(vid)
	defer func() {
		h.registry.Leave(vid, conn)
		_ = conn.Close()
		log.Printf("连接 %s 离开视频 %d 的弹幕池", conn.ID, vid)
		h.broadcastPopulation(vid)
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		cmd, perr := ParseCommand(data)
		if perr != nil {
			log.Printf("解析弹幕消息失败: %v", perr)
			_ = conn.SendCommand(ErrorCommand("消息格式错误"))
			continue
		}
		h.dispatch(conn, cmd, data)
	}
}

func (h *DanmuHandler) dispatch(conn *Conn, cmd *Command, raw []byte) {
	switch cmd.Type() {
	case CmdDanmuSend:
		h.handleDanmuSend(conn, cmd, raw)
	case CmdHeartbeat:
		_ = conn.SendCommand(HeartbeatReply())
	case CmdConnection, CmdChatSend, CmdChatWithdraw, CmdSystemNotification, CmdError:
		_ = conn.SendCommand(ErrorCommand(fmt.Sprintf("无效的命令类型: %d", cmd.Code)))
	default:
		_ = conn.SendCommand(ErrorCommand(fmt.Sprintf("无效的命令类型: %d", cmd.Code)))
	}
}

// handleDanmuSend 先落库，成功后把原始帧广播给房间内快照成员（含发送者自身）
// 落库失败中止广播；单个成员投递失败不影响其余成员
func (h *DanmuHandler) handleDanmuSend(conn *Conn, cmd *Command, raw []byte) {
	if conn.UID <= 0 {
		_ = conn.SendCommand(ErrorCommand("未登录，无法发送弹幕"))
		return
	}
	var payload DanmuSendPayload
	if err := json.Unmarshal([]byte(cmd.Content), &payload); err != nil {
		_ = conn.SendCommand(ErrorCommand("弹幕格式错误"))
		return
	}

	_, err := h.store.Append(conn.VID, conn.UID, payload.Content, payload.timePoint(), payload.Mode, payload.Color, time.Now())
	if err != nil {
		log.Printf("弹幕落库失败: vid=%d uid=%d err=%v", conn.VID, conn.UID, err)
		_ = conn.SendCommand(ErrorCommand("弹幕发送失败"))
		return
	}

	members := h.registry.Members(conn.VID)
	delivered := 0
	for _, member := range members {
		if err := member.SendRaw(raw); err != nil {
			continue
		}
		delivered++
	}
	log.Printf("弹幕已广播: vid=%d 目标 %d 送达 %d", conn.VID, len(members), delivered)
}

// broadcastPopulation 进出房间时向全房间广播当前观看人数
func (h *DanmuHandler) broadcastPopulation(vid int64) {
	notice := RoomNotice{VID: vid, Population: h.registry.Population(vid)}
	b, err := json.Marshal(notice)
	if err != nil {
		return
	}
	cmd := NewCommand(CmdSystemNotification, string(b))
	for _, member := range h.registry.Members(vid) {
		_ = member.SendCommand(cmd)
	}
}
