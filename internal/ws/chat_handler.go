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

	"clipwave/internal/server/userinfo"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenVerifier 连接期身份校验
type TokenVerifier interface {
	Verify(tokenStr string) (int64, error)
}

// ChatStore 私信持久化的窄接口；实现见 service/chat
type ChatStore interface {
	Append(senderID, receiverID int64, content string, now time.Time) (int64, error)
	MarkWithdrawn(messageID, requesterID int64, now time.Time) (bool, error)
}

// ProfileLookup 公开资料查询
type ProfileLookup interface {
	GetPublicProfile(uid int64) (*userinfo.PublicProfile, error)
}

// ChatMessagePayload CHAT_SEND 帧 content 内的负载
type ChatMessagePayload struct {
	ToUID   int64  `json:"to_uid"`
	Content string `json:"content"`
}

// ChatPushPayload 推送/回执的负载；User 为对端视角需要的资料投影：
// 接收方看到发送者的资料，发送方回执携带接收者的资料
type ChatPushPayload struct {
	MessageID int64                   `json:"message_id"`
	FromUID   int64                   `json:"from_uid"`
	ToUID     int64                   `json:"to_uid"`
	Content   string                  `json:"content"`
	Time      int64                   `json:"time"`
	User      *userinfo.PublicProfile `json:"user,omitempty"`
}

// ChatWithdrawPayload CHAT_WITHDRAW 帧 content 内的负载
type ChatWithdrawPayload struct {
	MessageID int64 `json:"message_id"`
	ToUID     int64 `json:"to_uid,omitempty"`
}

// ChatHandler 私聊通道控制器：负责单条连接的完整生命周期
// 认证 -> 注册 -> 命令分发（先落库再投递）-> 断开注销
type ChatHandler struct {
	registry *ChatRegistry
	verifier TokenVerifier
	store    ChatStore
	profiles ProfileLookup
}

func NewChatHandler(registry *ChatRegistry, verifier TokenVerifier, store ChatStore, profiles ProfileLookup) *ChatHandler {
	return &ChatHandler{registry: registry, verifier: verifier, store: store, profiles: profiles}
}

// Handle 升级为 WebSocket 并解析身份；身份缺失或非法时直接以 1008 关闭，
// 不会创建任何注册表条目
func (h *ChatHandler) Handle(c *gin.Context) {
	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("聊天通道升级失败: %v", err)
		return
	}
	uid, peerHint, err := h.resolveIdentity(c.Request)
	if err != nil {
		log.Printf("聊天连接身份校验失败，连接将被关闭: %v", err)
		closePolicyViolation(sock, "无效的Token")
		return
	}
	h.ServeConn(sock, uid, peerHint)
}

// resolveIdentity 依次尝试 Authorization 头、token 查询参数；
// peer_id 查询参数仅作为后续消息帧缺省目标的兜底
func (h *ChatHandler) resolveIdentity(r *http.Request) (uid int64, peerHint int64, err error) {
	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return 0, 0, fmt.Errorf("未提供Token")
	}
	uid, err = h.verifier.Verify(token)
	if err != nil {
		return 0, 0, err
	}
	if s := r.URL.Query().Get("peer_id"); s != "" {
		if v, perr := strconv.ParseInt(s, 10, 64); perr == nil && v > 0 {
			peerHint = v
		}
	}
	return uid, peerHint, nil
}

// ServeConn 接管一条已认证的连接：注册、回 ACK、进入读循环，断开时注销
func (h *ChatHandler) ServeConn(sock ConnLike, uid, peerHint int64) {
	conn := NewConn(sock)
	conn.UID = uid
	conn.PeerHint = peerHint

	h.registry.Bind(uid, conn)
	log.Printf("用户 %d 连接聊天通道, 会话 %s, 当前在线 %d", uid, conn.ID, h.registry.OnlineCount())
	defer func() {
		h.registry.Unbind(uid, conn)
		_ = conn.Close()
		log.Printf("用户 %d 断开聊天通道, 会话 %s", uid, conn.ID)
	}()

	if err := conn.SendCommand(ConnectionAck()); err != nil {
		return
	}

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
			log.Printf("解析聊天消息失败: %v", perr)
			_ = conn.SendCommand(ErrorCommand("消息格式错误"))
			continue
		}
		h.dispatch(conn, cmd)
	}
}

// dispatch 按命令类型路由到唯一的处理函数；协议错误只回 ERROR，连接保持打开
func (h *ChatHandler) dispatch(conn *Conn, cmd *Command) {
	switch cmd.Type() {
	case CmdChatSend:
		h.handleChatSend(conn, cmd)
	case CmdChatWithdraw:
		h.handleChatWithdraw(conn, cmd)
	case CmdHeartbeat:
		_ = conn.SendCommand(HeartbeatReply())
	case CmdConnection, CmdDanmuSend, CmdSystemNotification, CmdError:
		_ = conn.SendCommand(ErrorCommand(fmt.Sprintf("无效的命令类型: %d", cmd.Code)))
	default:
		_ = conn.SendCommand(ErrorCommand(fmt.Sprintf("无效的命令类型: %d", cmd.Code)))
	}
}

// handleChatSend 先落库再投递：目标在线时向其推送发送者视角的消息，
// 无论对方是否在线，发送方总会收到一条携带接收者资料的回执
func (h *ChatHandler) handleChatSend(conn *Conn, cmd *Command) {
	var payload ChatMessagePayload
	payloadOK := json.Unmarshal([]byte(cmd.Content), &payload) == nil

	// 目标解析顺序：帧上显式字段 > 连接期 peer hint > 负载内字段
	target := cmd.PeerID
	if target <= 0 {
		target = conn.PeerHint
	}
	if target <= 0 && payloadOK {
		target = payload.ToUID
	}
	if target <= 0 {
		_ = conn.SendCommand(ErrorCommand("无法确定消息接收者"))
		return
	}

	text := cmd.Content
	if payloadOK && payload.Content != "" {
		text = payload.Content
	}

	now := time.Now()
	msgID, err := h.store.Append(conn.UID, target, text, now)
	if err != nil {
		log.Printf("私信落库失败: from=%d to=%d err=%v", conn.UID, target, err)
		_ = conn.SendCommand(ErrorCommand("消息发送失败"))
		return
	}

	// 对方在线则推送；离线不是错误，消息已可从历史记录读取
	if peer, online := h.registry.Lookup(target); online {
		push := ChatPushPayload{
			MessageID: msgID,
			FromUID:   conn.UID,
			ToUID:     target,
			Content:   text,
			Time:      now.UnixMilli(),
			User:      h.lookupProfile(conn.UID),
		}
		if err := h.sendPayload(peer, CmdChatSend, push); err != nil {
			log.Printf("推送私信给用户 %d 失败: %v", target, err)
		}
	}

	ack := ChatPushPayload{
		MessageID: msgID,
		FromUID:   conn.UID,
		ToUID:     target,
		Content:   text,
		Time:      now.UnixMilli(),
		User:      h.lookupProfile(target),
	}
	_ = h.sendPayload(conn, CmdChatSend, ack)
}

// handleChatWithdraw 撤回：持久层校验发送者与时间窗口，
// 成功后回执发送方，对端在线时一并通知
func (h *ChatHandler) handleChatWithdraw(conn *Conn, cmd *Command) {
	var payload ChatWithdrawPayload
	if err := json.Unmarshal([]byte(cmd.Content), &payload); err != nil || payload.MessageID <= 0 {
		_ = conn.SendCommand(ErrorCommand("撤回参数错误"))
		return
	}
	ok, err := h.store.MarkWithdrawn(payload.MessageID, conn.UID, time.Now())
	if err != nil {
		log.Printf("撤回消息失败: id=%d uid=%d err=%v", payload.MessageID, conn.UID, err)
		_ = conn.SendCommand(ErrorCommand("撤回失败"))
		return
	}
	if !ok {
		_ = conn.SendCommand(ErrorCommand("消息无法撤回"))
		return
	}

	notice := ChatWithdrawPayload{MessageID: payload.MessageID}
	_ = h.sendPayload(conn, CmdChatWithdraw, notice)

	peerID := payload.ToUID
	if peerID <= 0 {
		peerID = conn.PeerHint
	}
	if peerID > 0 {
		if peer, online := h.registry.Lookup(peerID); online {
			if err := h.sendPayload(peer, CmdChatWithdraw, notice); err != nil {
				log.Printf("通知用户 %d 消息撤回失败: %v", peerID, err)
			}
		}
	}
}

func (h *ChatHandler) sendPayload(conn *Conn, t CommandType, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.SendCommand(NewCommand(t, string(b)))
}

// lookupProfile 资料查询失败不阻断消息投递，仅降级为空投影
func (h *ChatHandler) lookupProfile(uid int64) *userinfo.PublicProfile {
	p, err := h.profiles.GetPublicProfile(uid)
	if err != nil {
		log.Printf("查询用户 %d 资料失败: %v", uid, err)
		return nil
	}
	return p
}

func closePolicyViolation(sock ConnLike, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = sock.WriteMessage(websocket.CloseMessage, msg)
	_ = sock.Close()
}
