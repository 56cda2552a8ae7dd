package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clipwave/internal/middleware"
	"clipwave/internal/models"
	"clipwave/internal/server/userinfo"
	"clipwave/internal/service/chat"
	"clipwave/internal/ws"
)

type ChatHandler struct {
	svc          *chat.Service
	profiles     *userinfo.Store
	registry     *ws.ChatRegistry
	historyLimit int
}

func NewChatHandler(svc *chat.Service, profiles *userinfo.Store, registry *ws.ChatRegistry, historyLimit int) *ChatHandler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &ChatHandler{svc: svc, profiles: profiles, registry: registry, historyLimit: historyLimit}
}

// GetHistory 分页查询与某个用户的聊天记录，并清空该会话未读数
func (h *ChatHandler) GetHistory(c *gin.Context) {
	uid, ok := middleware.UIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}
	anotherID, err := strconv.ParseInt(c.Query("another_id"), 10, 64)
	if err != nil || anotherID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: 缺少 another_id"})
		return
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		if v, perr := strconv.Atoi(s); perr == nil && v > 0 {
			offset = v
		}
	}

	list, err := h.svc.History(uid, anotherID, offset, h.historyLimit+1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询聊天记录失败"})
		return
	}
	more := len(list) > h.historyLimit
	if more {
		list = list[:h.historyLimit]
	}
	// 打开聊天窗口即视为已读
	if err := h.svc.ClearUnread(uid, anotherID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新未读状态失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "more": more})
}

type chatListItem struct {
	Session models.ChatSession      `json:"chat"`
	User    *userinfo.PublicProfile `json:"user,omitempty"`
	Latest  *models.ChatMessage     `json:"latest,omitempty"`
}

// GetChatList 会话列表：每个会话附带对方资料与最后一条可见消息
func (h *ChatHandler) GetChatList(c *gin.Context) {
	uid, ok := middleware.UIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
		return
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		if v, perr := strconv.Atoi(s); perr == nil && v > 0 {
			offset = v
		}
	}

	const pageSize = 20
	sessions, err := h.svc.Sessions(uid, offset, pageSize+1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询会话列表失败"})
		return
	}
	more := len(sessions) > pageSize
	if more {
		sessions = sessions[:pageSize]
	}

	items := make([]chatListItem, 0, len(sessions))
	for _, sess := range sessions {
		item := chatListItem{Session: sess}
		if prof, perr := h.profiles.GetPublicProfile(sess.AnotherID); perr == nil {
			item.User = prof
		}
		if latest, lerr := h.svc.History(uid, sess.AnotherID, 0, 1); lerr == nil && len(latest) > 0 {
			item.Latest = &latest[0]
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"list": items, "more": more})
}

// Online 探测某个用户的聊天通道是否在线
func (h *ChatHandler) Online(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Query("uid"), 10, 64)
	if err != nil || uid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: 缺少 uid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "online": h.registry.IsOnline(uid)})
}
