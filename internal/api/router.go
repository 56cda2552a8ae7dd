package api

import (
	"github.com/gin-gonic/gin"

	"clipwave/internal/api/handler"
	"clipwave/internal/config"
	"clipwave/internal/middleware"
	"clipwave/internal/server/userinfo"
	"clipwave/internal/service/chat"
	"clipwave/internal/service/danmu"
	"clipwave/internal/ws"
)

// SetupRouter 初始化 Gin 路由：长连接端点与共享同一持久层的 REST 查询端点
func SetupRouter(
	authCfg config.AuthSettings,
	chatCfg config.Chat,
	chatSvc *chat.Service,
	danmuSvc *danmu.Service,
	profiles *userinfo.Store,
	chatRegistry *ws.ChatRegistry,
	chatWS *ws.ChatHandler,
	danmuWS *ws.DanmuHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// 长连接端点；身份校验在控制器内完成（失败直接关闭连接）
	r.GET("/ws/chat", chatWS.Handle)
	r.GET("/im", chatWS.Handle)
	r.GET("/ws/danmu", danmuWS.Handle)

	api := r.Group("/api")

	danmuHandler := handler.NewDanmuHandler(danmuSvc)
	api.GET("/danmu/:vid", danmuHandler.List)

	chatHandler := handler.NewChatHandler(chatSvc, profiles, chatRegistry, chatCfg.HistoryLimit)
	chats := api.Group("/chat", middleware.JWTAuth(authCfg.JWTSecret))
	chats.GET("/history", chatHandler.GetHistory)
	chats.GET("/list", chatHandler.GetChatList)
	chats.GET("/online", chatHandler.Online)

	return r
}
