package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"clipwave/internal/api"
	"clipwave/internal/config"
	"clipwave/internal/server/auth"
	database "clipwave/internal/server/db"
	"clipwave/internal/server/mq"
	"clipwave/internal/server/userinfo"
	chatsvc "clipwave/internal/service/chat"
	danmusvc "clipwave/internal/service/danmu"
	"clipwave/internal/ws"
)

func main() {
	// 加载配置
	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接（使用 server/db 包）
	db, err := database.OpenGorm(cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	// 基础检查底层连接可用
	if sqlDB, err := db.DB(); err != nil {
		log.Fatalf("获取底层连接失败: %v", err)
	} else if err := sqlDB.Ping(); err != nil {
		log.Fatalf("数据库不可用: %v", err)
	}

	// 自动迁移数据库结构
	log.Println("正在检查并迁移数据库结构...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库迁移完成")

	// 弹幕审核事件发布（可选）
	var publisher danmusvc.ReviewPublisher
	if cfg.MQ.URL != "" {
		rabbit, err := mq.Dial(cfg.MQ.URL, cfg.MQ.ExchangeOrDefault())
		if err != nil {
			log.Fatalf("RabbitMQ 连接失败: %v", err)
		}
		defer rabbit.Close()
		publisher = rabbit
		log.Printf("弹幕审核事件将发布到交换机 %s", cfg.MQ.ExchangeOrDefault())
	} else {
		log.Println("未配置 MQ，弹幕审核事件发布已关闭")
	}

	authCfg := cfg.Auth.ToSettings()
	verifier := auth.JWTVerifier{Secret: authCfg.JWTSecret}

	chatService := chatsvc.NewService(db, cfg.Chat.WithdrawWindowDuration())
	danmuService := danmusvc.NewService(db, cfg.Danmu.MaxLengthOrDefault(), publisher)
	profiles := userinfo.NewStore(db)

	// 注册表随进程构造一次，按引用注入到每条连接
	chatRegistry := ws.NewChatRegistry()
	danmuRegistry := ws.NewDanmuRegistry()

	chatWS := ws.NewChatHandler(chatRegistry, verifier, chatService, profiles)
	danmuWS := ws.NewDanmuHandler(danmuRegistry, verifier, danmuService)

	r := api.SetupRouter(authCfg, cfg.Chat, chatService, danmuService, profiles, chatRegistry, chatWS, danmuWS)

	// 简单首页/健康检查（便于开发验证）
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "service": "clipwave"})
	})

	// 启动服务
	addr := cfg.Server.AddrOrDefault()
	log.Printf("HTTP 服务器已启动: http://localhost%v", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Gin 启动失败: %v", err)
	}
}
