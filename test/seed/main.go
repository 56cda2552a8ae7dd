package main

import (
	"log"
	"time"

	"clipwave/internal/config"
	"clipwave/internal/models"
	"clipwave/internal/server/auth"
	database "clipwave/internal/server/db"
)

// 本地联调用的数据种子：写入两个用户和一个视频，并打印各自的访问令牌
func main() {
	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	db, err := database.OpenGorm(cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	now := time.Now()
	users := []models.User{
		{Nickname: "alice", Auth: 0, CreatedAt: now},
		{Nickname: "bob", Auth: 1, CreatedAt: now},
	}
	for i := range users {
		if err := db.Where("nickname = ?", users[i].Nickname).FirstOrCreate(&users[i]).Error; err != nil {
			log.Fatalf("写入用户失败: %v", err)
		}
	}

	video := models.Video{Title: "本地联调视频", UID: users[0].UID, Duration: 300, Status: 1, CreatedAt: now}
	if err := db.Where("title = ?", video.Title).FirstOrCreate(&video).Error; err != nil {
		log.Fatalf("写入视频失败: %v", err)
	}
	log.Printf("视频已就绪: vid=%d", video.VID)

	settings := cfg.Auth.ToSettings()
	for _, u := range users {
		token, _, err := auth.SignAccessToken(u.UID, u.Nickname, settings.AccessTTL, settings.JWTSecret)
		if err != nil {
			log.Fatalf("签发令牌失败: %v", err)
		}
		log.Printf("用户 %s (uid=%d) 令牌: %s", u.Nickname, u.UID, token)
	}
}
