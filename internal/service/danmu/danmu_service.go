package danmu

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"clipwave/internal/models"
)

// HTML 标签匹配正则（用于 XSS 防护）
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// 危险关键字正则（script、iframe、onclick 等常见攻击向量）
var dangerousPattern = regexp.MustCompile(`(?i)(script|iframe|object|embed|applet|javascript:|vbscript:|onclick|onerror|onload|onmouseover|eval|expression)`)

// ReviewPublisher 弹幕入库后的审核事件发布方；nil 表示不发布
type ReviewPublisher interface {
	PublishDanmu(d *models.Danmu) error
}

// Service 弹幕持久层：内容清洗、入库与按视频查询
type Service struct {
	db        *gorm.DB
	maxLength int
	publisher ReviewPublisher
}

func NewService(gdb *gorm.DB, maxLength int, publisher ReviewPublisher) *Service {
	if maxLength <= 0 {
		maxLength = 100
	}
	return &Service{db: gdb, maxLength: maxLength, publisher: publisher}
}

// Append 清洗内容、补全样式默认值后落库，并递增视频弹幕计数
// 入库成功后异步发布审核事件（尽力而为）；返回新弹幕的主键
func (s *Service) Append(vid, senderID int64, content string, timePoint float64, mode int, color string, now time.Time) (int64, error) {
	clean, err := s.Sanitize(content)
	if err != nil {
		return 0, err
	}
	if timePoint < 0 {
		return 0, fmt.Errorf("非法的弹幕时间点: %v", timePoint)
	}
	if mode != models.DanmuModeScroll && mode != models.DanmuModeTop && mode != models.DanmuModeBottom {
		mode = models.DanmuModeScroll
	}
	if strings.TrimSpace(color) == "" {
		color = models.DanmuDefaultColor
	}

	d := models.Danmu{
		VID:        vid,
		UID:        senderID,
		Content:    clean,
		Fontsize:   models.DanmuDefaultFontsize,
		Mode:       mode,
		Color:      color,
		TimePoint:  timePoint,
		State:      models.DanmuStateNormal,
		CreateDate: now,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var video models.Video
		if err := tx.Select("vid").Where("vid = ?", vid).First(&video).Error; err != nil {
			return fmt.Errorf("视频不存在: %w", err)
		}
		if err := tx.Create(&d).Error; err != nil {
			return err
		}
		res := tx.Model(&models.VideoStats{}).Where("vid = ?", vid).
			Update("danmu", gorm.Expr("danmu + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Create(&models.VideoStats{VID: vid, Danmu: 1}).Error
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.publisher != nil {
		go func(ev models.Danmu) {
			if err := s.publisher.PublishDanmu(&ev); err != nil {
				log.Printf("发布弹幕审核事件失败: id=%d err=%v", ev.ID, err)
			}
		}(d)
	}
	return d.ID, nil
}

// Sanitize 拒绝危险关键字、移除 HTML 标签并限制长度
// 关键字先于剥标签检查，否则 <script> 剥掉后就漏网了
func (s *Service) Sanitize(content string) (string, error) {
	if dangerousPattern.MatchString(content) {
		return "", fmt.Errorf("弹幕内容包含非法字符")
	}
	clean := htmlTagPattern.ReplaceAllString(content, "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", fmt.Errorf("弹幕内容不能为空")
	}
	if runes := []rune(clean); len(runes) > s.maxLength {
		clean = string(runes[:s.maxLength])
	}
	return clean, nil
}

// ListByVid 查询某视频所有已过审的弹幕，按视频时间点升序
func (s *Service) ListByVid(vid int64) ([]models.Danmu, error) {
	var list []models.Danmu
	err := s.db.
		Where("vid = ? AND state = ?", vid, models.DanmuStateNormal).
		Order("time_point ASC").
		Find(&list).Error
	return list, err
}

// ListByVidAndDate 查询某视频指定日期内发送的已过审弹幕
func (s *Service) ListByVidAndDate(vid int64, day time.Time) ([]models.Danmu, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var list []models.Danmu
	err := s.db.
		Where("vid = ? AND state = ?", vid, models.DanmuStateNormal).
		Where("create_date >= ? AND create_date < ?", start, end).
		Order("time_point ASC").
		Find(&list).Error
	return list, err
}
