package chat

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"clipwave/internal/models"
)

// Service 私信持久层：消息追加、撤回与会话簿记
type Service struct {
	db             *gorm.DB
	withdrawWindow time.Duration
}

func NewService(gdb *gorm.DB, withdrawWindow time.Duration) *Service {
	if withdrawWindow <= 0 {
		withdrawWindow = 5 * time.Minute
	}
	return &Service{db: gdb, withdrawWindow: withdrawWindow}
}

// Append 落库一条私信并维护双方会话（接收方未读数 +1），整体在一个事务内
// 返回新消息的主键
func (s *Service) Append(senderID, receiverID int64, content string, now time.Time) (int64, error) {
	msg := models.ChatMessage{
		UserID:    senderID,
		AnotherID: receiverID,
		Content:   content,
		Time:      now,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return s.updateSessions(tx, senderID, receiverID, now)
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// MarkWithdrawn 撤回消息：要求请求者是原发送者且仍在撤回窗口内
// 不满足条件时返回 false 而非错误
func (s *Service) MarkWithdrawn(messageID, requesterID int64, now time.Time) (bool, error) {
	var msg models.ChatMessage
	if err := s.db.Where("id = ?", messageID).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if msg.UserID != requesterID || msg.Withdraw {
		return false, nil
	}
	if !WithinWithdrawWindow(msg.Time, now, s.withdrawWindow) {
		return false, nil
	}
	res := s.db.Model(&models.ChatMessage{}).Where("id = ? AND withdraw = ?", messageID, false).
		Update("withdraw", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// WithinWithdrawWindow 发送时间 sent 在 now 回看 window 以内
func WithinWithdrawWindow(sent, now time.Time, window time.Duration) bool {
	return !now.After(sent.Add(window))
}

// History 双向聊天记录，过滤撤回消息与查询方已删除的消息，按时间倒序分页
func (s *Service) History(userID, anotherID int64, offset, limit int) ([]models.ChatMessage, error) {
	var list []models.ChatMessage
	err := s.db.
		Where(
			s.db.Where("user_id = ? AND another_id = ? AND user_del = ?", userID, anotherID, false).
				Or("user_id = ? AND another_id = ? AND another_del = ?", anotherID, userID, false),
		).
		Where("withdraw = ?", false).
		Order("time DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

// Sessions 查询用户未移除的会话列表，按最近时间倒序
func (s *Service) Sessions(userID int64, offset, limit int) ([]models.ChatSession, error) {
	var list []models.ChatSession
	err := s.db.
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("latest_time DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

// ClearUnread 打开聊天窗口时清空未读数
func (s *Service) ClearUnread(userID, anotherID int64) error {
	return s.db.Model(&models.ChatSession{}).
		Where("user_id = ? AND another_id = ?", userID, anotherID).
		Update("unread", 0).Error
}

// DeleteBySender 发送方删除自己侧的消息记录
func (s *Service) DeleteBySender(messageID, userID int64) (bool, error) {
	res := s.db.Model(&models.ChatMessage{}).
		Where("id = ? AND user_id = ?", messageID, userID).
		Update("user_del", true)
	return res.RowsAffected > 0, res.Error
}

// DeleteByReceiver 接收方删除自己侧的消息记录
func (s *Service) DeleteByReceiver(messageID, userID int64) (bool, error) {
	res := s.db.Model(&models.ChatMessage{}).
		Where("id = ? AND another_id = ?", messageID, userID).
		Update("another_del", true)
	return res.RowsAffected > 0, res.Error
}

// updateSessions 双方会话 latest_time 刷新，接收方未读数 +1
func (s *Service) updateSessions(tx *gorm.DB, senderID, receiverID int64, now time.Time) error {
	senderChat, err := s.createOrGetSession(tx, senderID, receiverID, now)
	if err != nil {
		return err
	}
	receiverChat, err := s.createOrGetSession(tx, receiverID, senderID, now)
	if err != nil {
		return err
	}
	if err := tx.Model(&models.ChatSession{}).Where("id = ?", senderChat.ID).
		Update("latest_time", now).Error; err != nil {
		return err
	}
	return tx.Model(&models.ChatSession{}).Where("id = ?", receiverChat.ID).
		Updates(map[string]interface{}{
			"latest_time": now,
			"unread":      gorm.Expr("unread + 1"),
		}).Error
}

func (s *Service) createOrGetSession(tx *gorm.DB, userID, anotherID int64, now time.Time) (*models.ChatSession, error) {
	var sess models.ChatSession
	err := tx.Where("user_id = ? AND another_id = ?", userID, anotherID).First(&sess).Error
	if err == nil {
		return &sess, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	sess = models.ChatSession{
		UserID:     userID,
		AnotherID:  anotherID,
		Unread:     0,
		LatestTime: now,
	}
	if err := tx.Create(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}
