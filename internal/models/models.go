package models

import (
	"time"

	"gorm.io/datatypes"
)

// 弹幕模式 1滚动 2顶部 3底部
const (
	DanmuModeScroll = 1
	DanmuModeTop    = 2
	DanmuModeBottom = 3
)

// 弹幕审核状态
const (
	DanmuStateNormal  = 1 // 默认过审
	DanmuStatePending = 2 // 被举报审核中
	DanmuStateDeleted = 3 // 已删除
)

// 弹幕默认样式
const (
	DanmuDefaultFontsize = 25
	DanmuDefaultColor    = "#FFFFFF"
)

// Users
// 账号注册与资料维护由账号服务负责，这里只读取公开资料做消息投影
type User struct {
	UID       int64     `gorm:"primaryKey;autoIncrement" json:"uid"`
	Nickname  string    `gorm:"size:64;uniqueIndex;not null" json:"nickname"`
	Avatar    *string   `gorm:"size:512" json:"avatar,omitempty"`
	Auth      int       `gorm:"not null;default:0" json:"auth"`
	AuthMsg   *string   `gorm:"size:128" json:"auth_msg,omitempty"`
	State     int       `gorm:"not null;default:0" json:"state"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// 视频，Tags 为 JSON 数组
type Video struct {
	VID       int64          `gorm:"column:vid;primaryKey;autoIncrement" json:"vid"`
	UID       int64          `gorm:"column:uid;not null;index" json:"uid"`
	Title     string         `gorm:"size:128;not null" json:"title"`
	Tags      datatypes.JSON `gorm:"type:json" json:"tags,omitempty"`
	Duration  float64        `json:"duration"`
	Status    int            `gorm:"not null;default:1" json:"status"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

// 视频统计，弹幕入库时递增 Danmu 计数
type VideoStats struct {
	VID   int64 `gorm:"column:vid;primaryKey" json:"vid"`
	Play  int64 `gorm:"not null;default:0" json:"play"`
	Danmu int64 `gorm:"not null;default:0" json:"danmu"`
	Good  int64 `gorm:"not null;default:0" json:"good"`
}

// 聊天会话（每个方向一行），唯一对 (user_id, another_id)
// LatestTime 为最近收发消息或最近打开聊天窗口的时间
type ChatSession struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"not null;uniqueIndex:uidx_chat_pair,priority:1" json:"user_id"`
	AnotherID  int64     `gorm:"not null;uniqueIndex:uidx_chat_pair,priority:2" json:"another_id"`
	IsDeleted  bool      `gorm:"not null;default:false" json:"is_deleted"`
	Unread     int       `gorm:"not null;default:0" json:"unread"`
	LatestTime time.Time `gorm:"not null;index" json:"latest_time"`
}

// 聊天记录；入库后除三个标记位外不可变
// UserDel / AnotherDel 为收发双方各自的软删除，Withdraw 为撤回标记
type ChatMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"not null;index:idx_chat_msg,priority:1" json:"user_id"`
	AnotherID  int64     `gorm:"not null;index:idx_chat_msg,priority:2" json:"another_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	UserDel    bool      `gorm:"not null;default:false" json:"user_del"`
	AnotherDel bool      `gorm:"not null;default:false" json:"another_del"`
	Withdraw   bool      `gorm:"not null;default:false" json:"withdraw"`
	Time       time.Time `gorm:"not null;index:idx_chat_msg,priority:3" json:"time"`
}

// 弹幕；入库后除 State 外不可变
type Danmu struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	VID        int64     `gorm:"column:vid;not null;index:idx_danmu_vid_state,priority:1" json:"vid"`
	UID        int64     `gorm:"column:uid;not null" json:"uid"`
	Content    string    `gorm:"size:100;not null" json:"content"`
	Fontsize   int       `gorm:"not null;default:25" json:"fontsize"`
	Mode       int       `gorm:"not null;default:1" json:"mode"`
	Color      string    `gorm:"size:16;not null;default:#FFFFFF" json:"color"`
	TimePoint  float64   `gorm:"column:time_point;not null" json:"time_point"`
	State      int       `gorm:"not null;default:1;index:idx_danmu_vid_state,priority:2" json:"state"`
	CreateDate time.Time `gorm:"column:create_date;not null" json:"create_date"`
}
