package userinfo

import (
	"errors"

	"gorm.io/gorm"

	"clipwave/internal/models"
)

// PublicProfile 对外公开的用户资料投影
type PublicProfile struct {
	UID      int64   `json:"uid"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar_url,omitempty"`
	Auth     int     `json:"auth"`
}

// GetPublicProfile 查询公开资料，用户不存在时返回 (nil, nil)
func GetPublicProfile(gdb *gorm.DB, uid int64) (*PublicProfile, error) {
	var u models.User
	if err := gdb.Select("uid", "nickname", "avatar", "auth").Where("uid = ?", uid).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &PublicProfile{UID: u.UID, Nickname: u.Nickname, Avatar: u.Avatar, Auth: u.Auth}, nil
}

// Store 基于 gorm 的资料查询实现，满足 ws.ProfileLookup
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) GetPublicProfile(uid int64) (*PublicProfile, error) {
	return GetPublicProfile(s.db, uid)
}
